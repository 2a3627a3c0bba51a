package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/basket/internal/auth"
)

// HandleWebSocket returns an HTTP handler that upgrades authenticated
// requests to WebSocket and runs them as Hub clients of the caller's family.
func HandleWebSocket(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok || ac.FamilyID == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Warn("accept websocket", "error", err)
			return
		}
		defer conn.CloseNow()

		client := NewClient(hub, conn, ac.UserID, ac.FamilyID)
		client.Run(r.Context())
	}
}
