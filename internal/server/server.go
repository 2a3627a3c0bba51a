package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/basket/internal/auth"
	"github.com/dukerupert/basket/internal/handler"
	"github.com/dukerupert/basket/internal/middleware"
	"github.com/dukerupert/basket/internal/store"
	ws "github.com/dukerupert/basket/internal/websocket"
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	authH       *handler.AuthHandler
	familyH     *handler.FamilyHandler
	itemH       *handler.ItemHandler
	tokens      *auth.Tokens
	familyStore *store.FamilyStore
	authLimit   *middleware.Limiter
	writeLimit  *middleware.Limiter
	logger      *slog.Logger
}

func New(db *sql.DB, tokens *auth.Tokens, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	familyStore := store.NewFamilyStore(db)
	itemStore := store.NewItemStore(db)

	return &Server{
		db:          db,
		hub:         hub,
		authH:       handler.NewAuthHandler(userStore, familyStore, tokens, logger.With("component", "auth")),
		familyH:     handler.NewFamilyHandler(familyStore, hub, logger.With("component", "family")),
		itemH:       handler.NewItemHandler(itemStore, hub, logger.With("component", "item")),
		tokens:      tokens,
		familyStore: familyStore,
		authLimit:   middleware.NewLimiter(middleware.Rule{Limit: 10, Window: time.Minute}),
		writeLimit:  middleware.NewLimiter(middleware.Rule{Limit: 600, Window: time.Minute}),
		logger:      logger,
	}
}

// Limiters returns the rate limiters so the caller can sweep them.
func (s *Server) Limiters() []*middleware.Limiter {
	return []*middleware.Limiter{s.authLimit, s.writeLimit}
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.Handle("POST /api/auth", middleware.Limit(s.authLimit, middleware.RealIP)(http.HandlerFunc(s.authH.Authenticate)))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens, s.familyStore, s.logger.With("component", "auth"))
	outerMux.Handle("/", authMiddleware(protectedMux))

	// Apply request logging middleware
	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Family routes
	mux.HandleFunc("GET /api/family", s.familyH.Show)
	mux.HandleFunc("POST /api/family/join", s.familyH.Join)
	mux.HandleFunc("POST /api/family/leave", s.familyH.Leave)
	mux.Handle("DELETE /api/family/members/{id}", middleware.RequireOwner(http.HandlerFunc(s.familyH.RemoveMember)))

	// Item routes
	mux.HandleFunc("GET /api/family/items", s.itemH.List)
	writes := middleware.Limit(s.writeLimit, middleware.CallerKey)
	mux.Handle("PUT /api/items/{id}", writes(http.HandlerFunc(s.itemH.Upsert)))
	mux.Handle("DELETE /api/items/{id}", writes(http.HandlerFunc(s.itemH.Delete)))

	// WebSocket
	mux.HandleFunc("GET /api/family/events", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}
