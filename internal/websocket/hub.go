package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukerupert/basket/internal/model"
)

const (
	EntityItem = "item"

	ActionInserted = "inserted"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
)

// Message is a change notification for one row, sent to the clients of the
// family that owns it.
type Message struct {
	Type     string      `json:"type"`
	Entity   string      `json:"entity"`
	Action   string      `json:"action"`
	ID       string      `json:"id"`
	FamilyID string      `json:"family_id"`
	Item     *model.Item `json:"item,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action, familyID, id string, item *model.Item) Message {
	return Message{
		Type:     fmt.Sprintf("%s_%s", entity, action),
		Entity:   entity,
		Action:   action,
		ID:       id,
		FamilyID: familyID,
		Item:     item,
	}
}

// Hub maintains the set of active WebSocket clients and fans messages out to
// the clients of one family.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to every client subscribed to msg.FamilyID.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.familyID != msg.FamilyID {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Warn("client buffer full, dropping message", "family_id", c.familyID, "type", msg.Type)
		}
	}
}

// Move re-scopes every connection of userID to familyID after the user
// joins, leaves or is removed from a family.
func (h *Hub) Move(userID, familyID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.userID == userID {
			c.familyID = familyID
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
