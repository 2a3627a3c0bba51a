package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/basket/internal/auth"
	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/store"
	ws "github.com/dukerupert/basket/internal/websocket"
)

type ItemHandler struct {
	store  *store.ItemStore
	hub    *ws.Hub
	logger *slog.Logger
}

func NewItemHandler(s *store.ItemStore, hub *ws.Hub, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{store: s, hub: hub, logger: logger}
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListByFamily(auth.FamilyID(r.Context()))
	if err != nil {
		h.logger.Error("list items", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list items"})
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Upsert writes the item keyed by the path id and notifies the family.
func (h *ItemHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var item model.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if item.ID != "" && item.ID != id {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id does not match path"})
		return
	}
	item.ID = id

	if strings.TrimSpace(item.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if item.PurchaseCount < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "purchase_count must not be negative"})
		return
	}

	familyID := auth.FamilyID(r.Context())
	saved, created, err := h.store.Upsert(familyID, item)
	if errors.Is(err, store.ErrWrongFamily) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "item belongs to another family"})
		return
	}
	if err != nil {
		h.logger.Error("upsert item", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save item"})
		return
	}

	action, status := ws.ActionUpdated, http.StatusOK
	if created {
		action, status = ws.ActionInserted, http.StatusCreated
	}
	h.hub.Broadcast(ws.NewMessage(ws.EntityItem, action, familyID, saved.ID, saved))
	writeJSON(w, status, saved)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	familyID := auth.FamilyID(r.Context())

	deleted, err := h.store.Delete(familyID, id)
	if err != nil {
		h.logger.Error("delete item", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete item"})
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}

	h.hub.Broadcast(ws.NewMessage(ws.EntityItem, ws.ActionDeleted, familyID, id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
