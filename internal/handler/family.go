package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/basket/internal/auth"
	"github.com/dukerupert/basket/internal/store"
	ws "github.com/dukerupert/basket/internal/websocket"
)

type FamilyHandler struct {
	store  *store.FamilyStore
	hub    *ws.Hub
	logger *slog.Logger
}

func NewFamilyHandler(s *store.FamilyStore, hub *ws.Hub, logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{store: s, hub: hub, logger: logger}
}

func (h *FamilyHandler) Show(w http.ResponseWriter, r *http.Request) {
	family, err := h.store.ForUser(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get family", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get family"})
		return
	}
	if family == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "family not found"})
		return
	}
	writeJSON(w, http.StatusOK, family)
}

func (h *FamilyHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InviteCode string `json:"invite_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	userID := auth.UserID(r.Context())
	family, err := h.store.Join(userID, req.InviteCode)
	if err != nil {
		h.logger.Error("join family", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to join family"})
		return
	}
	if family == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "invite code not found"})
		return
	}

	h.hub.Move(userID, family.ID)
	h.logger.Info("joined family", "user_id", userID, "family_id", family.ID)
	writeJSON(w, http.StatusOK, family)
}

func (h *FamilyHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	family, err := h.store.Leave(userID)
	if err != nil {
		h.logger.Error("leave family", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to leave family"})
		return
	}

	h.hub.Move(userID, family.ID)
	h.logger.Info("left family", "user_id", userID, "family_id", family.ID)
	writeJSON(w, http.StatusOK, family)
}

func (h *FamilyHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.UserID(r.Context())
	targetID := r.PathValue("id")
	if targetID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	family, err := h.store.RemoveMember(ownerID, targetID)
	switch {
	case errors.Is(err, store.ErrNotOwner):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only the family owner can remove members"})
		return
	case errors.Is(err, store.ErrRemoveYourself):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "use leave to remove yourself"})
		return
	case errors.Is(err, store.ErrNotMember):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "member not found"})
		return
	case err != nil:
		h.logger.Error("remove member", "owner_id", ownerID, "target_id", targetID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to remove member"})
		return
	}
	if family == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "family not found"})
		return
	}

	if newID, err := h.store.FamilyIDForUser(targetID); err == nil && newID != "" {
		h.hub.Move(targetID, newID)
	}
	h.logger.Info("removed member", "family_id", family.ID, "target_id", targetID)
	writeJSON(w, http.StatusOK, family)
}
