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
)

type AuthHandler struct {
	userStore   *store.UserStore
	familyStore *store.FamilyStore
	tokens      *auth.Tokens
	logger      *slog.Logger
}

func NewAuthHandler(us *store.UserStore, fs *store.FamilyStore, tokens *auth.Tokens, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userStore:   us,
		familyStore: fs,
		tokens:      tokens,
		logger:      logger,
	}
}

// Authenticate signs a user in, creating the account and a single-member
// family on first use. Calling it again with the same identity returns the
// same user and their current family.
func (h *AuthHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req model.Identity
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "a valid email is required"})
		return
	}
	if req.Secret == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "secret is required"})
		return
	}

	user, created, err := h.userStore.Authenticate(req.Email, req.Name, req.Secret)
	if errors.Is(err, store.ErrInvalidSecret) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	if err != nil {
		h.logger.Error("authenticate user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to authenticate"})
		return
	}

	family, err := h.familyStore.EnsureForUser(user.ID)
	if err != nil {
		h.logger.Error("ensure family", "user_id", user.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load family"})
		return
	}

	token, expires, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("issue token", "user_id", user.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to issue token"})
		return
	}

	if created {
		h.logger.Info("user registered", "user_id", user.ID, "family_id", family.ID)
	}
	h.logger.Debug("token issued", "user_id", user.ID, "expires", expires)

	writeJSON(w, http.StatusOK, model.Session{
		User:   *user,
		Family: *family,
		Token:  token,
	})
}
