package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/basket/internal/auth"
	"github.com/dukerupert/basket/internal/database"
	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/store"
	ws "github.com/dukerupert/basket/internal/websocket"
)

type testEnv struct {
	users    *store.UserStore
	families *store.FamilyStore
	items    *store.ItemStore
	tokens   *auth.Tokens
	hub      *ws.Hub
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &testEnv{
		users:    store.NewUserStore(db),
		families: store.NewFamilyStore(db),
		items:    store.NewItemStore(db),
		tokens:   auth.NewTokens("test-secret", time.Hour),
		hub:      ws.NewHub(slog.Default()),
	}
}

// member creates a user with a family and returns a request context for them.
func (e *testEnv) member(t *testing.T, email string) (*model.User, *model.Family, context.Context) {
	t.Helper()
	u, err := e.users.Create(email, email, "pw")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	f, err := e.families.EnsureForUser(u.ID)
	if err != nil {
		t.Fatalf("ensure family: %v", err)
	}
	ctx := auth.WithAuth(context.Background(), auth.AuthContext{UserID: u.ID, FamilyID: f.ID, IsOwner: f.IsOwner})
	return u, f, ctx
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(b)
}

func TestAuthenticateCreatesUserAndFamily(t *testing.T) {
	env := setupEnv(t)
	h := NewAuthHandler(env.users, env.families, env.tokens, slog.Default())

	req := httptest.NewRequest("POST", "/api/auth", jsonBody(t, model.Identity{Email: "Alice@Example.com", Name: "Alice", Secret: "pw"}))
	rec := httptest.NewRecorder()
	h.Authenticate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var session model.Session
	if err := json.NewDecoder(rec.Body).Decode(&session); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if session.Token == "" {
		t.Error("expected token")
	}
	if session.Family.ID == "" || !session.Family.IsOwner {
		t.Errorf("family = %+v, want owned family", session.Family)
	}
	if len(session.Family.Members) != 1 {
		t.Errorf("members = %d, want 1", len(session.Family.Members))
	}

	userID, err := env.tokens.Verify(session.Token)
	if err != nil || userID != session.User.ID {
		t.Errorf("Verify = %q, %v; want %q", userID, err, session.User.ID)
	}

	// Same identity again returns the same family.
	req = httptest.NewRequest("POST", "/api/auth", jsonBody(t, model.Identity{Email: "alice@example.com", Secret: "pw"}))
	rec = httptest.NewRecorder()
	h.Authenticate(rec, req)
	var again model.Session
	json.NewDecoder(rec.Body).Decode(&again)
	if again.User.ID != session.User.ID || again.Family.ID != session.Family.ID {
		t.Errorf("second authenticate = %s/%s, want %s/%s", again.User.ID, again.Family.ID, session.User.ID, session.Family.ID)
	}
}

func TestAuthenticateWrongSecret(t *testing.T) {
	env := setupEnv(t)
	h := NewAuthHandler(env.users, env.families, env.tokens, slog.Default())
	env.users.Create("alice@example.com", "Alice", "pw")

	req := httptest.NewRequest("POST", "/api/auth", jsonBody(t, model.Identity{Email: "alice@example.com", Secret: "nope"}))
	rec := httptest.NewRecorder()
	h.Authenticate(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthenticateValidation(t *testing.T) {
	env := setupEnv(t)
	h := NewAuthHandler(env.users, env.families, env.tokens, slog.Default())

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{"},
		{"missing email", `{"secret":"pw"}`},
		{"bad email", `{"email":"alice","secret":"pw"}`},
		{"missing secret", `{"email":"alice@example.com"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/auth", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			h.Authenticate(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestFamilyJoinAndLeave(t *testing.T) {
	env := setupEnv(t)
	h := NewFamilyHandler(env.families, env.hub, slog.Default())
	_, owned, _ := env.member(t, "alice@example.com")
	bob, _, bobCtx := env.member(t, "bob@example.com")

	req := httptest.NewRequest("POST", "/api/family/join", jsonBody(t, map[string]string{"invite_code": owned.InviteCode})).WithContext(bobCtx)
	rec := httptest.NewRecorder()
	h.Join(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("join status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var joined model.Family
	json.NewDecoder(rec.Body).Decode(&joined)
	if joined.ID != owned.ID {
		t.Errorf("joined family = %q, want %q", joined.ID, owned.ID)
	}
	if joined.IsOwner {
		t.Error("joiner should not own the family")
	}
	if len(joined.Members) != 2 {
		t.Errorf("members = %d, want 2", len(joined.Members))
	}

	req = httptest.NewRequest("POST", "/api/family/leave", nil).WithContext(bobCtx)
	rec = httptest.NewRecorder()
	h.Leave(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("leave status = %d, want %d", rec.Code, http.StatusOK)
	}
	var fresh model.Family
	json.NewDecoder(rec.Body).Decode(&fresh)
	if fresh.ID == owned.ID || !fresh.IsOwner || len(fresh.Members) != 1 {
		t.Errorf("after leave family = %+v, want fresh single-member family", fresh)
	}
	if fresh.Members[0].UserID != bob.ID {
		t.Errorf("member = %q, want %q", fresh.Members[0].UserID, bob.ID)
	}
}

func TestFamilyJoinUnknownCode(t *testing.T) {
	env := setupEnv(t)
	h := NewFamilyHandler(env.families, env.hub, slog.Default())
	_, _, ctx := env.member(t, "alice@example.com")

	req := httptest.NewRequest("POST", "/api/family/join", jsonBody(t, map[string]string{"invite_code": "NOPE2345"})).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Join(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestFamilyRemoveMember(t *testing.T) {
	env := setupEnv(t)
	h := NewFamilyHandler(env.families, env.hub, slog.Default())
	alice, owned, aliceCtx := env.member(t, "alice@example.com")
	bob, _, bobCtx := env.member(t, "bob@example.com")
	if _, err := env.families.Join(bob.ID, owned.InviteCode); err != nil {
		t.Fatalf("join: %v", err)
	}
	bobCtx = auth.WithAuth(bobCtx, auth.AuthContext{UserID: bob.ID, FamilyID: owned.ID})

	// Non-owner is refused.
	req := httptest.NewRequest("DELETE", "/api/family/members/"+alice.ID, nil).WithContext(bobCtx)
	req.SetPathValue("id", alice.ID)
	rec := httptest.NewRecorder()
	h.RemoveMember(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-owner status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	// Owner cannot remove themselves.
	req = httptest.NewRequest("DELETE", "/api/family/members/"+alice.ID, nil).WithContext(aliceCtx)
	req.SetPathValue("id", alice.ID)
	rec = httptest.NewRecorder()
	h.RemoveMember(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("self removal status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	req = httptest.NewRequest("DELETE", "/api/family/members/"+bob.ID, nil).WithContext(aliceCtx)
	req.SetPathValue("id", bob.ID)
	rec = httptest.NewRecorder()
	h.RemoveMember(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var f model.Family
	json.NewDecoder(rec.Body).Decode(&f)
	if len(f.Members) != 1 {
		t.Errorf("members = %d, want 1", len(f.Members))
	}

	bobFamily, _ := env.families.ForUser(bob.ID)
	if bobFamily == nil || bobFamily.ID == owned.ID || !bobFamily.IsOwner {
		t.Errorf("removed member family = %+v, want fresh owned family", bobFamily)
	}

	// Removing someone who is no longer a member.
	req = httptest.NewRequest("DELETE", "/api/family/members/"+bob.ID, nil).WithContext(aliceCtx)
	req.SetPathValue("id", bob.ID)
	rec = httptest.NewRecorder()
	h.RemoveMember(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestItemUpsertAndList(t *testing.T) {
	env := setupEnv(t)
	h := NewItemHandler(env.items, env.hub, slog.Default())
	_, _, ctx := env.member(t, "alice@example.com")

	item := model.Item{Name: "Milk", OnList: true}
	req := httptest.NewRequest("PUT", "/api/items/item-1", jsonBody(t, item)).WithContext(ctx)
	req.SetPathValue("id", "item-1")
	rec := httptest.NewRecorder()
	h.Upsert(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var saved model.Item
	json.NewDecoder(rec.Body).Decode(&saved)
	if saved.ID != "item-1" || saved.CategoryID != model.NoneCategoryID {
		t.Errorf("saved = %+v", saved)
	}

	item.PurchaseCount = 2
	req = httptest.NewRequest("PUT", "/api/items/item-1", jsonBody(t, item)).WithContext(ctx)
	req.SetPathValue("id", "item-1")
	rec = httptest.NewRecorder()
	h.Upsert(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("update status = %d, want %d", rec.Code, http.StatusOK)
	}

	req = httptest.NewRequest("GET", "/api/family/items", nil).WithContext(ctx)
	rec = httptest.NewRecorder()
	h.List(rec, req)

	var items []model.Item
	json.NewDecoder(rec.Body).Decode(&items)
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].PurchaseCount != 2 {
		t.Errorf("PurchaseCount = %d, want 2", items[0].PurchaseCount)
	}
}

func TestItemListEmpty(t *testing.T) {
	env := setupEnv(t)
	h := NewItemHandler(env.items, env.hub, slog.Default())
	_, _, ctx := env.member(t, "alice@example.com")

	req := httptest.NewRequest("GET", "/api/family/items", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if body := bytes.TrimSpace(rec.Body.Bytes()); string(body) != "[]" {
		t.Errorf("body = %s, want []", body)
	}
}

func TestItemUpsertValidation(t *testing.T) {
	env := setupEnv(t)
	h := NewItemHandler(env.items, env.hub, slog.Default())
	_, _, ctx := env.member(t, "alice@example.com")

	tests := []struct {
		name string
		item model.Item
	}{
		{"empty name", model.Item{Name: "  "}},
		{"mismatched id", model.Item{ID: "other", Name: "Milk"}},
		{"negative count", model.Item{Name: "Milk", PurchaseCount: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("PUT", "/api/items/item-1", jsonBody(t, tt.item)).WithContext(ctx)
			req.SetPathValue("id", "item-1")
			rec := httptest.NewRecorder()
			h.Upsert(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestItemUpsertOtherFamilyForbidden(t *testing.T) {
	env := setupEnv(t)
	h := NewItemHandler(env.items, env.hub, slog.Default())
	_, _, aliceCtx := env.member(t, "alice@example.com")
	_, _, bobCtx := env.member(t, "bob@example.com")

	req := httptest.NewRequest("PUT", "/api/items/item-1", jsonBody(t, model.Item{Name: "Milk"})).WithContext(aliceCtx)
	req.SetPathValue("id", "item-1")
	h.Upsert(httptest.NewRecorder(), req)

	req = httptest.NewRequest("PUT", "/api/items/item-1", jsonBody(t, model.Item{Name: "Stolen"})).WithContext(bobCtx)
	req.SetPathValue("id", "item-1")
	rec := httptest.NewRecorder()
	h.Upsert(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	req = httptest.NewRequest("DELETE", "/api/items/item-1", nil).WithContext(bobCtx)
	req.SetPathValue("id", "item-1")
	rec = httptest.NewRecorder()
	h.Delete(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestItemDelete(t *testing.T) {
	env := setupEnv(t)
	h := NewItemHandler(env.items, env.hub, slog.Default())
	_, _, ctx := env.member(t, "alice@example.com")

	req := httptest.NewRequest("PUT", "/api/items/item-1", jsonBody(t, model.Item{Name: "Milk"})).WithContext(ctx)
	req.SetPathValue("id", "item-1")
	h.Upsert(httptest.NewRecorder(), req)

	req = httptest.NewRequest("DELETE", "/api/items/item-1", nil).WithContext(ctx)
	req.SetPathValue("id", "item-1")
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	rec = httptest.NewRecorder()
	h.Delete(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
