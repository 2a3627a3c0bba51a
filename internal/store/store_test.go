package store

import (
	"database/sql"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/basket/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func setupUserStore(t *testing.T, db *sql.DB) *UserStore {
	t.Helper()
	us := NewUserStore(db)
	us.cost = bcrypt.MinCost
	return us
}

func mustCreateUser(t *testing.T, us *UserStore, email, name string) string {
	t.Helper()
	u, err := us.Create(email, name, "secret")
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u.ID
}
