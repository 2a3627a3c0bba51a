package store

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/dukerupert/basket/internal/model"
)

var (
	ErrNotOwner       = errors.New("only the family owner can remove members")
	ErrNotMember      = errors.New("user is not a member of this family")
	ErrRemoveYourself = errors.New("the owner cannot remove themselves")
)

const (
	inviteAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	inviteCodeLength = 8
)

type FamilyStore struct {
	db *sql.DB
}

func NewFamilyStore(db *sql.DB) *FamilyStore {
	return &FamilyStore{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// generateInviteCode returns an 8-character code without look-alike characters.
func generateInviteCode() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(inviteAlphabet)))
	for i := 0; i < inviteCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		b.WriteByte(inviteAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func scanMember(scanner interface{ Scan(...any) error }) (*model.Member, error) {
	var m model.Member
	err := scanner.Scan(&m.UserID, &m.Name, &m.Email, &m.JoinedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create makes a new family owned by userID and moves the user into it.
func (s *FamilyStore) Create(userID string) (*model.Family, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := leaveCurrent(tx, userID); err != nil {
		return nil, err
	}
	if _, err := createFamily(tx, userID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.ForUser(userID)
}

func createFamily(q querier, ownerID string) (string, error) {
	code, err := generateInviteCode()
	if err != nil {
		return "", err
	}
	id := newID()
	if _, err := q.Exec(
		`INSERT INTO families (id, invite_code, owner_id) VALUES (?, ?, ?)`,
		id, code, ownerID,
	); err != nil {
		return "", fmt.Errorf("insert family: %w", err)
	}
	if err := addMember(q, id, ownerID); err != nil {
		return "", err
	}
	return id, nil
}

func addMember(q querier, familyID, userID string) error {
	_, err := q.Exec(
		`INSERT INTO family_members (user_id, family_id, joined_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET family_id = excluded.family_id, joined_at = excluded.joined_at`,
		userID, familyID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// leaveCurrent removes userID from their family. An owner hands the family
// to the longest-standing remaining member; an empty family is deleted along
// with its items.
func leaveCurrent(q querier, userID string) error {
	var familyID, ownerID string
	err := q.QueryRow(
		`SELECT f.id, f.owner_id FROM families f
		 JOIN family_members fm ON fm.family_id = f.id
		 WHERE fm.user_id = ?`,
		userID,
	).Scan(&familyID, &ownerID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup family: %w", err)
	}

	if _, err := q.Exec(`DELETE FROM family_members WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if ownerID != userID {
		return nil
	}

	var next string
	err = q.QueryRow(
		`SELECT user_id FROM family_members WHERE family_id = ? ORDER BY joined_at ASC, user_id ASC LIMIT 1`,
		familyID,
	).Scan(&next)
	if err == sql.ErrNoRows {
		if _, err := q.Exec(`DELETE FROM families WHERE id = ?`, familyID); err != nil {
			return fmt.Errorf("delete family: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("next owner: %w", err)
	}
	if _, err := q.Exec(`UPDATE families SET owner_id = ? WHERE id = ?`, next, familyID); err != nil {
		return fmt.Errorf("transfer ownership: %w", err)
	}
	return nil
}

func (s *FamilyStore) GetByID(id string) (*model.Family, error) {
	var f model.Family
	err := s.db.QueryRow(
		`SELECT id, invite_code, owner_id FROM families WHERE id = ?`, id,
	).Scan(&f.ID, &f.InviteCode, &f.OwnerID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}

	members, err := s.ListMembers(f.ID)
	if err != nil {
		return nil, err
	}
	for i := range members {
		members[i].IsOwner = members[i].UserID == f.OwnerID
	}
	f.Members = members
	return &f, nil
}

// ForUser returns the family userID belongs to, seen from that user.
func (s *FamilyStore) ForUser(userID string) (*model.Family, error) {
	id, err := s.FamilyIDForUser(userID)
	if err != nil || id == "" {
		return nil, err
	}
	f, err := s.GetByID(id)
	if err != nil || f == nil {
		return f, err
	}
	f.IsOwner = f.OwnerID == userID
	return f, nil
}

// FamilyIDForUser returns "" when the user has no family.
func (s *FamilyStore) FamilyIDForUser(userID string) (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT family_id FROM family_members WHERE user_id = ?`, userID).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get family for user: %w", err)
	}
	return id, nil
}

// EnsureForUser returns the user's family, creating a single-member family
// when the user has none.
func (s *FamilyStore) EnsureForUser(userID string) (*model.Family, error) {
	f, err := s.ForUser(userID)
	if err != nil || f != nil {
		return f, err
	}
	return s.Create(userID)
}

func (s *FamilyStore) ListMembers(familyID string) ([]model.Member, error) {
	rows, err := s.db.Query(
		`SELECT u.id, u.name, u.email, fm.joined_at
		 FROM family_members fm
		 JOIN users u ON u.id = fm.user_id
		 WHERE fm.family_id = ?
		 ORDER BY fm.joined_at ASC, u.id ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// Join moves userID into the family with the given invite code. It returns
// nil when the code matches no family.
func (s *FamilyStore) Join(userID, inviteCode string) (*model.Family, error) {
	code := strings.ToUpper(strings.TrimSpace(inviteCode))
	if code == "" {
		return nil, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var familyID string
	err = tx.QueryRow(`SELECT id FROM families WHERE invite_code = ?`, code).Scan(&familyID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup invite code: %w", err)
	}

	var current string
	err = tx.QueryRow(`SELECT family_id FROM family_members WHERE user_id = ?`, userID).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("get family for user: %w", err)
	}
	if current != familyID {
		if err := leaveCurrent(tx, userID); err != nil {
			return nil, err
		}
		if err := addMember(tx, familyID, userID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.ForUser(userID)
}

// Leave takes userID out of their family and gives them a fresh
// single-member family.
func (s *FamilyStore) Leave(userID string) (*model.Family, error) {
	return s.Create(userID)
}

// RemoveMember lets the owner of a family move targetID out of it. The
// removed user gets a fresh single-member family. It returns the owner's
// family afterwards.
func (s *FamilyStore) RemoveMember(ownerID, targetID string) (*model.Family, error) {
	f, err := s.ForUser(ownerID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, nil
	}
	if !f.IsOwner {
		return nil, ErrNotOwner
	}
	if targetID == ownerID {
		return nil, ErrRemoveYourself
	}
	found := false
	for _, m := range f.Members {
		if m.UserID == targetID {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrNotMember
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := leaveCurrent(tx, targetID); err != nil {
		return nil, err
	}
	if _, err := createFamily(tx, targetID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.ForUser(ownerID)
}
