package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/basket/internal/model"
)

// ErrWrongFamily is returned when a write targets an item id owned by
// another family.
var ErrWrongFamily = errors.New("item belongs to another family")

type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

func scanItem(scanner interface{ Scan(...any) error }) (*model.Item, error) {
	var item model.Item
	var completed, onList int
	var completedAt sql.NullTime

	err := scanner.Scan(
		&item.ID, &item.FamilyID, &item.Name, &item.CategoryID,
		&completed, &onList, &item.PurchaseCount, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Completed = completed != 0
	item.OnList = onList != 0
	if completedAt.Valid {
		t := completedAt.Time
		item.CompletedAt = &t
	}
	return &item, nil
}

const itemCols = `id, family_id, name, category_id, completed, on_list, purchase_count, completed_at`

func (s *ItemStore) GetByID(id string) (*model.Item, error) {
	row := s.db.QueryRow(`SELECT `+itemCols+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

func (s *ItemStore) ListByFamily(familyID string) ([]model.Item, error) {
	rows, err := s.db.Query(
		`SELECT `+itemCols+` FROM items WHERE family_id = ? ORDER BY rowid ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Upsert writes item into familyID's list, keyed by item id. created reports
// whether the row was new.
func (s *ItemStore) Upsert(familyID string, item model.Item) (saved *model.Item, created bool, err error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.CategoryID == "" {
		item.CategoryID = model.NoneCategoryID
	}
	var completedAt sql.NullTime
	if item.Completed {
		t := time.Now().UTC()
		if item.CompletedAt != nil {
			t = item.CompletedAt.UTC()
		}
		completedAt = sql.NullTime{Time: t, Valid: true}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var owner string
	err = tx.QueryRow(`SELECT family_id FROM items WHERE id = ?`, item.ID).Scan(&owner)
	switch {
	case err == sql.ErrNoRows:
		created = true
	case err != nil:
		return nil, false, fmt.Errorf("lookup item: %w", err)
	case owner != familyID:
		return nil, false, ErrWrongFamily
	}

	_, err = tx.Exec(
		`INSERT INTO items (id, family_id, name, category_id, completed, on_list, purchase_count, completed_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   category_id = excluded.category_id,
		   completed = excluded.completed,
		   on_list = excluded.on_list,
		   purchase_count = excluded.purchase_count,
		   completed_at = excluded.completed_at,
		   updated_at = excluded.updated_at`,
		item.ID, familyID, item.Name, item.CategoryID,
		boolInt(item.Completed), boolInt(item.OnList), item.PurchaseCount, completedAt,
		time.Now().UTC(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("upsert item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}

	saved, err = s.GetByID(item.ID)
	return saved, created, err
}

// Delete removes the item when it belongs to familyID. It reports whether a
// row was removed.
func (s *ItemStore) Delete(familyID, id string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM items WHERE id = ? AND family_id = ?`, id, familyID)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
