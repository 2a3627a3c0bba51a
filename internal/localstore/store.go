// Package localstore persists the household model on the client so it
// survives restarts and can be shown before the remote store answers.
package localstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/shopping"
)

type Store struct {
	db  *sql.DB
	loc *time.Location
}

// New returns a Store over a database opened with database.OpenLocal.
// Timestamps are read back in loc; nil means time.Local.
func New(db *sql.DB, loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{db: db, loc: loc}
}

func (s *Store) Settings() *Settings {
	return NewSettings(s.db)
}

// Load reads the whole model. An empty database yields an empty snapshot.
func (s *Store) Load() (shopping.Snapshot, error) {
	var snap shopping.Snapshot
	var err error

	if snap.Categories, err = s.loadCategories(); err != nil {
		return snap, err
	}
	if snap.Items, err = s.loadItems(); err != nil {
		return snap, err
	}
	if snap.Sets, err = s.loadSets(); err != nil {
		return snap, err
	}
	if snap.Logs, err = s.loadLogs(); err != nil {
		return snap, err
	}
	if snap.PendingDeletes, err = s.loadPendingDeletes(); err != nil {
		return snap, err
	}
	return snap, nil
}

func (s *Store) loadPendingDeletes() ([]string, error) {
	rows, err := s.db.Query(`SELECT item_id FROM pending_deletes ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("list pending deletes: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending delete: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) loadCategories() ([]model.Category, error) {
	rows, err := s.db.Query(`SELECT id, name, emoji FROM categories ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Emoji); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) scanItem(scanner interface{ Scan(...any) error }) (*model.Item, error) {
	var item model.Item
	var completed, onList, synced, dirty int
	var completedAt sql.NullTime

	err := scanner.Scan(
		&item.ID, &item.FamilyID, &item.Name, &item.CategoryID,
		&completed, &onList, &item.PurchaseCount, &completedAt, &synced, &dirty,
	)
	if err != nil {
		return nil, err
	}

	item.Completed = completed != 0
	item.OnList = onList != 0
	item.Synced = synced != 0
	item.Dirty = dirty != 0
	if completedAt.Valid {
		t := completedAt.Time.In(s.loc)
		item.CompletedAt = &t
	}
	return &item, nil
}

func (s *Store) loadItems() ([]model.Item, error) {
	rows, err := s.db.Query(
		`SELECT id, family_id, name, category_id, completed, on_list, purchase_count, completed_at, synced, dirty
		 FROM items ORDER BY position ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := s.scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *Store) loadSets() ([]model.Set, error) {
	rows, err := s.db.Query(`SELECT id, name, emoji, usage_count FROM sets ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}
	var sets []model.Set
	for rows.Next() {
		var set model.Set
		if err := rows.Scan(&set.ID, &set.Name, &set.Emoji, &set.UsageCount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan set: %w", err)
		}
		sets = append(sets, set)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}

	rows, err = s.db.Query(
		`SELECT set_id, name, category_name, emoji FROM set_items ORDER BY set_id, position ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list set items: %w", err)
	}
	defer rows.Close()

	byID := make(map[string][]model.SetItem)
	for rows.Next() {
		var setID string
		var it model.SetItem
		if err := rows.Scan(&setID, &it.Name, &it.CategoryName, &it.Emoji); err != nil {
			return nil, fmt.Errorf("scan set item: %w", err)
		}
		byID[setID] = append(byID[setID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list set items: %w", err)
	}
	for i := range sets {
		sets[i].Items = byID[sets[i].ID]
	}
	return sets, nil
}

func (s *Store) loadLogs() ([]model.PurchaseLog, error) {
	rows, err := s.db.Query(`SELECT id, day FROM purchase_logs ORDER BY day ASC`)
	if err != nil {
		return nil, fmt.Errorf("list purchase logs: %w", err)
	}
	var logs []model.PurchaseLog
	for rows.Next() {
		var log model.PurchaseLog
		if err := rows.Scan(&log.ID, &log.Date); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan purchase log: %w", err)
		}
		log.Date = model.StartOfDay(log.Date.In(s.loc))
		logs = append(logs, log)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list purchase logs: %w", err)
	}

	rows, err = s.db.Query(
		`SELECT log_id, name, category_id FROM purchase_log_items ORDER BY log_id, position ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list purchase log items: %w", err)
	}
	defer rows.Close()

	byID := make(map[string][]model.LogItem)
	for rows.Next() {
		var logID string
		var it model.LogItem
		if err := rows.Scan(&logID, &it.Name, &it.CategoryID); err != nil {
			return nil, fmt.Errorf("scan purchase log item: %w", err)
		}
		byID[logID] = append(byID[logID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list purchase log items: %w", err)
	}
	for i := range logs {
		logs[i].Items = byID[logs[i].ID]
	}
	return logs, nil
}

// Save replaces the stored model with snap in one transaction.
func (s *Store) Save(snap shopping.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"pending_deletes", "purchase_log_items", "purchase_logs", "set_items", "sets", "items", "categories"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, c := range snap.Categories {
		_, err := tx.Exec(
			`INSERT INTO categories (id, name, emoji, position) VALUES (?, ?, ?, ?)`,
			c.ID, c.Name, c.Emoji, i,
		)
		if err != nil {
			return fmt.Errorf("insert category: %w", err)
		}
	}

	for i, it := range snap.Items {
		var completedAt any
		if it.CompletedAt != nil {
			completedAt = it.CompletedAt.UTC()
		}
		_, err := tx.Exec(
			`INSERT INTO items (id, family_id, name, category_id, completed, on_list, purchase_count, completed_at, synced, dirty, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			it.ID, it.FamilyID, it.Name, it.CategoryOrNone(),
			boolToInt(it.Completed), boolToInt(it.OnList), it.PurchaseCount,
			completedAt, boolToInt(it.Synced), boolToInt(it.Dirty), i,
		)
		if err != nil {
			return fmt.Errorf("insert item: %w", err)
		}
	}

	for i, set := range snap.Sets {
		_, err := tx.Exec(
			`INSERT INTO sets (id, name, emoji, usage_count, position) VALUES (?, ?, ?, ?, ?)`,
			set.ID, set.Name, set.Emoji, set.UsageCount, i,
		)
		if err != nil {
			return fmt.Errorf("insert set: %w", err)
		}
		for j, it := range set.Items {
			_, err := tx.Exec(
				`INSERT INTO set_items (set_id, position, name, category_name, emoji) VALUES (?, ?, ?, ?, ?)`,
				set.ID, j, it.Name, it.CategoryName, it.Emoji,
			)
			if err != nil {
				return fmt.Errorf("insert set item: %w", err)
			}
		}
	}

	for _, log := range snap.Logs {
		_, err := tx.Exec(
			`INSERT INTO purchase_logs (id, day) VALUES (?, ?)`,
			log.ID, log.Date.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert purchase log: %w", err)
		}
		for j, it := range log.Items {
			_, err := tx.Exec(
				`INSERT INTO purchase_log_items (log_id, position, name, category_id) VALUES (?, ?, ?, ?)`,
				log.ID, j, it.Name, it.CategoryID,
			)
			if err != nil {
				return fmt.Errorf("insert purchase log item: %w", err)
			}
		}
	}

	for i, id := range snap.PendingDeletes {
		if _, err := tx.Exec(`INSERT INTO pending_deletes (item_id, position) VALUES (?, ?)`, id, i); err != nil {
			return fmt.Errorf("insert pending delete: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
