package localstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dukerupert/basket/internal/model"
)

const (
	keyTheme                 = "theme"
	keyAIEnabled             = "ai_enabled"
	keyConfirmDeleteItem     = "confirm_delete_item"
	keyConfirmDeleteCategory = "confirm_delete_category"
	keyConfirmDeleteSet      = "confirm_delete_set"
	keySession               = "session"
)

// PreferenceKeys lists the keys that make up model.Preferences.
var PreferenceKeys = []string{
	keyTheme,
	keyAIEnabled,
	keyConfirmDeleteItem,
	keyConfirmDeleteCategory,
	keyConfirmDeleteSet,
}

type Settings struct {
	db *sql.DB
}

func NewSettings(db *sql.DB) *Settings {
	return &Settings{db: db}
}

// Get returns "" with no error when the key is not set.
func (s *Settings) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *Settings) GetAll() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("get all settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

func (s *Settings) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *Settings) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete setting %q: %w", key, err)
	}
	return nil
}

// Preferences reads the presentation preferences. Missing or malformed
// values fall back to the defaults.
func (s *Settings) Preferences() (model.Preferences, error) {
	p := model.DefaultPreferences()
	all, err := s.GetAll()
	if err != nil {
		return p, err
	}
	if v := all[keyTheme]; v != "" {
		p.Theme = v
	}
	boolPref(all, keyAIEnabled, &p.AIEnabled)
	boolPref(all, keyConfirmDeleteItem, &p.ConfirmDeleteItem)
	boolPref(all, keyConfirmDeleteCategory, &p.ConfirmDeleteCategory)
	boolPref(all, keyConfirmDeleteSet, &p.ConfirmDeleteSet)
	return p, nil
}

func boolPref(all map[string]string, key string, dst *bool) {
	if b, err := strconv.ParseBool(all[key]); err == nil {
		*dst = b
	}
}

func (s *Settings) SavePreferences(p model.Preferences) error {
	values := map[string]string{
		keyTheme:                 p.Theme,
		keyAIEnabled:             strconv.FormatBool(p.AIEnabled),
		keyConfirmDeleteItem:     strconv.FormatBool(p.ConfirmDeleteItem),
		keyConfirmDeleteCategory: strconv.FormatBool(p.ConfirmDeleteCategory),
		keyConfirmDeleteSet:      strconv.FormatBool(p.ConfirmDeleteSet),
	}
	for _, key := range PreferenceKeys {
		if err := s.Set(key, values[key]); err != nil {
			return err
		}
	}
	return nil
}

// SetPreference validates and stores one preference by key.
func (s *Settings) SetPreference(key, value string) error {
	switch key {
	case keyTheme:
		switch value {
		case "system", "light", "dark":
		default:
			return fmt.Errorf("theme must be system, light or dark")
		}
	case keyAIEnabled, keyConfirmDeleteItem, keyConfirmDeleteCategory, keyConfirmDeleteSet:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be true or false", key)
		}
		value = strconv.FormatBool(b)
	default:
		return fmt.Errorf("unknown preference %q", key)
	}
	return s.Set(key, value)
}

// Session returns the last saved session, or nil when there is none.
func (s *Settings) Session() (*model.Session, error) {
	raw, err := s.Get(keySession)
	if err != nil || raw == "" {
		return nil, err
	}
	var session model.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func (s *Settings) SaveSession(session model.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.Set(keySession, string(raw))
}

func (s *Settings) ClearSession() error {
	return s.Delete(keySession)
}
