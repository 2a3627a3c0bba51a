// Package shopping holds the household list model and every rule that mutates
// it: merge-on-add, completion bookkeeping, the category registry, sets, daily
// rollover and the merge of remote change events.
//
// A State has exactly one writer. Mutations run synchronously and return the
// remote writes they require as Effects; applying those writes is the caller's
// business and never feeds back into the local transition.
package shopping

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/dukerupert/basket/internal/model"
)

// UndoWindow is how long a completion or delete can be reverted.
const UndoWindow = 5 * time.Second

// EffectKind says which remote write an Effect asks for.
type EffectKind int

const (
	EffectUpsert EffectKind = iota + 1
	EffectDelete
)

func (k EffectKind) String() string {
	switch k {
	case EffectUpsert:
		return "upsert"
	case EffectDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Effect is a remote write produced by a local mutation.
type Effect struct {
	Kind   EffectKind
	Item   model.Item
	ItemID string
}

// Snapshot is a deep copy of the model, used for persistence and for readers
// outside the writer goroutine.
type Snapshot struct {
	Categories []model.Category    `json:"categories"`
	Items      []model.Item        `json:"items"`
	Sets       []model.Set         `json:"sets"`
	Logs       []model.PurchaseLog `json:"logs"`
	// PendingDeletes are ids deleted locally whose remote delete has not
	// been acknowledged.
	PendingDeletes []string `json:"pending_deletes,omitempty"`
}

type completionUndo struct {
	itemID   string
	deadline time.Time
}

type deleteUndo struct {
	item     model.Item
	index    int
	deadline time.Time
}

type recentSet struct {
	setID string
	until time.Time
}

// State is the household model: categories, items, sets and purchase logs.
type State struct {
	Categories []model.Category
	Items      []model.Item
	Sets       []model.Set
	Logs       []model.PurchaseLog

	now   func() time.Time
	newID func() string
	lang  language.Tag

	pendingCompletion *completionUndo
	pendingDelete     *deleteUndo
	recent            recentSet
	unsentDeletes     []string
}

type Option func(*State)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *State) {
		s.now = now
	}
}

// WithIDs replaces the UUIDv7 id generator.
func WithIDs(gen func() string) Option {
	return func(s *State) {
		s.newID = gen
	}
}

// WithLanguage sets the collation language used by name ordering.
func WithLanguage(tag language.Tag) Option {
	return func(s *State) {
		s.lang = tag
	}
}

// New returns an empty State holding only the uncategorized bucket.
func New(opts ...Option) *State {
	s := &State{
		now:   time.Now,
		newID: func() string { return uuid.Must(uuid.NewV7()).String() },
		lang:  language.English,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ensureNone()
	return s
}

// FromSnapshot builds a State from persisted data. Category order is repaired
// so the uncategorized bucket is last, and completion timestamps are made
// consistent with the completed flag.
func FromSnapshot(snap Snapshot, opts ...Option) *State {
	s := New(opts...)
	c := snap.clone()
	s.Categories = c.Categories
	s.Items = c.Items
	s.Sets = c.Sets
	s.Logs = c.Logs
	s.unsentDeletes = c.PendingDeletes
	for i := range s.Items {
		s.normalizeItem(&s.Items[i])
	}
	s.ensureNone()
	sortLogs(s.Logs)
	return s
}

// Snapshot returns a deep copy of the model.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Categories:     s.Categories,
		Items:          s.Items,
		Sets:           s.Sets,
		Logs:           s.Logs,
		PendingDeletes: s.unsentDeletes,
	}.clone()
}

// Language returns the collation language used for name ordering.
func (s *State) Language() language.Tag {
	return s.lang
}

// Now returns the State's current time.
func (s *State) Now() time.Time {
	return s.now()
}

func (snap Snapshot) clone() Snapshot {
	out := Snapshot{
		Categories: append([]model.Category(nil), snap.Categories...),
		Items:      make([]model.Item, len(snap.Items)),
		Sets:       make([]model.Set, len(snap.Sets)),
		Logs:       make([]model.PurchaseLog, len(snap.Logs)),

		PendingDeletes: append([]string(nil), snap.PendingDeletes...),
	}
	for i, it := range snap.Items {
		out.Items[i] = cloneItem(it)
	}
	for i, set := range snap.Sets {
		set.Items = append([]model.SetItem(nil), set.Items...)
		out.Sets[i] = set
	}
	for i, log := range snap.Logs {
		log.Items = append([]model.LogItem(nil), log.Items...)
		out.Logs[i] = log
	}
	return out
}

func cloneItem(it model.Item) model.Item {
	if it.CompletedAt != nil {
		t := *it.CompletedAt
		it.CompletedAt = &t
	}
	return it
}

// upsert marks the item at i as changed locally and returns the write for it.
// The row stays dirty until MarkPushed sees the same version acknowledged.
func (s *State) upsert(i int) Effect {
	s.Items[i].Dirty = true
	return Effect{Kind: EffectUpsert, Item: cloneItem(s.Items[i]), ItemID: s.Items[i].ID}
}

// shared reports whether the remote store knows the row, may be about to
// learn of it, or should because it is on the buy list.
func shared(it model.Item) bool {
	return it.Synced || it.Dirty || it.OnList
}

// pushIfShared returns an upsert for the item at i when the row is shared.
func (s *State) pushIfShared(i int) []Effect {
	if shared(s.Items[i]) {
		return []Effect{s.upsert(i)}
	}
	return nil
}
