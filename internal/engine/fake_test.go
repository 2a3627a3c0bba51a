package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/dukerupert/basket/internal/ai"
	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/remote"
)

var errUnavailable = errors.New("connection refused")

type fakeDatastore struct {
	mu sync.Mutex

	session model.Session
	authErr error
	items   []model.Item

	failUpserts  int
	upsertErr    error
	upsertCalls  int
	upserts      []model.Item
	deletes      []string
	removeCalls  int
	joinResult   *model.Family
	leaveResult  *model.Family
	removeResult *model.Family

	events     chan remote.Event
	subscribed chan string
}

func newFakeDatastore() *fakeDatastore {
	return &fakeDatastore{
		session: model.Session{
			User:   model.User{ID: "u1", Email: "alice@example.com", Name: "Alice"},
			Family: model.Family{ID: "f1", InviteCode: "ABC123", OwnerID: "u1", IsOwner: true},
			Token:  "tok",
		},
		events:     make(chan remote.Event, 16),
		subscribed: make(chan string, 4),
	}
}

func (f *fakeDatastore) Authenticate(ctx context.Context, id model.Identity) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.authErr != nil {
		return nil, f.authErr
	}
	s := f.session
	return &s, nil
}

func (f *fakeDatastore) JoinFamily(ctx context.Context, userID, inviteCode string) (*model.Family, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joinResult, nil
}

func (f *fakeDatastore) LeaveFamily(ctx context.Context, userID string) (*model.Family, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leaveResult, nil
}

func (f *fakeDatastore) RemoveMember(ctx context.Context, ownerID, targetID string) (*model.Family, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls++
	return f.removeResult, nil
}

func (f *fakeDatastore) ListItems(ctx context.Context, familyID string) ([]model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Item(nil), f.items...), nil
}

func (f *fakeDatastore) UpsertItem(ctx context.Context, item model.Item) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.upsertErr != nil {
		return false, f.upsertErr
	}
	if f.failUpserts > 0 {
		f.failUpserts--
		return false, errUnavailable
	}
	f.upserts = append(f.upserts, item)
	return true, nil
}

func (f *fakeDatastore) DeleteItem(ctx context.Context, itemID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, itemID)
	return true, nil
}

func (f *fakeDatastore) Subscribe(ctx context.Context, familyID string) (<-chan remote.Event, func(), error) {
	out := make(chan remote.Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-f.events:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	f.subscribed <- familyID
	return out, func() {}, nil
}

func (f *fakeDatastore) pushed() ([]model.Item, []string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Item(nil), f.upserts...), append([]string(nil), f.deletes...), f.upsertCalls
}

type fakeGateway struct {
	mu sync.Mutex

	calls      int
	suggestion ai.Suggestion
	parsed     ai.Parsed
	generated  ai.GeneratedSet
	bundles    []ai.Bundle
	err        error
}

func (g *fakeGateway) record() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.err
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *fakeGateway) Categorize(ctx context.Context, productName string, known []model.Category) (ai.Suggestion, error) {
	if err := g.record(); err != nil {
		return ai.Suggestion{}, err
	}
	return g.suggestion, nil
}

func (g *fakeGateway) ParseFreeText(ctx context.Context, text string, known []model.Category) (ai.Parsed, error) {
	if err := g.record(); err != nil {
		return ai.Parsed{}, err
	}
	return g.parsed, nil
}

func (g *fakeGateway) GenerateSetItems(ctx context.Context, setName string, known []model.Category) (ai.GeneratedSet, error) {
	if err := g.record(); err != nil {
		return ai.GeneratedSet{}, err
	}
	return g.generated, nil
}

func (g *fakeGateway) AnalyzeHistory(ctx context.Context, logs []model.PurchaseLog, known []model.Category) ([]ai.Bundle, error) {
	if err := g.record(); err != nil {
		return nil, err
	}
	return g.bundles, nil
}
