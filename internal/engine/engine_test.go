package engine

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/basket/internal/ai"
	"github.com/dukerupert/basket/internal/database"
	"github.com/dukerupert/basket/internal/localstore"
	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/remote"
	"github.com/dukerupert/basket/internal/shopping"
)

var testNow = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

var alice = model.Identity{Email: "alice@example.com", Name: "Alice", Secret: "s3cret"}

func newTestEngine(t *testing.T, ds remote.Datastore, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{
		WithStateOptions(shopping.WithClock(func() time.Time { return testNow })),
		WithPushRetry(time.Millisecond, 2),
	}, opts...)
	e, err := New(ds, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func connect(t *testing.T, e *Engine) *model.Session {
	t.Helper()
	session, err := e.Connect(context.Background(), alice)
	require.NoError(t, err)
	return session
}

func flush(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, e.Flush(ctx))
}

func nextNotice(t *testing.T, e *Engine) Notice {
	t.Helper()
	select {
	case n := <-e.Notices():
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notice")
		return Notice{}
	}
}

func findItem(t *testing.T, e *Engine, name string) (model.Item, bool) {
	t.Helper()
	snap, err := e.Snapshot()
	require.NoError(t, err)
	for _, it := range snap.Items {
		if shopping.SameName(it.Name, name) {
			return it, true
		}
	}
	return model.Item{}, false
}

func TestConnectLoadsRemoteAndRollsOver(t *testing.T) {
	ds := newFakeDatastore()
	yesterday := testNow.Add(-24 * time.Hour)
	ds.items = []model.Item{
		{ID: "r1", FamilyID: "f1", Name: "Bread", OnList: true, Completed: true, CompletedAt: &yesterday, PurchaseCount: 1},
		{ID: "r2", FamilyID: "f1", Name: "Milk", OnList: true},
	}
	e := newTestEngine(t, ds)

	session := connect(t, e)
	flush(t, e)

	assert.Equal(t, "f1", session.Family.ID)
	assert.Equal(t, "f1", <-ds.subscribed)

	bread, ok := findItem(t, e, "bread")
	require.True(t, ok)
	assert.False(t, bread.Completed)
	assert.False(t, bread.OnList)
	assert.Equal(t, 1, bread.PurchaseCount)

	upserts, _, _ := ds.pushed()
	require.Len(t, upserts, 1, "only the rolled over row is written back")
	assert.Equal(t, "r1", upserts[0].ID)
	assert.Equal(t, "f1", upserts[0].FamilyID)
}

func TestConnectFailureKeepsLocalState(t *testing.T) {
	ds := newFakeDatastore()
	ds.authErr = errUnavailable
	e := newTestEngine(t, ds)

	_, err := e.Connect(context.Background(), alice)
	require.ErrorIs(t, err, errUnavailable)
	n := nextNotice(t, e)
	assert.Equal(t, NoticeRemote, n.Kind)

	it, err := e.AddItem(context.Background(), "milk", "", true)
	require.NoError(t, err)
	assert.Equal(t, "Milk", it.Name)
	assert.ErrorIs(t, e.Flush(context.Background()), ErrNotConnected)
	assert.Nil(t, e.Session())
}

func TestAddItemPushesUpsert(t *testing.T) {
	ds := newFakeDatastore()
	e := newTestEngine(t, ds)
	connect(t, e)

	it, err := e.AddItem(context.Background(), " apple ", "", true)
	require.NoError(t, err)
	again, err := e.AddItem(context.Background(), "APPLE", "", true)
	require.NoError(t, err)
	flush(t, e)

	assert.Equal(t, it.ID, again.ID, "same product merges")
	assert.Equal(t, model.NoneCategoryID, it.CategoryID)
	upserts, _, _ := ds.pushed()
	require.Len(t, upserts, 2)
	assert.Equal(t, "Apple", upserts[1].Name)

	snap, err := e.Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Items, 1)
}

func TestAddItemBlankNameIsNoop(t *testing.T) {
	e := newTestEngine(t, newFakeDatastore(), WithGateway(&fakeGateway{}))

	it, err := e.AddItem(context.Background(), "   ", "", true)

	require.NoError(t, err)
	assert.Empty(t, it.ID)
}

func TestRemoteEventsMergeIdempotently(t *testing.T) {
	ds := newFakeDatastore()
	e := newTestEngine(t, ds)
	connect(t, e)
	<-ds.subscribed
	milk, err := e.AddItem(context.Background(), "Milk", "", true)
	require.NoError(t, err)

	ds.events <- remote.Event{Kind: remote.Inserted, Item: milk}
	ds.events <- remote.Event{Kind: remote.Inserted, Item: model.Item{ID: "r9", Name: "Tea", OnList: true}}
	require.Eventually(t, func() bool {
		_, ok := findItem(t, e, "tea")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	snap, _ := e.Snapshot()
	assert.Len(t, snap.Items, 2, "the echo of our own insert is ignored")

	renamed := milk
	renamed.Name = "Oat milk"
	ds.events <- remote.Event{Kind: remote.Updated, Item: renamed}
	ds.events <- remote.Event{Kind: remote.Deleted, ItemID: "r9"}
	ds.events <- remote.Event{Kind: remote.Deleted, ItemID: "r9"}
	require.Eventually(t, func() bool {
		_, tea := findItem(t, e, "tea")
		_, oat := findItem(t, e, "oat milk")
		return !tea && oat
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPushRetriesUntilSuccess(t *testing.T) {
	ds := newFakeDatastore()
	ds.failUpserts = 2
	e := newTestEngine(t, ds)
	connect(t, e)

	_, err := e.AddItem(context.Background(), "Milk", "", true)
	require.NoError(t, err)
	flush(t, e)

	upserts, _, calls := ds.pushed()
	assert.Len(t, upserts, 1)
	assert.Equal(t, 3, calls)
	select {
	case n := <-e.Notices():
		t.Fatalf("unexpected notice: %+v", n)
	default:
	}
}

func TestPushFailureRaisesNoticeWithoutRollback(t *testing.T) {
	ds := newFakeDatastore()
	ds.upsertErr = errUnavailable
	e := newTestEngine(t, ds)
	connect(t, e)

	_, err := e.AddItem(context.Background(), "Milk", "", true)
	require.NoError(t, err)
	flush(t, e)

	n := nextNotice(t, e)
	assert.Equal(t, NoticeRemote, n.Kind)
	assert.ErrorIs(t, n.Err, errUnavailable)
	_, ok := findItem(t, e, "milk")
	assert.True(t, ok, "local state is kept")
}

func TestPushUnauthorizedIsNotRetried(t *testing.T) {
	ds := newFakeDatastore()
	ds.upsertErr = remote.ErrUnauthorized
	e := newTestEngine(t, ds)
	connect(t, e)

	e.AddItem(context.Background(), "Milk", "", true)
	flush(t, e)

	_, _, calls := ds.pushed()
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, nextNotice(t, e).Err, remote.ErrUnauthorized)
}

func TestPushRejectedIsNotRetried(t *testing.T) {
	ds := newFakeDatastore()
	ds.upsertErr = fmt.Errorf("upsert item: %w", &remote.StatusError{Code: http.StatusForbidden, Message: "not a member"})
	e := newTestEngine(t, ds, WithPushRetry(time.Millisecond, 5))
	connect(t, e)

	_, err := e.AddItem(context.Background(), "Milk", "", true)
	require.NoError(t, err)
	flush(t, e)

	_, _, calls := ds.pushed()
	assert.Equal(t, 1, calls, "a refused write is not repeated")
	n := nextNotice(t, e)
	assert.Equal(t, NoticeRemote, n.Kind)
	assert.True(t, remote.Permanent(n.Err))
}

func TestPushRateLimitedIsRetried(t *testing.T) {
	ds := newFakeDatastore()
	ds.upsertErr = &remote.StatusError{Code: http.StatusTooManyRequests}
	e := newTestEngine(t, ds, WithPushRetry(time.Millisecond, 2))
	connect(t, e)

	e.AddItem(context.Background(), "Milk", "", true)
	flush(t, e)

	_, _, calls := ds.pushed()
	assert.Equal(t, 3, calls)
}

func localStore(t *testing.T) *localstore.Store {
	t.Helper()
	db, err := database.OpenLocal(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return localstore.New(db, time.UTC)
}

func TestFailedPushIsResentOnReconnect(t *testing.T) {
	store := localStore(t)
	ds := newFakeDatastore()
	ds.upsertErr = errUnavailable

	first := newTestEngine(t, ds, WithLocalStore(store))
	connect(t, first)
	milk, err := first.AddItem(context.Background(), "Milk", "", true)
	require.NoError(t, err)
	flush(t, first)
	assert.ErrorIs(t, nextNotice(t, first).Err, errUnavailable)
	require.NoError(t, first.Close())

	ds.mu.Lock()
	ds.upsertErr = nil
	ds.mu.Unlock()

	second := newTestEngine(t, ds, WithLocalStore(store))
	connect(t, second)
	flush(t, second)

	got, ok := findItem(t, second, "milk")
	require.True(t, ok, "the unsent add survives the remote list load")
	assert.True(t, got.OnList)
	assert.True(t, got.Synced)
	assert.False(t, got.Dirty)

	upserts, _, _ := ds.pushed()
	require.Len(t, upserts, 1)
	assert.Equal(t, milk.ID, upserts[0].ID)
	assert.Equal(t, "f1", upserts[0].FamilyID)
}

func TestOfflineAddIsPushedOnConnect(t *testing.T) {
	ds := newFakeDatastore()
	ds.items = []model.Item{{ID: "r1", FamilyID: "f1", Name: "Bread", OnList: true}}
	e := newTestEngine(t, ds)

	milk, err := e.AddItem(context.Background(), "Milk", "", true)
	require.NoError(t, err)
	connect(t, e)
	flush(t, e)

	_, ok := findItem(t, e, "milk")
	assert.True(t, ok, "an add made before sign in is kept")
	_, ok = findItem(t, e, "bread")
	assert.True(t, ok)

	upserts, _, _ := ds.pushed()
	require.Len(t, upserts, 1)
	assert.Equal(t, milk.ID, upserts[0].ID)
}

func TestOfflineDeleteIsPushedOnConnect(t *testing.T) {
	store := localStore(t)
	ds := newFakeDatastore()
	first := newTestEngine(t, ds, WithLocalStore(store))
	connect(t, first)
	milk, _ := first.AddItem(context.Background(), "Milk", "", true)
	flush(t, first)
	require.NoError(t, first.Close())

	ds.mu.Lock()
	ds.items = []model.Item{{ID: milk.ID, FamilyID: "f1", Name: "Milk", OnList: true}}
	ds.mu.Unlock()

	second := newTestEngine(t, ds, WithLocalStore(store))
	require.NoError(t, second.DeleteItem(milk.ID))
	connect(t, second)
	flush(t, second)

	_, ok := findItem(t, second, "milk")
	assert.False(t, ok, "the remote copy does not bring the row back")
	_, deletes, _ := ds.pushed()
	assert.Equal(t, []string{milk.ID}, deletes)
}

func TestDeleteItemPushesDelete(t *testing.T) {
	ds := newFakeDatastore()
	e := newTestEngine(t, ds)
	connect(t, e)
	milk, _ := e.AddItem(context.Background(), "Milk", "", true)
	flour, _ := e.AddItem(context.Background(), "Flour", "", false)

	require.NoError(t, e.DeleteItem(milk.ID))
	require.NoError(t, e.DeleteItem(flour.ID))
	flush(t, e)

	_, deletes, _ := ds.pushed()
	assert.Equal(t, []string{milk.ID}, deletes, "history-only rows never reach the remote store")

	restored, ok, err := e.UndoDelete()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, flour.ID, restored.ID)
}

func TestAddItemUsesGatewayForNewNames(t *testing.T) {
	gw := &fakeGateway{suggestion: ai.Suggestion{CategoryName: "Dairy", Emoji: "🥛", IsNew: true}}
	e := newTestEngine(t, newFakeDatastore(), WithGateway(gw))

	milk, err := e.AddItem(context.Background(), "milk", "", true)
	require.NoError(t, err)
	_, err = e.AddItem(context.Background(), "MILK", "", true)
	require.NoError(t, err)

	assert.Equal(t, 1, gw.callCount(), "known names skip the gateway")
	categories, err := e.Categories()
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Dairy", categories[0].Name)
	assert.Equal(t, categories[0].ID, milk.CategoryID)
	assert.True(t, categories[1].IsNone())
}

func TestAddItemGatewayFailureFallsBackToNone(t *testing.T) {
	gw := &fakeGateway{err: &ai.HTTPError{StatusCode: 429, Body: "slow down"}}
	e := newTestEngine(t, newFakeDatastore(), WithGateway(gw))

	it, err := e.AddItem(context.Background(), "Milk", "", true)

	require.NoError(t, err)
	assert.Equal(t, model.NoneCategoryID, it.CategoryID)
	assert.True(t, it.OnList)
	n := nextNotice(t, e)
	assert.Equal(t, NoticeAI, n.Kind)
	assert.Equal(t, ai.FailureBusy.Message(), n.Message)
}

func TestAddItemExplicitCategorySkipsGateway(t *testing.T) {
	gw := &fakeGateway{}
	e := newTestEngine(t, newFakeDatastore(), WithGateway(gw))
	dairy, _, err := e.SaveCategory("", "Dairy", "🥛")
	require.NoError(t, err)

	it, err := e.AddItem(context.Background(), "Milk", dairy.ID, true)

	require.NoError(t, err)
	assert.Equal(t, dairy.ID, it.CategoryID)
	assert.Zero(t, gw.callCount())
}

func TestDictate(t *testing.T) {
	gw := &fakeGateway{parsed: ai.Parsed{
		DishName: "Pancakes",
		Items: []model.SetItem{
			{Name: "flour", CategoryName: "Baking", Emoji: "🌾"},
			{Name: "milk", CategoryName: "Dairy", Emoji: "🥛"},
		},
	}}
	e := newTestEngine(t, newFakeDatastore(), WithGateway(gw))

	got, err := e.Dictate(context.Background(), "flour and milk for pancakes")

	require.NoError(t, err)
	assert.Equal(t, "Pancakes", got.DishName)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Flour", got.Items[0].Name)

	categories, _ := e.Categories()
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"Baking", "Dairy", model.NoneCategory().Name}, names)
	assert.True(t, categories[len(categories)-1].IsNone())
}

func TestDictateFallsBackToBulkAdd(t *testing.T) {
	gw := &fakeGateway{err: ai.ErrNotConfigured}
	e := newTestEngine(t, newFakeDatastore(), WithGateway(gw))

	got, err := e.Dictate(context.Background(), "eggs, bacon\ntoast")

	require.NoError(t, err)
	require.Len(t, got.Items, 3)
	for _, it := range got.Items {
		assert.Equal(t, model.NoneCategoryID, it.CategoryID)
		assert.True(t, it.OnList)
	}
	assert.Equal(t, ai.FailureUnavailable.Message(), nextNotice(t, e).Message)
}

func TestGenerateSetDraft(t *testing.T) {
	gw := &fakeGateway{generated: ai.GeneratedSet{Items: []model.SetItem{
		{Name: "Tortillas", CategoryName: "Bakery"},
		{Name: "Cilantro", CategoryName: "Produce"},
	}}}
	e := newTestEngine(t, newFakeDatastore(), WithGateway(gw))

	draft, err := e.GenerateSet(context.Background(), "Tacos")
	require.NoError(t, err)
	assert.Equal(t, shopping.DefaultSetEmoji, draft.Emoji)
	require.Len(t, draft.Items, 2)
	assert.True(t, draft.Items[0].Included)

	draft.Items[1].Included = false
	set, ok, err := e.CreateSetFromDraft(draft)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, set.Items, 1)

	require.NoError(t, e.AddSet(set.ID))
	assert.True(t, e.RecentlyAdded(set.ID))
	_, ok = findItem(t, e, "tortillas")
	assert.True(t, ok)
}

func TestGenerateSetWithoutGateway(t *testing.T) {
	e := newTestEngine(t, newFakeDatastore())

	_, err := e.GenerateSet(context.Background(), "Tacos")

	assert.ErrorIs(t, err, ai.ErrNotConfigured)
	assert.Equal(t, NoticeAI, nextNotice(t, e).Kind)
}

func TestSuggestSets(t *testing.T) {
	gw := &fakeGateway{bundles: []ai.Bundle{
		{Name: "Breakfast", Emoji: "🍳", Items: []model.SetItem{{Name: "Eggs"}, {Name: "Bacon"}}},
	}}
	e := newTestEngine(t, newFakeDatastore(), WithGateway(gw))

	drafts, err := e.SuggestSets(context.Background())

	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Breakfast", drafts[0].Name)
	assert.Len(t, drafts[0].Items, 2)
}

func TestRemoveMemberRefusedLocallyForNonOwner(t *testing.T) {
	ds := newFakeDatastore()
	ds.session.Family.IsOwner = false
	e := newTestEngine(t, ds)
	connect(t, e)

	_, err := e.RemoveMember(context.Background(), "u2")

	assert.ErrorIs(t, err, remote.ErrNotOwner)
	ds.mu.Lock()
	defer ds.mu.Unlock()
	assert.Zero(t, ds.removeCalls)
}

func TestFamilyOperationsNeedSession(t *testing.T) {
	e := newTestEngine(t, newFakeDatastore())

	_, err := e.JoinFamily(context.Background(), "ABC123")
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = e.LeaveFamily(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = e.RemoveMember(context.Background(), "u2")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestJoinFamilySwitchesSubscription(t *testing.T) {
	ds := newFakeDatastore()
	ds.joinResult = &model.Family{ID: "f2", InviteCode: "XYZ789", OwnerID: "u2"}
	e := newTestEngine(t, ds)
	connect(t, e)
	assert.Equal(t, "f1", <-ds.subscribed)

	family, err := e.JoinFamily(context.Background(), "XYZ789")

	require.NoError(t, err)
	assert.Equal(t, "f2", family.ID)
	assert.Equal(t, "f2", <-ds.subscribed)
	assert.Equal(t, "f2", e.Session().Family.ID)
	assert.False(t, e.Session().Family.IsOwner)
}

func TestJoinFamilyUnknownCode(t *testing.T) {
	ds := newFakeDatastore()
	e := newTestEngine(t, ds)
	connect(t, e)

	family, err := e.JoinFamily(context.Background(), "NOPE")

	require.NoError(t, err)
	assert.Nil(t, family)
	assert.Equal(t, "f1", e.Session().Family.ID)
}

func TestUndoTimerDiscardsCompletionUndo(t *testing.T) {
	e := newTestEngine(t, newFakeDatastore(), WithUndoTimer(20*time.Millisecond))
	milk, _ := e.AddItem(context.Background(), "Milk", "", true)

	done, err := e.Toggle(milk.ID)
	require.NoError(t, err)
	require.True(t, done.Completed)

	require.Eventually(t, func() bool {
		var pending bool
		e.read(func(s *shopping.State) {
			_, pending = s.PendingCompletion()
		})
		return !pending
	}, 2*time.Second, 10*time.Millisecond)

	_, ok, err := e.UndoComplete()
	require.NoError(t, err)
	assert.False(t, ok, "the window closed with the timer")
	got, _ := findItem(t, e, "milk")
	assert.Equal(t, 1, got.PurchaseCount)
}

func TestUndoCompleteInsideWindow(t *testing.T) {
	e := newTestEngine(t, newFakeDatastore())
	milk, _ := e.AddItem(context.Background(), "Milk", "", true)
	e.Toggle(milk.ID)

	got, ok, err := e.UndoComplete()

	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.Completed)
	assert.Zero(t, got.PurchaseCount)
}

func TestActiveCategoryFilterIsDebounced(t *testing.T) {
	e := newTestEngine(t, newFakeDatastore(), WithFilterDelay(50*time.Millisecond))
	dairy, _, _ := e.SaveCategory("", "Dairy", "🥛")
	milk, err := e.AddItem(context.Background(), "Milk", dairy.ID, true)
	require.NoError(t, err)

	assert.True(t, e.ActiveCategories()[dairy.ID], "new categories show up at once")

	_, err = e.Toggle(milk.ID)
	require.NoError(t, err)
	assert.True(t, e.ActiveCategories()[dairy.ID], "the chip stays while the change settles")

	require.Eventually(t, func() bool {
		return !e.ActiveCategories()[dairy.ID]
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLocalStoreRestoresModel(t *testing.T) {
	db, err := database.OpenLocal(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := localstore.New(db, time.UTC)

	ds := newFakeDatastore()
	first := newTestEngine(t, ds, WithLocalStore(store))
	connect(t, first)
	_, err = first.AddBulk("milk, eggs", true)
	require.NoError(t, err)
	_, ok, err := first.CreateSetFromText("Breakfast", "", "eggs\ntoast")
	require.NoError(t, err)
	require.True(t, ok)
	flush(t, first)
	require.NoError(t, first.Close())

	second := newTestEngine(t, ds, WithLocalStore(store))
	snap, err := second.Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Items, 2)
	assert.Len(t, snap.Sets, 1)
	require.NotNil(t, second.Session(), "the session is restored for offline use")
	assert.Equal(t, "f1", second.Session().Family.ID)
}

func TestCloseStopsCommands(t *testing.T) {
	e := newTestEngine(t, newFakeDatastore())

	require.NoError(t, e.Close())
	assert.ErrorIs(t, e.Close(), ErrClosed)
	_, err := e.AddBulk("milk", true)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = e.Snapshot()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestLiveUpdatesStoppedNotice(t *testing.T) {
	ds := &closingDatastore{fakeDatastore: newFakeDatastore()}
	e := newTestEngine(t, ds)
	connect(t, e)

	close(ds.stream)

	assert.Equal(t, NoticeLive, nextNotice(t, e).Kind)
}

// closingDatastore hands out a subscription the test can end.
type closingDatastore struct {
	*fakeDatastore
	stream chan remote.Event
}

func (c *closingDatastore) Subscribe(ctx context.Context, familyID string) (<-chan remote.Event, func(), error) {
	c.stream = make(chan remote.Event)
	return c.stream, func() {}, nil
}
