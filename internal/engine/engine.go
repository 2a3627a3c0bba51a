// Package engine runs the household model for one client session. A single
// dispatch goroutine owns the shopping state: user commands, remote events
// and timers all reach it as commands, so nothing else takes a lock on the
// model. Remote writes leave through an independent pusher.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/dukerupert/basket/internal/ai"
	"github.com/dukerupert/basket/internal/localstore"
	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/remote"
	"github.com/dukerupert/basket/internal/shopping"
)

var (
	// ErrClosed is returned by every command once Close has been called.
	ErrClosed = errors.New("engine closed")
	// ErrNotConnected is returned by operations that need a session.
	ErrNotConnected = errors.New("engine not connected")
)

const (
	DefaultFilterDelay = 300 * time.Millisecond
	DefaultPushBackoff = 500 * time.Millisecond
	DefaultPushRetries = 4
)

type command struct {
	fn      func(*shopping.State) []shopping.Effect
	mutates bool
	// quiet mutations are persisted but do not refresh views.
	quiet bool
	done  chan struct{}
}

type Engine struct {
	ds      remote.Datastore
	gateway ai.Gateway
	local   *localstore.Store
	logger  *slog.Logger

	stateOpts   []shopping.Option
	filterDelay time.Duration
	undoTimer   time.Duration
	pushBackoff time.Duration
	pushRetries uint64

	state   *shopping.State
	lang    language.Tag
	cmds    chan command
	quit    chan struct{}
	stopped chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	pusher  *pusher

	notices chan Notice
	updates chan struct{}

	// loop-owned
	rolledOver      bool
	filterTimer     *time.Timer
	filterPending   bool
	completionTimer *time.Timer
	deleteTimer     *time.Timer

	mu          sync.Mutex
	session     *model.Session
	active      map[string]bool
	unsubscribe func()
	pushing     bool
	closed      bool
}

type Option func(*Engine)

// WithGateway enables AI-assisted adds, dictation and set suggestions.
func WithGateway(g ai.Gateway) Option {
	return func(e *Engine) {
		e.gateway = g
	}
}

// WithLocalStore restores the model from store at start and saves it after
// every change.
func WithLocalStore(store *localstore.Store) Option {
	return func(e *Engine) {
		e.local = store
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStateOptions passes options to the shopping state.
func WithStateOptions(opts ...shopping.Option) Option {
	return func(e *Engine) {
		e.stateOpts = append(e.stateOpts, opts...)
	}
}

// WithFilterDelay sets how long the active category filter waits before
// dropping a category that ran out of items.
func WithFilterDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.filterDelay = d
	}
}

// WithUndoTimer sets how long undo state is kept before it is discarded.
func WithUndoTimer(d time.Duration) Option {
	return func(e *Engine) {
		e.undoTimer = d
	}
}

// WithPushRetry sets the base backoff and the number of retries for remote
// writes.
func WithPushRetry(base time.Duration, retries uint64) Option {
	return func(e *Engine) {
		e.pushBackoff = base
		e.pushRetries = retries
	}
}

// New restores the local model, if any, and starts the dispatch loop. The
// engine works offline until Connect succeeds.
func New(ds remote.Datastore, opts ...Option) (*Engine, error) {
	e := &Engine{
		ds:          ds,
		logger:      slog.Default(),
		filterDelay: DefaultFilterDelay,
		undoTimer:   shopping.UndoWindow,
		pushBackoff: DefaultPushBackoff,
		pushRetries: DefaultPushRetries,
		cmds:        make(chan command),
		quit:        make(chan struct{}),
		stopped:     make(chan struct{}),
		notices:     make(chan Notice, 32),
		updates:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "engine")

	snap := shopping.Snapshot{}
	if e.local != nil {
		var err error
		if snap, err = e.local.Load(); err != nil {
			return nil, fmt.Errorf("load local model: %w", err)
		}
		session, err := e.local.Settings().Session()
		if err != nil {
			e.logger.Warn("failed to restore session", "error", err)
		}
		e.session = session
	}
	e.state = shopping.FromSnapshot(snap, e.stateOpts...)
	e.lang = e.state.Language()
	e.active = shopping.ActiveCategoryIDs(e.state.Items, e.state.Categories)

	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.pusher = newPusher(ds, e.logger, e.pushBackoff, e.pushRetries, e.pushSucceeded, e.pushFailed)

	go e.run()
	return e, nil
}

func (e *Engine) run() {
	defer close(e.stopped)
	for {
		select {
		case c := <-e.cmds:
			e.apply(c)
		case <-e.quit:
			return
		}
	}
}

func (e *Engine) apply(c command) {
	defer close(c.done)
	effects := c.fn(e.state)
	if !c.mutates {
		return
	}
	e.enqueue(effects)
	e.persist()
	if c.quiet {
		return
	}
	e.refreshFilter()
	e.signal()
}

// exec runs c on the dispatch goroutine and waits for it.
func (e *Engine) exec(c command) error {
	c.done = make(chan struct{})
	select {
	case e.cmds <- c:
	case <-e.quit:
		return ErrClosed
	}
	<-c.done
	return nil
}

func (e *Engine) mutate(fn func(*shopping.State) []shopping.Effect) error {
	return e.exec(command{fn: fn, mutates: true})
}

func (e *Engine) read(fn func(*shopping.State)) error {
	return e.exec(command{fn: func(s *shopping.State) []shopping.Effect {
		fn(s)
		return nil
	}})
}

// bookkeep changes state nobody renders, such as sync flags. The change is
// persisted without waking readers.
func (e *Engine) bookkeep(fn func(*shopping.State)) error {
	return e.exec(command{fn: func(s *shopping.State) []shopping.Effect {
		fn(s)
		return nil
	}, mutates: true, quiet: true})
}

// enqueue hands effects to the pusher. Before the first Connect they are
// dropped: the rows stay dirty and are pushed once the remote list is merged.
func (e *Engine) enqueue(effects []shopping.Effect) {
	if len(effects) == 0 {
		return
	}
	familyID := ""
	e.mu.Lock()
	pushing := e.pushing
	if e.session != nil {
		familyID = e.session.Family.ID
	}
	e.mu.Unlock()
	if !pushing {
		return
	}
	for i := range effects {
		if effects[i].Kind == shopping.EffectUpsert {
			effects[i].Item.FamilyID = familyID
		}
	}
	e.pusher.enqueue(effects)
}

func (e *Engine) persist() {
	if e.local == nil {
		return
	}
	if err := e.local.Save(e.state.Snapshot()); err != nil {
		e.logger.Error("failed to save local model", "error", err)
	}
}

func (e *Engine) signal() {
	select {
	case e.updates <- struct{}{}:
	default:
	}
}

func (e *Engine) notify(n Notice) {
	if n.Err != nil {
		e.logger.Warn(n.Message, "kind", n.Kind.String(), "error", n.Err)
	}
	select {
	case e.notices <- n:
	default:
		e.logger.Debug("notice dropped", "message", n.Message)
	}
}

// Notices delivers transient messages about remote and AI failures.
func (e *Engine) Notices() <-chan Notice {
	return e.notices
}

// Updates receives a value after changes to the model. Bursts are coalesced.
func (e *Engine) Updates() <-chan struct{} {
	return e.updates
}

// Snapshot returns a copy of the model.
func (e *Engine) Snapshot() (shopping.Snapshot, error) {
	var snap shopping.Snapshot
	err := e.read(func(s *shopping.State) {
		snap = s.Snapshot()
	})
	return snap, err
}

// Language is the collation language used by the views.
func (e *Engine) Language() language.Tag {
	return e.lang
}

// Session returns the current session, or nil before the first sign in.
func (e *Engine) Session() *model.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	s := *e.session
	return &s
}

// Flush waits until every queued remote write has been attempted.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	pushing := e.pushing
	e.mu.Unlock()
	if !pushing {
		return ErrNotConnected
	}
	return e.pusher.flush(ctx)
}

// Close stops the loop, the subscription and the pusher. Queued writes that
// have not been sent are dropped; call Flush first to wait for them.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.closed = true
	unsubscribe := e.unsubscribe
	e.unsubscribe = nil
	e.mu.Unlock()

	close(e.quit)
	<-e.stopped
	for _, t := range []*time.Timer{e.filterTimer, e.completionTimer, e.deleteTimer} {
		if t != nil {
			t.Stop()
		}
	}
	if unsubscribe != nil {
		unsubscribe()
	}
	e.cancel()
	e.wg.Wait()
	return nil
}
