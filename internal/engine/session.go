package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/remote"
	"github.com/dukerupert/basket/internal/shopping"
)

// Connect signs in, merges the family's remote list into the local model,
// runs the daily rollover and starts live updates and remote writes. Local
// changes the remote store never acknowledged, including ones made offline,
// are pushed again once the list is merged.
//
// A failed sign in leaves the local model as it was and is not retried. The
// rollover still runs so a stale list is not shown as checked off.
func (e *Engine) Connect(ctx context.Context, id model.Identity) (*model.Session, error) {
	session, err := e.ds.Authenticate(ctx, id)
	if err != nil {
		e.notify(Notice{Kind: NoticeRemote, Message: "Could not sign in. Showing the list saved on this device.", Err: err})
		e.Rollover()
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	e.setSession(session)
	e.startPusher()

	if err := e.syncFamily(ctx, session.Family.ID); err != nil {
		e.notify(Notice{Kind: NoticeRemote, Message: "Could not load the family list.", Err: err})
	}
	e.Rollover()
	return e.Session(), nil
}

func (e *Engine) setSession(session *model.Session) {
	e.mu.Lock()
	s := *session
	e.session = &s
	e.mu.Unlock()

	if e.local != nil {
		if err := e.local.Settings().SaveSession(s); err != nil {
			e.logger.Warn("failed to save session", "error", err)
		}
	}
}

func (e *Engine) startPusher() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pushing || e.closed {
		return
	}
	e.pushing = true
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.pusher.run(e.ctx)
	}()
}

func (e *Engine) pushSucceeded(eff shopping.Effect) {
	e.bookkeep(func(s *shopping.State) {
		s.MarkPushed(eff)
	})
}

func (e *Engine) pushFailed(eff shopping.Effect, err error) {
	msg := "A change could not be saved to the family list."
	if errors.Is(err, remote.ErrUnauthorized) {
		msg = "Signed out. Reconnect to share changes with the family."
	}
	e.notify(Notice{Kind: NoticeRemote, Message: msg, Err: err})
}

// Rollover resets items checked off on an earlier day. Only the first call
// per engine does anything; Connect makes it, and offline sessions call it
// themselves.
func (e *Engine) Rollover() error {
	return e.mutate(func(s *shopping.State) []shopping.Effect {
		if e.rolledOver {
			return nil
		}
		e.rolledOver = true
		return s.DailyRollover()
	})
}

// syncFamily replaces the live subscription with one for familyID and loads
// the family's items. The subscription is opened first so no change made
// while the list loads is lost; its events are applied after the list.
func (e *Engine) syncFamily(ctx context.Context, familyID string) error {
	e.mu.Lock()
	old := e.unsubscribe
	e.unsubscribe = nil
	e.mu.Unlock()
	if old != nil {
		old()
	}

	subCtx, cancel := context.WithCancel(e.ctx)
	events, unsub, err := e.ds.Subscribe(subCtx, familyID)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe: %w", err)
	}
	unsubscribe := func() {
		cancel()
		unsub()
	}

	items, err := e.ds.ListItems(ctx, familyID)
	if err != nil {
		unsubscribe()
		return fmt.Errorf("list items: %w", err)
	}
	if err := e.mutate(func(s *shopping.State) []shopping.Effect {
		return s.LoadRemote(items)
	}); err != nil {
		unsubscribe()
		return err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		unsubscribe()
		return ErrClosed
	}
	e.unsubscribe = unsubscribe
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		e.consume(subCtx, events)
	}()
	return nil
}

// consume applies remote events until the subscription ends. A dropped
// connection is reported and not reopened.
func (e *Engine) consume(ctx context.Context, events <-chan remote.Event) {
	for ev := range events {
		if err := e.mutate(func(s *shopping.State) []shopping.Effect {
			applyEvent(s, ev)
			return nil
		}); err != nil {
			return
		}
	}
	if ctx.Err() == nil {
		e.notify(Notice{Kind: NoticeLive, Message: "Live updates stopped. Reconnect to see changes from the family."})
	}
}

// applyEvent merges one remote change. Every branch is idempotent so
// duplicate and echoed deliveries are harmless.
func applyEvent(s *shopping.State, ev remote.Event) bool {
	switch ev.Kind {
	case remote.Inserted:
		return s.ApplyInsert(ev.Item)
	case remote.Updated:
		return s.ApplyUpdate(ev.Item)
	case remote.Deleted:
		return s.ApplyDelete(ev.ItemID)
	}
	return false
}

// JoinFamily moves the user into the family with inviteCode. It returns nil
// when no family has that code.
func (e *Engine) JoinFamily(ctx context.Context, inviteCode string) (*model.Family, error) {
	session := e.Session()
	if session == nil {
		return nil, ErrNotConnected
	}
	family, err := e.ds.JoinFamily(ctx, session.User.ID, inviteCode)
	if err != nil {
		e.notify(Notice{Kind: NoticeRemote, Message: "Could not join the family.", Err: err})
		return nil, fmt.Errorf("join family: %w", err)
	}
	if family == nil {
		return nil, nil
	}
	return family, e.switchFamily(ctx, session, family)
}

// LeaveFamily moves the user into a fresh family of their own.
func (e *Engine) LeaveFamily(ctx context.Context) (*model.Family, error) {
	session := e.Session()
	if session == nil {
		return nil, ErrNotConnected
	}
	family, err := e.ds.LeaveFamily(ctx, session.User.ID)
	if err != nil {
		e.notify(Notice{Kind: NoticeRemote, Message: "Could not leave the family.", Err: err})
		return nil, fmt.Errorf("leave family: %w", err)
	}
	if family == nil {
		return nil, nil
	}
	return family, e.switchFamily(ctx, session, family)
}

// RemoveMember removes targetID from the family. Only the owner may do this;
// anyone else is refused here without a remote call.
func (e *Engine) RemoveMember(ctx context.Context, targetID string) (*model.Family, error) {
	session := e.Session()
	if session == nil {
		return nil, ErrNotConnected
	}
	if !session.Family.IsOwner {
		return nil, remote.ErrNotOwner
	}
	family, err := e.ds.RemoveMember(ctx, session.User.ID, targetID)
	if err != nil {
		if !errors.Is(err, remote.ErrNotOwner) {
			e.notify(Notice{Kind: NoticeRemote, Message: "Could not remove the member.", Err: err})
		}
		return nil, fmt.Errorf("remove member: %w", err)
	}
	if family == nil {
		return nil, nil
	}
	return family, e.switchFamily(ctx, session, family)
}

func (e *Engine) switchFamily(ctx context.Context, session *model.Session, family *model.Family) error {
	next := *session
	next.Family = *family
	e.setSession(&next)
	if family.ID == session.Family.ID {
		return nil
	}
	if err := e.syncFamily(ctx, family.ID); err != nil {
		e.notify(Notice{Kind: NoticeRemote, Message: "Could not load the family list.", Err: err})
		return err
	}
	return nil
}
