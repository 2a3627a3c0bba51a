package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dukerupert/basket/internal/remote"
	"github.com/dukerupert/basket/internal/shopping"
)

// pusher sends remote writes in the order they were produced. Each write is
// retried on its own; a write that still fails is reported and dropped from
// the queue, and its row stays dirty for the next Connect.
type pusher struct {
	ds      remote.Datastore
	logger  *slog.Logger
	base    time.Duration
	retries uint64
	pushed  func(shopping.Effect)
	failed  func(shopping.Effect, error)

	mu      sync.Mutex
	queue   []shopping.Effect
	busy    bool
	waiters []chan struct{}
	wake    chan struct{}
}

func newPusher(ds remote.Datastore, logger *slog.Logger, base time.Duration, retries uint64,
	pushed func(shopping.Effect), failed func(shopping.Effect, error)) *pusher {
	return &pusher{
		ds:      ds,
		logger:  logger.With("component", "pusher"),
		base:    base,
		retries: retries,
		pushed:  pushed,
		failed:  failed,
		wake:    make(chan struct{}, 1),
	}
}

func (p *pusher) enqueue(effects []shopping.Effect) {
	p.mu.Lock()
	p.queue = append(p.queue, effects...)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *pusher) run(ctx context.Context) {
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.busy = false
			for _, w := range p.waiters {
				close(w)
			}
			p.waiters = nil
			p.mu.Unlock()

			select {
			case <-ctx.Done():
				return
			case <-p.wake:
				continue
			}
		}
		eff := p.queue[0]
		p.queue = p.queue[1:]
		p.busy = true
		p.mu.Unlock()

		if err := p.push(ctx, eff); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.failed(eff, err)
			continue
		}
		p.pushed(eff)
	}
}

func (p *pusher) push(ctx context.Context, eff shopping.Effect) error {
	b := retry.NewExponential(p.base)
	b = retry.WithJitterPercent(20, b)
	b = retry.WithMaxRetries(p.retries, b)

	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		var err error
		switch eff.Kind {
		case shopping.EffectUpsert:
			_, err = p.ds.UpsertItem(ctx, eff.Item)
		case shopping.EffectDelete:
			_, err = p.ds.DeleteItem(ctx, eff.ItemID)
		default:
			return fmt.Errorf("unknown effect %v", eff.Kind)
		}
		if err == nil {
			return nil
		}
		if errors.Is(err, remote.ErrUnauthorized) || errors.Is(err, context.Canceled) || remote.Permanent(err) {
			return err
		}
		p.logger.Debug("remote write failed", "kind", eff.Kind.String(), "item_id", eff.ItemID, "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})
}

// flush returns once the queue is empty and nothing is in flight.
func (p *pusher) flush(ctx context.Context) error {
	p.mu.Lock()
	if len(p.queue) == 0 && !p.busy {
		p.mu.Unlock()
		return nil
	}
	w := make(chan struct{})
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()

	select {
	case <-w:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
