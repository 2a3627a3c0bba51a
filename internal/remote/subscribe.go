package remote

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	ws "github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	hub "github.com/dukerupert/basket/internal/websocket"
)

// Subscribe opens the family change feed. Messages for other families or
// other entities are dropped. The returned channel is closed when the
// connection ends for any reason.
func (c *Client) Subscribe(ctx context.Context, familyID string) (<-chan Event, func(), error) {
	if err := c.checkFamily(familyID); err != nil {
		return nil, nil, err
	}

	u := c.baseURL + "/api/family/events"
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}

	header := http.Header{}
	if token := c.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ctx, cancel := context.WithCancel(ctx)
	conn, resp, err := ws.Dial(ctx, u, &ws.DialOptions{HTTPHeader: header})
	if err != nil {
		cancel()
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, fmt.Errorf("dial events: %w", err)
	}

	events := make(chan Event, 64)
	go func() {
		defer close(events)
		defer conn.CloseNow()
		for {
			var msg hub.Message
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				if ctx.Err() == nil && ws.CloseStatus(err) != ws.StatusNormalClosure {
					c.logger.Warn("event feed closed", "error", err)
				}
				return
			}
			ev, ok := toEvent(msg, familyID)
			if !ok {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Cancelling the read context tears the connection down.
	return events, cancel, nil
}

func toEvent(msg hub.Message, familyID string) (Event, bool) {
	if msg.Entity != hub.EntityItem || msg.FamilyID != familyID {
		return Event{}, false
	}
	switch msg.Action {
	case hub.ActionInserted, hub.ActionUpdated:
		if msg.Item == nil {
			return Event{}, false
		}
		kind := Inserted
		if msg.Action == hub.ActionUpdated {
			kind = Updated
		}
		return Event{Kind: kind, Item: *msg.Item, ItemID: msg.Item.ID}, true
	case hub.ActionDeleted:
		if msg.ID == "" {
			return Event{}, false
		}
		return Event{Kind: Deleted, ItemID: msg.ID}, true
	}
	return Event{}, false
}
