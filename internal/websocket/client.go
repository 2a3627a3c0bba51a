package websocket

import (
	"context"
	"errors"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

// Client is one signed-in connection to the family change feed. The feed is
// one way: the hub queues item changes for the client's current family on
// send and the client writes them out in order.
type Client struct {
	hub  *Hub
	conn *ws.Conn
	send chan []byte

	userID string
	// familyID is guarded by hub.mu; Move rewrites it.
	familyID string
}

func NewClient(hub *Hub, conn *ws.Conn, userID, familyID string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		userID:   userID,
		familyID: familyID,
	}
}

// Run serves the feed until the subscriber hangs up, ctx ends or the hub
// drops the client.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	// Subscribers never send data frames. CloseRead still answers pings and
	// cancels ctx once the peer closes.
	ctx = c.conn.CloseRead(ctx)

	err := c.feed(ctx)
	switch {
	case err == nil:
		c.conn.Close(ws.StatusNormalClosure, "")
	case errors.Is(err, context.Canceled), ws.CloseStatus(err) != -1:
	default:
		c.hub.logger.Debug("event feed ended", "user_id", c.userID, "error", err)
	}
}

// feed writes queued changes and keeps the connection alive with pings. It
// returns nil when the hub closes send.
func (c *Client) feed(ctx context.Context) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return nil
			}
			if err := c.write(ctx, msg); err != nil {
				return err
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// write gives a stalled subscriber writeTimeout before the change is given
// up on and the connection dropped.
func (c *Client) write(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, ws.MessageText, msg)
}
