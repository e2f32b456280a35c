// Package events maintains the persistent push connection that delivers
// note change notifications for the authenticated identity.
//
// The transport promises at-least-once delivery with no ordering guarantee
// across reconnects; the collection cache is written to tolerate both.
// Transport failures never surface to callers: they are logged and the
// channel heals itself on a fixed delay.
package events

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/knowledgebrain/knowbrain/internal/client/auth"
	"github.com/knowledgebrain/knowbrain/internal/client/models"
	"github.com/knowledgebrain/knowbrain/internal/common"
	"github.com/knowledgebrain/knowbrain/internal/logging"
)

const (
	// ReconnectDelay is the fixed wait between reconnection attempts after a
	// transport-level disconnect.
	ReconnectDelay = 5 * time.Second

	// HeartbeatInterval drives the outgoing ping loop; the read deadline is
	// pushed on every pong so half-open connections are detected.
	HeartbeatInterval = 10 * time.Second

	handshakeTimeout = 10 * time.Second
	readWait         = 3 * HeartbeatInterval
	writeWait        = 5 * time.Second
)

// Handler consumes one pushed change event.
type Handler func(models.NoteEvent)

// Channel is the client side of the per-identity event stream.
//
// Connect and Disconnect are idempotent; the channel can be reopened after
// an explicit teardown. Disconnect must be called before the credential is
// cleared on logout, so a reconnect attempt never carries a stale credential.
type Channel struct {
	url   string
	creds *auth.Store
	log   logging.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	stop      chan struct{}
	wg        sync.WaitGroup
	handler   Handler
	connected bool

	// reconnectDelay is a field so tests can shorten it.
	reconnectDelay time.Duration
}

func NewChannel(wsURL string, creds *auth.Store, log logging.Logger) *Channel {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Channel{
		url:            wsURL,
		creds:          creds,
		log:            log,
		reconnectDelay: ReconnectDelay,
	}
}

// Connect opens the transport, authenticates the handshake with the current
// credential and starts the listen and heartbeat loops.
//
// It is a no-op when already connected and a no-op when no credential is
// held: an unauthenticated identity cannot open the channel.
func (c *Channel) Connect(ctx context.Context, h Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}
	token, ok := c.creds.Token()
	if !ok {
		return nil
	}

	conn, err := c.dial(ctx, token)
	if err != nil {
		return err
	}

	c.conn = conn
	c.handler = h
	c.stop = make(chan struct{})
	c.connected = true

	c.wg.Add(2)
	go c.listen(ctx, c.stop)
	go c.pingLoop(c.stop)

	c.log.Info(ctx, "event channel connected", "url", c.url)
	return nil
}

func (c *Channel) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	header := http.Header{}
	header.Set(common.AuthHeaderName, common.BearerPrefix+token)

	conn, resp, err := dialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("channel dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("channel dial failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})
	return conn, nil
}

// listen reads events until the channel is torn down. On a transport-level
// disconnect it drops the connection and redials on the fixed delay, keeping
// the same handler; an explicit Disconnect ends the loop instead.
func (c *Channel) listen(ctx context.Context, stop chan struct{}) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		default:
		}

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			select {
			case <-time.After(c.reconnectDelay):
			case <-ctx.Done():
				return
			case <-stop:
				return
			}

			token, ok := c.creds.Token()
			if !ok {
				// Logged out while disconnected; stay down until Connect is
				// called again.
				continue
			}
			fresh, err := c.dial(ctx, token)
			if err != nil {
				c.log.Warn(ctx, "channel reconnect failed", "error", err)
				continue
			}
			c.mu.Lock()
			select {
			case <-stop:
				// Torn down while dialing.
				c.mu.Unlock()
				_ = fresh.Close()
				return
			default:
			}
			c.conn = fresh
			c.mu.Unlock()
			c.log.Info(ctx, "event channel reconnected")
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-stop:
				return
			default:
			}
			if ctx.Err() != nil {
				return
			}
			c.log.Warn(ctx, "channel read error, will reconnect", "error", err)
			c.dropConn()
			continue
		}

		var ev models.NoteEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			c.log.Warn(ctx, "discarding malformed event", "error", err)
			continue
		}
		c.handler(ev)
	}
}

// pingLoop keeps the connection live with periodic pings. Write errors are
// left for the read loop to observe and recover from.
func (c *Channel) pingLoop(stop chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn == nil {
				continue
			}
			_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
		}
	}
}

// dropConn closes the transport without ending the listen loop, so the
// reconnect path takes over.
func (c *Channel) dropConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Disconnect tears the channel down. Safe to call when already disconnected.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.connected = false
	close(c.stop)
	if c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	c.wg.Wait()
	c.log.Info(context.Background(), "event channel disconnected")
}

// Connected reports whether an explicit Connect is active (the transport
// itself may be mid-reconnect).
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
