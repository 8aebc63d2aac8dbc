// Package signalclient maintains one durable logical connection to the
// signaling relay, with typed send/receive and reconnect-on-demand.
package signalclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Shivyyyy-git/volley-peer-app/internal/signal"
)

var (
	// ErrSignalingTimeout means the transport did not reach an open state
	// within the connect bound. A subsequent Connect retries cleanly.
	ErrSignalingTimeout = errors.New("signaling: connect timeout")
	// ErrSignalingNotOpen means a send was attempted and the connection
	// could not be (re)opened.
	ErrSignalingNotOpen = errors.New("signaling: connection not open")
)

const (
	connectTimeout = 10 * time.Second
	writeTimeout   = 5 * time.Second
)

type attempt struct {
	done chan struct{}
	err  error
}

// Client is used by exactly one session flow at a time. OnMessage supports
// a single listener; registering another replaces the first.
type Client struct {
	url    string
	dialer *websocket.Dialer

	mu       sync.Mutex
	conn     *websocket.Conn
	inflight *attempt
	listener func(signal.Message)

	writeMu sync.Mutex
}

func New(url string) *Client {
	return &Client{url: url, dialer: websocket.DefaultDialer}
}

// Connect is idempotent: it returns immediately when already open, joins an
// in-flight attempt when one exists, and otherwise dials with a bounded
// wait. On timeout the in-flight state is reset so the next call retries.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	if at := c.inflight; at != nil {
		c.mu.Unlock()
		select {
		case <-at.done:
			return at.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	at := &attempt{done: make(chan struct{})}
	c.inflight = at
	c.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	conn, _, err := c.dialer.DialContext(dialCtx, c.url, nil)

	c.mu.Lock()
	c.inflight = nil
	if err != nil {
		if dialCtx.Err() != nil && ctx.Err() == nil {
			err = fmt.Errorf("%w: %s", ErrSignalingTimeout, c.url)
		}
		at.err = err
		c.mu.Unlock()
		close(at.done)
		return at.err
	}
	c.conn = conn
	c.mu.Unlock()
	close(at.done)

	log.Info().Str("module", "signalclient").Str("url", c.url).Msg("connected to signaling relay")
	go c.readLoop(conn)
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Info().Err(err).Str("module", "signalclient").Msg("read loop ended")
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			return
		}
		msg, err := signal.Decode(data)
		if err != nil {
			log.Warn().Err(err).Str("module", "signalclient").Msg("unparseable frame, skipping")
			continue
		}
		c.mu.Lock()
		fn := c.listener
		c.mu.Unlock()
		if fn == nil {
			log.Warn().Str("module", "signalclient").Str("type", string(msg.Type)).Msg("no listener set, dropping message")
			continue
		}
		fn(msg)
	}
}

// Send serializes and transmits. If the transport is not open it first
// awaits Connect; if still not open it fails rather than silently dropping.
func (c *Client) Send(ctx context.Context, msg signal.Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		if err := c.Connect(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrSignalingNotOpen, err)
		}
		c.mu.Lock()
		conn = c.conn
		c.mu.Unlock()
		if conn == nil {
			return ErrSignalingNotOpen
		}
	}

	b, err := msg.Encode()
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("%w: %v", ErrSignalingNotOpen, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return fmt.Errorf("%w: %v", ErrSignalingNotOpen, err)
	}
	return nil
}

// OnMessage registers the single listener; a later call replaces it.
func (c *Client) OnMessage(fn func(signal.Message)) {
	c.mu.Lock()
	c.listener = fn
	c.mu.Unlock()
}

// Close tears the transport down and resets state so the client can be
// reused for a new session. The listener survives; the next session flow
// replaces it anyway.
func (c *Client) Close() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.inflight = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}
