// Package stream owns the push-channel connection: dialing, reading and
// decoding newline-batched frames, dispatching decoded events, and
// reconnecting with linear backoff when the channel drops.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/epub-reader/internal/logbuf"
	"github.com/ziadkadry99/epub-reader/internal/wire"
)

const (
	// DefaultBaseDelay is multiplied by the attempt count between
	// reconnection attempts.
	DefaultBaseDelay = 3 * time.Second
	// DefaultMaxAttempts bounds consecutive failed reconnections.
	// Once exceeded the connection stays down until a new run.
	DefaultMaxAttempts = 5
)

// Handlers receives decoded push-channel events. Nil fields are skipped.
// All handlers are invoked from the connection's run goroutine, one at
// a time in arrival order.
type Handlers struct {
	Log             func(wire.LogEvent)
	Progress        func(wire.ProgressEvent)
	PageTranslation func(wire.PageTranslationEvent)
	Complete        func(wire.CompleteEvent)
	Error           func(wire.ErrorEvent)
	// Status is called with true on every successful connect and false
	// on every disconnect.
	Status func(connected bool)
}

// Config configures one push-channel connection.
type Config struct {
	URL         string
	BaseDelay   time.Duration
	MaxAttempts int
	// ClientID identifies this client instance to the server.
	ClientID string
}

// Conn manages the connection lifecycle. Create with New, drive with
// Run, stop with Close or by cancelling the context.
type Conn struct {
	cfg      Config
	handlers Handlers
	logs     *logbuf.Buffer
	dialer   *websocket.Dialer

	mu     sync.Mutex
	ws     *websocket.Conn
	closed bool
}

// New creates a connection manager. Zero config values fall back to the
// defaults above.
func New(cfg Config, handlers Handlers, logs *logbuf.Buffer) *Conn {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Conn{
		cfg:      cfg,
		handlers: handlers,
		logs:     logs,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Run connects and keeps the channel alive until the context is
// cancelled, Close is called, or the reconnection budget is exhausted.
// Exhausting the budget is not an error: the condition is surfaced
// through the Status handler and the log sink.
func (c *Conn) Run(ctx context.Context) error {
	var header http.Header
	if c.cfg.ClientID != "" {
		header = http.Header{"X-Client-ID": []string{c.cfg.ClientID}}
	}

	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ws, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, header)
		if err != nil {
			if resp != nil {
				resp.Body.Close()
			}
			c.logs.Append(logbuf.LevelError, "stream",
				fmt.Sprintf("connection failed: %v", err))
			c.notifyStatus(false)
		} else {
			c.setConn(ws)
			attempts = 0
			c.logs.Append(logbuf.LevelInfo, "stream", "connected")
			c.notifyStatus(true)

			c.readLoop(ws)

			c.setConn(nil)
			c.logs.Append(logbuf.LevelWarn, "stream", "connection closed")
			c.notifyStatus(false)
		}

		if c.isClosed() {
			return nil
		}

		attempts++
		if attempts > c.cfg.MaxAttempts {
			c.logs.Append(logbuf.LevelError, "stream",
				fmt.Sprintf("giving up after %d reconnection attempts", c.cfg.MaxAttempts))
			return nil
		}

		c.logs.Append(logbuf.LevelInfo, "stream",
			fmt.Sprintf("reconnecting (attempt %d/%d)", attempts, c.cfg.MaxAttempts))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempts) * c.cfg.BaseDelay):
		}
	}
}

// Close shuts the connection down and stops reconnecting. Safe to call
// more than once.
func (c *Conn) Close() {
	c.mu.Lock()
	c.closed = true
	ws := c.ws
	c.mu.Unlock()
	if ws != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = ws.Close()
	}
}

// readLoop consumes frames until the connection drops. One frame may
// batch several newline-delimited messages; each is decoded on its own
// so a malformed message never drops its neighbors.
func (c *Conn) readLoop(ws *websocket.Conn) {
	for {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !c.isClosed() {
				c.logs.Append(logbuf.LevelError, "stream",
					fmt.Sprintf("read error: %v", err))
			}
			return
		}

		for _, line := range wire.SplitFrame(frame) {
			msg, err := wire.Decode(line)
			switch {
			case errors.Is(err, wire.ErrUnknownType):
				c.logs.Append(logbuf.LevelDebug, "stream",
					fmt.Sprintf("dropping unknown message type %q", msg.Type))
			case err != nil:
				c.logs.Append(logbuf.LevelError, "stream",
					fmt.Sprintf("skipping malformed message: %v", err))
			default:
				c.dispatch(msg)
			}
		}
	}
}

func (c *Conn) dispatch(msg wire.Message) {
	switch msg.Type {
	case wire.TypeLog:
		if c.handlers.Log != nil {
			c.handlers.Log(*msg.Log)
		}
	case wire.TypeTranslationProgress:
		if c.handlers.Progress != nil {
			c.handlers.Progress(*msg.Progress)
		}
	case wire.TypePageTranslation:
		if c.handlers.PageTranslation != nil {
			c.handlers.PageTranslation(*msg.PageTranslation)
		}
	case wire.TypeTranslationComplete:
		if c.handlers.Complete != nil {
			c.handlers.Complete(*msg.Complete)
		}
	case wire.TypeTranslationError:
		if c.handlers.Error != nil {
			c.handlers.Error(*msg.Error)
		}
	}
}

func (c *Conn) notifyStatus(connected bool) {
	if c.handlers.Status != nil {
		c.handlers.Status(connected)
	}
}

func (c *Conn) setConn(ws *websocket.Conn) {
	c.mu.Lock()
	c.ws = ws
	c.mu.Unlock()
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
