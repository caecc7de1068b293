// Package transport maintains the persistent websocket connection to the
// messaging gateway. It frames events as JSON envelopes, dispatches server
// pushes onto the bus, correlates request/response pairs by id, and
// reconnects automatically within a fixed attempt budget.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ignaciov/matechat/internal/bus"
	"github.com/ignaciov/matechat/internal/session"
	"github.com/ignaciov/matechat/internal/wire"
)

// Bus event kinds published by the transport.
const (
	KindConnected    = "gw.connected"
	KindDisconnected = "gw.disconnected"
	KindGaveUp       = "gw.gave_up"
	KindPairing      = "gw.qr"
	KindAuth         = "gw.authenticated"
	KindReady        = "gw.ready"
	KindAuthFailure  = "gw.auth_failure"
	KindRoster       = "gw.roster"
	KindLabels       = "gw.labels"
	KindMessage      = "gw.message"
)

// pushKinds maps inbound wire events to bus kinds.
var pushKinds = map[string]string{
	wire.EventQR:          KindPairing,
	wire.EventAuth:        KindAuth,
	wire.EventReady:       KindReady,
	wire.EventAuthFailure: KindAuthFailure,
	wire.EventChatUpdate:  KindRoster,
	wire.EventLabelUpdate: KindLabels,
	wire.EventMessage:     KindMessage,
}

// ErrNotConnected is returned by Emit/Request while the socket is down.
var ErrNotConnected = errors.New("not connected to gateway")

// ErrConnectionLost fails in-flight requests when the socket drops.
var ErrConnectionLost = errors.New("connection lost")

// Conn is the minimal socket surface the client needs; satisfied by
// *websocket.Conn via wsConn and by fakes in tests.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer establishes a Conn. The production dialer speaks websocket with a
// bearer Authorization header.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

type wsDialer struct{}

func (wsDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	c, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return wsConn{c}, nil
}

type wsConn struct {
	*websocket.Conn
}

func (c wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.Conn.ReadMessage()
	return data, err
}

func (c wsConn) WriteMessage(data []byte) error {
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

type pendingResult struct {
	payload json.RawMessage
	err     error
}

// Client is the gateway connection. One Client serves every consumer of the
// socket; only the connection manager starts and stops it.
type Client struct {
	url         string
	token       session.Token
	bus         *bus.Bus
	logger      *zap.Logger
	dialer      Dialer
	maxAttempts int
	backoff     func(attempt int) time.Duration

	mu      sync.Mutex
	conn    Conn
	pending map[string]chan pendingResult
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a transport client. maxAttempts bounds consecutive failed
// connection attempts before the client gives up for good.
func New(url string, token session.Token, maxAttempts int, b *bus.Bus, logger *zap.Logger) *Client {
	return &Client{
		url:         url,
		token:       token,
		bus:         b,
		logger:      logger,
		dialer:      wsDialer{},
		maxAttempts: maxAttempts,
		backoff: func(attempt int) time.Duration {
			d := time.Duration(attempt) * 500 * time.Millisecond
			if d > 5*time.Second {
				d = 5 * time.Second
			}
			return d
		},
		pending: make(map[string]chan pendingResult),
	}
}

// Start launches the connection supervisor. It returns immediately;
// connectivity is reported through gw.connected / gw.disconnected /
// gw.gave_up bus events.
func (c *Client) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run(ctx)
}

// Stop tears the connection down and stops reconnecting. The transport must
// not outlive its session: a leaked socket would duplicate every push on
// the next establishment.
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.mu.Unlock()
	if c.done != nil {
		<-c.done
	}
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	attempts := 0
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := c.dialer.Dial(ctx, c.url, c.header())
		if err != nil {
			// A dial cut short by Stop is not a failed attempt.
			if ctx.Err() != nil {
				return
			}
			attempts++
			c.logger.Warn("gateway dial failed",
				zap.Error(err),
				zap.Int("attempt", attempts),
				zap.Int("budget", c.maxAttempts))
			if attempts >= c.maxAttempts {
				c.logger.Error("reconnect budget exhausted, giving up")
				c.bus.Emit(KindGaveUp, attempts)
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff(attempts)):
			}
			continue
		}

		// A successful connect resets the consecutive-failure budget.
		attempts = 0
		c.setConn(conn)
		c.bus.Emit(KindConnected, nil)

		c.readLoop(ctx, conn)

		c.setConn(nil)
		c.failPending(ErrConnectionLost)
		c.bus.Emit(KindDisconnected, nil)
	}
}

func (c *Client) readLoop(ctx context.Context, conn Conn) {
	// Close the socket when the context ends so ReadMessage unblocks.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("gateway read failed", zap.Error(err))
			}
			_ = conn.Close()
			return
		}
		c.handleFrame(data)
	}
}

// handleFrame dispatches one inbound frame: response frames resolve their
// pending request, push frames go onto the bus in arrival order. A response
// whose id is unknown belongs to an abandoned request and is dropped.
func (c *Client) handleFrame(data []byte) {
	var f wire.Frame
	if err := json.Unmarshal(data, &f); err != nil {
		c.logger.Warn("malformed gateway frame", zap.Error(err))
		return
	}

	if f.Event == wire.EventResponse && f.ID != "" {
		c.mu.Lock()
		ch, ok := c.pending[f.ID]
		delete(c.pending, f.ID)
		c.mu.Unlock()
		if ok {
			ch <- pendingResult{payload: f.Payload}
		}
		return
	}

	kind, ok := pushKinds[f.Event]
	if !ok {
		c.logger.Debug("unknown gateway event", zap.String("event", f.Event))
		return
	}
	c.bus.Emit(kind, f.Payload)
}

// Emit sends a fire-and-forget event. No response is awaited.
func (c *Client) Emit(event string, payload any) error {
	return c.writeFrame(wire.Frame{Event: event}, payload)
}

// Request sends an event carrying a correlation id and blocks until the
// matching response frame arrives, the context ends, or the connection
// drops.
func (c *Client) Request(ctx context.Context, event string, payload any) (json.RawMessage, error) {
	id := uuid.NewString()
	ch := make(chan pendingResult, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.writeFrame(wire.Frame{Event: event, ID: id}, payload); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, err
	}

	select {
	case r := <-ch:
		return r.payload, r.err
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (c *Client) writeFrame(f wire.Frame, payload any) error {
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", f.Event, err)
		}
		f.Payload = data
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return c.conn.WriteMessage(data)
}

func (c *Client) setConn(conn Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Client) failPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		ch <- pendingResult{err: err}
		delete(c.pending, id)
	}
}

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+string(c.token))
	return h
}
