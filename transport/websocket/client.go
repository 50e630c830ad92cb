package websocket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	log15 "github.com/inconshreveable/log15/v3"
	"go.uber.org/multierr"

	"github.com/wricardo/telemetry-dashboard/logging"
)

const (
	// Time allowed for the opening handshake.
	handshakeTimeout = 10 * time.Second

	// Time allowed for the peer to answer our close frame.
	closeGracePeriod = time.Second

	// Maximum telemetry frame accepted from the endpoint.
	maxTelemetrySize = 1 << 20
)

// ErrClosed is returned when sending on a closed connection.
var ErrClosed = errors.New("websocket connection closed")

// State is the lifecycle state of a Conn.
type State int32

const (
	StateOpen State = iota
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Handlers are the reactions registered on a connection. Nil handlers are skipped.
type Handlers struct {
	OnOpen    func()
	OnMessage func(data []byte)
	OnClose   func(err error)
}

type dialConfig struct {
	dialer    *websocket.Dialer
	header    http.Header
	logger    log15.Logger
	readLimit int64
	handshake time.Duration
}

// DialOption customizes Dial.
type DialOption func(*dialConfig)

// WithDialer replaces the default dialer.
func WithDialer(d *websocket.Dialer) DialOption {
	return func(c *dialConfig) { c.dialer = d }
}

// WithHeader adds request headers to the opening handshake.
func WithHeader(h http.Header) DialOption {
	return func(c *dialConfig) { c.header = h }
}

func WithLogger(logger log15.Logger) DialOption {
	return func(c *dialConfig) { c.logger = logger }
}

// WithReadLimit caps the size of a single incoming frame.
func WithReadLimit(n int64) DialOption {
	return func(c *dialConfig) { c.readLimit = n }
}

// WithHandshakeTimeout overrides the dialer's handshake timeout.
func WithHandshakeTimeout(d time.Duration) DialOption {
	return func(c *dialConfig) { c.handshake = d }
}

// Conn is a client connection to a telemetry endpoint
type Conn struct {
	url      string
	ws       *websocket.Conn
	handlers Handlers
	log      log15.Logger

	state     atomic.Int32
	inHandler atomic.Bool
	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// Dial opens a connection to url and starts delivering frames to h.
func Dial(ctx context.Context, url string, h Handlers, opts ...DialOption) (*Conn, error) {
	cfg := &dialConfig{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		readLimit: maxTelemetrySize,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.handshake > 0 {
		d := *cfg.dialer
		d.HandshakeTimeout = cfg.handshake
		cfg.dialer = &d
	}
	logger := logging.OrDiscard(cfg.logger).New("url", url)

	ws, resp, err := cfg.dialer.DialContext(ctx, url, cfg.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	ws.SetReadLimit(cfg.readLimit)

	c := &Conn{
		url:      url,
		ws:       ws,
		handlers: h,
		log:      logger,
		done:     make(chan struct{}),
	}

	logger.Info("ws opened")
	if h.OnOpen != nil {
		h.OnOpen()
	}

	go c.readLoop()
	return c, nil
}

// URL returns the endpoint the connection was dialed against.
func (c *Conn) URL() string { return c.url }

func (c *Conn) State() State { return State(c.state.Load()) }

// Done is closed once the read loop has ended and OnClose has run.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Send writes one text frame.
func (c *Conn) Send(data []byte) error {
	if c.State() != StateOpen {
		return ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close performs the closing handshake and releases the socket.
// Only the first call has any effect; later calls return nil.
// While a handler is running, Close does not wait for the read loop to end,
// so handlers may call it.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.state.CompareAndSwap(int32(StateOpen), int32(StateClosing))

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.writeMu.Lock()
		werr := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		c.writeMu.Unlock()
		if werr != nil && !errors.Is(werr, websocket.ErrCloseSent) && !errors.Is(werr, net.ErrClosed) {
			err = multierr.Append(err, werr)
		}

		wait := !c.inHandler.Load()
		if wait {
			select {
			case <-c.done:
			case <-time.After(closeGracePeriod):
				c.log.Debug("peer did not answer close frame")
			}
		}

		if cerr := c.ws.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = multierr.Append(err, cerr)
		}
		if wait {
			<-c.done
		}
	})
	return err
}

// readLoop delivers text frames to OnMessage until the connection ends.
func (c *Conn) readLoop() {
	var readErr error
	defer func() {
		if c.isExpectedClose(readErr) {
			readErr = nil
		}
		c.ws.Close()
		c.state.Store(int32(StateClosed))

		if readErr != nil {
			c.log.Warn("ws closed", "err", readErr)
		} else {
			c.log.Info("ws closed")
		}
		if c.handlers.OnClose != nil {
			c.inHandler.Store(true)
			c.handlers.OnClose(readErr)
			c.inHandler.Store(false)
		}
		close(c.done)
	}()

	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			readErr = err
			return
		}
		if messageType != websocket.TextMessage {
			c.log.Debug("ignoring non-text frame", "type", messageType)
			continue
		}
		if c.handlers.OnMessage != nil {
			c.inHandler.Store(true)
			c.handlers.OnMessage(data)
			c.inHandler.Store(false)
		}
	}
}

func (c *Conn) isExpectedClose(err error) bool {
	if err == nil {
		return true
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	// Errors after a local Close are the socket being torn down under the reader.
	return c.State() != StateOpen
}
