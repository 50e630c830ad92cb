package view

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	log15 "github.com/inconshreveable/log15/v3"

	"github.com/wricardo/telemetry-dashboard/logging"
	"github.com/wricardo/telemetry-dashboard/telemetry"
	"github.com/wricardo/telemetry-dashboard/transport/websocket"
)

// Renderer draws the current cards. err is the last message error, or nil.
type Renderer interface {
	Render(cards []Card, err error) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(cards []Card, err error) error

func (f RendererFunc) Render(cards []Card, err error) error { return f(cards, err) }

// Dashboard is the view: it owns the pairs of the most recent message.
type Dashboard struct {
	mu       sync.RWMutex
	pairs    []telemetry.Pair
	received int
	lastErr  error

	renderer Renderer
	dialOpts []websocket.DialOption
	log      log15.Logger
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithRenderer sets the renderer invoked after every state change.
func WithRenderer(r Renderer) Option {
	return func(d *Dashboard) { d.renderer = r }
}

func WithLogger(logger log15.Logger) Option {
	return func(d *Dashboard) { d.log = logger }
}

// WithDialOptions passes options through to websocket.Dial on Mount.
func WithDialOptions(opts ...websocket.DialOption) Option {
	return func(d *Dashboard) { d.dialOpts = append(d.dialOpts, opts...) }
}

func New(opts ...Option) *Dashboard {
	d := &Dashboard{}
	for _, opt := range opts {
		opt(d)
	}
	d.log = logging.OrDiscard(d.log).New("module", "view")
	return d
}

// HandleMessage applies one telemetry frame. On success the previous pairs
// are replaced entirely. On failure they are kept and the error becomes the
// view's error state until the next good message.
func (d *Dashboard) HandleMessage(data []byte) error {
	pairs, err := telemetry.ParseMessage(data)

	d.mu.Lock()
	d.received++
	if err != nil {
		d.lastErr = err
	} else {
		d.pairs = pairs
		d.lastErr = nil
	}
	d.mu.Unlock()

	if err != nil {
		d.log.Warn("discarding telemetry message", "err", err, "size", len(data))
	} else {
		d.log.Debug("telemetry message applied", "pairs", len(pairs))
	}

	d.render()
	return err
}

// Pairs returns a copy of the displayed pairs.
func (d *Dashboard) Pairs() []telemetry.Pair {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]telemetry.Pair, len(d.pairs))
	copy(out, d.pairs)
	return out
}

// Cards returns one card per displayed pair, in message order.
func (d *Dashboard) Cards() []Card {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return CardsFor(d.pairs)
}

// LastError returns the error of the most recent message, or nil.
func (d *Dashboard) LastError() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastErr
}

// Received returns how many frames have been handled, good or bad.
func (d *Dashboard) Received() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.received
}

func (d *Dashboard) render() {
	if d.renderer == nil {
		return
	}
	d.mu.RLock()
	cards := CardsFor(d.pairs)
	err := d.lastErr
	d.mu.RUnlock()

	if rerr := d.renderer.Render(cards, err); rerr != nil {
		d.log.Error("render failed", "err", rerr)
	}
}

// Mount opens one connection to url and applies its messages until ctx is
// cancelled or the peer goes away. The connection is always closed before
// Mount returns.
func (d *Dashboard) Mount(ctx context.Context, url string) error {
	opts := append([]websocket.DialOption{websocket.WithLogger(d.log)}, d.dialOpts...)
	conn, err := websocket.Dial(ctx, url, websocket.Handlers{
		OnOpen: func() {
			d.log.Info("dashboard connected", "url", url)
			d.render()
		},
		OnMessage: func(data []byte) {
			d.HandleMessage(data)
		},
		OnClose: func(err error) {
			d.log.Info("dashboard disconnected", "url", url, "err", err)
		},
	}, opts...)
	if err != nil {
		return fmt.Errorf("mount dashboard: %w", err)
	}
	defer conn.Close()

	select {
	case <-ctx.Done():
		return nil
	case <-conn.Done():
		return nil
	}
}

// TextRenderer writes the cards to W, one block per card.
type TextRenderer struct {
	W     io.Writer
	Title string
	// Clear emits an ANSI clear-screen sequence before each frame.
	Clear bool
}

func (r *TextRenderer) Render(cards []Card, err error) error {
	var b strings.Builder
	if r.Clear {
		b.WriteString("\x1b[H\x1b[2J")
	}
	if r.Title != "" {
		b.WriteString(r.Title)
		b.WriteString("\n\n")
	}
	if err != nil {
		fmt.Fprintf(&b, "error: %v\n\n", err)
	}
	if len(cards) == 0 {
		b.WriteString("(no data)\n")
	}
	for _, c := range cards {
		b.WriteString(c.Text())
	}
	b.WriteString("\n")

	_, werr := io.WriteString(r.W, b.String())
	return werr
}
