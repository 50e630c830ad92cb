// Command desktop shows a telemetry dashboard in a native window. It mounts
// one view on the dashboard WebSocket endpoint and draws a card per pair of
// the latest message.
package main

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/wricardo/telemetry-dashboard/logging"
	"github.com/wricardo/telemetry-dashboard/view"
)

const (
	screenWidth     = 800
	screenHeight    = 600
	headerHeight    = 50
	cardWidth       = 180
	cardHeight      = 70
	cardGap         = 12
	defaultEndpoint = "ws://localhost:8082/dashboard"
)

// Card colors, cycled by position
var cardColors = []color.RGBA{
	{60, 90, 160, 255},
	{50, 130, 90, 255},
	{150, 90, 50, 255},
	{120, 60, 140, 255},
	{60, 130, 140, 255},
}

// Window is the ebiten game drawing the dashboard
type Window struct {
	endpoint string

	mu        sync.RWMutex
	cards     []view.Card
	lastErr   error
	connected bool
	closed    bool
}

// Render stores the cards for the next Draw. It is called from the
// connection goroutine.
func (w *Window) Render(cards []view.Card, err error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cards = cards
	w.lastErr = err
	w.connected = true
	return nil
}

func (w *Window) setClosed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

// Update handles input
func (w *Window) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		return ebiten.Termination
	}
	return nil
}

// Draw renders the header and one card per pair
func (w *Window) Draw(screen *ebiten.Image) {
	w.mu.RLock()
	cards := w.cards
	lastErr := w.lastErr
	status := "CONNECTING"
	if w.connected {
		status = "LIVE"
	}
	if w.closed {
		status = "CLOSED"
	}
	w.mu.RUnlock()

	screen.Fill(color.RGBA{20, 20, 30, 255})

	ebitenutil.DebugPrintAt(screen, "=== TELEMETRY DASHBOARD ===", 10, 10)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s [%s] cards:%d", w.endpoint, status, len(cards)), 10, 26)

	if lastErr != nil {
		ebitenutil.DebugPrintAt(screen, "ERROR: "+lastErr.Error(), 10, screenHeight-40)
	}

	perRow := (screenWidth - cardGap) / (cardWidth + cardGap)
	for i, card := range cards {
		col, row := i%perRow, i/perRow
		x := cardGap + col*(cardWidth+cardGap)
		y := headerHeight + cardGap + row*(cardHeight+cardGap)
		if y+cardHeight > screenHeight-50 {
			break
		}

		vector.DrawFilledRect(screen, float32(x), float32(y), cardWidth, cardHeight, cardColors[i%len(cardColors)], false)
		ebitenutil.DebugPrintAt(screen, clip(card.Label), x+8, y+10)
		ebitenutil.DebugPrintAt(screen, clip(card.Value), x+8, y+36)
	}

	ebitenutil.DebugPrintAt(screen, "ESC/Q: Quit", 10, screenHeight-20)
}

// Layout returns the window size
func (w *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

// clip shortens text to what fits on a card (the debug font is 6px wide).
func clip(s string) string {
	const limit = (cardWidth - 16) / 6
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}

func main() {
	endpoint := defaultEndpoint
	if len(os.Args) > 1 {
		endpoint = os.Args[1]
	}

	logger := logging.New(os.Getenv("DEBUG") == "true")
	w := &Window{endpoint: endpoint}
	dashboard := view.New(view.WithRenderer(w), view.WithLogger(logger))

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("Telemetry Dashboard")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	err := run(w, func(ctx context.Context) error { return dashboard.Mount(ctx, endpoint) },
		func() error { return ebiten.RunGame(w) })
	if err != nil {
		logger.Error("desktop client stopped", "err", err)
		os.Exit(1)
	}
}

// run mounts the dashboard in the background while game runs, then unmounts
// it and waits for the socket to be released before returning.
func run(w *Window, mount func(ctx context.Context) error, game func() error) error {
	ctx, cancel := context.WithCancel(context.Background())
	mounted := make(chan struct{})
	go func() {
		defer close(mounted)
		if err := mount(ctx); err != nil {
			w.Render(nil, err)
		}
		w.setClosed()
	}()

	err := game()
	cancel()
	<-mounted
	return err
}
