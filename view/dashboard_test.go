package view

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/wricardo/telemetry-dashboard/telemetry"
)

func cardLabels(cards []Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Label
	}
	return out
}

func TestHandleMessage_ProducesOneCardPerKey(t *testing.T) {
	d := New()

	if err := d.HandleMessage([]byte(`{"temp": 21.5, "humidity": 60}`)); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}

	cards := d.Cards()
	if len(cards) != 2 {
		t.Fatalf("Expected 2 cards, got %d", len(cards))
	}
	if cards[0] != (Card{Label: "temp", Value: "21.5", Kind: telemetry.KindNumber}) {
		t.Errorf("Unexpected first card: %+v", cards[0])
	}
	if cards[1] != (Card{Label: "humidity", Value: "60", Kind: telemetry.KindNumber}) {
		t.Errorf("Unexpected second card: %+v", cards[1])
	}
}

func TestHandleMessage_EmptyObject(t *testing.T) {
	d := New()

	if err := d.HandleMessage([]byte(`{}`)); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if len(d.Cards()) != 0 {
		t.Errorf("Expected 0 cards, got %d", len(d.Cards()))
	}
}

func TestHandleMessage_ReplacesPreviousPairs(t *testing.T) {
	d := New()

	d.HandleMessage([]byte(`{"a":1}`))
	d.HandleMessage([]byte(`{"b":2}`))

	cards := d.Cards()
	if len(cards) != 1 {
		t.Fatalf("Expected 1 card after second message, got %d: %v", len(cards), cardLabels(cards))
	}
	if cards[0].Label != "b" || cards[0].Value != "2" {
		t.Errorf("Expected (b, 2), got (%s, %s)", cards[0].Label, cards[0].Value)
	}
}

func TestHandleMessage_BadMessageKeepsState(t *testing.T) {
	d := New()

	d.HandleMessage([]byte(`{"a":1}`))
	err := d.HandleMessage([]byte(`{"a":`))
	if !errors.Is(err, telemetry.ErrMalformed) {
		t.Fatalf("Expected ErrMalformed, got %v", err)
	}

	if !errors.Is(d.LastError(), telemetry.ErrMalformed) {
		t.Errorf("Expected LastError to be set, got %v", d.LastError())
	}
	if labels := cardLabels(d.Cards()); len(labels) != 1 || labels[0] != "a" {
		t.Errorf("Expected previous cards to survive, got %v", labels)
	}

	d.HandleMessage([]byte(`[1]`))
	if !errors.Is(d.LastError(), telemetry.ErrNotObject) {
		t.Errorf("Expected ErrNotObject, got %v", d.LastError())
	}

	d.HandleMessage([]byte(`{"c":3}`))
	if d.LastError() != nil {
		t.Errorf("Expected error state to clear, got %v", d.LastError())
	}
	if d.Received() != 4 {
		t.Errorf("Expected 4 received frames, got %d", d.Received())
	}
}

func TestPairsReturnsCopy(t *testing.T) {
	d := New()
	d.HandleMessage([]byte(`{"a":1}`))

	pairs := d.Pairs()
	pairs[0].Label = "mutated"

	if d.Pairs()[0].Label != "a" {
		t.Error("Pairs should return a copy")
	}
}

func TestRendererCalledPerMessage(t *testing.T) {
	var calls [][]Card
	var errs []error
	d := New(WithRenderer(RendererFunc(func(cards []Card, err error) error {
		calls = append(calls, cards)
		errs = append(errs, err)
		return nil
	})))

	d.HandleMessage([]byte(`{"a":1,"b":2}`))
	d.HandleMessage([]byte(`oops`))

	if len(calls) != 2 {
		t.Fatalf("Expected 2 renders, got %d", len(calls))
	}
	if len(calls[0]) != 2 || errs[0] != nil {
		t.Errorf("First render: %d cards, err %v", len(calls[0]), errs[0])
	}
	if len(calls[1]) != 2 || errs[1] == nil {
		t.Errorf("Second render should keep cards and carry error: %d cards, err %v", len(calls[1]), errs[1])
	}
}

func TestTextRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := &TextRenderer{W: &buf, Title: "Dashboard"}

	cards := []Card{{Label: "orders", Value: "3"}}
	if err := r.Render(cards, nil); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "Dashboard\n") {
		t.Errorf("Expected title first, got %q", out)
	}
	if !strings.Contains(out, "| orders |") || !strings.Contains(out, "| 3      |") {
		t.Errorf("Expected boxed card, got %q", out)
	}

	buf.Reset()
	r.Render(nil, errors.New("boom"))
	if !strings.Contains(buf.String(), "error: boom") || !strings.Contains(buf.String(), "(no data)") {
		t.Errorf("Expected error and empty marker, got %q", buf.String())
	}
}

// dashboardServer pushes frames to the view and records close frames.
type dashboardServer struct {
	frames []string

	mu     sync.Mutex
	closes int
}

func (s *dashboardServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := gorilla.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for _, f := range s.frames {
		conn.WriteMessage(gorilla.TextMessage, []byte(f))
	}
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if gorilla.IsCloseError(err, gorilla.CloseNormalClosure) {
				s.mu.Lock()
				s.closes++
				s.mu.Unlock()
			}
			return
		}
	}
}

func (s *dashboardServer) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

func TestMount_AppliesMessagesAndClosesOnUnmount(t *testing.T) {
	srv := &dashboardServer{frames: []string{`{"a":1}`, `{"b":2}`}}
	server := httptest.NewServer(srv)
	defer server.Close()

	d := New()
	ctx, cancel := context.WithCancel(context.Background())
	mounted := make(chan error, 1)
	go func() {
		mounted <- d.Mount(ctx, "ws"+strings.TrimPrefix(server.URL, "http"))
	}()

	deadline := time.Now().Add(time.Second)
	for d.Received() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	cards := d.Cards()
	if len(cards) != 1 || cards[0].Label != "b" {
		t.Errorf("Expected only card b, got %v", cardLabels(cards))
	}

	cancel()
	select {
	case err := <-mounted:
		if err != nil {
			t.Errorf("Mount returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Mount did not return after unmount")
	}

	deadline = time.Now().Add(time.Second)
	for srv.closeCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if srv.closeCount() != 1 {
		t.Errorf("Expected exactly one close frame, got %d", srv.closeCount())
	}
}

func TestMount_DialFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	d := New()
	err := d.Mount(context.Background(), "ws"+strings.TrimPrefix(server.URL, "http"))
	if err == nil {
		t.Fatal("Expected mount error")
	}
}
