package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wricardo/telemetry-dashboard/view"
)

func TestWindowRender(t *testing.T) {
	w := &Window{endpoint: defaultEndpoint}
	d := view.New(view.WithRenderer(w))

	d.HandleMessage([]byte(`{"temp": 21.5, "status": "ok"}`))
	if len(w.cards) != 2 || !w.connected {
		t.Fatalf("Expected 2 cards after a message, got %d", len(w.cards))
	}
	if w.cards[0].Label != "temp" || w.cards[0].Value != "21.5" {
		t.Errorf("Unexpected first card: %+v", w.cards[0])
	}

	d.HandleMessage([]byte(`nope`))
	if len(w.cards) != 2 || w.lastErr == nil {
		t.Errorf("Bad message should keep cards and set error: %d cards, err %v", len(w.cards), w.lastErr)
	}

	w.Render(nil, errors.New("dial failed"))
	w.setClosed()
	if !w.closed || len(w.cards) != 0 {
		t.Error("Expected closed window without cards")
	}
}

func TestClip(t *testing.T) {
	if clip("orders") != "orders" {
		t.Error("Short text should not be clipped")
	}
	long := strings.Repeat("x", 100)
	clipped := clip(long)
	if !strings.HasSuffix(clipped, "...") || len([]rune(clipped)) != (cardWidth-16)/6 {
		t.Errorf("Unexpected clip result %q", clipped)
	}
}

func TestRunUnmountsBeforeReturning(t *testing.T) {
	w := &Window{endpoint: defaultEndpoint}
	released := false

	err := run(w, func(ctx context.Context) error {
		<-ctx.Done()
		released = true
		return nil
	}, func() error { return errors.New("window closed") })

	if err == nil || err.Error() != "window closed" {
		t.Errorf("Expected game error, got %v", err)
	}
	if !released || !w.closed {
		t.Error("Expected mount to finish before run returns")
	}
}

func TestRunMountFailure(t *testing.T) {
	w := &Window{endpoint: defaultEndpoint}

	err := run(w, func(ctx context.Context) error {
		return errors.New("dial failed")
	}, func() error { return nil })

	if err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
	if w.lastErr == nil || w.lastErr.Error() != "dial failed" {
		t.Errorf("Expected mount error to be shown, got %v", w.lastErr)
	}
}
