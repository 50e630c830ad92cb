// Package view is the dashboard view: it holds the pairs of the most recent
// telemetry message and renders them as cards.
//
// A Dashboard owns exactly one piece of state, the display pairs. Every
// message replaces them; nothing is merged or kept from earlier messages.
//
//	d := view.New(view.WithRenderer(&view.TextRenderer{W: os.Stdout}))
//	err := d.Mount(ctx, "ws://localhost:8082/dashboard")
//
// Mount acquires the socket and Mount's return releases it, so cancelling
// ctx is the unmount. Messages are applied from a single read goroutine;
// Pairs and Cards may be called from anywhere.
//
// Cards:
//
// A Card is a label shown above a value. Text renders it for terminals and
// WriteHTML renders a whole page of cards for browsers.
package view
