package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wricardo/telemetry-dashboard/board/counter"
	"github.com/wricardo/telemetry-dashboard/board/service"
)

// fakeReader hands out queued messages, then blocks until ctx is done.
type fakeReader struct {
	mu       sync.Mutex
	messages []kafka.Message
	errs     []error
	closed   bool
	drained  chan struct{}
}

func newFakeReader(values ...string) *fakeReader {
	r := &fakeReader{drained: make(chan struct{})}
	for i, v := range values {
		r.messages = append(r.messages, kafka.Message{Value: []byte(v), Offset: int64(i)})
	}
	return r
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return msg, nil
	}
	select {
	case <-r.drained:
	default:
		close(r.drained)
	}
	r.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func newTestService(t *testing.T) service.DashboardService {
	t.Helper()
	board, err := counter.New(counter.DefaultMetrics()...)
	if err != nil {
		t.Fatalf("Failed to create board: %v", err)
	}
	return service.NewDashboardService(board, nil, nil, nil)
}

func runUntilDrained(t *testing.T, c *Consumer, r *fakeReader) error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case <-r.drained:
	case <-time.After(2 * time.Second):
		t.Fatal("Consumer did not drain messages")
	}
	cancel()

	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Consumer did not stop")
		return nil
	}
}

func TestConsumerAppliesEvents(t *testing.T) {
	svc := newTestService(t)
	reader := newFakeReader(
		`{"metric":"orders","op":"add"}`,
		`{"metric":"orders","op":"add"}`,
		`{"metric":"orders","op":"remove"}`,
		`{"metric":"customers","op":"ADD"}`,
		`not json`,
		`{"metric":"refunds","op":"add"}`,
		`{"metric":"products","op":"remove"}`,
		`{"metric":"products","op":"explode"}`,
	)
	c := NewConsumer(reader, svc, nil)

	err := runUntilDrained(t, c, reader)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if !reader.closed {
		t.Error("Reader should be closed when the consumer stops")
	}

	snapshot, _ := svc.Snapshot(context.Background())
	payload, _ := snapshot.Payload()
	if string(payload) != `{"orders":1,"customers":1,"products":0}` {
		t.Errorf("Unexpected dashboard: %s", payload)
	}

	stats := c.Stats()
	if stats.Applied != 4 || stats.Rejected != 2 || stats.Invalid != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestConsumerRetriesReaderErrors(t *testing.T) {
	svc := newTestService(t)
	reader := newFakeReader(`{"metric":"orders","op":"add"}`)
	reader.errs = []error{errors.New("broker unavailable")}
	c := NewConsumer(reader, svc, nil)
	c.backoff.Min = time.Millisecond
	c.backoff.Max = time.Millisecond

	runUntilDrained(t, c, reader)

	snapshot, _ := svc.Snapshot(context.Background())
	if v, _ := snapshot.Get(counter.Orders); v != 1 {
		t.Errorf("Expected the event after the error to be applied, orders = %d", v)
	}
}

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		input   string
		want    Event
		invalid bool
	}{
		{`{"metric":"orders","op":"add"}`, Event{"orders", OpAdd}, false},
		{`{"metric":" orders ","op":" Remove "}`, Event{"orders", OpRemove}, false},
		{`{"op":"add"}`, Event{}, true},
		{`{"metric":"orders"}`, Event{}, true},
		{`[]`, Event{}, true},
	}

	for _, test := range tests {
		got, err := DecodeEvent([]byte(test.input))
		if test.invalid {
			if !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("DecodeEvent(%s): expected ErrInvalidEvent, got %v", test.input, err)
			}
			continue
		}
		if err != nil || got != test.want {
			t.Errorf("DecodeEvent(%s) = %+v, %v; expected %+v", test.input, got, err, test.want)
		}
	}
}

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducerSend(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducer(w)

	if err := p.Send(context.Background(), Event{Metric: "orders", Op: OpAdd}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(w.messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(w.messages))
	}
	msg := w.messages[0]
	if string(msg.Key) != "orders" || string(msg.Value) != `{"metric":"orders","op":"add"}` {
		t.Errorf("Unexpected message: key=%s value=%s", msg.Key, msg.Value)
	}

	w.err = errors.New("leader not available")
	if err := p.Send(context.Background(), Event{Metric: "orders", Op: OpAdd}); !errors.Is(err, w.err) {
		t.Errorf("Expected wrapped write error, got %v", err)
	}
}
