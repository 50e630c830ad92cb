package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	log15 "github.com/inconshreveable/log15/v3"
	"github.com/jpillora/backoff"

	"github.com/wricardo/telemetry-dashboard/ingest"
	"github.com/wricardo/telemetry-dashboard/logging"
)

// ErrRejected marks an event the dashboard refused, e.g. removing at zero.
var ErrRejected = errors.New("event rejected")

// Sink delivers one event to the dashboard
type Sink interface {
	Send(ctx context.Context, event ingest.Event) error
}

// HTTPSink drives the REST API. Transport failures and 5xx responses are
// retried with exponential backoff; 4xx responses are returned as ErrRejected.
type HTTPSink struct {
	baseURL     string
	client      *http.Client
	maxAttempts int
	backoff     backoff.Backoff
}

func NewHTTPSink(baseURL string, maxAttempts int) *HTTPSink {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &HTTPSink{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		maxAttempts: maxAttempts,
		backoff: backoff.Backoff{
			Min:    100 * time.Millisecond,
			Max:    5 * time.Second,
			Factor: 2,
			Jitter: true,
		},
	}
}

func (s *HTTPSink) Send(ctx context.Context, event ingest.Event) error {
	method := http.MethodPost
	if event.Op == ingest.OpRemove {
		method = http.MethodDelete
	}
	target := s.baseURL + "/api/metrics/" + url.PathEscape(event.Metric)

	b := s.backoff
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		retry, err := s.do(ctx, method, target)
		if err == nil || !retry {
			return err
		}
		lastErr = err

		if attempt == s.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.Duration()):
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", s.maxAttempts, lastErr)
}

// do performs one request and reports whether a failure is worth retrying.
func (s *HTTPSink) do(ctx context.Context, method, target string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return false, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	switch {
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("server error %d: %s", resp.StatusCode, body)
	case resp.StatusCode >= 400:
		return false, fmt.Errorf("%w: %d %s", ErrRejected, resp.StatusCode, body)
	}
	return false, nil
}

// Result summarizes a run
type Result struct {
	Sent     int
	Rejected int
	Failed   int
}

// Simulator generates random add/remove events
type Simulator struct {
	sink        Sink
	metrics     []string
	removeRatio float64
	interval    time.Duration
	rng         *rand.Rand
	log         log15.Logger
}

func NewSimulator(sink Sink, metrics []string, removeRatio float64, interval time.Duration, seed int64, logger log15.Logger) *Simulator {
	return &Simulator{
		sink:        sink,
		metrics:     metrics,
		removeRatio: removeRatio,
		interval:    interval,
		rng:         rand.New(rand.NewSource(seed)),
		log:         logging.OrDiscard(logger).New("module", "simulate"),
	}
}

// Next picks the next event.
func (s *Simulator) Next() ingest.Event {
	event := ingest.Event{
		Metric: s.metrics[s.rng.Intn(len(s.metrics))],
		Op:     ingest.OpAdd,
	}
	if s.rng.Float64() < s.removeRatio {
		event.Op = ingest.OpRemove
	}
	return event
}

// Run sends n events, or events until ctx is cancelled when n <= 0.
func (s *Simulator) Run(ctx context.Context, n int) (Result, error) {
	var res Result
	if len(s.metrics) == 0 {
		return res, errors.New("no metrics to simulate")
	}

	for i := 0; n <= 0 || i < n; i++ {
		if i > 0 && s.interval > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(s.interval):
			}
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		event := s.Next()
		err := s.sink.Send(ctx, event)
		switch {
		case err == nil:
			res.Sent++
			s.log.Debug("event sent", "metric", event.Metric, "op", event.Op)
		case errors.Is(err, ErrRejected):
			res.Rejected++
			s.log.Info("event rejected", "metric", event.Metric, "op", event.Op, "err", err)
		case ctx.Err() != nil:
			return res, ctx.Err()
		default:
			res.Failed++
			s.log.Warn("event failed", "metric", event.Metric, "op", event.Op, "err", err)
		}
	}
	return res, nil
}
