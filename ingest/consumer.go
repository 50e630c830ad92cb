package ingest

import (
	"context"
	"time"

	log15 "github.com/inconshreveable/log15/v3"
	"github.com/jpillora/backoff"
	"github.com/segmentio/kafka-go"

	"github.com/wricardo/telemetry-dashboard/board/service"
	"github.com/wricardo/telemetry-dashboard/logging"
)

// Reader is the subset of *kafka.Reader used by Consumer.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// NewKafkaReader creates a consumer group reader for topic.
func NewKafkaReader(brokers []string, groupID, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  500 * time.Millisecond,
	})
}

// Stats counts what a consumer has seen
type Stats struct {
	Applied  int
	Rejected int
	Invalid  int
}

type Consumer struct {
	reader  Reader
	svc     service.DashboardService
	log     log15.Logger
	backoff *backoff.Backoff
	stats   Stats
}

func NewConsumer(reader Reader, svc service.DashboardService, logger log15.Logger) *Consumer {
	return &Consumer{
		reader: reader,
		svc:    svc,
		log:    logging.OrDiscard(logger).New("module", "ingest"),
		backoff: &backoff.Backoff{
			Min:    100 * time.Millisecond,
			Max:    10 * time.Second,
			Factor: 2,
			Jitter: true,
		},
	}
}

// Run consumes until ctx is cancelled and always closes the reader.
// Reader errors are retried with backoff.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	c.log.Info("consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("consumer stopped", "applied", c.stats.Applied, "rejected", c.stats.Rejected, "invalid", c.stats.Invalid)
				return ctx.Err()
			}
			wait := c.backoff.Duration()
			c.log.Warn("consumer error", "err", err, "retry_in", wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		c.backoff.Reset()
		c.handle(ctx, msg)
	}
}

// Stats returns the counters. Not safe to call while Run is active.
func (c *Consumer) Stats() Stats {
	return c.stats
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	event, err := DecodeEvent(msg.Value)
	if err != nil {
		c.stats.Invalid++
		c.log.Warn("skipping event", "err", err, "partition", msg.Partition, "offset", msg.Offset)
		return
	}

	var result *service.UpdateResult
	switch event.Op {
	case OpAdd:
		result, err = c.svc.Add(ctx, event.Metric)
	case OpRemove:
		result, err = c.svc.Remove(ctx, event.Metric)
	}
	if err != nil {
		c.stats.Rejected++
		c.log.Warn("event rejected", "metric", event.Metric, "op", event.Op, "err", err)
		return
	}

	c.stats.Applied++
	c.log.Debug("event applied", "metric", result.Metric, "value", result.Value, "offset", msg.Offset)
}
