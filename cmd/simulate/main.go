// Command simulate drives a dashboard with random counter events.
//
// Events go to the REST API by default, or straight to the Kafka topic the
// server consumes when --kafka-brokers is set. Removing from a counter at
// zero is rejected by the server and counted, not retried.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/telemetry-dashboard/board/counter"
	"github.com/wricardo/telemetry-dashboard/ingest"
	"github.com/wricardo/telemetry-dashboard/logging"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "send random add/remove events to a dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api", Value: "http://localhost:8082", Usage: "dashboard API base URL", Sources: cli.EnvVars("DASHBOARD_API")},
			&cli.StringFlag{Name: "metrics", Value: strings.Join(counter.DefaultMetrics(), ","), Usage: "comma separated metric names"},
			&cli.StringFlag{Name: "events", Value: "50", Usage: "number of events, 0 runs until interrupted"},
			&cli.StringFlag{Name: "remove-ratio", Value: "0.3", Usage: "share of remove events"},
			&cli.DurationFlag{Name: "interval", Value: 200 * time.Millisecond, Usage: "pause between events"},
			&cli.StringFlag{Name: "seed", Usage: "random seed, defaults to the current time"},
			&cli.StringFlag{Name: "retries", Value: "5", Usage: "HTTP attempts per event"},
			&cli.StringFlag{Name: "kafka-brokers", Usage: "send events to Kafka instead of the API", Sources: cli.EnvVars("KAFKA_BROKERS")},
			&cli.StringFlag{Name: "kafka-topic", Value: "dashboard-events", Sources: cli.EnvVars("KAFKA_TOPIC")},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger := logging.New(cmd.Bool("debug"))

	opts, err := parseOptions(cmd)
	if err != nil {
		return err
	}

	var sink Sink
	if brokers := splitList(cmd.String("kafka-brokers")); len(brokers) > 0 {
		producer := ingest.NewProducer(ingest.NewKafkaWriter(brokers, cmd.String("kafka-topic")))
		defer producer.Close()
		sink = producer
		logger.Info("sending events to kafka", "brokers", brokers, "topic", cmd.String("kafka-topic"))
	} else {
		sink = NewHTTPSink(strings.TrimSuffix(cmd.String("api"), "/"), opts.retries)
		logger.Info("sending events to API", "api", cmd.String("api"))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sim := NewSimulator(sink, opts.metrics, opts.removeRatio, cmd.Duration("interval"), opts.seed, logger)
	res, err := sim.Run(ctx, opts.events)
	logger.Info("simulation finished", "sent", res.Sent, "rejected", res.Rejected, "failed", res.Failed)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
