package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log15 "github.com/inconshreveable/log15/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/telemetry-dashboard/api"
	"github.com/wricardo/telemetry-dashboard/board/config"
	"github.com/wricardo/telemetry-dashboard/board/counter"
	"github.com/wricardo/telemetry-dashboard/board/service"
	"github.com/wricardo/telemetry-dashboard/board/store"
	"github.com/wricardo/telemetry-dashboard/ingest"
	"github.com/wricardo/telemetry-dashboard/transport/mcp"
	"github.com/wricardo/telemetry-dashboard/transport/websocket"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the dashboard server (feed, REST API, HTML view and /mcp)",
		Flags: profileFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			profiles, err := config.NewManager(cmd.String("config-dir"))
			if err != nil {
				logger.Warn("profile listing disabled", "err", err)
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, profiles, logger)
		},
	}
}

// profileFlags are the settings a profile holds, shared by serve and
// profiles save.
func profileFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "listen", Usage: "HTTP listen address", Sources: cli.EnvVars("DASHBOARD_LISTEN")},
		&cli.StringFlag{Name: "metrics", Usage: "comma separated metric names", Sources: cli.EnvVars("DASHBOARD_METRICS")},
		&cli.StringFlag{Name: "persistence", Usage: "snapshot store: none, file or redis", Sources: cli.EnvVars("DASHBOARD_PERSISTENCE")},
		&cli.StringFlag{Name: "data-dir", Usage: "directory for the file store", Sources: cli.EnvVars("DASHBOARD_DATA_DIR")},
		&cli.StringFlag{Name: "redis-addr", Usage: "redis address for the redis store", Sources: cli.EnvVars("REDIS_ADDR")},
		&cli.StringFlag{Name: "kafka-brokers", Usage: "comma separated Kafka brokers; enables the event consumer", Sources: cli.EnvVars("KAFKA_BROKERS")},
		&cli.StringFlag{Name: "kafka-topic", Usage: "Kafka topic with counter events", Sources: cli.EnvVars("KAFKA_TOPIC")},
		&cli.BoolFlag{Name: "ngrok", Usage: "expose the server through an ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
		&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
		&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain", Sources: cli.EnvVars("NGROK_DOMAIN")},
	}
}

// newSnapshotStore builds the configured store. The returned close function
// is never nil.
func newSnapshotStore(cfg *config.Config) (store.SnapshotStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Persistence.Driver {
	case config.DriverFile:
		fs, err := store.NewFileStore(cfg.Persistence.Dir)
		if err != nil {
			return nil, noop, err
		}
		return fs, noop, nil
	case config.DriverRedis:
		rs, client, err := store.NewRedisStore(cfg.Persistence.RedisAddr, os.Getenv("REDIS_PASSWORD"), 0, cfg.Persistence.RedisKey)
		if err != nil {
			return nil, noop, err
		}
		return rs, client.Close, nil
	default:
		return store.Nop{}, noop, nil
	}
}

// initializeServices wires the board, snapshot store and dashboard service
// and restores the last persisted snapshot.
func initializeServices(ctx context.Context, cfg *config.Config, publisher service.Publisher, logger log15.Logger) (service.DashboardService, func() error, error) {
	board, err := counter.New(cfg.Metrics...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create board: %w", err)
	}

	snapshots, closeStore, err := newSnapshotStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create snapshot store: %w", err)
	}

	svc := service.NewDashboardService(board, snapshots, publisher, logger)
	if _, err := svc.Restore(ctx); err != nil {
		logger.Warn("failed to restore snapshot", "err", err)
	}
	return svc, closeStore, nil
}

// newHandler combines the API and the /mcp endpoint. profiles may be nil.
func newHandler(svc service.DashboardService, hub *websocket.Hub, profiles *config.Manager, baseURL string, logger log15.Logger) http.Handler {
	apiServer := api.NewServer(svc, hub, logger)
	if profiles != nil {
		apiServer.WithProfiles(profiles)
	}

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.Handle("/mcp", mcp.NewClient(baseURL))
	return mainRouter
}

// runServer serves until ctx is cancelled, then shuts everything down.
func runServer(ctx context.Context, cfg *config.Config, profiles *config.Manager, logger log15.Logger) (err error) {
	logger.Info("starting", "app", AppName, "version", Version, "profile", cfg.Name)

	hub := websocket.NewHub(logger)
	go hub.Run()

	svc, closeStore, err := initializeServices(ctx, cfg, hub, logger)
	if err != nil {
		hub.Stop()
		return err
	}

	handler := newHandler(svc, hub, profiles, localURL(cfg.Listen), logger)
	httpServer := &http.Server{
		Addr:        cfg.Listen,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", cfg.Listen)
		logger.Info("endpoints",
			"feed", "ws://"+hostPort(cfg.Listen)+"/dashboard",
			"api", localURL(cfg.Listen)+"/api/dashboard",
			"view", localURL(cfg.Listen)+"/view",
			"mcp", localURL(cfg.Listen)+"/mcp")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	if cfg.Kafka.Enabled() {
		g.Go(func() error {
			reader := ingest.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic)
			consumer := ingest.NewConsumer(reader, svc, logger)
			if err := consumer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("kafka consumer failed: %w", err)
			}
			return nil
		})
	}

	if cfg.Ngrok.Enabled {
		g.Go(func() error {
			return runTunnel(gctx, cfg.Ngrok, handler, logger)
		})
	}

	// Shutdown as soon as ctx is cancelled or any goroutine fails
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	hub.Stop()
	err = multierr.Append(err, closeStore())
	if err != nil {
		logger.Error("server stopped with errors", "err", err)
		return err
	}
	logger.Info("server stopped")
	return nil
}

// runTunnel serves handler through ngrok until ctx is cancelled. A missing
// auth token only disables the tunnel.
func runTunnel(ctx context.Context, cfg config.Ngrok, handler http.Handler, logger log15.Logger) error {
	log := logger.New("module", "ngrok")
	if cfg.AuthToken == "" {
		log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return nil
	}

	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	log.Info("starting ngrok tunnel", "domain", cfg.Domain)
	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.AuthToken))
	if err != nil {
		log.Error("failed to start ngrok tunnel", "err", err)
		return nil
	}

	url := tun.URL()
	log.Info("ngrok tunnel established", "url", url, "view", url+"/view", "mcp", url+"/mcp")

	tunnelServer := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		tunnelServer.Shutdown(shutdownCtx)
	}()

	if err := tunnelServer.Serve(tun); err != nil && err != http.ErrServerClosed {
		log.Error("ngrok server error", "err", err)
	}
	log.Info("ngrok tunnel closed")
	return nil
}

// hostPort turns ":8082" into "localhost:8082".
func hostPort(listen string) string {
	if len(listen) > 0 && listen[0] == ':' {
		return "localhost" + listen
	}
	return listen
}

func localURL(listen string) string {
	return "http://" + hostPort(listen)
}
