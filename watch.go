package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/telemetry-dashboard/transport/mcp"
	"github.com/wricardo/telemetry-dashboard/transport/websocket"
	"github.com/wricardo/telemetry-dashboard/view"
)

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "render the dashboard feed as cards in the terminal",
		ArgsUsage: "[endpoint]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "endpoint", Usage: "ws:// or wss:// feed URL", Sources: cli.EnvVars("DASHBOARD_ENDPOINT")},
			&cli.DurationFlag{Name: "handshake-timeout", Value: 10 * time.Second, Usage: "WebSocket handshake timeout"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			endpoint := cfg.Endpoint
			if cmd.Args().Present() {
				endpoint = cmd.Args().First()
			}

			logger := newLogger(cfg)
			renderer := &view.TextRenderer{
				W:     os.Stdout,
				Title: AppName + " - " + endpoint,
				Clear: isatty.IsTerminal(os.Stdout.Fd()),
			}
			dashboard := view.New(
				view.WithRenderer(renderer),
				view.WithLogger(logger),
				view.WithDialOptions(websocket.WithHandshakeTimeout(cmd.Duration("handshake-timeout"))),
			)

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Mount blocks until interrupted or the feed closes
			return dashboard.Mount(ctx, endpoint)
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "run an MCP stdio server against a running dashboard API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api", Value: "http://localhost:8082", Usage: "dashboard API base URL", Sources: cli.EnvVars("DASHBOARD_API")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client := mcp.NewClient(cmd.String("api"))
			return server.ServeStdio(client.GetMCPServer())
		},
	}
}
