// Command dashboard runs the telemetry dashboard.
//
// It has four subcommands:
//  1. "serve" – runs the HTTP server exposing the dashboard feed, REST API, HTML
//     view and an /mcp HTTP endpoint, optionally fed from Kafka and tunneled
//     through ngrok
//  2. "watch" – mounts a dashboard view against a feed and renders cards in
//     the terminal until interrupted
//  3. "mcp" – runs an MCP stdio server that proxies to a running API
//  4. "profiles" – lists the profiles in the config directory and saves the
//     effective configuration as a new one
//
// Configuration comes from a YAML profile, then .env, then environment
// variables and flags, the later ones winning.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	log15 "github.com/inconshreveable/log15/v3"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/telemetry-dashboard/board/config"
	"github.com/wricardo/telemetry-dashboard/logging"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Telemetry Dashboard"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newApp builds the command tree.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "dashboard",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML profile",
				Sources: cli.EnvVars("DASHBOARD_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "directory of YAML profiles",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "profile",
				Usage:   "profile name inside --config-dir",
				Sources: cli.EnvVars("DASHBOARD_PROFILE"),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "dotenv file loaded before reading the environment",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				Sources: cli.EnvVars("DASHBOARD_DEBUG"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, config.LoadEnv(cmd.String("env-file"))
		},
		Commands: []*cli.Command{
			serveCommand(),
			watchCommand(),
			mcpCommand(),
			profilesCommand(),
		},
	}
}

// loadConfig resolves the profile and applies flag and environment overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	switch {
	case cmd.String("config") != "":
		cfg, err = config.Load(cmd.String("config"))
	case cmd.String("profile") != "":
		var m *config.Manager
		m, err = config.NewManager(cmd.String("config-dir"))
		if err == nil {
			cfg, err = m.LoadConfig(cmd.String("profile"))
		}
	default:
		if m, merr := config.NewManager(cmd.String("config-dir")); merr == nil {
			cfg = m.GetDefault()
			if derr := m.DefaultErr(); derr != nil {
				bootLogger(cmd).Warn("default profile is unusable, using built-in defaults", "dir", m.Dir(), "err", derr)
			}
		} else {
			cfg = config.Default()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Copy so overrides never leak into a cached profile
	c := *cfg
	applyOverrides(cmd, &c)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func applyOverrides(cmd *cli.Command, c *config.Config) {
	if cmd.IsSet("debug") {
		c.Debug = cmd.Bool("debug")
	}
	setString := func(flag string, dst *string) {
		if cmd.IsSet(flag) {
			*dst = cmd.String(flag)
		}
	}

	setString("listen", &c.Listen)
	setString("endpoint", &c.Endpoint)
	setString("persistence", &c.Persistence.Driver)
	setString("data-dir", &c.Persistence.Dir)
	setString("redis-addr", &c.Persistence.RedisAddr)
	setString("kafka-topic", &c.Kafka.Topic)
	setString("ngrok-auth", &c.Ngrok.AuthToken)
	setString("ngrok-domain", &c.Ngrok.Domain)

	if cmd.IsSet("metrics") {
		c.Metrics = splitList(cmd.String("metrics"))
	}
	if cmd.IsSet("kafka-brokers") {
		c.Kafka.Brokers = splitList(cmd.String("kafka-brokers"))
	}
	if cmd.IsSet("ngrok") {
		c.Ngrok.Enabled = cmd.Bool("ngrok")
	}
}

// splitList splits a comma separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// bootLogger reports problems found before a profile, and so its logger,
// is known.
var bootLogger = func(cmd *cli.Command) log15.Logger {
	return logging.New(cmd.Bool("debug"))
}

func newLogger(cfg *config.Config) log15.Logger {
	return logging.New(cfg.Debug)
}
