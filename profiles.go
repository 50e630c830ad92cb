package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/telemetry-dashboard/board/config"
)

func profilesCommand() *cli.Command {
	return &cli.Command{
		Name:  "profiles",
		Usage: "list and save dashboard profiles in --config-dir",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list the valid profiles",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					m, err := config.NewManager(cmd.String("config-dir"))
					if err != nil {
						return err
					}
					return listProfiles(cmd.Root().Writer, m)
				},
			},
			{
				Name:      "save",
				Usage:     "save the effective configuration as a profile",
				ArgsUsage: "NAME",
				Flags:     profileFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name := cmd.Args().First()
					if name == "" {
						return cli.Exit("profile name is required", 1)
					}
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					m, err := config.NewManager(cmd.String("config-dir"))
					if err != nil {
						return err
					}
					return saveProfile(cmd.Root().Writer, m, name, cfg)
				},
			},
		},
	}
}

func listProfiles(w io.Writer, m *config.Manager) error {
	infos, err := m.ListConfigs()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintf(w, "no valid profiles in %s\n", m.Dir())
		return nil
	}
	for _, info := range infos {
		fmt.Fprintf(w, "%-12s %-28s %s\n", info.ConfigID, strings.Join(info.Metrics, ","), info.Description)
	}
	return nil
}

// saveProfile writes cfg under name. Auth tokens stay in the environment.
func saveProfile(w io.Writer, m *config.Manager, name string, cfg *config.Config) error {
	c := *cfg
	c.Name = name
	c.Ngrok.AuthToken = ""

	if err := m.SaveConfig(name, &c); err != nil {
		return fmt.Errorf("failed to save profile %s: %w", name, err)
	}
	fmt.Fprintf(w, "saved profile %s in %s\n", name, m.Dir())
	return nil
}
