// Command inspect prints the cards a dashboard would show for a file.
//
// The file may be a snapshot written by the file store (dashboard.json) or a
// raw telemetry message, i.e. one JSON object. With no file argument the
// message is read from stdin. --html writes the card page instead of text.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/buger/jsonparser"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/telemetry-dashboard/board/counter"
	"github.com/wricardo/telemetry-dashboard/board/store"
	"github.com/wricardo/telemetry-dashboard/telemetry"
	"github.com/wricardo/telemetry-dashboard/view"
)

func main() {
	cmd := &cli.Command{
		Name:      "inspect",
		Usage:     "print dashboard cards for a snapshot file or telemetry message",
		ArgsUsage: "[file]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "html", Usage: "write an HTML card page"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var (
				data []byte
				err  error
				name = "stdin"
			)
			if cmd.Args().Present() {
				name = cmd.Args().First()
				data, err = os.ReadFile(name)
			} else {
				data, err = io.ReadAll(os.Stdin)
			}
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", name, err)
			}
			return inspect(os.Stdout, name, data, cmd.Bool("html"))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// isSnapshot reports whether data looks like a persisted snapshot rather than
// a telemetry message.
func isSnapshot(data []byte) bool {
	_, typ, _, err := jsonparser.Get(data, "metrics")
	if err != nil || typ != jsonparser.Object {
		return false
	}
	_, typ, _, err = jsonparser.Get(data, "updated_at")
	return err == nil && typ == jsonparser.String
}

// payloadOf returns the telemetry message to render and a header line.
func payloadOf(data []byte) ([]byte, string, error) {
	if !isSnapshot(data) {
		return data, "telemetry message", nil
	}

	snapshot, err := store.DecodeSnapshot(data)
	if err != nil {
		return nil, "", err
	}
	return snapshotPayload(snapshot)
}

func snapshotPayload(snapshot *counter.Snapshot) ([]byte, string, error) {
	payload, err := snapshot.Payload()
	if err != nil {
		return nil, "", err
	}
	return payload, "snapshot updated " + snapshot.UpdatedAt.Format("2006-01-02 15:04:05 MST"), nil
}

func inspect(w io.Writer, name string, data []byte, html bool) error {
	payload, header, err := payloadOf(data)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}

	pairs, err := telemetry.ParseMessage(payload)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	cards := view.CardsFor(pairs)

	if html {
		return view.WriteHTML(w, name, cards, "")
	}

	renderer := &view.TextRenderer{W: w, Title: fmt.Sprintf("%s (%s, %d cards)", name, header, len(cards))}
	return renderer.Render(cards, nil)
}
