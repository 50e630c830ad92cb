// Command validate provides a small CLI that validates dashboard profiles
// (YAML files) in the ../configs directory, or the files given as arguments.
// It checks:
//   - YAML structure
//   - Metric names: at least one, none blank, no duplicates
//   - The view endpoint is a ws:// or wss:// URL
//   - The persistence driver is known and has what it needs
//   - Kafka has a topic when brokers are set
//
// With --schema it prints the JSON schema of a profile instead.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/telemetry-dashboard/board/config"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validateConfig loads and validates a single profile.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	cfg, err := config.Parse(data)
	if err != nil {
		result.Valid = false
		if errors.Is(err, config.ErrInvalidConfig) {
			msg := strings.TrimPrefix(err.Error(), config.ErrInvalidConfig.Error()+": ")
			result.Errors = append(result.Errors, strings.Split(msg, "; ")...)
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf("Invalid YAML: %v", err))
		}
		return result
	}

	result.Errors = append(result.Errors,
		fmt.Sprintf("✓ Profile %q with %d metrics: %s", cfg.Name, len(cfg.Metrics), strings.Join(cfg.Metrics, ", ")),
		fmt.Sprintf("✓ Persistence: %s", describePersistence(cfg.Persistence)),
	)
	if cfg.Kafka.Enabled() {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Kafka: topic %s on %s", cfg.Kafka.Topic, strings.Join(cfg.Kafka.Brokers, ",")))
	}
	return result
}

func describePersistence(p config.Persistence) string {
	switch p.Driver {
	case config.DriverFile:
		return "file in " + p.Dir
	case config.DriverRedis:
		return "redis at " + p.RedisAddr
	default:
		return config.DriverNone
	}
}

// profileSchema returns the JSON schema of a profile.
func profileSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&config.Config{})
	schema.Title = "Dashboard profile"
	return schema
}

// report prints one result per file and returns whether all are valid.
func report(w io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Errors {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+err)
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All profiles are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some profiles have errors")
	}
	return allValid
}

func profileFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	return files, nil
}

// main validates every profile, printing a concise report and exiting with
// non-zero status if any are invalid.
func main() {
	cmd := &cli.Command{
		Name:      "validate",
		Usage:     "validate dashboard profiles",
		ArgsUsage: "[file...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: "../configs", Usage: "profile directory used when no files are given"},
			&cli.BoolFlag{Name: "schema", Usage: "print the profile JSON schema and exit"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("schema") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(profileSchema())
			}

			files := cmd.Args().Slice()
			if len(files) == 0 {
				var err error
				if files, err = profileFiles(cmd.String("dir")); err != nil {
					return fmt.Errorf("error finding profiles: %w", err)
				}
			}

			results := make([]ValidationResult, 0, len(files))
			for _, file := range files {
				results = append(results, validateConfig(file))
			}
			if !report(os.Stdout, results) {
				return cli.Exit("", 1)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
