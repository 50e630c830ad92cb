package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/urfave/cli/v3"
)

type options struct {
	metrics     []string
	events      int
	removeRatio float64
	retries     int
	seed        int64
}

// flagSource is the part of *cli.Command that parseOptions reads.
type flagSource interface {
	String(name string) string
}

var _ flagSource = (*cli.Command)(nil)

func parseOptions(flags flagSource) (options, error) {
	var (
		opts options
		err  error
	)

	opts.metrics = splitList(flags.String("metrics"))
	if len(opts.metrics) == 0 {
		return opts, fmt.Errorf("at least one metric is required")
	}

	if opts.events, err = cast.ToIntE(flags.String("events")); err != nil || opts.events < 0 {
		return opts, fmt.Errorf("invalid --events %q", flags.String("events"))
	}
	if opts.removeRatio, err = cast.ToFloat64E(flags.String("remove-ratio")); err != nil || opts.removeRatio < 0 || opts.removeRatio > 1 {
		return opts, fmt.Errorf("invalid --remove-ratio %q, expected 0..1", flags.String("remove-ratio"))
	}
	if opts.retries, err = cast.ToIntE(flags.String("retries")); err != nil || opts.retries < 1 {
		return opts, fmt.Errorf("invalid --retries %q", flags.String("retries"))
	}

	opts.seed = time.Now().UnixNano()
	if s := flags.String("seed"); s != "" {
		if opts.seed, err = cast.ToInt64E(s); err != nil {
			return opts, fmt.Errorf("invalid --seed %q", s)
		}
	}
	return opts, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
