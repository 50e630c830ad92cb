package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Event operations
const (
	OpAdd    = "add"
	OpRemove = "remove"
)

var ErrInvalidEvent = errors.New("invalid event")

// Event is one counter change
type Event struct {
	Metric string `json:"metric"`
	Op     string `json:"op"`
}

// DecodeEvent parses and checks a message value.
func DecodeEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	e.Metric = strings.TrimSpace(e.Metric)
	e.Op = strings.ToLower(strings.TrimSpace(e.Op))

	if e.Metric == "" {
		return Event{}, fmt.Errorf("%w: metric is required", ErrInvalidEvent)
	}
	if e.Op != OpAdd && e.Op != OpRemove {
		return Event{}, fmt.Errorf("%w: unknown op %q", ErrInvalidEvent, e.Op)
	}
	return e, nil
}
