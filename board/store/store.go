package store

import (
	"context"
	"errors"

	"github.com/wricardo/telemetry-dashboard/board/counter"
)

var ErrNoSnapshot = errors.New("no snapshot persisted")

// SnapshotStore defines the interface for persisting the dashboard
type SnapshotStore interface {
	// Save replaces the persisted snapshot
	Save(ctx context.Context, snapshot *counter.Snapshot) error

	// Load returns the persisted snapshot or ErrNoSnapshot
	Load(ctx context.Context) (*counter.Snapshot, error)
}

// Nop is a store that keeps nothing.
type Nop struct{}

func (Nop) Save(context.Context, *counter.Snapshot) error { return nil }

func (Nop) Load(context.Context) (*counter.Snapshot, error) { return nil, ErrNoSnapshot }
