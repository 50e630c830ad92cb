package service

import (
	"context"
	"time"

	"github.com/wricardo/telemetry-dashboard/board/counter"
)

// DashboardService defines all dashboard operations
type DashboardService interface {
	Add(ctx context.Context, metric string) (*UpdateResult, error)
	Remove(ctx context.Context, metric string) (*UpdateResult, error)
	Reset(ctx context.Context) (*counter.Snapshot, error)
	Snapshot(ctx context.Context) (*counter.Snapshot, error)
	Metrics(ctx context.Context) []string

	// Restore loads the persisted snapshot, if any, into the board
	Restore(ctx context.Context) (int, error)
}

// Publisher receives the payload of every new snapshot
type Publisher interface {
	Publish(payload []byte)
}

// UpdateResult contains the result of a counter change
type UpdateResult struct {
	Metric    string            `json:"metric"`
	Value     int               `json:"value"`
	Message   string            `json:"message"`
	Snapshot  *counter.Snapshot `json:"snapshot"`
	UpdatedAt time.Time         `json:"updated_at"`
}
