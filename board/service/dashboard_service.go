package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log15 "github.com/inconshreveable/log15/v3"

	"github.com/wricardo/telemetry-dashboard/board/counter"
	"github.com/wricardo/telemetry-dashboard/board/store"
	"github.com/wricardo/telemetry-dashboard/logging"
)

// dashboardServiceImpl implements the DashboardService interface
type dashboardServiceImpl struct {
	board     *counter.Board
	store     store.SnapshotStore
	publisher Publisher
	log       log15.Logger

	// serializes mutate+persist+publish so views see snapshots in order
	mu sync.Mutex
}

// NewDashboardService creates a new dashboard service. store and publisher may be nil.
func NewDashboardService(board *counter.Board, snapshots store.SnapshotStore, publisher Publisher, logger log15.Logger) DashboardService {
	if snapshots == nil {
		snapshots = store.Nop{}
	}
	return &dashboardServiceImpl{
		board:     board,
		store:     snapshots,
		publisher: publisher,
		log:       logging.OrDiscard(logger).New("module", "service"),
	}
}

// Restore loads the persisted snapshot into the board. A missing snapshot is
// not an error. Returns how many metrics were restored.
func (s *dashboardServiceImpl) Restore(ctx context.Context) (int, error) {
	snapshot, err := s.store.Load(ctx)
	if errors.Is(err, store.ErrNoSnapshot) {
		s.log.Info("no persisted snapshot, starting from zero")
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to restore snapshot: %w", err)
	}

	n := s.board.Restore(snapshot)
	s.log.Info("snapshot restored", "metrics", n, "updated_at", snapshot.UpdatedAt)
	return n, nil
}

func (s *dashboardServiceImpl) Add(ctx context.Context, metric string) (*UpdateResult, error) {
	return s.update(ctx, metric, s.board.Add, "added")
}

func (s *dashboardServiceImpl) Remove(ctx context.Context, metric string) (*UpdateResult, error) {
	return s.update(ctx, metric, s.board.Remove, "removed")
}

func (s *dashboardServiceImpl) update(ctx context.Context, metric string, op func(string) (int, error), verb string) (*UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	value, err := op(metric)
	if err != nil {
		return nil, err
	}

	snapshot := s.board.Snapshot()
	s.commit(ctx, snapshot)

	return &UpdateResult{
		Metric:    metric,
		Value:     value,
		Message:   fmt.Sprintf("%s %s, now %d", verb, metric, value),
		Snapshot:  snapshot,
		UpdatedAt: snapshot.UpdatedAt,
	}, nil
}

func (s *dashboardServiceImpl) Reset(ctx context.Context) (*counter.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.board.Reset()
	snapshot := s.board.Snapshot()
	s.commit(ctx, snapshot)
	s.log.Info("dashboard reset")
	return snapshot, nil
}

func (s *dashboardServiceImpl) Snapshot(ctx context.Context) (*counter.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.board.Snapshot(), nil
}

func (s *dashboardServiceImpl) Metrics(ctx context.Context) []string {
	return s.board.Names()
}

// commit persists and publishes a snapshot. Persistence failures are logged,
// the in-memory change stands.
func (s *dashboardServiceImpl) commit(ctx context.Context, snapshot *counter.Snapshot) {
	if err := s.store.Save(ctx, snapshot); err != nil {
		s.log.Error("failed to persist snapshot", "err", err)
	}

	if s.publisher == nil {
		return
	}
	payload, err := snapshot.Payload()
	if err != nil {
		s.log.Error("failed to encode snapshot payload", "err", err)
		return
	}
	s.publisher.Publish(payload)
	s.log.Debug("snapshot published", "payload", string(payload))
}
