package counter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Default metric names
const (
	Orders    = "orders"
	Customers = "customers"
	Products  = "products"
)

var (
	ErrUnknownMetric   = errors.New("unknown metric")
	ErrNothingToRemove = errors.New("nothing to remove")
	ErrNoMetrics       = errors.New("at least one metric is required")
	ErrDuplicateMetric = errors.New("duplicate metric")
)

// DefaultMetrics returns the metric names used when none are configured.
func DefaultMetrics() []string {
	return []string{Orders, Customers, Products}
}

// Snapshot is a point-in-time copy of every counter, in board order.
type Snapshot struct {
	Metrics   *orderedmap.OrderedMap[string, int] `json:"metrics"`
	UpdatedAt time.Time                           `json:"updated_at"`
}

// Payload returns the flat JSON object pushed to dashboard views,
// e.g. {"orders":1,"customers":0,"products":2}.
func (s *Snapshot) Payload() ([]byte, error) {
	if s == nil || s.Metrics == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.Metrics)
}

// Get returns the value of one counter.
func (s *Snapshot) Get(name string) (int, bool) {
	if s == nil || s.Metrics == nil {
		return 0, false
	}
	return s.Metrics.Get(name)
}

// Board is a fixed, ordered set of non-negative counters
type Board struct {
	names   []string
	counts  map[string]int
	updated time.Time
	now     func() time.Time
	mu      sync.RWMutex
}

// New creates a board with the given metric names, all at zero.
func New(names ...string) (*Board, error) {
	if len(names) == 0 {
		return nil, ErrNoMetrics
	}

	counts := make(map[string]int, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: empty name", ErrUnknownMetric)
		}
		if _, exists := counts[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMetric, name)
		}
		counts[name] = 0
	}

	b := &Board{
		names:  make([]string, 0, len(names)),
		counts: counts,
		now:    time.Now,
	}
	for _, name := range names {
		b.names = append(b.names, strings.TrimSpace(name))
	}
	b.updated = b.now()
	return b, nil
}

// Names returns the metric names in board order.
func (b *Board) Names() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// Add increments a counter and returns its new value.
func (b *Board) Add(name string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	count, ok := b.counts[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownMetric, name)
	}
	count++
	b.counts[name] = count
	b.updated = b.now()
	return count, nil
}

// Remove decrements a counter and returns its new value.
// Counters never go below zero.
func (b *Board) Remove(name string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	count, ok := b.counts[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownMetric, name)
	}
	if count == 0 {
		return 0, fmt.Errorf("%w: no %s remains to remove", ErrNothingToRemove, singular(name))
	}
	count--
	b.counts[name] = count
	b.updated = b.now()
	return count, nil
}

// Reset sets every counter back to zero.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for name := range b.counts {
		b.counts[name] = 0
	}
	b.updated = b.now()
}

// Snapshot copies the current counters.
func (b *Board) Snapshot() *Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	metrics := orderedmap.New[string, int]()
	for _, name := range b.names {
		metrics.Set(name, b.counts[name])
	}
	return &Snapshot{Metrics: metrics, UpdatedAt: b.updated}
}

// Restore loads counters from a snapshot. Metrics the board does not know
// are ignored and metrics missing from the snapshot are left untouched.
// Negative values are clamped to zero.
func (b *Board) Restore(s *Snapshot) int {
	if s == nil || s.Metrics == nil {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	restored := 0
	for p := s.Metrics.Oldest(); p != nil; p = p.Next() {
		if _, ok := b.counts[p.Key]; !ok {
			continue
		}
		value := p.Value
		if value < 0 {
			value = 0
		}
		b.counts[p.Key] = value
		restored++
	}
	if !s.UpdatedAt.IsZero() {
		b.updated = s.UpdatedAt
	}
	return restored
}

// singular turns "orders" into "order" for error messages.
func singular(name string) string {
	if len(name) > 1 && strings.HasSuffix(name, "s") {
		return strings.TrimSuffix(name, "s")
	}
	return name
}
