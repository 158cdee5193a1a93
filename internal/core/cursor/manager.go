package cursor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/walletsync/internal/indexing/metrics"
	"github.com/vietddude/walletsync/internal/infra/storage"
)

// Manager owns the wallet's sync height. It is safe for concurrent use.
type Manager struct {
	repo storage.HeightRepository
	log  *slog.Logger

	mu            sync.Mutex
	height        uint64
	persisted     uint64
	lastPersistAt time.Time
	collector     *MetricsCollector
	stateCallback func(Transition)
}

// NewManager loads the persisted height. A store without a height starts at 0.
func NewManager(ctx context.Context, repo storage.HeightRepository, log *slog.Logger) (*Manager, error) {
	if log == nil {
		log = slog.Default()
	}

	height, _, err := repo.GetSyncHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync height: %w", err)
	}

	metrics.SyncHeight.Set(float64(height))
	return &Manager{
		repo:          repo,
		log:           log.With("component", "cursor"),
		height:        height,
		persisted:     height,
		lastPersistAt: time.Now(),
		collector:     NewMetricsCollector(100),
	}, nil
}

// Height returns the last applied block height.
func (m *Manager) Height() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.height
}

// Advance adopts height as the last applied block. It reports whether the
// block was the expected successor; anomalies are logged, not rejected.
func (m *Manager) Advance(height uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	expected := m.height + 1
	sequential := height == expected
	if !sequential {
		m.collector.RecordAnomaly()
		if height > expected {
			m.log.Warn("Height gap", "expected", expected, "got", height)
		} else {
			m.log.Warn("Height did not advance", "current", m.height, "got", height)
		}
	}

	m.height = height
	m.collector.RecordBlock(height, time.Now())
	metrics.SyncHeight.Set(float64(height))
	return sequential
}

// Persist writes the current height to the store.
func (m *Manager) Persist(ctx context.Context) error {
	height := m.Height()
	if err := m.repo.SetSyncHeight(ctx, height); err != nil {
		return fmt.Errorf("failed to persist height %d: %w", height, err)
	}

	m.mu.Lock()
	m.persisted = height
	m.lastPersistAt = time.Now()
	m.mu.Unlock()
	return nil
}

// PersistDue reports whether at least interval has passed since the last
// successful Persist and the in-memory height is ahead of the stored one.
func (m *Manager) PersistDue(interval time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.height != m.persisted && time.Since(m.lastPersistAt) >= interval
}

// GetLag returns how many blocks the wallet is behind chainHeight. It is
// negative when the local height is ahead.
func (m *Manager) GetLag(chainHeight uint64) int64 {
	return int64(chainHeight) - int64(m.Height())
}

// RecordTransition stores a status transition and notifies the callback.
func (m *Manager) RecordTransition(t Transition) {
	if err := t.Validate(); err != nil {
		m.log.Warn("Unexpected status transition", "reason", t.Reason, "error", err)
	}

	m.mu.Lock()
	m.collector.RecordTransition(t)
	cb := m.stateCallback
	m.mu.Unlock()

	for _, s := range []Status{StatusConnecting, StatusInProgress, StatusComplete} {
		v := 0.0
		if s == t.To {
			v = 1
		}
		metrics.SyncStatus.WithLabelValues(string(s)).Set(v)
	}

	if cb != nil {
		cb(t)
	}
}

// GetMetrics returns performance metrics.
func (m *Manager) GetMetrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collector.GetMetrics()
}

// SetStateChangeCallback registers callback for status changes.
func (m *Manager) SetStateChangeCallback(fn func(Transition)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateCallback = fn
}
