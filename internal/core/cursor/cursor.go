// Package cursor tracks how far the wallet has synchronized.
//
// # Purpose
//
// The cursor is the wallet's bookmark in the remote chain:
//   - Height: the last block applied to the wallet, persisted in the store
//   - Status: the synchronizer's connecting / in-progress / complete state machine
//   - Metrics: blocks per second and recent status transitions
//
// # Key Features
//
// Monotonic Height - The height only moves in apply order. A block that is not
// exactly height+1 is logged as an anomaly and adopted anyway: the remote node
// is authoritative.
//
// Explicit Persistence - Advance updates memory only. Persist writes the
// height to the store and PersistDue reports when the persist interval has
// elapsed, so callers control write frequency during bulk catch-up.
//
// # Quick Start
//
//	m, _ := cursor.NewManager(ctx, store, slog.Default())
//
//	m.Advance(101)            // sequential
//	m.Advance(105)            // logged as a gap, adopted
//	_ = m.Persist(ctx)        // store now holds 105
//
//	m.RecordTransition(cursor.NewTransition(cursor.StatusConnecting, cursor.StatusInProgress, "transport open"))
//
// # Package Structure
//
//   - state.go   - Status machine definitions and valid transitions
//   - manager.go - Height tracking and persistence
//   - metrics.go - Performance metrics (blocks/sec, status history)
package cursor

import (
	"github.com/vietddude/walletsync/internal/core/domain"
)

// =============================================================================
// Re-exported types from domain package
// =============================================================================

// Status represents the synchronizer state.
type Status = domain.SyncStatus

// Status constants re-exported for convenience.
const (
	StatusConnecting = domain.SyncStatusConnecting
	StatusInProgress = domain.SyncStatusInProgress
	StatusComplete   = domain.SyncStatusComplete
)

// =============================================================================
// Constructor functions
// =============================================================================

// NewMetricsCollector creates a new metrics collector with the given window size.
func NewMetricsCollector(windowSize int) *MetricsCollector {
	if windowSize <= 0 {
		windowSize = 100
	}
	return &MetricsCollector{
		windowSize:  windowSize,
		blockTimes:  make([]blockRecord, 0, windowSize),
		transitions: make([]Transition, 0, 10),
	}
}
