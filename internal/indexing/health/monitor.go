package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/walletsync/internal/core/cursor"
	"github.com/vietddude/walletsync/internal/core/domain"
	"github.com/vietddude/walletsync/internal/indexing/synchronizer"
	"github.com/vietddude/walletsync/internal/infra/node"
)

// SyncSource exposes synchronizer state.
type SyncSource interface {
	Snapshot() synchronizer.Snapshot
}

// TransportSource exposes node connection health.
type TransportSource interface {
	Health() node.HealthStatus
}

// BlockHeightFetcher fetches the latest block height from the node.
type BlockHeightFetcher interface {
	GetChainHeight(ctx context.Context) (uint64, error)
}

// CursorSource exposes cursor lag and performance data.
type CursorSource interface {
	GetLag(chainHeight uint64) int64
	GetMetrics() cursor.Metrics
}

// Monitor aggregates health status from the synchronizer and transport.
type Monitor struct {
	source        SyncSource
	transport     TransportSource
	heightFetcher BlockHeightFetcher
	cursor        CursorSource
	lastCheck     time.Time
	lastReport    *SyncHealth
	mu            sync.Mutex
}

// NewMonitor creates a new health monitor.
func NewMonitor(
	source SyncSource,
	transport TransportSource,
	heightFetcher BlockHeightFetcher,
	cursorSource CursorSource,
) *Monitor {
	return &Monitor{
		source:        source,
		transport:     transport,
		heightFetcher: heightFetcher,
		cursor:        cursorSource,
	}
}

// CheckHealth builds a health report. Remote height lookups are rate limited
// to once per 10s; between lookups the last height seen by the synchronizer
// is used.
func (m *Monitor) CheckHealth(ctx context.Context) SyncHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastReport != nil && time.Since(m.lastCheck) < 10*time.Second {
		return *m.lastReport
	}

	snap := m.source.Snapshot()
	conn := m.transport.Health()
	health := SyncHealth{
		Status:        StatusHealthy,
		SyncStatus:    string(snap.Status),
		Description:   cursor.StatusDescription(snap.Status),
		LocalHeight:   snap.Height,
		ChainHeight:   snap.ChainHeight,
		Connected:     conn.Connected,
		Reconnects:    conn.Reconnects,
		RPCErrorRate:  conn.ErrorRate,
		PendingBlocks: snap.Pending,
		Balance:       snap.Balance.String(),
	}

	if conn.Connected && m.heightFetcher != nil {
		if latest, err := m.heightFetcher.GetChainHeight(ctx); err == nil {
			health.ChainHeight = latest
		} else {
			health.Status = StatusDegraded
		}
	}
	if m.cursor != nil {
		if lag := m.cursor.GetLag(health.ChainHeight); lag > 0 {
			health.BlockLag = uint64(lag)
		}
		cm := m.cursor.GetMetrics()
		health.BlocksPerSecond = cm.BlocksPerSecond
		health.HeightAnomalies = cm.HeightAnomalies
		for _, t := range cm.StatusHistory {
			health.Transitions = append(health.Transitions, Transition{
				From:   string(t.From),
				To:     string(t.To),
				Reason: t.Reason,
				At:     t.Timestamp,
			})
		}
	} else if health.ChainHeight > health.LocalHeight {
		health.BlockLag = health.ChainHeight - health.LocalHeight
	}

	health.Status = worst(health.Status, evaluate(health))

	m.lastCheck = time.Now()
	m.lastReport = &health
	return health
}

// evaluate derives a status from connectivity and lag.
func evaluate(h SyncHealth) SystemStatus {
	switch {
	case !h.Connected, h.BlockLag > 100:
		return StatusCritical
	case h.SyncStatus != string(domain.SyncStatusComplete), h.BlockLag > 10, h.RPCErrorRate > 0.5:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

func worst(a, b SystemStatus) SystemStatus {
	rank := map[SystemStatus]int{StatusHealthy: 0, StatusDegraded: 1, StatusCritical: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
