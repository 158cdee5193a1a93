package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vietddude/walletsync/internal/core/cursor"
	"github.com/vietddude/walletsync/internal/core/domain"
	"github.com/vietddude/walletsync/internal/indexing/synchronizer"
	"github.com/vietddude/walletsync/internal/infra/node"
)

// =============================================================================
// Mocks
// =============================================================================

type stubSync struct {
	snap synchronizer.Snapshot
}

func (s *stubSync) Snapshot() synchronizer.Snapshot { return s.snap }

type stubTransport struct {
	health node.HealthStatus
}

func (s *stubTransport) Health() node.HealthStatus { return s.health }

type mockFetcher struct {
	height uint64
	err    error
	calls  int
}

func (m *mockFetcher) GetChainHeight(ctx context.Context) (uint64, error) {
	m.calls++
	return m.height, m.err
}

type stubCursor struct {
	height  uint64
	metrics cursor.Metrics
}

func (s *stubCursor) GetLag(chainHeight uint64) int64 {
	return int64(chainHeight) - int64(s.height)
}

func (s *stubCursor) GetMetrics() cursor.Metrics { return s.metrics }

func newMonitor(status domain.SyncStatus, local uint64, connected bool, fetcher *mockFetcher) *Monitor {
	return NewMonitor(
		&stubSync{snap: synchronizer.Snapshot{
			Status:  status,
			Height:  local,
			Balance: decimal.NewFromInt(12),
		}},
		&stubTransport{health: node.HealthStatus{Connected: connected}},
		fetcher,
		&stubCursor{height: local, metrics: cursor.Metrics{
			BlocksPerSecond: 2.5,
			StatusHistory: []cursor.Transition{
				cursor.NewTransition(cursor.StatusConnecting, cursor.StatusInProgress, "transport open"),
			},
		}},
	)
}

// =============================================================================
// Tests
// =============================================================================

func TestMonitor_Healthy(t *testing.T) {
	monitor := newMonitor(domain.SyncStatusComplete, 995, true, &mockFetcher{height: 1000})

	health := monitor.CheckHealth(context.Background())

	if health.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", health.Status)
	}
	if health.BlockLag != 5 {
		t.Errorf("expected lag 5, got %d", health.BlockLag)
	}
	if health.Balance != "12" {
		t.Errorf("expected balance 12, got %s", health.Balance)
	}
	if health.Description != cursor.StatusDescription(cursor.StatusComplete) {
		t.Errorf("unexpected description %q", health.Description)
	}
	if len(health.Transitions) != 1 || health.Transitions[0].Reason != "transport open" {
		t.Errorf("unexpected transitions: %+v", health.Transitions)
	}
}

func TestMonitor_LocalAheadOfChain(t *testing.T) {
	health := newMonitor(domain.SyncStatusComplete, 1005, true, &mockFetcher{height: 1000}).
		CheckHealth(context.Background())

	if health.BlockLag != 0 {
		t.Errorf("expected lag 0, got %d", health.BlockLag)
	}
	if health.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", health.Status)
	}
}

func TestMonitor_Degraded(t *testing.T) {
	tests := []struct {
		name    string
		status  domain.SyncStatus
		local   uint64
		fetcher *mockFetcher
	}{
		{"lagging", domain.SyncStatusComplete, 950, &mockFetcher{height: 1000}},
		{"catching up", domain.SyncStatusInProgress, 1000, &mockFetcher{height: 1000}},
		{"height unavailable", domain.SyncStatusComplete, 1000, &mockFetcher{err: errors.New("timeout")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			health := newMonitor(tt.status, tt.local, true, tt.fetcher).CheckHealth(context.Background())
			if health.Status != StatusDegraded {
				t.Errorf("expected degraded, got %s", health.Status)
			}
		})
	}
}

func TestMonitor_Critical(t *testing.T) {
	t.Run("large lag", func(t *testing.T) {
		health := newMonitor(domain.SyncStatusComplete, 800, true, &mockFetcher{height: 1000}).
			CheckHealth(context.Background())
		if health.Status != StatusCritical {
			t.Errorf("expected critical, got %s", health.Status)
		}
	})

	t.Run("disconnected", func(t *testing.T) {
		fetcher := &mockFetcher{height: 1000}
		health := newMonitor(domain.SyncStatusConnecting, 1000, false, fetcher).
			CheckHealth(context.Background())
		if health.Status != StatusCritical {
			t.Errorf("expected critical, got %s", health.Status)
		}
		if fetcher.calls != 0 {
			t.Errorf("expected no height lookup while disconnected, got %d", fetcher.calls)
		}
	})
}

func TestMonitor_CachesReport(t *testing.T) {
	fetcher := &mockFetcher{height: 1000}
	monitor := newMonitor(domain.SyncStatusComplete, 1000, true, fetcher)

	monitor.CheckHealth(context.Background())
	monitor.CheckHealth(context.Background())

	if fetcher.calls != 1 {
		t.Errorf("expected 1 height lookup, got %d", fetcher.calls)
	}
}

func TestServer_Endpoints(t *testing.T) {
	srv := NewServer(newMonitor(domain.SyncStatusConnecting, 10, false, &mockFetcher{}), 0)
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var report SyncHealth
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.LocalHeight != 10 || report.SyncStatus != "connecting" {
		t.Errorf("unexpected report: %+v", report)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from /metrics, got %d", rec.Code)
	}
}
