package cursor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Mock Repository
// =============================================================================

type mockHeightRepo struct {
	mu     sync.Mutex
	height uint64
	ok     bool
	sets   int
	getErr error
	setErr error
}

func (r *mockHeightRepo) GetSyncHeight(ctx context.Context) (uint64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.height, r.ok, r.getErr
}

func (r *mockHeightRepo) SetSyncHeight(ctx context.Context, height uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	r.height = height
	r.ok = true
	r.sets++
	return nil
}

// =============================================================================
// Tests
// =============================================================================

func TestNewManager_LoadsHeight(t *testing.T) {
	repo := &mockHeightRepo{height: 100, ok: true}
	m, err := NewManager(context.Background(), repo, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if m.Height() != 100 {
		t.Errorf("expected height 100, got %d", m.Height())
	}

	empty, err := NewManager(context.Background(), &mockHeightRepo{}, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if empty.Height() != 0 {
		t.Errorf("expected height 0 for empty store, got %d", empty.Height())
	}
}

func TestNewManager_LoadError(t *testing.T) {
	boom := errors.New("disk gone")
	_, err := NewManager(context.Background(), &mockHeightRepo{getErr: boom}, nil)
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped load error, got %v", err)
	}
}

func TestAdvance(t *testing.T) {
	m, _ := NewManager(context.Background(), &mockHeightRepo{height: 10, ok: true}, nil)

	tests := []struct {
		name       string
		height     uint64
		sequential bool
	}{
		{"next block", 11, true},
		{"gap", 15, false},
		{"regression", 12, false},
		{"next after regression", 13, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Advance(tt.height); got != tt.sequential {
				t.Errorf("expected sequential=%v, got %v", tt.sequential, got)
			}
			if m.Height() != tt.height {
				t.Errorf("expected height %d to be adopted, got %d", tt.height, m.Height())
			}
		})
	}

	if got := m.GetMetrics().HeightAnomalies; got != 2 {
		t.Errorf("expected 2 anomalies, got %d", got)
	}
}

func TestPersist(t *testing.T) {
	repo := &mockHeightRepo{}
	m, _ := NewManager(context.Background(), repo, nil)

	if m.PersistDue(0) {
		t.Error("expected nothing due before advancing")
	}

	m.Advance(1)
	if !m.PersistDue(0) {
		t.Error("expected persist due after advancing")
	}
	if m.PersistDue(time.Hour) {
		t.Error("expected persist not due before interval elapses")
	}

	if err := m.Persist(context.Background()); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if repo.height != 1 || !repo.ok {
		t.Errorf("expected stored height 1, got %d", repo.height)
	}
	if m.PersistDue(0) {
		t.Error("expected nothing due right after persist")
	}
}

func TestPersist_Error(t *testing.T) {
	boom := errors.New("write failed")
	m, _ := NewManager(context.Background(), &mockHeightRepo{setErr: boom}, nil)
	m.Advance(1)

	if err := m.Persist(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected wrapped write error, got %v", err)
	}
	if !m.PersistDue(0) {
		t.Error("expected height to remain dirty after failed persist")
	}
}

func TestGetLag(t *testing.T) {
	m, _ := NewManager(context.Background(), &mockHeightRepo{height: 90, ok: true}, nil)
	if lag := m.GetLag(100); lag != 10 {
		t.Errorf("expected lag 10, got %d", lag)
	}
	if lag := m.GetLag(80); lag != -10 {
		t.Errorf("expected lag -10, got %d", lag)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusConnecting, StatusInProgress, true},
		{StatusConnecting, StatusComplete, false},
		{StatusInProgress, StatusComplete, true},
		{StatusInProgress, StatusInProgress, true},
		{StatusInProgress, StatusConnecting, true},
		{StatusComplete, StatusConnecting, true},
		{StatusComplete, StatusInProgress, true},
		{Status("bogus"), StatusComplete, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTransitionValidate(t *testing.T) {
	if err := NewTransition(StatusComplete, StatusInProgress, "retry").Validate(); err != nil {
		t.Errorf("expected valid transition, got %v", err)
	}

	err := NewTransition(StatusConnecting, StatusComplete, "skip").Validate()
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestStatusDescription(t *testing.T) {
	for _, s := range []Status{StatusConnecting, StatusInProgress, StatusComplete} {
		if d := StatusDescription(s); d == "Unknown status" {
			t.Errorf("missing description for %s", s)
		}
	}
	if d := StatusDescription(Status("bogus")); d != "Unknown status" {
		t.Errorf("unexpected description %q", d)
	}
}

func TestRecordTransition(t *testing.T) {
	m, _ := NewManager(context.Background(), &mockHeightRepo{}, nil)

	var got []Transition
	m.SetStateChangeCallback(func(tr Transition) { got = append(got, tr) })

	m.RecordTransition(NewTransition(StatusConnecting, StatusInProgress, "open"))
	m.RecordTransition(NewTransition(StatusInProgress, StatusConnecting, "close"))

	if len(got) != 2 {
		t.Fatalf("expected 2 callbacks, got %d", len(got))
	}

	metrics := m.GetMetrics()
	if len(metrics.StatusHistory) != 2 {
		t.Errorf("expected 2 transitions in history, got %d", len(metrics.StatusHistory))
	}
	if metrics.LastDisconnectAt == nil {
		t.Error("expected disconnect time to be recorded")
	}
}

func TestMetricsCollector_BlocksPerSecond(t *testing.T) {
	mc := NewMetricsCollector(3)
	start := time.Now()
	for i := 0; i < 5; i++ {
		mc.RecordBlock(uint64(i), start.Add(time.Duration(i)*time.Second))
	}

	m := mc.GetMetrics()
	if m.BlocksPerSecond < 0.99 || m.BlocksPerSecond > 1.01 {
		t.Errorf("expected ~1 block/sec, got %f", m.BlocksPerSecond)
	}
	if m.AverageBlockTime != time.Second {
		t.Errorf("expected 1s average block time, got %v", m.AverageBlockTime)
	}
}
