package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vietddude/walletsync/internal/core/domain"
)

// ===== Mock Publisher =====

type mockPublisher struct {
	channel  string
	payloads [][]byte
	err      error
	closed   bool
}

func (m *mockPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	if m.err != nil {
		return m.err
	}
	m.channel = channel
	m.payloads = append(m.payloads, payload)
	return nil
}

func (m *mockPublisher) Close() error {
	m.closed = true
	return nil
}

type failingEmitter struct{ err error }

func (f failingEmitter) Emit(ctx context.Context, u domain.SyncUpdate) error { return f.err }
func (f failingEmitter) Close() error                                        { return nil }

// ===== Tests =====

func TestChannelEmitter(t *testing.T) {
	e := NewChannelEmitter(1)
	update := domain.NewSyncUpdate(domain.SyncStatusComplete, 10)

	if err := e.Emit(context.Background(), update); err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	got := <-e.Updates()
	if got.ID != update.ID || got.Status != domain.SyncStatusComplete {
		t.Errorf("unexpected update: %+v", got)
	}

	// Full buffer respects context cancellation
	if err := e.Emit(context.Background(), update); err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := e.Emit(ctx, update); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}

	e.Close()
	e.Close()
	if err := e.Emit(context.Background(), update); !errors.Is(err, ErrEmitterClosed) {
		t.Errorf("expected ErrEmitterClosed, got %v", err)
	}

	// Buffered update is still readable, then channel reports closed
	<-e.Updates()
	if _, ok := <-e.Updates(); ok {
		t.Error("expected channel to be closed")
	}
}

func TestRedisEmitter(t *testing.T) {
	pub := &mockPublisher{}
	e := NewRedisEmitter(pub, "walletsync:updates")

	update := domain.NewSyncUpdate(domain.SyncStatusComplete, 5).WithData(
		decimal.RequireFromString("1.5"),
		[]domain.TransactionRow{{ID: 1, TxHash: "t1", Kind: domain.TxKindMint, BlockHeight: 5}},
	)
	if err := e.Emit(context.Background(), update); err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	if pub.channel != "walletsync:updates" || len(pub.payloads) != 1 {
		t.Fatalf("expected one publish on walletsync:updates, got %d on %q", len(pub.payloads), pub.channel)
	}

	var decoded domain.SyncUpdate
	if err := json.Unmarshal(pub.payloads[0], &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded.Data == nil || decoded.Data.AggregateBalance == nil || !decoded.Data.AggregateBalance.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("unexpected decoded payload: %+v", decoded)
	}

	e.Close()
	if !pub.closed {
		t.Error("expected publisher to be closed")
	}
}

func TestRedisEmitter_RowsWithoutBalance(t *testing.T) {
	pub := &mockPublisher{}
	e := NewRedisEmitter(pub, "walletsync:updates")

	update := domain.NewSyncUpdate(domain.SyncStatusComplete, 6).WithTransactions(
		[]domain.TransactionRow{{ID: 2, TxHash: "m2", Kind: domain.TxKindMint, BlockHeight: 6}},
	)
	if err := e.Emit(context.Background(), update); err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	if strings.Contains(string(pub.payloads[0]), "aggregate_balance") {
		t.Errorf("expected no balance in payload: %s", pub.payloads[0])
	}
	var decoded domain.SyncUpdate
	if err := json.Unmarshal(pub.payloads[0], &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded.Data == nil || decoded.Data.AggregateBalance != nil || len(decoded.Data.Transactions) != 1 {
		t.Errorf("unexpected decoded payload: %+v", decoded)
	}
}

func TestMulti(t *testing.T) {
	boom := errors.New("boom")
	ch := NewChannelEmitter(1)
	m := Multi{failingEmitter{err: boom}, ch}

	err := m.Emit(context.Background(), domain.NewSyncUpdate(domain.SyncStatusConnecting, 0))
	if !errors.Is(err, boom) {
		t.Errorf("expected joined error to contain boom, got %v", err)
	}

	// The healthy emitter still received the update
	select {
	case <-ch.Updates():
	default:
		t.Error("expected channel emitter to receive update despite earlier failure")
	}
}
