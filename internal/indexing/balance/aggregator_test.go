package balance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/walletsync/internal/core/domain"
)

// ===== Mock Source =====

type mockSource struct {
	mu       sync.Mutex
	balances map[domain.ScriptHash]decimal.Decimal
	errs     map[domain.ScriptHash]error
	delay    time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (m *mockSource) GetAddressBalance(ctx context.Context, hash domain.ScriptHash) (decimal.Decimal, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxInFlight.Load()
		if n <= cur || m.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return decimal.Zero, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs[hash]; err != nil {
		return decimal.Zero, err
	}
	return m.balances[hash], nil
}

// ===== Tests =====

func TestAggregate_SumsExactly(t *testing.T) {
	src := &mockSource{balances: map[domain.ScriptHash]decimal.Decimal{
		"aa": decimal.RequireFromString("0.1"),
		"bb": decimal.RequireFromString("0.2"),
		"cc": decimal.RequireFromString("1000000000000.000000000001"),
	}}

	got, err := NewAggregator(src, 2).Aggregate(context.Background(), []domain.ScriptHash{"aa", "bb", "cc"})
	require.NoError(t, err)

	want := decimal.RequireFromString("1000000000000.300000000001")
	assert.True(t, want.Equal(got), "expected %s, got %s", want, got)
}

func TestAggregate_Empty(t *testing.T) {
	got, err := NewAggregator(&mockSource{}, 0).Aggregate(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestAggregate_AnyFailureFailsAll(t *testing.T) {
	boom := errors.New("node unavailable")
	src := &mockSource{
		balances: map[domain.ScriptHash]decimal.Decimal{"aa": decimal.NewFromInt(1), "cc": decimal.NewFromInt(1)},
		errs:     map[domain.ScriptHash]error{"bb": boom},
	}

	_, err := NewAggregator(src, 4).Aggregate(context.Background(), []domain.ScriptHash{"aa", "bb", "cc"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestAggregate_RespectsConcurrencyLimit(t *testing.T) {
	src := &mockSource{delay: 10 * time.Millisecond, balances: map[domain.ScriptHash]decimal.Decimal{}}
	addrs := make([]domain.ScriptHash, 12)
	for i := range addrs {
		addrs[i] = domain.ScriptHash(fmt.Sprintf("addr%02d", i))
	}

	_, err := NewAggregator(src, 3).Aggregate(context.Background(), addrs)
	require.NoError(t, err)
	assert.LessOrEqual(t, src.maxInFlight.Load(), int32(3))
}
