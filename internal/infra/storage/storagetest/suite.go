// Package storagetest holds behaviour tests shared by every storage backend.
package storagetest

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/walletsync/internal/core/domain"
	"github.com/vietddude/walletsync/internal/infra/storage"
)

// Run exercises a fresh store returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("height", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, ok, err := s.GetSyncHeight(ctx)
		require.NoError(t, err)
		assert.False(t, ok, "fresh store should have no height")

		require.NoError(t, s.SetSyncHeight(ctx, 42))
		require.NoError(t, s.SetSyncHeight(ctx, 43))

		h, ok, err := s.GetSyncHeight(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, uint64(43), h)
	})

	t.Run("balance", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, ok, err := s.GetAggregateBalance(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		want := decimal.RequireFromString("12.345678901234567890")
		require.NoError(t, s.SetAggregateBalance(ctx, want))

		got, ok, err := s.GetAggregateBalance(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, want.Equal(got), "expected %s, got %s", want, got)
	})

	t.Run("insert is idempotent by hash", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		m := domain.MatchedTransaction{
			Tx:          &domain.Transfer{Hash: "tx1", From: "aa", To: "bb", Amount: decimal.NewFromInt(5)},
			BlockHeight: 101,
			BlockHash:   "blk101",
			Index:       2,
		}

		first, err := s.InsertTransaction(ctx, m)
		require.NoError(t, err)
		assert.NotZero(t, first.ID)
		assert.Equal(t, "tx1", first.TxHash)
		assert.Equal(t, domain.TxKindTransfer, first.Kind)
		assert.Equal(t, uint64(101), first.BlockHeight)

		second, err := s.InsertTransaction(ctx, m)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		rows, err := s.ListTransactions(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("insert rejects empty hash", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i, tx := range []domain.Transaction{
			&domain.Mint{To: "aa", Amount: decimal.NewFromInt(1)},
			&domain.Transfer{From: "bb", To: "cc", Amount: decimal.NewFromInt(1)},
		} {
			_, err := s.InsertTransaction(ctx, domain.MatchedTransaction{
				Tx:          tx,
				BlockHeight: uint64(i + 1),
				BlockHash:   "blk",
			})
			assert.ErrorIs(t, err, storage.ErrMissingTxHash)
		}

		rows, err := s.ListTransactions(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("list newest first", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i, hash := range []string{"a", "b", "c"} {
			_, err := s.InsertTransaction(ctx, domain.MatchedTransaction{
				Tx:          &domain.Mint{Hash: hash, To: "aa", Amount: decimal.NewFromInt(1)},
				BlockHeight: uint64(100 + i),
			})
			require.NoError(t, err)
		}

		rows, err := s.ListTransactions(ctx, 2)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "c", rows[0].TxHash)
		assert.Equal(t, "b", rows[1].TxHash)
	})
}
