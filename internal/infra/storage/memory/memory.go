package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vietddude/walletsync/internal/core/domain"
	"github.com/vietddude/walletsync/internal/infra/storage"
)

// MemoryStorage keeps wallet state in process memory. Used for tests and
// ephemeral runs.
type MemoryStorage struct {
	height     uint64
	hasHeight  bool
	balance    decimal.Decimal
	hasBalance bool
	txs        []domain.TransactionRow
	byHash     map[string]int
	mu         sync.RWMutex
}

var _ storage.Store = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		byHash: make(map[string]int),
	}
}

// -----------------------------------------------------------------------------
// Height / Balance
// -----------------------------------------------------------------------------

func (s *MemoryStorage) GetSyncHeight(ctx context.Context) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.height, s.hasHeight, nil
}

func (s *MemoryStorage) SetSyncHeight(ctx context.Context, height uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.height = height
	s.hasHeight = true
	return nil
}

func (s *MemoryStorage) GetAggregateBalance(ctx context.Context) (decimal.Decimal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance, s.hasBalance, nil
}

func (s *MemoryStorage) SetAggregateBalance(ctx context.Context, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = balance
	s.hasBalance = true
	return nil
}

// -----------------------------------------------------------------------------
// Transactions
// -----------------------------------------------------------------------------

func (s *MemoryStorage) InsertTransaction(
	ctx context.Context,
	m domain.MatchedTransaction,
) (domain.TransactionRow, error) {
	if m.Tx.TxHash() == "" {
		return domain.TransactionRow{}, storage.ErrMissingTxHash
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.byHash[m.Tx.TxHash()]; ok {
		return s.txs[i], nil
	}

	row := storage.NewRow(m)
	row.ID = uint64(len(s.txs) + 1)
	s.byHash[row.TxHash] = len(s.txs)
	s.txs = append(s.txs, row)
	return row, nil
}

func (s *MemoryStorage) ListTransactions(ctx context.Context, limit int) ([]domain.TransactionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TransactionRow, len(s.txs))
	copy(out, s.txs)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStorage) Close() error { return nil }
