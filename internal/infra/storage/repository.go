package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vietddude/walletsync/internal/core/domain"
)

// ErrMissingTxHash is returned when inserting a transaction without a hash.
// Rows are deduplicated by hash, so such a row would collide with others.
var ErrMissingTxHash = errors.New("transaction has no hash")

// HeightRepository persists the last applied block height.
type HeightRepository interface {
	// GetSyncHeight returns the stored height; ok is false when none was stored.
	GetSyncHeight(ctx context.Context) (height uint64, ok bool, err error)

	// SetSyncHeight overwrites the stored height.
	SetSyncHeight(ctx context.Context, height uint64) error
}

// BalanceRepository persists the wallet's aggregate balance.
type BalanceRepository interface {
	GetAggregateBalance(ctx context.Context) (balance decimal.Decimal, ok bool, err error)
	SetAggregateBalance(ctx context.Context, balance decimal.Decimal) error
}

// TransactionRepository is the wallet's transaction log.
type TransactionRepository interface {
	// InsertTransaction stores a matched transaction. Inserting a hash that is
	// already stored returns the existing row; an empty hash is rejected with
	// ErrMissingTxHash.
	InsertTransaction(ctx context.Context, m domain.MatchedTransaction) (domain.TransactionRow, error)

	// ListTransactions returns up to limit rows, newest first.
	ListTransactions(ctx context.Context, limit int) ([]domain.TransactionRow, error)
}

// Store is the persistent store used by the synchronizer.
type Store interface {
	HeightRepository
	BalanceRepository
	TransactionRepository
	Close() error
}

// NewRow builds the descriptor for a matched transaction.
func NewRow(m domain.MatchedTransaction) domain.TransactionRow {
	return domain.TransactionRow{
		TxHash:      m.Tx.TxHash(),
		Kind:        m.Tx.Kind(),
		BlockHeight: m.BlockHeight,
		BlockHash:   m.BlockHash,
		TxIndex:     m.Index,
		CreatedAt:   time.Now().UTC(),
	}
}
