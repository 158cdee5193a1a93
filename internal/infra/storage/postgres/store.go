package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vietddude/walletsync/internal/core/domain"
	"github.com/vietddude/walletsync/internal/infra/storage"
)

const (
	keySyncHeight       = "sync_height"
	keyAggregateBalance = "aggregate_balance"
)

// Store implements storage.Store using PostgreSQL.
type Store struct {
	db *DB
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a new PostgreSQL store.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

type txRow struct {
	ID          int64     `db:"id"`
	TxHash      string    `db:"tx_hash"`
	Kind        string    `db:"kind"`
	BlockHeight int64     `db:"block_height"`
	BlockHash   string    `db:"block_hash"`
	TxIndex     int       `db:"tx_index"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r txRow) toDomain() domain.TransactionRow {
	return domain.TransactionRow{
		ID:          uint64(r.ID),
		TxHash:      r.TxHash,
		Kind:        domain.TxKind(r.Kind),
		BlockHeight: uint64(r.BlockHeight),
		BlockHash:   r.BlockHash,
		TxIndex:     r.TxIndex,
		CreatedAt:   r.CreatedAt,
	}
}

func (s *Store) getValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM sync_state WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) setValue(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, value)
	return err
}

func (s *Store) GetSyncHeight(ctx context.Context) (uint64, bool, error) {
	v, ok, err := s.getValue(ctx, keySyncHeight)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get sync height: %w", err)
	}
	if !ok {
		return 0, false, nil
	}
	h, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt sync height %q: %w", v, err)
	}
	return h, true, nil
}

func (s *Store) SetSyncHeight(ctx context.Context, height uint64) error {
	if err := s.setValue(ctx, keySyncHeight, strconv.FormatUint(height, 10)); err != nil {
		return fmt.Errorf("failed to set sync height: %w", err)
	}
	return nil
}

func (s *Store) GetAggregateBalance(ctx context.Context) (decimal.Decimal, bool, error) {
	v, ok, err := s.getValue(ctx, keyAggregateBalance)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to get aggregate balance: %w", err)
	}
	if !ok {
		return decimal.Zero, false, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("corrupt aggregate balance %q: %w", v, err)
	}
	return d, true, nil
}

func (s *Store) SetAggregateBalance(ctx context.Context, balance decimal.Decimal) error {
	if err := s.setValue(ctx, keyAggregateBalance, balance.String()); err != nil {
		return fmt.Errorf("failed to set aggregate balance: %w", err)
	}
	return nil
}

// InsertTransaction is idempotent on tx_hash: the no-op update makes
// RETURNING yield the existing row on conflict.
func (s *Store) InsertTransaction(
	ctx context.Context,
	m domain.MatchedTransaction,
) (domain.TransactionRow, error) {
	if m.Tx.TxHash() == "" {
		return domain.TransactionRow{}, storage.ErrMissingTxHash
	}

	row := storage.NewRow(m)
	var out txRow
	err := s.db.GetContext(ctx, &out, `
		INSERT INTO wallet_transactions (tx_hash, kind, block_height, block_hash, tx_index, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tx_hash) DO UPDATE SET tx_hash = EXCLUDED.tx_hash
		RETURNING id, tx_hash, kind, block_height, block_hash, tx_index, created_at
	`, row.TxHash, string(row.Kind), int64(row.BlockHeight), row.BlockHash, row.TxIndex, row.CreatedAt)
	if err != nil {
		return domain.TransactionRow{}, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return out.toDomain(), nil
}

func (s *Store) ListTransactions(ctx context.Context, limit int) ([]domain.TransactionRow, error) {
	if limit <= 0 {
		limit = 1000
	}
	var rows []txRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, tx_hash, kind, block_height, block_hash, tx_index, created_at
		FROM wallet_transactions
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	out := make([]domain.TransactionRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
