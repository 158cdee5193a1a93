// Package bolt stores wallet sync state in a local bbolt file.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	bolt "go.etcd.io/bbolt"

	"github.com/vietddude/walletsync/internal/core/domain"
	"github.com/vietddude/walletsync/internal/infra/storage"
)

var (
	metaBucket    = []byte("meta")
	txBucket      = []byte("transactions")
	txHashBucket  = []byte("tx_by_hash")
	syncHeightKey = []byte("sync_height")
	balanceKey    = []byte("aggregate_balance")
)

// Store implements storage.Store on top of bbolt.
type Store struct {
	db *bolt.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens (or creates) the database file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{metaBucket, txBucket, txHashBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetSyncHeight(ctx context.Context) (uint64, bool, error) {
	var (
		height uint64
		ok     bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(metaBucket).Get(syncHeightKey)
		if v == nil {
			return nil
		}
		if len(v) != 8 {
			return fmt.Errorf("corrupt sync height: %d bytes", len(v))
		}
		height, ok = binary.BigEndian.Uint64(v), true
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to get sync height: %w", err)
	}
	return height, ok, nil
}

func (s *Store) SetSyncHeight(ctx context.Context, height uint64) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Put(syncHeightKey, itob(height))
	})
	if err != nil {
		return fmt.Errorf("failed to set sync height: %w", err)
	}
	return nil
}

func (s *Store) GetAggregateBalance(ctx context.Context) (decimal.Decimal, bool, error) {
	var (
		balance decimal.Decimal
		ok      bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(metaBucket).Get(balanceKey)
		if v == nil {
			return nil
		}
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return err
		}
		balance, ok = d, true
		return nil
	})
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to get aggregate balance: %w", err)
	}
	return balance, ok, nil
}

func (s *Store) SetAggregateBalance(ctx context.Context, balance decimal.Decimal) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Put(balanceKey, []byte(balance.String()))
	})
	if err != nil {
		return fmt.Errorf("failed to set aggregate balance: %w", err)
	}
	return nil
}

// InsertTransaction appends a row keyed by a bolt sequence. The hash index
// makes repeated inserts return the first row.
func (s *Store) InsertTransaction(
	ctx context.Context,
	m domain.MatchedTransaction,
) (domain.TransactionRow, error) {
	if m.Tx.TxHash() == "" {
		return domain.TransactionRow{}, storage.ErrMissingTxHash
	}

	var row domain.TransactionRow
	err := s.db.Update(func(tx *bolt.Tx) error {
		txs := tx.Bucket(txBucket)
		index := tx.Bucket(txHashBucket)
		hash := []byte(m.Tx.TxHash())

		if id := index.Get(hash); id != nil {
			return json.Unmarshal(txs.Get(id), &row)
		}

		seq, err := txs.NextSequence()
		if err != nil {
			return err
		}
		row = storage.NewRow(m)
		row.ID = seq

		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		if err := txs.Put(itob(seq), data); err != nil {
			return err
		}
		return index.Put(hash, itob(seq))
	})
	if err != nil {
		return domain.TransactionRow{}, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return row, nil
}

func (s *Store) ListTransactions(ctx context.Context, limit int) ([]domain.TransactionRow, error) {
	var rows []domain.TransactionRow
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(txBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(rows) >= limit {
				break
			}
			var row domain.TransactionRow
			if err := json.Unmarshal(v, &row); err != nil {
				return fmt.Errorf("decode row %d: %w", binary.BigEndian.Uint64(k), err)
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return rows, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
