package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/vietddude/walletsync/internal/core/domain"
	"github.com/vietddude/walletsync/internal/indexing/metrics"
)

// catchUp brings the local height up to the remote height, refreshes the
// aggregate balance, drains queued pushed blocks and completes the cycle.
func (s *Synchronizer) catchUp(ctx context.Context, epoch uint64) error {
	chainHeight, err := s.ledger.GetChainHeight(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain height: %w", err)
	}
	s.mu.Lock()
	s.chainHeight = chainHeight
	s.mu.Unlock()
	metrics.ChainHeight.Set(float64(chainHeight))

	var rows []domain.TransactionRow
	local := s.cursor.Height()
	if chainHeight < local {
		metrics.HeightRegressions.Inc()
		s.log.Warn("Remote height is behind local height", "local", local, "remote", chainHeight)
	}
	if local < chainHeight {
		s.log.Info("Catching up", "from", local+1, "to", chainHeight)
		matched, err := s.catchUpRange(ctx, local+1, chainHeight)
		rows = append(rows, matched...)
		if err != nil {
			return err
		}
	}

	bal, err := s.refreshBalance(ctx)
	if err != nil {
		return err
	}

	drainMatched := false
	for {
		s.mu.Lock()
		if epoch != s.epoch {
			s.mu.Unlock()
			return errSuperseded
		}
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()
		metrics.PendingBlocks.Set(0)

		if len(batch) == 0 {
			if drainMatched {
				drainMatched = false
				if bal, err = s.refreshBalance(ctx); err != nil {
					return err
				}
				continue
			}
			if err := s.cursor.Persist(ctx); err != nil {
				return err
			}
			if s.complete(epoch, bal, rows) {
				return nil
			}
			continue
		}

		for _, b := range batch {
			if b.Height() <= s.cursor.Height() {
				s.log.Debug("Skipping stale pushed block",
					"height", b.Height(),
					"local", s.cursor.Height(),
				)
				continue
			}
			matched, err := s.applyBlock(ctx, b, "pending")
			if err != nil {
				return err
			}
			if len(matched) > 0 {
				rows = append(rows, matched...)
				drainMatched = true
				if err := s.cursor.Persist(ctx); err != nil {
					return err
				}
			}
		}
	}
}

// complete marks the cycle finished if nothing was queued since the last
// drain. It reports false when more blocks arrived.
func (s *Synchronizer) complete(epoch uint64, bal decimal.Decimal, rows []domain.TransactionRow) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || len(s.pending) > 0 {
		// A superseded cycle is reported by the next drain pass.
		return false
	}

	s.inProgress = false
	s.cancelCycle = nil
	s.setStatusLocked(domain.SyncStatusComplete, "catch-up finished")
	update := domain.NewSyncUpdate(domain.SyncStatusComplete, s.cursor.Height()).WithData(bal, rows)
	s.emitLocked(update)
	return true
}

// catchUpRange applies every block in [from, to] as streamed by the node.
func (s *Synchronizer) catchUpRange(ctx context.Context, from, to uint64) ([]domain.TransactionRow, error) {
	stream, err := s.ledger.GetBlockRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to request blocks %d-%d: %w", from, to, err)
	}
	defer stream.Close()

	var rows []domain.TransactionRow
	for {
		b, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, fmt.Errorf("block stream %d-%d: %w", from, to, err)
		}

		matched, err := s.applyBlock(ctx, b, "catchup")
		if err != nil {
			return rows, err
		}
		rows = append(rows, matched...)

		if len(matched) > 0 {
			if err := s.cursor.Persist(ctx); err != nil {
				return rows, err
			}
			continue
		}
		if s.cursor.PersistDue(s.cfg.PersistInterval) {
			if err := s.cursor.Persist(ctx); err != nil {
				return rows, err
			}
			s.log.Info("Catch-up progress",
				"height", b.Height(),
				"target", to,
				"matched", len(rows),
			)
		}
	}
}

// applyBlock filters a block, stores its matches and advances the cursor.
// On error the cursor is left untouched.
func (s *Synchronizer) applyBlock(ctx context.Context, b domain.Block, source string) ([]domain.TransactionRow, error) {
	res, err := s.applier.Apply(b)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.TransactionRow, 0, len(res.Matched))
	for _, m := range res.Matched {
		row, err := s.store.InsertTransaction(ctx, m)
		if err != nil {
			return nil, fmt.Errorf("failed to store transaction %s: %w", m.Tx.TxHash(), err)
		}
		rows = append(rows, row)
		metrics.TransactionsMatched.WithLabelValues(string(m.Tx.Kind())).Inc()
	}

	s.cursor.Advance(res.Height)
	metrics.BlocksApplied.WithLabelValues(source).Inc()
	if len(rows) > 0 {
		s.log.Info("Matched wallet transactions",
			"height", res.Height,
			"block", res.Hash,
			"count", len(rows),
		)
	}
	return rows, nil
}

// refreshBalance aggregates and persists the wallet balance.
func (s *Synchronizer) refreshBalance(ctx context.Context) (decimal.Decimal, error) {
	bal, err := s.balance.Aggregate(ctx, s.watch.Addresses())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to aggregate balance: %w", err)
	}
	if err := s.store.SetAggregateBalance(ctx, bal); err != nil {
		return decimal.Zero, fmt.Errorf("failed to persist balance: %w", err)
	}

	s.mu.Lock()
	s.lastBalance = bal
	s.mu.Unlock()
	return bal, nil
}

// persistBestEffort saves the height reached by a failed cycle so the retry
// does not repeat work.
func (s *Synchronizer) persistBestEffort() {
	if err := s.cursor.Persist(s.ctx); err != nil {
		s.log.Warn("Failed to persist height", "height", s.cursor.Height(), "error", err)
	}
}
