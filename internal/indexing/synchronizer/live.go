package synchronizer

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/vietddude/walletsync/internal/core/domain"
)

// applyLive handles a pushed block once the wallet is complete.
func (s *Synchronizer) applyLive(b domain.Block) {
	ctx := s.ctx

	rows, err := s.applyBlock(ctx, b, "live")
	if err != nil {
		if errors.Is(err, domain.ErrUnknownTransaction) {
			s.fail(err)
			return
		}
		s.log.Error("Failed to apply pushed block",
			"height", b.Height(),
			"block", b.Header().Hash,
			"error", err,
		)
		return
	}

	var (
		bal    decimal.Decimal
		balErr error
	)
	if len(rows) > 0 {
		if bal, balErr = s.refreshBalance(ctx); balErr != nil {
			s.log.Error("Failed to refresh balance", "height", b.Height(), "error", balErr)
		}
	}
	if err := s.cursor.Persist(ctx); err != nil {
		s.log.Error("Failed to persist height", "height", b.Height(), "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	update := domain.NewSyncUpdate(s.status, s.cursor.Height())
	switch {
	case len(rows) == 0:
	case balErr != nil:
		// The previous balance does not include these rows.
		update = update.WithTransactions(rows)
	default:
		update = update.WithData(bal, rows)
	}
	s.emitLocked(update)
}
