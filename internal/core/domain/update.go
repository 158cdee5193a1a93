package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SyncData is the payload attached to an update when wallet data changed.
// AggregateBalance is nil when the balance could not be recomputed for the
// attached rows.
type SyncData struct {
	AggregateBalance *decimal.Decimal `json:"aggregate_balance,omitempty"`
	Transactions     []TransactionRow `json:"transactions,omitempty"`
}

// SyncUpdate is emitted on every status change and every applied live block.
type SyncUpdate struct {
	ID        string     `json:"id"`
	Status    SyncStatus `json:"status"`
	Height    uint64     `json:"height"`
	Data      *SyncData  `json:"data,omitempty"`
	EmittedAt time.Time  `json:"emitted_at"`
}

// NewSyncUpdate builds a status-only update.
func NewSyncUpdate(status SyncStatus, height uint64) SyncUpdate {
	return SyncUpdate{
		ID:        uuid.New().String(),
		Status:    status,
		Height:    height,
		EmittedAt: time.Now(),
	}
}

// WithData attaches a balance and transaction rows.
func (u SyncUpdate) WithData(balance decimal.Decimal, rows []TransactionRow) SyncUpdate {
	u.Data = &SyncData{AggregateBalance: &balance, Transactions: rows}
	return u
}

// WithTransactions attaches transaction rows without a balance.
func (u SyncUpdate) WithTransactions(rows []TransactionRow) SyncUpdate {
	u.Data = &SyncData{Transactions: rows}
	return u
}
