package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnknownTransaction is returned when a block carries a transaction variant
// this client does not understand. It is fatal: the watch set can no longer be
// evaluated correctly.
var ErrUnknownTransaction = errors.New("unknown transaction type")

// TxKind names a transaction variant.
type TxKind string

const (
	TxKindOwnershipChange TxKind = "ownership_change"
	TxKindMint            TxKind = "mint"
	TxKindReward          TxKind = "reward"
	TxKindTransfer        TxKind = "transfer"
)

// Transaction is the closed set of ledger transaction variants.
// Only types in this package implement it.
type Transaction interface {
	TxHash() string
	Kind() TxKind
	isTransaction()
}

// OwnershipChange rotates the authorization of an output. The minter is
// identified by its public key; its address is derived from the key.
type OwnershipChange struct {
	Hash                string
	MinterKey           []byte
	AuthorizationScript []byte
}

// Mint creates new value at a destination.
type Mint struct {
	Hash   string
	To     ScriptHash
	Amount decimal.Decimal
}

// Reward pays block rewards to a destination.
type Reward struct {
	Hash   string
	To     ScriptHash
	Amount decimal.Decimal
}

// Transfer moves value from one address to another.
type Transfer struct {
	Hash   string
	From   ScriptHash
	To     ScriptHash
	Amount decimal.Decimal
	Fee    decimal.Decimal
}

func (t *OwnershipChange) TxHash() string { return t.Hash }
func (t *Mint) TxHash() string            { return t.Hash }
func (t *Reward) TxHash() string          { return t.Hash }
func (t *Transfer) TxHash() string        { return t.Hash }

func (*OwnershipChange) Kind() TxKind { return TxKindOwnershipChange }
func (*Mint) Kind() TxKind            { return TxKindMint }
func (*Reward) Kind() TxKind          { return TxKindReward }
func (*Transfer) Kind() TxKind        { return TxKindTransfer }

func (*OwnershipChange) isTransaction() {}
func (*Mint) isTransaction()            {}
func (*Reward) isTransaction()          {}
func (*Transfer) isTransaction()        {}

// MatchedTransaction is a transaction that touched the watch set, with its
// position in the chain.
type MatchedTransaction struct {
	Tx          Transaction
	BlockHeight uint64
	BlockHash   string
	Index       int
}

// TransactionRow is the stored descriptor of a matched transaction.
type TransactionRow struct {
	ID          uint64    `json:"id"`
	TxHash      string    `json:"tx_hash"`
	Kind        TxKind    `json:"kind"`
	BlockHeight uint64    `json:"block_height"`
	BlockHash   string    `json:"block_hash"`
	TxIndex     int       `json:"tx_index"`
	CreatedAt   time.Time `json:"created_at"`
}
