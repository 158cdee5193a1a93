// Package applier selects the transactions of a block that touch the wallet.
package applier

import (
	"fmt"

	"github.com/vietddude/walletsync/internal/core/domain"
	"github.com/vietddude/walletsync/internal/indexing/filter"
)

// KeyDeriver maps a public key to its address.
type KeyDeriver func(pub []byte) domain.ScriptHash

// Result is the outcome of applying one block.
type Result struct {
	Height  uint64
	Hash    string
	Matched []domain.MatchedTransaction
}

// Applier filters blocks against a fixed watch set. It holds no mutable
// state and is safe for concurrent use.
type Applier struct {
	watch  filter.Filter
	derive KeyDeriver
}

// New creates an applier. A nil deriver uses domain.AddressFromKey.
func New(watch filter.Filter, derive KeyDeriver) *Applier {
	if derive == nil {
		derive = domain.AddressFromKey
	}
	return &Applier{watch: watch, derive: derive}
}

// Apply returns the block height and the transactions that touch the watch
// set, in block order. A header-only block matches nothing.
func (a *Applier) Apply(block domain.Block) (Result, error) {
	hdr := block.Header()
	res := Result{Height: block.Height(), Hash: hdr.Hash}

	full, ok := block.(*domain.FullBlock)
	if !ok {
		return res, nil
	}

	for i, tx := range full.Transactions {
		match, err := a.Matches(tx)
		if err != nil {
			return Result{}, fmt.Errorf("block %d tx %d: %w", res.Height, i, err)
		}
		if !match {
			continue
		}
		res.Matched = append(res.Matched, domain.MatchedTransaction{
			Tx:          tx,
			BlockHeight: res.Height,
			BlockHash:   hdr.Hash,
			Index:       i,
		})
	}
	return res, nil
}

// Matches reports whether tx touches the watch set. A transfer between two
// watched addresses is still a single match.
func (a *Applier) Matches(tx domain.Transaction) (bool, error) {
	switch t := tx.(type) {
	case *domain.OwnershipChange:
		return a.watch.Contains(a.derive(t.MinterKey)) ||
			a.watch.Contains(domain.HashScript(t.AuthorizationScript)), nil
	case *domain.Mint:
		return a.watch.Contains(t.To), nil
	case *domain.Reward:
		return a.watch.Contains(t.To), nil
	case *domain.Transfer:
		return a.watch.Contains(t.From) || a.watch.Contains(t.To), nil
	default:
		return false, fmt.Errorf("%w: %T", domain.ErrUnknownTransaction, tx)
	}
}
