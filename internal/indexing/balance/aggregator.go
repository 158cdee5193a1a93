// Package balance computes the wallet's aggregate balance from per-address
// balances reported by the node.
package balance

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/walletsync/internal/core/domain"
)

// DefaultConcurrency bounds in-flight balance queries.
const DefaultConcurrency = 8

// Source reports the confirmed balance of a single address.
type Source interface {
	GetAddressBalance(ctx context.Context, hash domain.ScriptHash) (decimal.Decimal, error)
}

// Aggregator sums address balances with bounded concurrency.
type Aggregator struct {
	source      Source
	concurrency int
}

// NewAggregator creates an aggregator. concurrency <= 0 uses DefaultConcurrency.
func NewAggregator(source Source, concurrency int) *Aggregator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Aggregator{source: source, concurrency: concurrency}
}

// Aggregate queries every address and returns the exact decimal sum. Any
// single failure fails the whole aggregation and cancels outstanding queries.
func (a *Aggregator) Aggregate(ctx context.Context, addrs []domain.ScriptHash) (decimal.Decimal, error) {
	if len(addrs) == 0 {
		return decimal.Zero, nil
	}

	balances := make([]decimal.Decimal, len(addrs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, addr := range addrs {
		g.Go(func() error {
			b, err := a.source.GetAddressBalance(gctx, addr)
			if err != nil {
				return fmt.Errorf("balance of %s: %w", addr, err)
			}
			balances[i] = b
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return decimal.Zero, err
	}

	return decimal.Sum(decimal.Zero, balances...), nil
}
