package applier

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/walletsync/internal/core/domain"
	"github.com/vietddude/walletsync/internal/indexing/filter"
)

// ===== Helpers =====

var (
	minterKey  = []byte("minter-public-key")
	authScript = []byte("authorization-script")
)

func fullBlock(height uint64, txs ...domain.Transaction) *domain.FullBlock {
	return &domain.FullBlock{
		BlockHeader:  domain.BlockHeader{Height: height, Hash: "hash"},
		Transactions: txs,
	}
}

// foreignTx satisfies domain.Transaction only through embedding, standing in
// for a variant the applier does not know.
type foreignTx struct {
	domain.Transaction
}

// ===== Tests =====

func TestMatches(t *testing.T) {
	watch := filter.NewWatchSet("aa", domain.AddressFromKey(minterKey))
	a := New(watch, nil)

	tests := []struct {
		name string
		tx   domain.Transaction
		want bool
	}{
		{"transfer from watched", &domain.Transfer{Hash: "t1", From: "aa", To: "zz"}, true},
		{"transfer to watched", &domain.Transfer{Hash: "t2", From: "zz", To: "aa"}, true},
		{"transfer unrelated", &domain.Transfer{Hash: "t3", From: "yy", To: "zz"}, false},
		{"mint to watched", &domain.Mint{Hash: "m1", To: "aa"}, true},
		{"mint elsewhere", &domain.Mint{Hash: "m2", To: "zz"}, false},
		{"reward to watched", &domain.Reward{Hash: "r1", To: "aa"}, true},
		{"reward elsewhere", &domain.Reward{Hash: "r2", To: "zz"}, false},
		{"ownership by watched minter", &domain.OwnershipChange{Hash: "o1", MinterKey: minterKey}, true},
		{"ownership unrelated", &domain.OwnershipChange{Hash: "o2", MinterKey: []byte("other")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Matches(tt.tx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatches_OwnershipByAuthorizationScript(t *testing.T) {
	a := New(filter.NewWatchSet(domain.HashScript(authScript)), nil)

	got, err := a.Matches(&domain.OwnershipChange{
		Hash:                "o1",
		MinterKey:           []byte("unwatched"),
		AuthorizationScript: authScript,
	})
	require.NoError(t, err)
	assert.True(t, got)
}

func TestMatches_CustomDeriver(t *testing.T) {
	derive := func(pub []byte) domain.ScriptHash { return domain.ScriptHash(pub) }
	a := New(filter.NewWatchSet("cafe"), derive)

	got, err := a.Matches(&domain.OwnershipChange{Hash: "o1", MinterKey: []byte("cafe")})
	require.NoError(t, err)
	assert.True(t, got)
}

func TestApply_TransferBetweenWatchedAddressesMatchesOnce(t *testing.T) {
	a := New(filter.NewWatchSet("aa", "bb"), nil)

	res, err := a.Apply(fullBlock(101, &domain.Transfer{
		Hash:   "t1",
		From:   "aa",
		To:     "bb",
		Amount: decimal.NewFromInt(3),
	}))
	require.NoError(t, err)
	assert.Equal(t, uint64(101), res.Height)
	require.Len(t, res.Matched, 1)
	assert.Equal(t, "t1", res.Matched[0].Tx.TxHash())
	assert.Equal(t, uint64(101), res.Matched[0].BlockHeight)
}

func TestApply_KeepsBlockOrder(t *testing.T) {
	a := New(filter.NewWatchSet("aa"), nil)

	res, err := a.Apply(fullBlock(7,
		&domain.Mint{Hash: "m1", To: "aa"},
		&domain.Transfer{Hash: "t1", From: "yy", To: "zz"},
		&domain.Reward{Hash: "r1", To: "aa"},
	))
	require.NoError(t, err)
	require.Len(t, res.Matched, 2)
	assert.Equal(t, "m1", res.Matched[0].Tx.TxHash())
	assert.Equal(t, 0, res.Matched[0].Index)
	assert.Equal(t, "r1", res.Matched[1].Tx.TxHash())
	assert.Equal(t, 2, res.Matched[1].Index)
}

func TestApply_HeaderOnlyBlock(t *testing.T) {
	a := New(filter.NewWatchSet("aa"), nil)

	res, err := a.Apply(&domain.HeaderOnlyBlock{
		BlockHeader: domain.BlockHeader{Height: 55},
		Signature:   "sig",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(55), res.Height)
	assert.Empty(t, res.Matched)
}

func TestApply_UnknownVariantIsFatal(t *testing.T) {
	a := New(filter.NewWatchSet("aa"), nil)

	_, err := a.Apply(fullBlock(9, &domain.Mint{Hash: "m1", To: "aa"}, foreignTx{}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownTransaction))
}
