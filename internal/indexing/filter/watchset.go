package filter

import (
	"sort"

	"github.com/vietddude/walletsync/internal/core/domain"
)

// WatchSet is the fixed set of addresses owned by the wallet. It is built
// once and never mutated, so it is safe for concurrent use without locking.
type WatchSet struct {
	addresses map[domain.ScriptHash]struct{}
	sorted    []domain.ScriptHash
}

var _ Filter = (*WatchSet)(nil)

// NewWatchSet builds a watch set. Hashes are normalized and deduplicated.
func NewWatchSet(hashes ...domain.ScriptHash) *WatchSet {
	ws := &WatchSet{
		addresses: make(map[domain.ScriptHash]struct{}, len(hashes)),
	}
	for _, h := range hashes {
		n := domain.NormalizeScriptHash(string(h))
		if n == "" {
			continue
		}
		if _, dup := ws.addresses[n]; dup {
			continue
		}
		ws.addresses[n] = struct{}{}
		ws.sorted = append(ws.sorted, n)
	}
	sort.Slice(ws.sorted, func(i, j int) bool { return ws.sorted[i] < ws.sorted[j] })
	return ws
}

// FromWallet builds a watch set from configured wallet addresses.
func FromWallet(addrs []domain.WalletAddress) *WatchSet {
	hashes := make([]domain.ScriptHash, 0, len(addrs))
	for _, a := range addrs {
		hashes = append(hashes, a.Hash)
	}
	return NewWatchSet(hashes...)
}

// Contains checks if a script hash is watched.
func (w *WatchSet) Contains(hash domain.ScriptHash) bool {
	if hash == "" {
		return false
	}
	_, ok := w.addresses[domain.NormalizeScriptHash(string(hash))]
	return ok
}

// Size returns the number of watched addresses.
func (w *WatchSet) Size() int {
	return len(w.sorted)
}

// Addresses returns a copy of the watched addresses in sorted order.
func (w *WatchSet) Addresses() []domain.ScriptHash {
	out := make([]domain.ScriptHash, len(w.sorted))
	copy(out, w.sorted)
	return out
}
