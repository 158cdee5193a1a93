// Package filter decides which addresses the wallet cares about.
package filter

import "github.com/vietddude/walletsync/internal/core/domain"

// Filter answers membership queries for watched script hashes.
type Filter interface {
	// Contains checks if a script hash is watched
	Contains(hash domain.ScriptHash) bool

	// Size returns the number of watched addresses
	Size() int

	// Addresses returns the watched addresses in sorted order
	Addresses() []domain.ScriptHash
}
