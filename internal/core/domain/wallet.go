package domain

import "time"

// WalletAddress is a watched address as configured by the user.
type WalletAddress struct {
	Label     string
	Hash      ScriptHash
	CreatedAt time.Time
}
