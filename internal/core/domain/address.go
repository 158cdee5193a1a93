package domain

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// ScriptHash is the hex fingerprint of a locking script. Wallet addresses are
// script hashes.
type ScriptHash string

// NormalizeScriptHash lowercases and trims a textual script hash.
func NormalizeScriptHash(s string) ScriptHash {
	return ScriptHash(strings.ToLower(strings.TrimSpace(s)))
}

// HashScript returns the blake2b-256 script hash of b.
func HashScript(b []byte) ScriptHash {
	sum := blake2b.Sum256(b)
	return ScriptHash(hex.EncodeToString(sum[:]))
}

// AddressFromKey derives the pay-to-key address of a public key.
func AddressFromKey(pub []byte) ScriptHash {
	return HashScript(pub)
}

func (h ScriptHash) String() string { return string(h) }
