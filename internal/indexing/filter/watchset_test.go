package filter

import (
	"testing"

	"github.com/vietddude/walletsync/internal/core/domain"
)

func TestWatchSet(t *testing.T) {
	ws := NewWatchSet("BB", "aa", "bb", "")

	if ws.Size() != 2 {
		t.Errorf("Expected size to be 2, got %d", ws.Size())
	}
	if !ws.Contains("aa") {
		t.Error("Expected watch set to contain aa")
	}
	if !ws.Contains("AA") {
		t.Error("Expected watch set to be case-insensitive")
	}
	if ws.Contains("cc") {
		t.Error("Expected watch set not to contain cc")
	}
	if ws.Contains("") {
		t.Error("Expected empty hash never to match")
	}

	addrs := ws.Addresses()
	if len(addrs) != 2 || addrs[0] != "aa" || addrs[1] != "bb" {
		t.Errorf("Expected sorted [aa bb], got %v", addrs)
	}

	// Returned slice is a copy
	addrs[0] = "zz"
	if ws.Addresses()[0] != "aa" {
		t.Error("Expected Addresses to return a copy")
	}
}

func TestFromWallet(t *testing.T) {
	ws := FromWallet([]domain.WalletAddress{
		{Label: "main", Hash: "aa"},
		{Label: "savings", Hash: "bb"},
	})
	if ws.Size() != 2 || !ws.Contains("bb") {
		t.Errorf("unexpected watch set: %v", ws.Addresses())
	}
}
