package memory

import (
	"testing"

	"github.com/vietddude/walletsync/internal/infra/storage"
	"github.com/vietddude/walletsync/internal/infra/storage/storagetest"
)

func TestMemoryStorage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return NewMemoryStorage()
	})
}
