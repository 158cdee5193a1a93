package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/walletsync/internal/core/config"
	"github.com/vietddude/walletsync/internal/infra/storage"
	"github.com/vietddude/walletsync/internal/infra/storage/bolt"
	"github.com/vietddude/walletsync/internal/infra/storage/memory"
	"github.com/vietddude/walletsync/internal/infra/storage/postgres"
)

// OpenStore opens the store selected by the storage driver. For postgres the
// schema is migrated and the returned DB is non-nil.
func OpenStore(
	ctx context.Context,
	storageCfg config.StorageConfig,
	dbCfg postgres.Config,
) (storage.Store, *postgres.DB, error) {
	switch storageCfg.Driver {
	case config.DriverMemory:
		slog.Info("Using memory storage")
		return memory.NewMemoryStorage(), nil, nil

	case config.DriverBolt, "":
		store, err := bolt.Open(storageCfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open bolt store: %w", err)
		}
		slog.Info("Using bolt storage", "path", storageCfg.Path)
		return store, nil, nil

	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, dbCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		slog.Info("Using PostgreSQL storage")
		return postgres.NewStore(db), db, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", storageCfg.Driver)
	}
}
