// Package control wires the wallet synchronizer to its node connection,
// store, emitters and health endpoints, and owns their lifecycle.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vietddude/walletsync/internal/core/config"
	"github.com/vietddude/walletsync/internal/core/cursor"
	"github.com/vietddude/walletsync/internal/core/domain"
	"github.com/vietddude/walletsync/internal/indexing/emitter"
	"github.com/vietddude/walletsync/internal/indexing/filter"
	"github.com/vietddude/walletsync/internal/indexing/health"
	"github.com/vietddude/walletsync/internal/indexing/synchronizer"
	"github.com/vietddude/walletsync/internal/infra/node"
	redisclient "github.com/vietddude/walletsync/internal/infra/redis"
	"github.com/vietddude/walletsync/internal/infra/storage"
	"github.com/vietddude/walletsync/internal/infra/storage/postgres"
)

// Watcher is the main application struct that manages the synchronizer lifecycle.
type Watcher struct {
	cfg          Config
	client       *node.Client
	sync         *synchronizer.Synchronizer
	store        storage.Store
	db           *postgres.DB
	emitter      emitter.Emitter
	healthServer *health.Server
	log          *slog.Logger

	cancel    context.CancelFunc
	clientErr chan error
}

// Config holds the application configuration.
type Config struct {
	Port      int
	Node      node.Config
	Addresses []domain.WalletAddress
	Sync      synchronizer.Config
	Storage   config.StorageConfig
	Redis     redisclient.Config
	Database  postgres.Config
}

// ConfigFromApp maps the loaded file configuration onto the watcher config.
func ConfigFromApp(app *config.AppConfig) Config {
	return Config{
		Port:      app.Server.Port,
		Node:      app.Node,
		Addresses: app.Wallet.WalletAddresses(),
		Sync: synchronizer.Config{
			RetryDelay:         app.Sync.RetryDelay,
			PersistInterval:    app.Sync.PersistInterval,
			BalanceConcurrency: app.Sync.BalanceConcurrency,
		},
		Storage:  app.Storage,
		Redis:    app.Redis,
		Database: app.Database,
	}
}

// NewWatcher creates a new Watcher instance with all dependencies initialized.
func NewWatcher(ctx context.Context, cfg Config) (*Watcher, error) {
	log := slog.Default().With("component", "watcher")

	// 1. Storage
	store, db, err := OpenStore(ctx, cfg.Storage, cfg.Database)
	if err != nil {
		return nil, err
	}

	// 2. Emitters: always log, publish to redis when configured
	emitters := emitter.Multi{emitter.NewLogEmitter(slog.Default())}
	if cfg.Redis.Enabled() {
		redisClient, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("Failed to connect to Redis, publishing disabled", "error", err)
		} else {
			emitters = append(emitters, emitter.NewRedisEmitter(redisClient, cfg.Redis.Channel))
			log.Info("Publishing sync updates to Redis", "channel", cfg.Redis.Channel)
		}
	}

	// 3. Node connection and synchronizer
	client := node.NewClient(cfg.Node, slog.Default())
	watch := filter.FromWallet(cfg.Addresses)
	syncer, err := synchronizer.New(ctx, cfg.Sync, synchronizer.Deps{
		Ledger:  client,
		Store:   store,
		Watch:   watch,
		Emitter: emitters,
		Logger:  slog.Default(),
	})
	if err != nil {
		store.Close()
		emitters.Close()
		return nil, fmt.Errorf("failed to create synchronizer: %w", err)
	}
	client.SetListener(syncer)
	syncer.Cursor().SetStateChangeCallback(func(t cursor.Transition) {
		log.Info("Sync status changed", "from", t.From, "to", t.To, "reason", t.Reason)
	})

	// 4. Health
	healthMon := health.NewMonitor(syncer, client, client, syncer.Cursor())
	healthServer := health.NewServer(healthMon, cfg.Port)

	return &Watcher{
		cfg:          cfg,
		client:       client,
		sync:         syncer,
		store:        store,
		db:           db,
		emitter:      emitters,
		healthServer: healthServer,
		log:          log,
	}, nil
}

// Start starts the watcher and all its components. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	go func() {
		if err := w.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.log.Error("Health server failed", "error", err)
		}
	}()

	if w.db != nil {
		w.db.StartMetricsCollector(runCtx)
	}

	w.sync.Start(runCtx)

	w.clientErr = make(chan error, 1)
	go func() {
		w.clientErr <- w.client.Run(runCtx)
	}()

	w.log.Info("Watcher started",
		"node", w.cfg.Node.URL,
		"addresses", len(w.cfg.Addresses),
		"storage", w.cfg.Storage.Driver,
	)
	return nil
}

// Fatal reports an unrecoverable synchronizer error.
func (w *Watcher) Fatal() <-chan error {
	return w.sync.Fatal()
}

// Synchronizer returns the running synchronizer.
func (w *Watcher) Synchronizer() *synchronizer.Synchronizer {
	return w.sync
}

// Stop stops the watcher.
func (w *Watcher) Stop(ctx context.Context) error {
	w.log.Info("Stopping Watcher...")

	if w.cancel != nil {
		w.cancel()
	}
	if w.clientErr != nil {
		select {
		case <-w.clientErr:
		case <-ctx.Done():
			w.log.Warn("Timed out waiting for node client")
		}
	}

	w.sync.Stop()

	var errs []error
	// Closing the emitters also closes the Redis client.
	if err := w.emitter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close emitters: %w", err))
	}
	if err := w.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	// Stop Health Server
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := w.healthServer.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("stop health server: %w", err))
	}
	return errors.Join(errs...)
}
