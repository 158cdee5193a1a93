package config

import (
	"time"

	"github.com/vietddude/walletsync/internal/core/domain"
	"github.com/vietddude/walletsync/internal/infra/node"
	redisclient "github.com/vietddude/walletsync/internal/infra/redis"
	"github.com/vietddude/walletsync/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Node     node.Config        `yaml:"node"`
	Wallet   WalletConfig       `yaml:"wallet"`
	Sync     SyncConfig         `yaml:"sync"`
	Storage  StorageConfig      `yaml:"storage"`
	Redis    redisclient.Config `yaml:"redis"`
	Logging  LoggingConfig      `yaml:"logging"`
	Database postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// WalletConfig lists the addresses the wallet watches.
type WalletConfig struct {
	Addresses []AddressConfig `yaml:"addresses"`
}

// AddressConfig is one watched script hash.
type AddressConfig struct {
	Label string `yaml:"label"`
	Hash  string `yaml:"hash"`
}

// SyncConfig tunes the synchronizer.
type SyncConfig struct {
	RetryDelay         time.Duration `yaml:"retry_delay"`
	PersistInterval    time.Duration `yaml:"persist_interval"`
	BalanceConcurrency int           `yaml:"balance_concurrency"`
}

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

// StorageConfig selects the persistent store backend.
type StorageConfig struct {
	Driver string `yaml:"driver"` // memory, bolt, postgres
	Path   string `yaml:"path"`   // bolt file
}

// WalletAddresses converts the configured addresses to domain values.
func (c WalletConfig) WalletAddresses() []domain.WalletAddress {
	out := make([]domain.WalletAddress, 0, len(c.Addresses))
	for _, a := range c.Addresses {
		out = append(out, domain.WalletAddress{
			Label: a.Label,
			Hash:  domain.NormalizeScriptHash(a.Hash),
		})
	}
	return out
}
