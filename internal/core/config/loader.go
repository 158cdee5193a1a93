package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

var (
	// ErrNoAddresses is returned when the wallet has nothing to watch.
	ErrNoAddresses = errors.New("wallet.addresses must not be empty")

	// ErrNoNodeURL is returned when the remote node is not configured.
	ErrNoNodeURL = errors.New("node.url is required")
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Sync.RetryDelay == 0 {
		c.Sync.RetryDelay = 5 * time.Second
	}
	if c.Sync.PersistInterval == 0 {
		c.Sync.PersistInterval = 5 * time.Second
	}
	if c.Sync.BalanceConcurrency <= 0 {
		c.Sync.BalanceConcurrency = 8
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverBolt
	}
	if c.Storage.Driver == DriverBolt && c.Storage.Path == "" {
		c.Storage.Path = "walletsync.db"
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "walletsync:updates"
	}
	c.Node.ApplyDefaults()
}

// Validate checks the settings required to run the synchronizer.
func (c *AppConfig) Validate() error {
	if c.Node.URL == "" {
		return ErrNoNodeURL
	}
	if len(c.Wallet.Addresses) == 0 {
		return ErrNoAddresses
	}
	for i, a := range c.Wallet.Addresses {
		if a.Hash == "" {
			return fmt.Errorf("wallet.addresses[%d]: hash is required", i)
		}
	}
	switch c.Storage.Driver {
	case DriverMemory, DriverBolt:
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("storage driver postgres requires database.url")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}
