package node

import "time"

// Config holds remote node connection settings.
type Config struct {
	URL            string          `yaml:"url"`
	RequestTimeout time.Duration   `yaml:"request_timeout"`
	Reconnect      ReconnectConfig `yaml:"reconnect"`
}

// ReconnectConfig defines reconnect backoff behavior.
type ReconnectConfig struct {
	InitialDelay    time.Duration `yaml:"initial_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	BackoffMultiple float64       `yaml:"backoff_multiple"`
}

// DefaultReconnectConfig provides sensible defaults.
var DefaultReconnectConfig = ReconnectConfig{
	InitialDelay:    1 * time.Second,
	MaxDelay:        60 * time.Second,
	BackoffMultiple: 2.0,
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.Reconnect.InitialDelay == 0 {
		c.Reconnect.InitialDelay = DefaultReconnectConfig.InitialDelay
	}
	if c.Reconnect.MaxDelay == 0 {
		c.Reconnect.MaxDelay = DefaultReconnectConfig.MaxDelay
	}
	if c.Reconnect.BackoffMultiple < 1 {
		c.Reconnect.BackoffMultiple = DefaultReconnectConfig.BackoffMultiple
	}
}
