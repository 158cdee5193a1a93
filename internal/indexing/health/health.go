// Package health provides wallet sync health monitoring and status reporting.
package health

import "time"

// SystemStatus represents the overall health state of the synchronizer.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// Transition is a recorded sync status change.
type Transition struct {
	From   string    `json:"from"`
	To     string    `json:"to"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// SyncHealth contains health data for the wallet synchronizer.
type SyncHealth struct {
	Status          SystemStatus `json:"status"`
	SyncStatus      string       `json:"sync_status"`
	Description     string       `json:"description"`
	LocalHeight     uint64       `json:"local_height"`
	ChainHeight     uint64       `json:"chain_height"`
	BlockLag        uint64       `json:"block_lag"`
	Connected       bool         `json:"connected"`
	Reconnects      int          `json:"reconnects"`
	RPCErrorRate    float64      `json:"rpc_error_rate"`
	PendingBlocks   int          `json:"pending_blocks"`
	BlocksPerSecond float64      `json:"blocks_per_second"`
	HeightAnomalies int          `json:"height_anomalies"`
	Balance         string       `json:"aggregate_balance"`
	Transitions     []Transition `json:"transitions,omitempty"`
}
