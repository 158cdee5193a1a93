package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BlocksApplied tracks blocks applied to the wallet, by source (catchup, pending, live)
	BlocksApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletsync_blocks_applied_total",
			Help: "Total number of blocks applied",
		},
		[]string{"source"},
	)

	// TransactionsMatched tracks transactions that touched the watch set
	TransactionsMatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletsync_transactions_matched_total",
			Help: "Total number of transactions matching watched addresses",
		},
		[]string{"kind"},
	)

	// RPCCallsTotal tracks node RPC calls
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletsync_rpc_calls_total",
			Help: "Total number of node RPC calls",
		},
		[]string{"method"},
	)

	// RPCErrorsTotal tracks node RPC errors
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletsync_rpc_errors_total",
			Help: "Total number of node RPC errors",
		},
		[]string{"method"},
	)

	// RPCLatency tracks node RPC call latency
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "walletsync_rpc_latency_seconds",
			Help:    "Node RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// ChainHeight tracks the remote chain height seen at the last catch-up
	ChainHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "walletsync_chain_height",
			Help: "Latest chain height reported by the node",
		},
	)

	// SyncHeight tracks the last applied block height
	SyncHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "walletsync_sync_height",
			Help: "Last block height applied to the wallet",
		},
	)

	// SyncStatus is 1 for the current status and 0 for the others
	SyncStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "walletsync_status",
			Help: "Current synchronizer status",
		},
		[]string{"status"},
	)

	// PendingBlocks tracks the size of the pending live block queue
	PendingBlocks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "walletsync_pending_blocks",
			Help: "Live blocks buffered while a catch-up is running",
		},
	)

	// CatchUpDuration tracks the wall time of catch-up cycles
	CatchUpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "walletsync_catchup_duration_seconds",
			Help:    "Catch-up cycle duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"result"},
	)

	// CatchUpRetries counts scheduled catch-up retries
	CatchUpRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "walletsync_catchup_retries_total",
			Help: "Total number of scheduled catch-up retries",
		},
	)

	// HeightRegressions counts catch-ups that found the remote height below the local height
	HeightRegressions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "walletsync_height_regressions_total",
			Help: "Total number of catch-ups where the node reported a height below the local height",
		},
	)

	// UpdatesEmitted counts emitted sync updates by emitter
	UpdatesEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletsync_updates_emitted_total",
			Help: "Total number of sync updates emitted",
		},
		[]string{"emitter"},
	)

	// DBConnectionPoolUsage tracks postgres pool usage percentage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "walletsync_db_connection_pool_usage_percent",
			Help: "Percentage of open connections relative to the pool maximum",
		},
	)
)
