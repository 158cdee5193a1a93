package node

import (
	"sync"
	"time"
)

// HealthStatus summarizes the node connection.
type HealthStatus struct {
	Connected     bool          `json:"connected"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"error_rate"`
	Reconnects    int           `json:"reconnects"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at"`
}

// healthTracker records request outcomes.
type healthTracker struct {
	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int
	connects     int
}

func (h *healthTracker) get() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.health
}

func (h *healthTracker) setConnected(connected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if connected && !h.health.Connected {
		h.connects++
		if h.connects > 1 {
			h.health.Reconnects = h.connects - 1
		}
	}
	h.health.Connected = connected
}

func (h *healthTracker) recordSuccess(latency time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.successCount++
	h.requestCount++
	h.totalLatency += latency
	h.health.LastSuccessAt = time.Now()

	if h.requestCount > 0 {
		h.health.ErrorRate = float64(h.failureCount) / float64(h.requestCount)
	}
	if h.successCount > 0 {
		h.health.Latency = h.totalLatency / time.Duration(h.successCount)
	}
}

func (h *healthTracker) recordFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.failureCount++
	h.requestCount++
	h.health.LastFailureAt = time.Now()

	if h.requestCount > 0 {
		h.health.ErrorRate = float64(h.failureCount) / float64(h.requestCount)
	}
}
