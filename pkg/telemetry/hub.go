package telemetry

import "time"

// Hub bundles the telemetry singletons (percentiles, throughput, pool
// stats, memory guard) behind one read-only handle, constructed once at
// process start and shared by every executor/worker goroutine. Interior
// mutation goes through each component's own per-label locks; the Hub
// value itself is never reassigned.
type Hub struct {
	Percentiles *PercentileTracker
	Throughput  *ThroughputTracker
	Pool        *PoolStats
	Guard       *MemGuard
	Outcomes    *OutcomeTracker
	CPU         *CPUSampler
}

// NewHub constructs a Hub from the given configuration, starting the
// memory guard's and CPU sampler's background loops immediately.
func NewHub(maxHistogramLabels int, memCfg MemGuardConfig, poolCfg PoolConfig) *Hub {
	percentiles := NewPercentileTracker(maxHistogramLabels)
	guard := NewMemGuard(memCfg, percentiles)
	guard.Start()

	cpu := NewCPUSampler()
	cpu.Start()

	return &Hub{
		Percentiles: percentiles,
		Throughput:  NewThroughputTracker(),
		Pool:        NewPoolStats(poolCfg),
		Guard:       guard,
		Outcomes:    NewOutcomeTracker(),
		CPU:         cpu,
	}
}

// RecordRequest records one completed request's outcome against every
// relevant tracker: the label's latency histogram, the scenario's
// throughput counter, and the connection-pool-reuse inferencer.
func (h *Hub) RecordRequest(label, scenario string, latency time.Duration) {
	h.Percentiles.Record(label, latency)
	h.Throughput.Increment(scenario)
	h.Pool.Observe(latency)
}

// Stop tears down the Hub's background goroutines.
func (h *Hub) Stop() {
	h.Guard.Stop()
	h.CPU.Stop()
}
