// Package telemetry implements the in-process measurement components:
// HDR-histogram latency percentiles, per-scenario throughput, error
// categorization, the memory guard, and the connection-pool-reuse
// inferencer. Each component is independent and safe for concurrent use
// by many goroutines.
package telemetry
