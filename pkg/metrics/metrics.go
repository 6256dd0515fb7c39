package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestsTotal counts every completed HTTP request issued by the
	// worker pool, labeled by scenario and outcome.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loadtest_requests_total",
			Help: "Total number of requests issued, by scenario and outcome",
		},
		[]string{"scenario", "outcome"},
	)

	// StatusCodes counts responses by exact HTTP status code.
	StatusCodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loadtest_status_codes",
			Help: "Total number of responses by status code",
		},
		[]string{"code"},
	)

	// ConcurrentRequests is the current number of in-flight requests.
	ConcurrentRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "loadtest_concurrent_requests",
			Help: "Current number of in-flight requests",
		},
	)

	// ScenarioRequestsTotal counts scenario executions by result.
	ScenarioRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenario_requests_total",
			Help: "Total number of scenario executions by result",
		},
		[]string{"scenario", "result"},
	)

	// ScenarioAssertionsTotal counts assertion evaluations by result.
	ScenarioAssertionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenario_assertions_total",
			Help: "Total number of assertion evaluations by kind and result",
		},
		[]string{"kind", "result"},
	)

	// ScenarioThroughputRps is the last-computed per-scenario RPS.
	ScenarioThroughputRps = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scenario_throughput_rps",
			Help: "Observed requests-per-second by scenario",
		},
		[]string{"scenario"},
	)

	// RequestErrorsByCategory counts classified errors.
	RequestErrorsByCategory = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "request_errors_by_category",
			Help: "Total number of errors by fixed category",
		},
		[]string{"category"},
	)

	// ConnectionPoolReuseTotal counts requests classified as likely
	// connection reuse vs likely new, by the pool-stats inferencer.
	ConnectionPoolReuseTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connection_pool_requests_total",
			Help: "Total number of requests classified by connection reuse likelihood",
		},
		[]string{"reuse"},
	)

	// ConnectionPoolReuseRate is the current rolling reuse rate.
	ConnectionPoolReuseRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "connection_pool_reuse_rate",
			Help: "Fraction of requests classified as likely reused connections",
		},
	)

	// MemoryRssBytes is the last-sampled process resident set size.
	MemoryRssBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "memory_guard_rss_bytes",
			Help: "Last sampled process resident set size in bytes",
		},
	)

	// MemoryLimitBytes is the detected memory limit the guard compares
	// RSS against (cgroup limit or system total).
	MemoryLimitBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "memory_guard_limit_bytes",
			Help: "Detected memory limit used by the memory guard",
		},
	)

	// HistogramMemoryEstimateBytes is the percentile tracker's estimated
	// memory footprint.
	HistogramMemoryEstimateBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "memory_guard_histogram_estimate_bytes",
			Help: "Estimated memory used by active percentile histograms",
		},
	)

	// RaftLeader reports whether this node currently holds leadership.
	RaftLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cluster_raft_is_leader",
			Help: "Whether this node is the Raft leader (1 = leader, 0 = follower)",
		},
	)

	// RaftAppliedIndex is the last applied Raft log index.
	RaftAppliedIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cluster_raft_applied_index",
			Help: "Last applied Raft log index",
		},
	)

	// APIRequestsTotal counts control-plane HTTP requests.
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of control-plane API requests by method and status",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration measures control-plane request latency.
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Control-plane API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	// ConsensusApplyDuration measures time to apply a committed
	// ConfigCommand through the state machine.
	ConsensusApplyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cluster_config_apply_duration_seconds",
			Help:    "Time taken to apply a committed config through the state machine",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		StatusCodes,
		ConcurrentRequests,
		ScenarioRequestsTotal,
		ScenarioAssertionsTotal,
		ScenarioThroughputRps,
		RequestErrorsByCategory,
		ConnectionPoolReuseTotal,
		ConnectionPoolReuseRate,
		MemoryRssBytes,
		MemoryLimitBytes,
		HistogramMemoryEstimateBytes,
		RaftLeader,
		RaftAppliedIndex,
		APIRequestsTotal,
		APIRequestDuration,
		ConsensusApplyDuration,
	)
}

// Registry exposes the default Prometheus registry for an external
// collaborator to mount a /metrics handler; the core does not import
// promhttp itself.
func Registry() *prometheus.Registry {
	return prometheus.DefaultRegisterer.(*prometheus.Registry)
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
