/*
Package metrics defines and registers pulsewave's Prometheus collectors.

Metric Categories:

  - Requests: loadtest_requests_total, loadtest_status_codes, loadtest_concurrent_requests
  - Scenarios: scenario_requests_total, scenario_assertions_total, scenario_throughput_rps
  - Errors: request_errors_by_category
  - Connection pool: connection_pool_requests_total, connection_pool_reuse_rate
  - Memory guard: memory_guard_rss_bytes, memory_guard_limit_bytes, memory_guard_histogram_estimate_bytes
  - Cluster: cluster_raft_is_leader, cluster_raft_applied_index, cluster_config_apply_duration_seconds
  - Control plane: api_requests_total, api_request_duration_seconds

All collectors register against the default Prometheus registry at
package init, mirroring the teacher's init()+MustRegister pattern.
Mounting the /metrics HTTP route with promhttp is left to the CLI, an
out-of-scope collaborator; Registry() exposes the registerer for it.
*/
package metrics
