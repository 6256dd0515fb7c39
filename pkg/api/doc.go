/*
Package api implements pulsewave's control-plane HTTP API (§4.19).

Unlike the load-generation path, the control plane is a plain net/http
server with no external framework, mirroring the teacher's health-check
server: one *http.ServeMux, one *http.Server with explicit timeouts,
JSON in and out.

# Endpoints

	GET  /health          node state snapshot (rps, error rate, memory,
	                      cpu, elapsed/remaining test time, committed
	                      config)
	POST /config          apply a new YAML config. Non-cluster mode:
	                      validate and apply locally, reply 202. Cluster
	                      mode on a follower: 421 with a leader hint.
	                      Cluster mode on the leader: propose through
	                      consensus, wait for commit, reply 202.
	POST /cluster/config  equivalent to /config, only served in cluster
	                      mode.
	POST /cluster/join    admin call a joining node makes against the
	                      leader to be added as a Raft voter; 421 with a
	                      leader hint when sent to a follower.
	GET  /health/cluster   liveness for directory-service health checks;
	                      always 200 once the process is serving.

Every handler is wrapped by an instrumentation middleware that records
metrics.APIRequestsTotal and metrics.APIRequestDuration.
*/
package api
