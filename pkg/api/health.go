package api

import (
	"net/http"
	"time"
)

// HealthSnapshot is the JSON body of GET /health, per §4.19.
type HealthSnapshot struct {
	NodeID              string  `json:"node_id"`
	Region              string  `json:"region"`
	NodeState           string  `json:"node_state"`
	Rps                 float64 `json:"rps"`
	ErrorRatePct        float64 `json:"error_rate_pct"`
	Workers             int     `json:"workers"`
	MemoryMB            float64 `json:"memory_mb"`
	TotalMemoryMB       float64 `json:"total_memory_mb"`
	CPUPct              float64 `json:"cpu_pct"`
	TimeRemainingSecs   float64 `json:"time_remaining_secs"`
	TestStartedAtUnix   int64   `json:"test_started_at_unix"`
	TestDurationSecs    float64 `json:"test_duration_secs"`
	TestPercentComplete float64 `json:"test_percent_complete"`
	CurrentYAML         string  `json:"current_yaml"`
}

// handleHealth implements GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) snapshot() HealthSnapshot {
	cfg := s.pool.Config()
	hub := s.pool.Hub()
	elapsed := s.pool.Elapsed()

	const bytesPerMB = 1024 * 1024

	snap := HealthSnapshot{
		NodeID:        s.nodeID,
		Region:        s.region,
		NodeState:     s.pool.State().String(),
		Rps:           hub.Throughput.TotalRps(),
		ErrorRatePct:  hub.Outcomes.ErrorRatePct(),
		Workers:       cfg.Run.Workers,
		MemoryMB:      float64(hub.Guard.RSSBytes()) / bytesPerMB,
		TotalMemoryMB: float64(hub.Guard.LimitBytes()) / bytesPerMB,
		CPUPct:        hub.CPU.Percent(),
		CurrentYAML:   s.pool.RawYAML(),
	}

	if !s.pool.StartedAt().IsZero() {
		snap.TestStartedAtUnix = s.pool.StartedAt().Unix()
	}

	if cfg.Run.Duration > 0 {
		snap.TestDurationSecs = cfg.Run.Duration.Seconds()
		remaining := cfg.Run.Duration - elapsed
		if remaining < 0 {
			remaining = 0
		}
		snap.TimeRemainingSecs = remaining.Seconds()

		pct := float64(elapsed) / float64(cfg.Run.Duration) * 100
		if pct > 100 {
			pct = 100
		}
		snap.TestPercentComplete = pct
	}

	return snap
}

// handleHealthCluster implements GET /health/cluster: a liveness probe
// for directory-service health checks, always 200 once the process is
// serving requests, regardless of the node's cluster or pool state.
func (s *Server) handleHealthCluster(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
