package api

import (
	"io"
	"net/http"

	"github.com/cuemby/pulsewave/pkg/config"
)

// handleConfig implements POST /config.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	s.applyConfig(w, r, false)
}

// handleClusterConfig implements POST /cluster/config: identical to
// /config, but only meaningful (and only registered) in cluster mode.
func (s *Server) handleClusterConfig(w http.ResponseWriter, r *http.Request) {
	s.applyConfig(w, r, true)
}

// applyConfig runs the §4.19 apply flow. In cluster mode a follower
// replies 421 with a leader hint; the leader proposes the document
// through consensus and waits for it to commit before replying. In
// non-cluster mode the document is validated and applied directly.
func (s *Server) applyConfig(w http.ResponseWriter, r *http.Request, clusterRoute bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "reading request body: " + err.Error()})
		return
	}
	defer r.Body.Close()

	yaml := string(body)

	cfg, err := config.Parse(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "parsing config: " + err.Error()})
		return
	}
	if err := config.Validate(cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validating config: " + err.Error()})
		return
	}

	if s.node == nil {
		if clusterRoute {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "cluster mode is not enabled on this node"})
			return
		}
		s.pool.ApplyConfig(cfg, yaml)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if !s.node.IsLeader() {
		hint := s.node.LeaderAddr()
		writeJSON(w, http.StatusMisdirectedRequest, errorBody{
			Error:      "not the leader",
			LeaderHint: hint,
		})
		return
	}

	if err := s.node.ProposeConfig(yaml); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "proposing config: " + err.Error()})
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

type errorBody struct {
	Error      string `json:"error"`
	LeaderHint string `json:"leader_hint,omitempty"`
}
