package api

import (
	"encoding/json"
	"net/http"
)

// JoinRequest is the body a node sends the cluster leader to ask to be
// added as a Raft voter, per §4.17's "peer transport" admin surface.
type JoinRequest struct {
	NodeID  string `json:"node_id"`
	Address string `json:"address"`
}

// handleClusterJoin implements POST /cluster/join. Only meaningful (and
// only registered) in cluster mode; mirrors /config's follower/leader
// branching since only the leader may call raft.AddVoter.
func (s *Server) handleClusterJoin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "decoding join request: " + err.Error()})
		return
	}
	if req.NodeID == "" || req.Address == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "node_id and address are required"})
		return
	}

	if !s.node.IsLeader() {
		writeJSON(w, http.StatusMisdirectedRequest, errorBody{
			Error:      "not the leader",
			LeaderHint: s.node.LeaderAddr(),
		})
		return
	}

	if err := s.node.AddVoter(req.NodeID, req.Address); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "adding voter: " + err.Error()})
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
