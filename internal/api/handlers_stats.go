package api

import (
	"net/http"
)

func (s *Server) handleAgentStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Stats == nil {
		jsonError(w, "agent stats unavailable", http.StatusServiceUnavailable)
		return
	}
	resp := map[string]any{
		"agent_id": s.cfg.WXOAgentID,
		"stats":    s.deps.Stats.Snapshot(),
	}
	if s.deps.Jobs != nil {
		resp["queue_depth"] = s.deps.Jobs.QueueDepth()
	}
	writeJSON(w, http.StatusOK, resp)
}
