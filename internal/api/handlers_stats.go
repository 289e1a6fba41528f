package api

import (
	"encoding/json"
	"net/http"
)

// handleLLMStats returns backend call latency aggregates.
func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	snap := s.stats.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"model": s.engine.Model(),
		"state": s.engine.State().String(),
		"calls": snap,
	})
}
