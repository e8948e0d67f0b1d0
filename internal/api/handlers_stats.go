package api

import (
	"encoding/json"
	"net/http"
)

// handleStats reports process-wide chunking totals plus queue depth.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"chunking":    s.orchestrator.Stats(),
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
