package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dgallion1/chunkd/internal/chunker"
	"github.com/dgallion1/chunkd/internal/pipeline"
	"github.com/dgallion1/chunkd/internal/protect"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// chunkRequest is the body for POST /api/chunk and /api/chunk/sync.
// The size and merging fields override the service defaults when set;
// detector_patterns maps protected kinds to replacement rules.
type chunkRequest struct {
	SourceID string     `json:"source_id"`
	Pages    []pageBody `json:"pages"`

	TargetSize         *int              `json:"target_size,omitempty"`
	MinSize            *int              `json:"min_size,omitempty"`
	MaxSize            *int              `json:"max_size,omitempty"`
	Merging            *bool             `json:"merging,omitempty"`
	AllowOversizeMerge *bool             `json:"allow_oversize_merge,omitempty"`
	DetectorPatterns   map[string]string `json:"detector_patterns,omitempty"`
}

type pageBody struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// parseChunkRequest decodes and validates a submission, returning the
// page inputs and the effective chunking configuration.
func (s *Server) parseChunkRequest(r *http.Request) (string, []chunker.PageInput, chunker.Config, error) {
	var req chunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", nil, chunker.Config{}, fmt.Errorf("invalid request body: %w", err)
	}
	if len(req.Pages) == 0 {
		return "", nil, chunker.Config{}, fmt.Errorf("pages are required")
	}
	if req.SourceID == "" {
		req.SourceID = uuid.NewString()
	}

	var patterns []protect.Pattern
	if len(req.DetectorPatterns) > 0 {
		var err error
		patterns, err = protect.CompilePatterns(req.DetectorPatterns)
		if err != nil {
			return "", nil, chunker.Config{}, err
		}
	}

	cfg := s.orchestrator.ChunkConfig(func(c *chunker.Config) {
		if req.TargetSize != nil && *req.TargetSize > 0 {
			c.TargetSize = *req.TargetSize
		}
		if req.MinSize != nil && *req.MinSize > 0 {
			c.MinSize = *req.MinSize
		}
		if req.MaxSize != nil && *req.MaxSize > 0 {
			c.MaxSize = *req.MaxSize
		}
		if req.Merging != nil {
			c.Merging = *req.Merging
		}
		if req.AllowOversizeMerge != nil {
			c.AllowOversizeMerge = *req.AllowOversizeMerge
		}
		if patterns != nil {
			c.Patterns = patterns
		}
	})
	if cfg.MinSize >= cfg.MaxSize {
		return "", nil, chunker.Config{}, fmt.Errorf("min_size (%d) must be below max_size (%d)", cfg.MinSize, cfg.MaxSize)
	}

	pages := make([]chunker.PageInput, 0, len(req.Pages))
	for i, p := range req.Pages {
		number := p.PageNumber
		if number <= 0 {
			number = i + 1
		}
		pages = append(pages, chunker.PageInput{
			SourceID:   req.SourceID,
			PageNumber: number,
			Text:       p.Text,
		})
	}
	return req.SourceID, pages, cfg, nil
}

func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	sourceID, pages, cfg, err := s.parseChunkRequest(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(uuid.NewString(), sourceID, pages, cfg)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":    job.ID,
		"source_id": job.SourceID,
		"status":    job.Status,
		"poll_url":  fmt.Sprintf("/api/chunk/%s/status", job.ID),
	})
}

func (s *Server) handleChunkSync(w http.ResponseWriter, r *http.Request) {
	sourceID, pages, cfg, err := s.parseChunkRequest(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	engine := chunker.NewEngine(cfg, s.log.With("source_id", sourceID))
	chunks := engine.ProcessDocument(pages)
	stats := engine.Stats()
	s.orchestrator.MergeStats(stats)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"source_id": sourceID,
		"chunks":    chunks,
		"stats":     stats,
	})
}

func (s *Server) handleChunkStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

func (s *Server) handleChunkResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	chunks, stats, ok := job.Result()
	if !ok {
		jsonError(w, "result not ready", http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":    job.ID,
		"source_id": job.SourceID,
		"status":    job.Snapshot().Status,
		"chunks":    chunks,
		"stats":     stats,
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
