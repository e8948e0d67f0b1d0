package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgallion1/chunkd/internal/config"
	"github.com/dgallion1/chunkd/internal/pipeline"
)

const testAPIKey = "test-key"

func testServer(t *testing.T) *Server {
	return testServerWith(t, nil)
}

func testServerWith(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Config{
		ChunkdAPIKey:       testAPIKey,
		WorkerCount:        1,
		MaxQueueSize:       8,
		MaxConcurrentPages: 2,
		MaxUploadBytes:     10 << 20,
		DefaultTargetSize:  200,
		DefaultMinSize:     20,
		DefaultMaxSize:     600,
		MergingEnabled:     true,
		AllowOversizeMerge: true,
		JobTTL:             time.Hour,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := pipeline.NewOrchestrator(cfg, nil, log)
	orch.Start(t.Context())
	t.Cleanup(orch.Stop)
	return NewServer(orch, log, cfg)
}

func authedRequest(method, path string, body []byte) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealth_NoAuthRequired(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuth_Rejections(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/api/stats", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without header, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with bad key, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected json error payload, got content type %q", ct)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer ")
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with empty token, got %d", rec.Code)
	}
}

func TestChunkSync_ReturnsChunks(t *testing.T) {
	s := testServer(t)
	body, _ := json.Marshal(map[string]any{
		"source_id": "doc-1",
		"pages": []map[string]any{
			{"page_number": 1, "text": "# Title\n\nA complete paragraph about nothing in particular."},
		},
	})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, authedRequest("POST", "/api/chunk/sync", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		SourceID string `json:"source_id"`
		Chunks   []struct {
			ID          string `json:"id"`
			ContentOnly string `json:"content_only"`
		} `json:"chunks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	if resp.SourceID != "doc-1" {
		t.Errorf("unexpected source id %q", resp.SourceID)
	}
	if len(resp.Chunks) == 0 {
		t.Fatal("expected chunks in the response")
	}
	if resp.Chunks[0].ID == "" {
		t.Error("expected chunk ids populated")
	}
}

func TestChunkSync_ValidationErrors(t *testing.T) {
	s := testServer(t)
	cases := []struct {
		name string
		body string
	}{
		{"no pages", `{"source_id":"x"}`},
		{"bad json", `{`},
		{"min above max", `{"pages":[{"text":"hi"}],"min_size":500,"max_size":100}`},
		{"bad pattern kind", `{"pages":[{"text":"hi"}],"detector_patterns":{"banner":".*"}}`},
		{"bad pattern rule", `{"pages":[{"text":"hi"}],"detector_patterns":{"code":"("}}`},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, authedRequest("POST", "/api/chunk/sync", []byte(c.body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", c.name, rec.Code)
		}
	}
}

func TestChunkSync_CountsTowardProcessStats(t *testing.T) {
	s := testServer(t)
	body, _ := json.Marshal(map[string]any{
		"source_id": "doc-sync",
		"pages": []map[string]any{
			{"page_number": 1, "text": "A paragraph long enough to produce one chunk here."},
		},
	})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, authedRequest("POST", "/api/chunk/sync", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("sync: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, authedRequest("GET", "/api/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", rec.Code)
	}
	var resp struct {
		Chunking struct {
			ChunkSizes struct {
				Count int `json:"count"`
			} `json:"chunk_sizes"`
			SectionCounts map[string]int `json:"section_counts"`
		} `json:"chunking"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid stats json: %v", err)
	}
	if resp.Chunking.ChunkSizes.Count == 0 {
		t.Error("expected the synchronous run's chunks in the process-wide totals")
	}
	if len(resp.Chunking.SectionCounts) == 0 {
		t.Error("expected the synchronous run's sections counted")
	}
}

func TestChunkAsync_Lifecycle(t *testing.T) {
	s := testServer(t)
	body, _ := json.Marshal(map[string]any{
		"source_id": "doc-2",
		"pages": []map[string]any{
			{"page_number": 1, "text": "A paragraph long enough to form one chunk on its own."},
		},
	})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, authedRequest("POST", "/api/chunk", body))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var submitResp struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &submitResp); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	if submitResp.JobID == "" || submitResp.PollURL == "" {
		t.Fatalf("expected job id and poll url, got %+v", submitResp)
	}

	// Poll until the worker finishes.
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec = httptest.NewRecorder()
		s.ServeHTTP(rec, authedRequest("GET", submitResp.PollURL, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status poll: expected 200, got %d", rec.Code)
		}
		var status struct {
			Status string `json:"status"`
		}
		json.Unmarshal(rec.Body.Bytes(), &status)
		if status.Status == string(pipeline.StatusCompleted) {
			break
		}
		if status.Status == string(pipeline.StatusFailed) {
			t.Fatalf("job failed: %s", rec.Body.String())
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not complete in time, last status %q", status.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, authedRequest("GET", "/api/chunk/"+submitResp.JobID+"/result", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("result: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Chunks []json.RawMessage `json:"chunks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid result json: %v", err)
	}
	if len(result.Chunks) == 0 {
		t.Error("expected chunks in the result")
	}
}

func TestChunkStatus_UnknownJob(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, authedRequest("GET", "/api/chunk/nope/status", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestStats_Endpoint(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, authedRequest("GET", "/api/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid stats json: %v", err)
	}
}
