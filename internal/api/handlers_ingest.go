package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/chunkd/internal/chunker"
	"github.com/dgallion1/chunkd/internal/pagesource"
	"github.com/dgallion1/chunkd/internal/pipeline"
	"github.com/google/uuid"
)

// handleIngest accepts a multipart document upload, converts it into
// pages via the matching page source, and submits a chunking job.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !pagesource.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	// Read file data.
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	parser, err := pagesource.ForFile(filename)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if pdfParser, ok := parser.(*pagesource.PDFParser); ok {
		pdfParser.FallbackPdftotext = s.cfg.PDFFallbackPdftotext
	}

	doc, err := parser.Parse(bytes.NewReader(data), filename)
	if err != nil {
		jsonError(w, "parse failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if len(doc.Pages) == 0 {
		jsonError(w, "no extractable content", http.StatusUnprocessableEntity)
		return
	}

	sourceID := r.FormValue("source_id")
	if sourceID == "" {
		sourceID = uuid.NewString()
	}

	cfg := s.orchestrator.ChunkConfig(func(c *chunker.Config) {
		if n := formInt(r, "target_size"); n > 0 {
			c.TargetSize = n
		}
		if n := formInt(r, "min_size"); n > 0 {
			c.MinSize = n
		}
		if n := formInt(r, "max_size"); n > 0 {
			c.MaxSize = n
		}
		if v := r.FormValue("merging"); v != "" {
			c.Merging = v == "true"
		}
	})

	pages := make([]chunker.PageInput, 0, len(doc.Pages))
	for _, p := range doc.Pages {
		pages = append(pages, chunker.PageInput{
			SourceID:   sourceID,
			PageNumber: p.Number,
			Text:       p.Text,
		})
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
		"source_id": sourceID,
		"title":     doc.Title,
		"pages":     len(doc.Pages),
		"status":    job.Status,
		"poll_url":  fmt.Sprintf("/api/chunk/%s/status", job.ID),
	})
}

func formInt(r *http.Request, key string) int {
	v := r.FormValue(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
