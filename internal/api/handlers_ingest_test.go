package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgallion1/chunkd/internal/config"
)

func multipartUpload(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte(content))
	for k, v := range fields {
		w.WriteField(k, v)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestIngest_TextUpload(t *testing.T) {
	s := testServer(t)
	body, contentType := multipartUpload(t, "report.txt",
		"First page of the report.\fSecond page of the report.",
		map[string]string{"source_id": "upload-1"})

	req := httptest.NewRequest("POST", "/api/ingest", body)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		JobID    string `json:"job_id"`
		SourceID string `json:"source_id"`
		Title    string `json:"title"`
		Pages    int    `json:"pages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	if resp.SourceID != "upload-1" {
		t.Errorf("unexpected source id %q", resp.SourceID)
	}
	if resp.Title != "report" {
		t.Errorf("unexpected title %q", resp.Title)
	}
	if resp.Pages != 2 {
		t.Errorf("expected 2 pages, got %d", resp.Pages)
	}
}

func TestIngest_UnsupportedExtension(t *testing.T) {
	s := testServer(t)
	body, contentType := multipartUpload(t, "binary.exe", "MZ", nil)

	req := httptest.NewRequest("POST", "/api/ingest", body)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestIngest_OversizedUploadRejected(t *testing.T) {
	s := testServerWith(t, func(cfg *config.Config) {
		cfg.MaxUploadBytes = 64
	})
	body, contentType := multipartUpload(t, "big.txt", strings.Repeat("padding text ", 100), nil)

	req := httptest.NewRequest("POST", "/api/ingest", body)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "exceeds max size") {
		t.Errorf("unexpected error body: %s", rec.Body.String())
	}
}

func TestIngest_MissingFile(t *testing.T) {
	s := testServer(t)
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("source_id", "x")
	w.Close()

	req := httptest.NewRequest("POST", "/api/ingest", &buf)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestIngest_EmptyDocument(t *testing.T) {
	s := testServer(t)
	body, contentType := multipartUpload(t, "blank.txt", "   \n\n  ", nil)

	req := httptest.NewRequest("POST", "/api/ingest", body)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"report.txt", "report.txt"},
		{"../../etc/passwd", "passwd"},
		{"dir/file.md", "file.md"},
		{"", "unnamed"},
	}
	for _, c := range cases {
		if got := sanitizeFilename(c.in); got != c.want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", c.in, c.want, got)
		}
	}
}
