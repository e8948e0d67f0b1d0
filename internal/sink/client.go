// Package sink delivers finished chunks to a downstream indexing
// endpoint over HTTP.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dgallion1/chunkd/internal/chunker"
	"github.com/dgallion1/chunkd/internal/section"
)

// Client communicates with the downstream chunk index API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// RetryableError marks a delivery failure worth retrying: network
// errors and 5xx responses.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// batchRequest is the body for POST /api/v1/chunks.
type batchRequest struct {
	SourceID string                `json:"source_id"`
	Chunks   []section.Chunk       `json:"chunks"`
	Stats    chunker.StatsSnapshot `json:"stats"`
}

// PushChunks delivers a document's final chunk list plus its run
// statistics downstream.
func (c *Client) PushChunks(ctx context.Context, sourceID string, chunks []section.Chunk, stats chunker.StatsSnapshot) error {
	body, err := json.Marshal(batchRequest{
		SourceID: sourceID,
		Chunks:   chunks,
		Stats:    stats,
	})
	if err != nil {
		return fmt.Errorf("marshal chunk batch: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/chunks", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &RetryableError{Err: fmt.Errorf("push chunks: %w", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusAccepted:
		return nil
	case resp.StatusCode >= 500:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &RetryableError{Err: fmt.Errorf("push chunks %s: status %d: %s", sourceID, resp.StatusCode, string(respBody))}
	default:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("push chunks %s: status %d: %s", sourceID, resp.StatusCode, string(respBody))
	}
}

// Close releases any resources (currently a no-op).
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
