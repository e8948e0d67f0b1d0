package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth
	ChunkdAPIKey string

	// Downstream delivery (optional)
	SinkURL    string
	SinkAPIKey string

	// Worker pool
	WorkerCount        int
	MaxQueueSize       int
	MaxConcurrentPages int

	// Upload limits
	MaxUploadBytes int64

	// Chunking defaults
	DefaultTargetSize  int
	DefaultMinSize     int
	DefaultMaxSize     int
	MergingEnabled     bool
	AllowOversizeMerge bool

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		ChunkdAPIKey: os.Getenv("CHUNKD_API_KEY"),

		SinkURL:    os.Getenv("SINK_URL"),
		SinkAPIKey: os.Getenv("SINK_API_KEY"),

		WorkerCount:        envInt("WORKER_COUNT", 4),
		MaxQueueSize:       envInt("MAX_QUEUE_SIZE", 100),
		MaxConcurrentPages: envInt("MAX_CONCURRENT_PAGES", 8),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		DefaultTargetSize:  envInt("DEFAULT_TARGET_SIZE", 1200),
		DefaultMinSize:     envInt("DEFAULT_MIN_SIZE", 200),
		DefaultMaxSize:     envInt("DEFAULT_MAX_SIZE", 2000),
		MergingEnabled:     envBool("MERGING_ENABLED", true),
		AllowOversizeMerge: envBool("ALLOW_OVERSIZE_MERGE", true),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentPages <= 0 {
		cfg.MaxConcurrentPages = 8
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.DefaultTargetSize <= 0 {
		cfg.DefaultTargetSize = 1200
	}
	if cfg.DefaultMinSize <= 0 {
		cfg.DefaultMinSize = 200
	}
	if cfg.DefaultMaxSize <= cfg.DefaultTargetSize {
		cfg.DefaultMaxSize = cfg.DefaultTargetSize + cfg.DefaultTargetSize/2
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.ChunkdAPIKey == "" {
		return fmt.Errorf("CHUNKD_API_KEY is required")
	}
	if c.DefaultMinSize >= c.DefaultMaxSize {
		return fmt.Errorf("DEFAULT_MIN_SIZE (%d) must be below DEFAULT_MAX_SIZE (%d)", c.DefaultMinSize, c.DefaultMaxSize)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
