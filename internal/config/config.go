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
	DocmarkAPIKey string

	// Claude vision analysis
	AnthropicAPIKey string
	AnthropicModel  string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Rasterization
	RenderDPI     int
	VisionEnabled bool

	// Chunk budgets, in estimated tokens
	ChunkTargetTokens  int
	ChunkHardMaxTokens int
	TokensPerImage     int

	// Analysis behavior
	RulesFile        string
	DedupCellSize    float64
	HighTrustExempt  bool
	CarryContext     bool
	MaxChunkAttempts int
	ChunkBaseTimeout time.Duration
	HighlightAlpha   float64
	HighlightBorder  bool

	// Persistence
	DataDir string

	// Job state
	JobTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		DocmarkAPIKey: os.Getenv("DOCMARK_API_KEY"),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 50),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		RenderDPI:     envInt("RENDER_DPI", 300),
		VisionEnabled: envBool("VISION_ENABLED", true),

		ChunkTargetTokens:  envInt("CHUNK_TARGET_TOKENS", 8000),
		ChunkHardMaxTokens: envInt("CHUNK_HARD_MAX_TOKENS", 12000),
		TokensPerImage:     envInt("TOKENS_PER_IMAGE", 1200),

		RulesFile:        os.Getenv("RULES_FILE"),
		DedupCellSize:    envFloat("DEDUP_CELL_SIZE", 10),
		HighTrustExempt:  envBool("HIGH_TRUST_EXEMPT", true),
		CarryContext:     envBool("CARRY_CONTEXT", true),
		MaxChunkAttempts: envInt("MAX_CHUNK_ATTEMPTS", 3),
		ChunkBaseTimeout: envDuration("CHUNK_BASE_TIMEOUT", 2*time.Minute),
		HighlightAlpha:   envFloat("HIGHLIGHT_ALPHA", 0.3),
		HighlightBorder:  envBool("HIGHLIGHT_BORDER", true),

		DataDir: envOr("DATA_DIR", "./data"),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.RenderDPI <= 0 {
		cfg.RenderDPI = 300
	}
	if cfg.ChunkTargetTokens <= 0 {
		cfg.ChunkTargetTokens = 8000
	}
	if cfg.ChunkHardMaxTokens < cfg.ChunkTargetTokens {
		cfg.ChunkHardMaxTokens = cfg.ChunkTargetTokens
	}
	if cfg.TokensPerImage <= 0 {
		cfg.TokensPerImage = 1200
	}
	if cfg.DedupCellSize <= 0 {
		cfg.DedupCellSize = 10
	}
	if cfg.MaxChunkAttempts <= 0 {
		cfg.MaxChunkAttempts = 3
	}
	if cfg.ChunkBaseTimeout <= 0 {
		cfg.ChunkBaseTimeout = 2 * time.Minute
	}
	if cfg.HighlightAlpha <= 0 || cfg.HighlightAlpha > 1 {
		cfg.HighlightAlpha = 0.3
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.DocmarkAPIKey == "" {
		return fmt.Errorf("DOCMARK_API_KEY is required")
	}
	if c.VisionEnabled && c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when vision analysis is enabled")
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

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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
