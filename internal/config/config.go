// Package config loads service configuration from an optional
// config.yaml overlaid by environment variables. Env always wins.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Model provider
	OpenAIAPIKey  string
	OpenAIBaseURL string
	ChatModel     string
	EmbedModel    string

	// Generation
	MaxWorkers          int
	SimilarityThreshold float64
	SemanticOutline     bool

	// Storage roots
	DatabasePath string
	UploadRoot   string
	VectorRoot   string
	ExportRoot   string

	// Upload limits
	MaxUploadBytes int64

	// Task state
	TaskTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

// fileConfig mirrors the yaml layout; only fields present in the file
// override compiled defaults, and env still overrides both.
type fileConfig struct {
	Port                string  `yaml:"port"`
	APIKey              string  `yaml:"api_key"`
	OpenAIAPIKey        string  `yaml:"openai_api_key"`
	OpenAIBaseURL       string  `yaml:"openai_base_url"`
	ChatModel           string  `yaml:"chat_model"`
	EmbedModel          string  `yaml:"embed_model"`
	MaxWorkers          int     `yaml:"max_workers"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	SemanticOutline     *bool   `yaml:"semantic_outline"`
	DatabasePath        string  `yaml:"database_path"`
	UploadRoot          string  `yaml:"upload_root"`
	VectorRoot          string  `yaml:"vector_root"`
	ExportRoot          string  `yaml:"export_root"`
}

// Load resolves configuration: defaults, then config.yaml (path from
// AUTONOTE_CONFIG, default ./config.yaml), then environment.
func Load() Config {
	cfg := Config{
		Port:                 "8090",
		ChatModel:            "gpt-4o-mini",
		EmbedModel:           "text-embedding-3-small",
		MaxWorkers:           3,
		SimilarityThreshold:  0.90,
		SemanticOutline:      true,
		DatabasePath:         "db/autonote.db",
		UploadRoot:           "uploads",
		VectorRoot:           "vectors",
		ExportRoot:           "exports",
		MaxUploadBytes:       52428800, // 50MB
		TaskTTL:              1 * time.Hour,
		PDFFallbackPdftotext: true,
	}

	applyFile(&cfg, envOr("AUTONOTE_CONFIG", "config.yaml"))

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("AUTONOTE_API_KEY", cfg.APIKey)
	cfg.OpenAIAPIKey = envOr("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = envOr("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.ChatModel = envOr("CHAT_MODEL", cfg.ChatModel)
	cfg.EmbedModel = envOr("EMBED_MODEL", cfg.EmbedModel)
	cfg.MaxWorkers = envInt("MAX_WORKERS", cfg.MaxWorkers)
	cfg.SimilarityThreshold = envFloat("SIMILARITY_THRESHOLD", cfg.SimilarityThreshold)
	cfg.SemanticOutline = envBool("SEMANTIC_OUTLINE", cfg.SemanticOutline)
	cfg.DatabasePath = envOr("DATABASE_PATH", cfg.DatabasePath)
	cfg.UploadRoot = envOr("UPLOAD_ROOT", cfg.UploadRoot)
	cfg.VectorRoot = envOr("VECTOR_ROOT", cfg.VectorRoot)
	cfg.ExportRoot = envOr("EXPORT_ROOT", cfg.ExportRoot)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.TaskTTL = envDuration("TASK_TTL", cfg.TaskTTL)
	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)

	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 3
	}
	if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold > 1 {
		cfg.SimilarityThreshold = 0.90
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.TaskTTL <= 0 {
		cfg.TaskTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("AUTONOTE_API_KEY is required")
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	return nil
}

func applyFile(cfg *Config, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return
	}
	if fc.Port != "" {
		cfg.Port = fc.Port
	}
	if fc.APIKey != "" {
		cfg.APIKey = fc.APIKey
	}
	if fc.OpenAIAPIKey != "" {
		cfg.OpenAIAPIKey = fc.OpenAIAPIKey
	}
	if fc.OpenAIBaseURL != "" {
		cfg.OpenAIBaseURL = fc.OpenAIBaseURL
	}
	if fc.ChatModel != "" {
		cfg.ChatModel = fc.ChatModel
	}
	if fc.EmbedModel != "" {
		cfg.EmbedModel = fc.EmbedModel
	}
	if fc.MaxWorkers > 0 {
		cfg.MaxWorkers = fc.MaxWorkers
	}
	if fc.SimilarityThreshold > 0 {
		cfg.SimilarityThreshold = fc.SimilarityThreshold
	}
	if fc.SemanticOutline != nil {
		cfg.SemanticOutline = *fc.SemanticOutline
	}
	if fc.DatabasePath != "" {
		cfg.DatabasePath = fc.DatabasePath
	}
	if fc.UploadRoot != "" {
		cfg.UploadRoot = fc.UploadRoot
	}
	if fc.VectorRoot != "" {
		cfg.VectorRoot = fc.VectorRoot
	}
	if fc.ExportRoot != "" {
		cfg.ExportRoot = fc.ExportRoot
	}
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
