// Package config provides configuration loading for the CLI: a JSON file,
// overridden by environment variables, overridden by flags at the command
// layer.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds every tunable of a matching run. All fields are optional in
// the file; missing values fall back to defaults or environment variables.
type Config struct {
	// AI
	GeminiAPIKey string `json:"gemini_api_key,omitempty"`

	// Vector backend
	QdrantHost     string `json:"qdrant_host,omitempty"`
	QdrantPort     int    `json:"qdrant_port,omitempty"`
	QdrantUseTLS   bool   `json:"qdrant_use_tls,omitempty"`
	CollectionName string `json:"collection_name,omitempty"`

	// Embeddings
	EmbeddingModel string `json:"embedding_model,omitempty"`
	EmbeddingCache string `json:"embedding_cache,omitempty"`

	// Matching behavior
	MaxExperiences    int     `json:"max_experiences,omitempty"`
	MinRelevanceScore float64 `json:"min_relevance_score,omitempty"`
	MaxQueries        int     `json:"max_queries,omitempty"`
	RefinementType    string  `json:"refinement_type,omitempty"`
	DisableRefinement bool    `json:"disable_refinement,omitempty"`

	// Retry policy for AI calls
	RetryMaxAttempts    int           `json:"retry_max_attempts,omitempty"`
	RetryInitialBackoff time.Duration `json:"retry_initial_backoff,omitempty"`
	RetryMaxBackoff     time.Duration `json:"retry_max_backoff,omitempty"`

	// Fetching
	UseBrowser bool `json:"use_browser,omitempty"`

	// Persistence
	DatabaseURL string `json:"database_url,omitempty"`

	// Output
	Verbose bool `json:"verbose,omitempty"`
	LogJSON bool `json:"log_json,omitempty"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		QdrantHost:          "localhost",
		QdrantPort:          6334,
		CollectionName:      "experiences",
		EmbeddingModel:      "BAAI/bge-small-en-v1.5",
		MaxExperiences:      10,
		MinRelevanceScore:   0.3,
		MaxQueries:          8,
		RefinementType:      "job_specific",
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Second,
		RetryMaxBackoff:     10 * time.Second,
	}
}

// LoadConfig loads configuration from a JSON file, layered over the defaults
// and under the environment.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if !filepath.IsAbs(path) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get current directory: %w", err)
			}
			path = filepath.Join(cwd, path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides file values from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.GeminiAPIKey = v
	}
	if v := os.Getenv("QDRANT_HOST"); v != "" {
		c.QdrantHost = v
	}
	if v := os.Getenv("QDRANT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.QdrantPort = port
		}
	}
	if v := os.Getenv("QDRANT_COLLECTION"); v != "" {
		c.CollectionName = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		c.EmbeddingModel = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
}

// Validate checks numeric ranges and enum fields.
func (c *Config) Validate() error {
	if c.MaxExperiences < 0 {
		return fmt.Errorf("config error: 'max_experiences' must be non-negative")
	}
	if c.MinRelevanceScore < 0 || c.MinRelevanceScore > 1 {
		return fmt.Errorf("config error: 'min_relevance_score' must be within [0,1]")
	}
	if c.MaxQueries < 0 {
		return fmt.Errorf("config error: 'max_queries' must be non-negative")
	}
	switch c.RefinementType {
	case "", "general", "job_specific", "skills_focused":
	default:
		return fmt.Errorf("config error: unknown 'refinement_type' %q", c.RefinementType)
	}
	if c.QdrantPort <= 0 || c.QdrantPort > 65535 {
		return fmt.Errorf("config error: 'qdrant_port' out of range")
	}
	return nil
}
