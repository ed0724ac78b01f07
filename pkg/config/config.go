package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Embedder EmbedderConfig `koanf:"embedder"`
	VectorDB VectorDBConfig `koanf:"vectordb"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Indexer  IndexerConfig  `koanf:"indexer"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	CORSEnabled bool          `koanf:"cors_enabled"`
}

// EmbedderConfig points at the joint image-text embedding model server.
type EmbedderConfig struct {
	Endpoint string        `koanf:"endpoint"`
	Model    string        `koanf:"model"`
	Timeout  time.Duration `koanf:"timeout"`
	// TargetSize is the square resolution images are normalized to before encoding.
	TargetSize int `koanf:"target_size"`
	// CacheSize bounds the LRU cache holding prompt embeddings.
	CacheSize int `koanf:"cache_size"`
}

// VectorDBConfig selects and configures the nearest-neighbor index backend.
type VectorDBConfig struct {
	Provider string        `koanf:"provider"`
	DSN      string        `koanf:"dsn"`
	BaseURL  string        `koanf:"base_url"`
	APIKey   string        `koanf:"api_key"`
	Table    string        `koanf:"table"`
	// Dimension must match the embedding model output; a mismatch is a
	// startup failure, never a per-request one.
	Dimension   int           `koanf:"dimension"`
	Timeout     time.Duration `koanf:"timeout"`
	EnsureIndex bool          `koanf:"ensure_index"`
}

// PipelineConfig carries the retrieval and filtering thresholds.
type PipelineConfig struct {
	Category        string  `koanf:"category"`
	TopKDefault     int     `koanf:"top_k_default"`
	TopKMax         int     `koanf:"top_k_max"`
	OverfetchFactor int     `koanf:"overfetch_factor"`
	HardCap         int     `koanf:"hard_cap"`
	MinSimilarity   float64 `koanf:"min_similarity"`
	SecondaryFloor  float64 `koanf:"secondary_floor"`
	MinMemberScore  float64 `koanf:"min_member_score"`
	MinTypeScore    float64 `koanf:"min_type_score"`
}

// IndexerConfig controls batch ingestion.
type IndexerConfig struct {
	BatchSize       int           `koanf:"batch_size"`
	RetryAttempts   int           `koanf:"retry_attempts"`
	RetryBackoff    time.Duration `koanf:"retry_backoff"`
	RetryMaxBackoff time.Duration `koanf:"retry_max_backoff"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8000,
			Timeout: 30 * time.Second,
		},
		Embedder: EmbedderConfig{
			Endpoint:   "http://localhost:8090",
			Model:      "clip-vit-b-32",
			Timeout:    15 * time.Second,
			TargetSize: 224,
			CacheSize:  512,
		},
		VectorDB: VectorDBConfig{
			Provider:  "memory",
			Table:     "catalog_images",
			Dimension: 512,
			Timeout:   10 * time.Second,
		},
		Pipeline: PipelineConfig{
			Category:        "furniture",
			TopKDefault:     5,
			TopKMax:         20,
			OverfetchFactor: 3,
			HardCap:         50,
			MinSimilarity:   0.55,
			SecondaryFloor:  0.60,
			MinMemberScore:  0.20,
			MinTypeScore:    0.22,
		},
		Indexer: IndexerConfig{
			BatchSize:       32,
			RetryAttempts:   3,
			RetryBackoff:    200 * time.Millisecond,
			RetryMaxBackoff: 2 * time.Second,
		},
	}
}

// Validate rejects configurations that cannot produce a working service.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server port %d out of range", c.Server.Port)
	}
	if strings.TrimSpace(c.Embedder.Endpoint) == "" {
		return fmt.Errorf("config: embedder endpoint is required")
	}
	if c.Embedder.TargetSize <= 0 {
		return fmt.Errorf("config: embedder target_size must be greater than zero")
	}
	if c.VectorDB.Dimension <= 0 {
		return fmt.Errorf("config: vectordb dimension must be greater than zero")
	}
	if c.Pipeline.TopKMax < c.Pipeline.TopKDefault {
		return fmt.Errorf("config: pipeline top_k_max must be >= top_k_default")
	}
	if c.Pipeline.OverfetchFactor < 1 {
		return fmt.Errorf("config: pipeline overfetch_factor must be at least 1")
	}
	if c.Pipeline.HardCap < 1 {
		return fmt.Errorf("config: pipeline hard_cap must be at least 1")
	}
	if c.Pipeline.MinSimilarity < 0 || c.Pipeline.MinSimilarity > 1 {
		return fmt.Errorf("config: pipeline min_similarity must be within [0,1]")
	}
	if c.Pipeline.SecondaryFloor < c.Pipeline.MinSimilarity {
		return fmt.Errorf("config: pipeline secondary_floor must be >= min_similarity")
	}
	if c.Indexer.BatchSize < 1 {
		return fmt.Errorf("config: indexer batch_size must be at least 1")
	}
	if c.Indexer.RetryAttempts < 1 {
		return fmt.Errorf("config: indexer retry_attempts must be at least 1")
	}
	return nil
}
