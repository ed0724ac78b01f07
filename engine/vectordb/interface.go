package vectordb

import (
	"context"
	"time"
)

// Provider enumerates supported vector index backends.
type Provider string

const (
	ProviderPGVector Provider = "pgvector"
	// ProviderHTTP talks to a remote managed index over its REST API.
	ProviderHTTP Provider = "http"
	// ProviderMemory keeps vectors in process memory; used for tests and
	// local development.
	ProviderMemory Provider = "memory"
)

// Record is one indexed catalog image: an opaque id, its embedding, and the
// metadata the ranking pipeline filters on.
type Record struct {
	ID        string
	Embedding []float32
	Metadata  map[string]any
}

// QueryOptions controls a nearest-neighbor query.
type QueryOptions struct {
	TopK            int
	IncludeMetadata bool
}

// Match is one nearest-neighbor result with cosine similarity in [0,1].
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// Filter specifies delete criteria. The remote index has no efficient
// metadata-based delete, so removal is by id only and callers must track ids
// externally; entries whose ids were lost go stale.
type Filter struct {
	IDs []string
}

// Store exposes the minimal contract for ingestion and retrieval.
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, vector []float32, opts QueryOptions) ([]Match, error)
	Delete(ctx context.Context, filter Filter) error
	Close(ctx context.Context) error
}

// Config captures normalized connection details for a vector index backend.
// Dimension is a negotiated invariant with the embedding model: a mismatch is
// a startup failure, never a per-request one.
type Config struct {
	ID          string
	Provider    Provider
	DSN         string
	BaseURL     string
	APIKey      string
	Table       string
	Index       string
	Dimension   int
	Metric      string
	Timeout     time.Duration
	EnsureIndex bool
}
