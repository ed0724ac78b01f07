package vectordb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/snapseek/snapseek/engine/core"
)

const httpDefaultTimeout = 10 * time.Second

// httpStore talks to a remote managed vector index over its REST API. The
// index owns all persistence; this client only moves vectors and metadata.
type httpStore struct {
	client    *resty.Client
	dimension int
}

type httpVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type httpUpsertRequest struct {
	Vectors []httpVector `json:"vectors"`
}

type httpQueryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type httpQueryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

type httpDeleteRequest struct {
	IDs []string `json:"ids"`
}

type httpStatsResponse struct {
	Dimension int `json:"dimension"`
}

func newHTTPStore(ctx context.Context, cfg *Config) (Store, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = httpDefaultTimeout
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Api-Key", cfg.APIKey)
	}
	store := &httpStore{client: client, dimension: cfg.Dimension}
	if err := store.verifyDimension(ctx, cfg.ID); err != nil {
		return nil, err
	}
	return store, nil
}

// verifyDimension checks the negotiated dimensionality invariant once at
// startup. Indexes that do not report a dimension are accepted as-is.
func (h *httpStore) verifyDimension(ctx context.Context, id string) error {
	var stats httpStatsResponse
	resp, err := h.client.R().
		SetContext(ctx).
		SetResult(&stats).
		Post("/describe_index_stats")
	if err != nil {
		return core.NewUnavailableError(fmt.Sprintf("vector index %q unreachable", id), err)
	}
	if resp.IsError() {
		return core.NewUnavailableError(
			fmt.Sprintf("vector index %q returned status %d", id, resp.StatusCode()), nil)
	}
	if stats.Dimension > 0 && stats.Dimension != h.dimension {
		return fmt.Errorf(
			"vector index %q: dimension mismatch (index %d, configured %d)",
			id, stats.Dimension, h.dimension)
	}
	return nil
}

func (h *httpStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	vectors := make([]httpVector, len(records))
	for i := range records {
		rec := records[i]
		if len(rec.Embedding) != h.dimension {
			return fmt.Errorf(
				"http store: record %q dimension mismatch (got %d want %d)",
				rec.ID, len(rec.Embedding), h.dimension)
		}
		vectors[i] = httpVector{ID: rec.ID, Values: rec.Embedding, Metadata: rec.Metadata}
	}
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(httpUpsertRequest{Vectors: vectors}).
		Post("/vectors/upsert")
	if err != nil {
		return core.NewUnavailableError("vector index unreachable", err)
	}
	if resp.IsError() {
		return core.NewUnavailableError(
			fmt.Sprintf("vector index upsert returned status %d", resp.StatusCode()), nil)
	}
	return nil
}

func (h *httpStore) Query(ctx context.Context, vector []float32, opts QueryOptions) ([]Match, error) {
	if len(vector) != h.dimension {
		return nil, fmt.Errorf("http store: query dimension mismatch (got %d want %d)", len(vector), h.dimension)
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = 5
	}
	var out httpQueryResponse
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(httpQueryRequest{Vector: vector, TopK: topK, IncludeMetadata: opts.IncludeMetadata}).
		SetResult(&out).
		Post("/query")
	if err != nil {
		return nil, core.NewUnavailableError("vector index unreachable", err)
	}
	if resp.IsError() {
		return nil, core.NewUnavailableError(
			fmt.Sprintf("vector index query returned status %d", resp.StatusCode()), nil)
	}
	matches := make([]Match, len(out.Matches))
	for i := range out.Matches {
		matches[i] = Match{
			ID:       out.Matches[i].ID,
			Score:    out.Matches[i].Score,
			Metadata: out.Matches[i].Metadata,
		}
	}
	return matches, nil
}

func (h *httpStore) Delete(ctx context.Context, filter Filter) error {
	if len(filter.IDs) == 0 {
		return nil
	}
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(httpDeleteRequest{IDs: filter.IDs}).
		Post("/vectors/delete")
	if err != nil {
		return core.NewUnavailableError("vector index unreachable", err)
	}
	if resp.IsError() {
		return core.NewUnavailableError(
			fmt.Sprintf("vector index delete returned status %d", resp.StatusCode()), nil)
	}
	return nil
}

func (h *httpStore) Close(_ context.Context) error {
	return nil
}
