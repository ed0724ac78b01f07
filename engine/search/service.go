package search

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/snapseek/snapseek/engine/classify"
	"github.com/snapseek/snapseek/engine/core"
	"github.com/snapseek/snapseek/engine/embedding"
	"github.com/snapseek/snapseek/engine/indexer"
	"github.com/snapseek/snapseek/engine/vectordb"
	"github.com/snapseek/snapseek/pkg/logger"
)

// Config holds the service-level tunables.
type Config struct {
	Category    string
	TopKDefault int
	TopKMax     int
	Ranker      RankerConfig
}

// Service composes the embedding provider, classifiers, vector store, and
// indexer behind the operations the transport layer consumes. All members
// are initialized once and shared read-only across requests.
type Service struct {
	provider  embedding.Provider
	store     vectordb.Store
	gate      *classify.Gate
	predictor *classify.TypePredictor
	indexer   *indexer.Indexer
	cfg       Config
	tracer    trace.Tracer
}

// NewService wires the pipeline together. The provider and store must agree
// on vector dimensionality; a mismatch is a startup failure, never a
// per-request one, so it is verified here.
func NewService(
	ctx context.Context,
	provider embedding.Provider,
	store vectordb.Store,
	gate *classify.Gate,
	predictor *classify.TypePredictor,
	ix *indexer.Indexer,
	cfg Config,
	storeDimension int,
) (*Service, error) {
	if provider == nil || store == nil || gate == nil || predictor == nil || ix == nil {
		return nil, fmt.Errorf("search: all pipeline components are required")
	}
	dim, err := provider.Dimension(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: probe embedding dimension: %w", err)
	}
	if storeDimension > 0 && dim != storeDimension {
		return nil, fmt.Errorf(
			"search: embedding dimension %d does not match vector index dimension %d", dim, storeDimension)
	}
	return &Service{
		provider:  provider,
		store:     store,
		gate:      gate,
		predictor: predictor,
		indexer:   ix,
		cfg:       cfg,
		tracer:    otel.Tracer("snapseek.search"),
	}, nil
}

// EmbedQuery turns a raw image upload into a query vector.
func (s *Service) EmbedQuery(ctx context.Context, image []byte) ([]float32, error) {
	ctx, span := s.tracer.Start(ctx, "search.embed_query")
	defer span.End()
	return s.provider.EmbedImage(ctx, image)
}

// ClassifyCategory reports whether the query vector belongs to the catalog
// category.
func (s *Service) ClassifyCategory(ctx context.Context, vector []float32) (classify.GateVerdict, error) {
	return s.gate.Check(ctx, vector)
}

// ClassifySubtype predicts the item type for the query vector.
func (s *Service) ClassifySubtype(ctx context.Context, vector []float32) (classify.TypePrediction, error) {
	return s.predictor.Predict(ctx, vector)
}

// Search runs the over-fetch, filter, and rank pipeline for a query vector.
// topK of zero means the configured default; out-of-range values are input
// errors. An empty result is a success; degraded outcomes are flagged in the
// diagnostics and logged, never failed.
func (s *Service) Search(
	ctx context.Context,
	vector []float32,
	prediction classify.TypePrediction,
	topK int,
) ([]Candidate, Diagnostics, error) {
	ctx, span := s.tracer.Start(ctx, "search.rank")
	defer span.End()
	if topK == 0 {
		topK = s.cfg.TopKDefault
	}
	if topK < 1 || topK > s.cfg.TopKMax {
		return nil, Diagnostics{}, core.NewInputError(
			fmt.Sprintf("top_k must be between 1 and %d", s.cfg.TopKMax), nil)
	}
	start := time.Now()
	matches, err := s.store.Query(ctx, vector, vectordb.QueryOptions{
		TopK:            s.cfg.Ranker.Overfetch(topK),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, Diagnostics{}, err
	}
	keywords := s.keywordsFor(prediction)
	results, diag := Rank(matches, s.cfg.Category, prediction, keywords, topK, s.cfg.Ranker)
	RecordQueryLatency(ctx, s.cfg.Category, time.Since(start))
	RecordSearch(ctx, s.cfg.Category, diag.Returned)
	if diag.Degraded {
		RecordDegradedSearch(ctx, s.cfg.Category)
		logger.FromContext(ctx).Warn("all candidates filtered out",
			"raw", diag.RawCandidates,
			"after_similarity", diag.AfterSimilarity,
			"after_category", diag.AfterCategory,
			"after_type", diag.AfterType,
			"min_similarity", diag.MinSimilarity,
		)
	}
	return results, diag, nil
}

// Query runs the full pipeline for a raw image: embed, gate, classify, rank.
// A negative gate verdict is logged and carried in the diagnostics but never
// aborts the query; the category filter handles off-category candidates.
func (s *Service) Query(ctx context.Context, image []byte, topK int) ([]Candidate, Diagnostics, error) {
	ctx, span := s.tracer.Start(ctx, "search.query")
	defer span.End()
	vector, err := s.EmbedQuery(ctx, image)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	verdict, err := s.ClassifyCategory(ctx, vector)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	if !verdict.Member {
		// Advisory only. The per-candidate category filter still applies, so
		// a doubtful query proceeds instead of failing.
		RecordGateReject(ctx, s.cfg.Category)
		logger.FromContext(ctx).Warn("query image may not belong to the catalog category",
			"category", s.cfg.Category,
			"score", verdict.Score,
			"best_negative", verdict.BestNegative,
		)
	}
	prediction, err := s.ClassifySubtype(ctx, vector)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	results, diag, err := s.Search(ctx, vector, prediction, topK)
	diag.Gate = verdict
	return results, diag, err
}

// IndexBatch ingests catalog entries through the indexer.
func (s *Service) IndexBatch(ctx context.Context, entries []indexer.Entry) (indexer.Stats, error) {
	ctx, span := s.tracer.Start(ctx, "search.index_batch")
	defer span.End()
	stats, err := s.indexer.IndexBatch(ctx, entries)
	RecordIndexedImages(ctx, s.cfg.Category, stats.Processed)
	return stats, err
}

// IndexDirectory ingests every supported image under root.
func (s *Service) IndexDirectory(ctx context.Context, root string) (indexer.Stats, error) {
	ctx, span := s.tracer.Start(ctx, "search.index_directory")
	defer span.End()
	stats, err := s.indexer.IndexDirectory(ctx, root)
	RecordIndexedImages(ctx, s.cfg.Category, stats.Processed)
	return stats, err
}

// RemoveProducts deletes indexed entries by id. Removal is best-effort: the
// index has no metadata-based delete, so only tracked ids can be removed.
func (s *Service) RemoveProducts(ctx context.Context, ids ...string) error {
	return s.indexer.Remove(ctx, ids...)
}

// Ready verifies both external dependencies answer.
func (s *Service) Ready(ctx context.Context) error {
	if _, err := s.provider.Dimension(ctx); err != nil {
		return fmt.Errorf("embedding model not ready: %w", err)
	}
	if _, err := s.store.Query(ctx, make([]float32, s.mustDimension(ctx)), vectordb.QueryOptions{TopK: 1}); err != nil {
		return fmt.Errorf("vector index not ready: %w", err)
	}
	return nil
}

func (s *Service) mustDimension(ctx context.Context) int {
	dim, err := s.provider.Dimension(ctx)
	if err != nil {
		return 0
	}
	return dim
}

// TopKMax exposes the configured upper bound for transport-level validation.
func (s *Service) TopKMax() int {
	return s.cfg.TopKMax
}

// TopKDefault exposes the configured default result count.
func (s *Service) TopKDefault() int {
	return s.cfg.TopKDefault
}

// Category returns the catalog category this service searches.
func (s *Service) Category() string {
	return s.cfg.Category
}

func (s *Service) keywordsFor(prediction classify.TypePrediction) []string {
	if !prediction.Known {
		return nil
	}
	entry, ok := s.predictor.Vocabulary().Lookup(prediction.Label)
	if !ok {
		return nil
	}
	return entry.Keywords
}
