package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snapseek/snapseek/engine/classify"
	"github.com/snapseek/snapseek/engine/embedding"
	"github.com/snapseek/snapseek/engine/indexer"
	"github.com/snapseek/snapseek/engine/search"
	"github.com/snapseek/snapseek/engine/vectordb"
	"github.com/snapseek/snapseek/pkg/config"
	"github.com/snapseek/snapseek/pkg/logger"
)

func setupContext(cmd *cobra.Command) (context.Context, *config.Config, logger.Logger, error) {
	level, logJSON, logSource, err := logger.GetLoggerConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	log := logger.SetupLogger(level, logJSON, logSource)
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	ctx := logger.ContextWithLogger(cmd.Context(), log)
	ctx = config.ContextWithConfig(ctx, cfg)
	return ctx, cfg, log, nil
}

// buildService constructs the full pipeline from configuration. The caller
// owns the returned store and must Close it.
func buildService(ctx context.Context, cfg *config.Config) (*search.Service, vectordb.Store, error) {
	provider, err := embedding.NewRemoteProvider(&embedding.Config{
		Endpoint:   cfg.Embedder.Endpoint,
		Model:      cfg.Embedder.Model,
		Timeout:    cfg.Embedder.Timeout,
		TargetSize: cfg.Embedder.TargetSize,
		CacheSize:  cfg.Embedder.CacheSize,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build embedding provider: %w", err)
	}
	store, err := vectordb.New(ctx, &vectordb.Config{
		ID:          "catalog",
		Provider:    vectordb.Provider(cfg.VectorDB.Provider),
		DSN:         cfg.VectorDB.DSN,
		BaseURL:     cfg.VectorDB.BaseURL,
		APIKey:      cfg.VectorDB.APIKey,
		Table:       cfg.VectorDB.Table,
		Dimension:   cfg.VectorDB.Dimension,
		Timeout:     cfg.VectorDB.Timeout,
		EnsureIndex: cfg.VectorDB.EnsureIndex,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build vector store: %w", err)
	}
	positive, negative := classify.DefaultGatePrompts()
	gate, err := classify.NewGate(provider, positive, negative, cfg.Pipeline.MinMemberScore)
	if err != nil {
		store.Close(ctx)
		return nil, nil, err
	}
	predictor, err := classify.NewTypePredictor(provider, classify.DefaultVocabulary(), cfg.Pipeline.MinTypeScore)
	if err != nil {
		store.Close(ctx)
		return nil, nil, err
	}
	ix, err := indexer.New(provider, store, indexer.Config{
		Category:      cfg.Pipeline.Category,
		BatchSize:     cfg.Indexer.BatchSize,
		RetryAttempts: cfg.Indexer.RetryAttempts,
		RetryBackoff:  cfg.Indexer.RetryBackoff,
		RetryMax:      cfg.Indexer.RetryMaxBackoff,
	})
	if err != nil {
		store.Close(ctx)
		return nil, nil, err
	}
	svc, err := search.NewService(ctx, provider, store, gate, predictor, ix, search.Config{
		Category:    cfg.Pipeline.Category,
		TopKDefault: cfg.Pipeline.TopKDefault,
		TopKMax:     cfg.Pipeline.TopKMax,
		Ranker: search.RankerConfig{
			MinSimilarity:  cfg.Pipeline.MinSimilarity,
			SecondaryFloor: cfg.Pipeline.SecondaryFloor,
			OverfetchFac:   cfg.Pipeline.OverfetchFactor,
			HardCap:        cfg.Pipeline.HardCap,
		},
	}, cfg.VectorDB.Dimension)
	if err != nil {
		store.Close(ctx)
		return nil, nil, err
	}
	return svc, store, nil
}
