package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/snapseek/snapseek/engine/embedding"
	"github.com/snapseek/snapseek/engine/vectordb"
	"github.com/snapseek/snapseek/pkg/logger"
)

// Entry is one catalog image queued for ingestion. ID may be empty, in which
// case a content-derived id is assigned. Content-derived ids are stable
// across re-indexing runs but not guaranteed globally unique; collisions are
// tolerated as last-write-wins.
type Entry struct {
	ID          string
	Data        []byte
	Filename    string
	Category    string
	Subcategory string
	ProductID   string
	ProductName string
	RelPath     string
}

// Stats summarizes one ingestion run. Skipped counts entries that were
// declined without error, such as products labeled for another category.
type Stats struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Config bounds batch size and retry behavior for index writes.
type Config struct {
	Category      string
	BatchSize     int
	RetryAttempts int
	RetryBackoff  time.Duration
	RetryMax      time.Duration
}

// Indexer embeds catalog images and upserts them to the vector store in
// fixed-size batches. Per-image failures are counted, not fatal; a failed
// batch counts all its entries as failed and does not abort the run.
type Indexer struct {
	provider embedding.Provider
	store    vectordb.Store
	cfg      Config
}

func New(provider embedding.Provider, store vectordb.Store, cfg Config) (*Indexer, error) {
	if provider == nil {
		return nil, fmt.Errorf("indexer: embedding provider is required")
	}
	if store == nil {
		return nil, fmt.Errorf("indexer: vector store is required")
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 32
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 2 * time.Second
	}
	return &Indexer{provider: provider, store: store, cfg: cfg}, nil
}

// IndexBatch ingests the given entries. Entries labeled with a different
// category than the configured one are skipped and counted as failed.
func (ix *Indexer) IndexBatch(ctx context.Context, entries []Entry) (Stats, error) {
	log := logger.FromContext(ix.withLogFields(ctx))
	stats := Stats{}
	batch := make([]vectordb.Record, 0, ix.cfg.BatchSize)
	batchSize := 0
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := ix.upsertWithRetry(ctx, batch); err != nil {
			log.Error("batch upsert failed", "size", len(batch), "error", err)
			stats.Failed += len(batch)
			stats.Processed -= len(batch)
		}
		batch = batch[:0]
	}
	for i := range entries {
		entry := entries[i]
		if ix.cfg.Category != "" && entry.Category != "" && entry.Category != ix.cfg.Category {
			log.Warn("skipping off-category entry", "filename", entry.Filename, "category", entry.Category)
			stats.Skipped++
			continue
		}
		record, err := ix.buildRecord(ctx, entry)
		if err != nil {
			log.Warn("skipping image", "filename", entry.Filename, "error", err)
			stats.Failed++
			continue
		}
		batch = append(batch, record)
		stats.Processed++
		batchSize++
		if batchSize >= ix.cfg.BatchSize {
			flush()
			batchSize = 0
		}
	}
	flush()
	log.Info("ingestion finished", "processed", stats.Processed, "failed", stats.Failed, "skipped", stats.Skipped)
	return stats, nil
}

// Remove deletes entries by id. The remote index has no metadata-based
// delete, so callers must track the ids they indexed; untracked entries go
// stale until overwritten.
func (ix *Indexer) Remove(ctx context.Context, ids ...string) error {
	return ix.store.Delete(ctx, vectordb.Filter{IDs: ids})
}

func (ix *Indexer) buildRecord(ctx context.Context, entry Entry) (vectordb.Record, error) {
	if len(entry.Data) == 0 {
		return vectordb.Record{}, fmt.Errorf("empty image data")
	}
	vector, err := ix.provider.EmbedImage(ctx, entry.Data)
	if err != nil {
		return vectordb.Record{}, err
	}
	id := entry.ID
	if id == "" {
		id = ContentID(entry.Data)
	}
	category := entry.Category
	if category == "" {
		category = ix.cfg.Category
	}
	metadata := map[string]any{
		"filename": entry.Filename,
		"category": category,
	}
	if entry.Subcategory != "" {
		metadata["subcategory"] = entry.Subcategory
	}
	if entry.ProductID != "" {
		metadata["product_id"] = entry.ProductID
	}
	if entry.ProductName != "" {
		metadata["product_name"] = entry.ProductName
	}
	if entry.RelPath != "" {
		metadata["filepath"] = entry.RelPath
	}
	if size := imageSize(entry.Data); size != "" {
		metadata["image_size"] = size
	}
	return vectordb.Record{ID: id, Embedding: vector, Metadata: metadata}, nil
}

func (ix *Indexer) upsertWithRetry(ctx context.Context, records []vectordb.Record) error {
	backoff := ix.cfg.RetryBackoff
	var err error
	for attempt := 1; attempt <= ix.cfg.RetryAttempts; attempt++ {
		if err = ix.store.Upsert(ctx, records); err == nil {
			return nil
		}
		if attempt == ix.cfg.RetryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > ix.cfg.RetryMax {
			backoff = ix.cfg.RetryMax
		}
	}
	return err
}

func (ix *Indexer) withLogFields(ctx context.Context) context.Context {
	log := logger.FromContext(ctx).With("component", "indexer", "category", ix.cfg.Category)
	return logger.ContextWithLogger(ctx, log)
}

// ContentID derives a stable id from the image bytes.
func ContentID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}
