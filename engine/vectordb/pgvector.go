package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

type pgStore struct {
	pool       *pgxpool.Pool
	table      string
	tableIdent string
	indexName  string
	indexIdent string
	dimension  int
	ensureIdx  bool
}

func newPGStore(ctx context.Context, cfg *Config) (Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("vector index %q: failed to connect to postgres: %w", cfg.ID, err)
	}
	store := &pgStore{
		pool:      pool,
		table:     chooseTable(cfg),
		indexName: chooseIndex(cfg),
		dimension: cfg.Dimension,
		ensureIdx: cfg.EnsureIndex,
	}
	store.tableIdent = pgx.Identifier{store.table}.Sanitize()
	store.indexIdent = pgx.Identifier{store.indexName}.Sanitize()
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func chooseTable(cfg *Config) string {
	if cfg.Table != "" {
		return cfg.Table
	}
	return "catalog_images"
}

func chooseIndex(cfg *Config) string {
	if cfg.Index != "" {
		return cfg.Index
	}
	return fmt.Sprintf("%s_embedding_idx", chooseTable(cfg))
}

func (p *pgStore) ensureSchema(ctx context.Context) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("pgvector: acquire connection: %w", err)
	}
	defer conn.Release()
	if _, err = conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("pgvector: enable extension: %w", err)
	}
	createTable := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		embedding vector(%d),
		metadata JSONB,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`, p.tableIdent, p.dimension)
	if _, err = conn.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("pgvector: create table: %w", err)
	}
	if p.ensureIdx {
		createIndex := fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s USING ivfflat (embedding vector_cosine_ops)",
			p.indexIdent,
			p.tableIdent,
		)
		if _, err = conn.Exec(ctx, createIndex); err != nil {
			return fmt.Errorf("pgvector: create index: %w", err)
		}
	}
	return nil
}

func (p *pgStore) Upsert(ctx context.Context, records []Record) (err error) {
	if len(records) == 0 {
		return nil
	}
	tx, txErr := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if txErr != nil {
		return fmt.Errorf("pgvector: begin tx: %w", txErr)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("pgvector: rollback failed: %w; original error: %v", rbErr, err)
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("pgvector: commit: %w", commitErr)
			}
		}
	}()
	stmt := fmt.Sprintf(`INSERT INTO %s (id, embedding, metadata, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
    embedding = excluded.embedding,
    metadata = excluded.metadata,
    updated_at = excluded.updated_at`, p.tableIdent)
	for i := range records {
		rec := records[i]
		if len(rec.Embedding) != p.dimension {
			return fmt.Errorf(
				"pgvector: record %q dimension mismatch (got %d want %d)",
				rec.ID,
				len(rec.Embedding),
				p.dimension,
			)
		}
		vector := pgvector.NewVector(rec.Embedding)
		metadata, marshalErr := json.Marshal(rec.Metadata)
		if marshalErr != nil {
			return fmt.Errorf("pgvector: marshal metadata for %q: %w", rec.ID, marshalErr)
		}
		if _, execErr := tx.Exec(ctx, stmt, rec.ID, vector, metadata, time.Now().UTC()); execErr != nil {
			return fmt.Errorf("pgvector: upsert %q: %w", rec.ID, execErr)
		}
	}
	return nil
}

func (p *pgStore) Query(ctx context.Context, vector []float32, opts QueryOptions) ([]Match, error) {
	if len(vector) != p.dimension {
		return nil, errors.New("pgvector: query dimension mismatch")
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = 5
	}
	builder := strings.Builder{}
	builder.WriteString("SELECT id, metadata, 1 - (embedding <=> $1) AS score FROM ")
	builder.WriteString(p.tableIdent)
	builder.WriteString(" ORDER BY embedding <=> $1 ASC, id ASC LIMIT $2")
	rows, err := p.pool.Query(ctx, builder.String(), pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("pgvector: query: %w", err)
	}
	defer rows.Close()
	results := make([]Match, 0, topK)
	for rows.Next() {
		var (
			id          string
			metadataRaw []byte
			score       float64
		)
		if err := rows.Scan(&id, &metadataRaw, &score); err != nil {
			return nil, fmt.Errorf("pgvector: scan: %w", err)
		}
		match := Match{ID: id, Score: score}
		if opts.IncludeMetadata && len(metadataRaw) > 0 {
			meta := make(map[string]any)
			if unmarshalErr := json.Unmarshal(metadataRaw, &meta); unmarshalErr != nil {
				return nil, fmt.Errorf("pgvector: decode metadata: %w", unmarshalErr)
			}
			match.Metadata = meta
		}
		results = append(results, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector: query rows: %w", err)
	}
	return results, nil
}

func (p *pgStore) Delete(ctx context.Context, filter Filter) error {
	if len(filter.IDs) == 0 {
		return nil
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", p.tableIdent)
	if _, err := p.pool.Exec(ctx, stmt, filter.IDs); err != nil {
		return fmt.Errorf("pgvector: delete: %w", err)
	}
	return nil
}

func (p *pgStore) Close(_ context.Context) error {
	p.pool.Close()
	return nil
}
