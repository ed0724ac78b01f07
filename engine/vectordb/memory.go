package vectordb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/snapseek/snapseek/engine/core"
	"github.com/snapseek/snapseek/engine/embedding"
)

// memoryStore keeps records in process memory, ordered by first insertion so
// that equal-score query results stay deterministic.
type memoryStore struct {
	mu        sync.RWMutex
	dimension int
	records   map[string]Record
	order     []string
}

func newMemoryStore(cfg *Config) *memoryStore {
	return &memoryStore{
		dimension: cfg.Dimension,
		records:   make(map[string]Record),
	}
}

// NewMemoryStore exposes the in-process store for tests and local development.
func NewMemoryStore(dimension int) Store {
	return newMemoryStore(&Config{Dimension: dimension})
}

func (m *memoryStore) Upsert(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range records {
		rec := records[i]
		if len(rec.Embedding) != m.dimension {
			return fmt.Errorf(
				"memory store: record %q dimension mismatch (got %d want %d)",
				rec.ID, len(rec.Embedding), m.dimension)
		}
		if _, exists := m.records[rec.ID]; !exists {
			m.order = append(m.order, rec.ID)
		}
		stored := Record{
			ID:        rec.ID,
			Embedding: append([]float32(nil), rec.Embedding...),
			Metadata:  core.CloneMap(rec.Metadata),
		}
		m.records[rec.ID] = stored
	}
	return nil
}

func (m *memoryStore) Query(_ context.Context, vector []float32, opts QueryOptions) ([]Match, error) {
	if len(vector) != m.dimension {
		return nil, errors.New("memory store: query dimension mismatch")
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = 5
	}
	m.mu.RLock()
	matches := make([]Match, 0, len(m.order))
	for _, id := range m.order {
		rec := m.records[id]
		match := Match{ID: id, Score: embedding.Cosine(vector, rec.Embedding)}
		if opts.IncludeMetadata {
			match.Metadata = core.CloneMap(rec.Metadata)
		}
		matches = append(matches, match)
	}
	m.mu.RUnlock()
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *memoryStore) Delete(_ context.Context, filter Filter) error {
	if len(filter.IDs) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range filter.IDs {
		if _, exists := m.records[id]; !exists {
			continue
		}
		delete(m.records, id)
		for i, ordered := range m.order {
			if ordered == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (m *memoryStore) Close(_ context.Context) error {
	return nil
}
