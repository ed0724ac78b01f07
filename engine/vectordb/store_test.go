package vectordb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	ctx := context.Background()
	t.Run("Should reject nil config", func(t *testing.T) {
		_, err := New(ctx, nil)
		require.Error(t, err)
	})
	t.Run("Should require an id", func(t *testing.T) {
		_, err := New(ctx, &Config{Provider: ProviderMemory, Dimension: 3})
		require.ErrorIs(t, err, errMissingID)
	})
	t.Run("Should require a provider", func(t *testing.T) {
		_, err := New(ctx, &Config{ID: "catalog", Dimension: 3})
		require.ErrorIs(t, err, errMissingProvider)
	})
	t.Run("Should require a dsn for pgvector", func(t *testing.T) {
		_, err := New(ctx, &Config{ID: "catalog", Provider: ProviderPGVector, Dimension: 3})
		require.ErrorIs(t, err, errMissingDSN)
	})
	t.Run("Should require a base url for http", func(t *testing.T) {
		_, err := New(ctx, &Config{ID: "catalog", Provider: ProviderHTTP, Dimension: 3})
		require.ErrorIs(t, err, errMissingBaseURL)
	})
	t.Run("Should require a positive dimension", func(t *testing.T) {
		_, err := New(ctx, &Config{ID: "catalog", Provider: ProviderMemory})
		require.ErrorIs(t, err, errInvalidDimension)
	})
	t.Run("Should reject unknown providers", func(t *testing.T) {
		_, err := New(ctx, &Config{ID: "catalog", Provider: "faiss", Dimension: 3})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not supported")
	})
	t.Run("Should build a memory store", func(t *testing.T) {
		store, err := New(ctx, &Config{ID: "catalog", Provider: ProviderMemory, Dimension: 3})
		require.NoError(t, err)
		require.NotNil(t, store)
		require.NoError(t, store.Close(ctx))
	})
}
