package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapseek/snapseek/engine/classify"
	"github.com/snapseek/snapseek/engine/core"
	"github.com/snapseek/snapseek/engine/indexer"
	"github.com/snapseek/snapseek/engine/search"
	"github.com/snapseek/snapseek/engine/vectordb"
)

const testDimension = 12

// stubProvider embeds member images onto axis 0 and off-category ones onto
// axis 1, matching the gate prompt layout below.
type stubProvider struct {
	prompts map[string][]float32
}

func newStubProvider() *stubProvider {
	p := &stubProvider{prompts: make(map[string][]float32)}
	positive, negative := classify.DefaultGatePrompts()
	for _, prompt := range positive {
		p.prompts[prompt] = axis(0)
	}
	for _, prompt := range negative {
		p.prompts[prompt] = axis(1)
	}
	for i, entry := range classify.DefaultVocabulary() {
		p.prompts[entry.Prompt] = axis(2 + i)
	}
	return p
}

func axis(i int) []float32 {
	vec := make([]float32, testDimension)
	vec[i] = 1
	return vec
}

func (p *stubProvider) EmbedImage(_ context.Context, data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, core.NewInputError("empty image", nil)
	}
	if strings.HasPrefix(string(data), "wood") {
		return axis(1), nil
	}
	return axis(0), nil
}

func (p *stubProvider) EmbedTexts(_ context.Context, prompts []string) ([][]float32, error) {
	out := make([][]float32, len(prompts))
	for i, prompt := range prompts {
		vec, ok := p.prompts[prompt]
		if !ok {
			vec = make([]float32, testDimension)
		}
		out[i] = vec
	}
	return out, nil
}

func (p *stubProvider) Dimension(_ context.Context) (int, error) {
	return testDimension, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, vectordb.Store) {
	t.Helper()
	ctx := context.Background()
	provider := newStubProvider()
	store := vectordb.NewMemoryStore(testDimension)
	positive, negative := classify.DefaultGatePrompts()
	gate, err := classify.NewGate(provider, positive, negative, 0.20)
	require.NoError(t, err)
	predictor, err := classify.NewTypePredictor(provider, classify.DefaultVocabulary(), 0.22)
	require.NoError(t, err)
	ix, err := indexer.New(provider, store, indexer.Config{Category: "furniture", BatchSize: 8})
	require.NoError(t, err)
	svc, err := search.NewService(ctx, provider, store, gate, predictor, ix, search.Config{
		Category:    "furniture",
		TopKDefault: 5,
		TopKMax:     20,
		Ranker: search.RankerConfig{
			MinSimilarity:  0.55,
			SecondaryFloor: 0.60,
			OverfetchFac:   3,
			HardCap:        50,
		},
	}, testDimension)
	require.NoError(t, err)
	gin.SetMode(gin.TestMode)
	router := gin.New()
	registerRoutes(router, svc)
	return router, store
}

func multipartImage(t *testing.T, payload string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "query.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte(payload))
	require.NoError(t, err)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func seedStore(t *testing.T, store vectordb.Store) {
	t.Helper()
	require.NoError(t, store.Upsert(context.Background(), []vectordb.Record{
		{ID: "chair-1", Embedding: axis(0), Metadata: map[string]any{"filename": "chair_1.jpg", "category": "furniture"}},
		{ID: "lamp-1", Embedding: axis(0), Metadata: map[string]any{"filename": "lamp_1.jpg", "category": "appliances"}},
	}))
}

func TestHealthEndpoints(t *testing.T) {
	t.Run("Should report healthy", func(t *testing.T) {
		router, _ := newTestRouter(t)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
	t.Run("Should report ready", func(t *testing.T) {
		router, _ := newTestRouter(t)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestSearchEndpoint(t *testing.T) {
	t.Run("Should return ranked results for a member image", func(t *testing.T) {
		router, store := newTestRouter(t)
		seedStore(t, store)
		body, contentType := multipartImage(t, "a chair photo", map[string]string{"top_k": "3"})
		req := httptest.NewRequest(http.MethodPost, "/api/v0/search", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp searchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "query.jpg", resp.QueryImage)
		assert.Equal(t, 3, resp.TopK)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "chair-1", resp.Results[0].ID)
	})
	t.Run("Should succeed with a negative gate verdict for a doubtful image", func(t *testing.T) {
		router, store := newTestRouter(t)
		seedStore(t, store)
		body, contentType := multipartImage(t, "wood planks", nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v0/search", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp searchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Empty(t, resp.Results)
		assert.False(t, resp.Diagnostics.Gate.Member)
	})
	t.Run("Should reject out-of-range top_k", func(t *testing.T) {
		router, _ := newTestRouter(t)
		body, contentType := multipartImage(t, "a chair photo", map[string]string{"top_k": "25"})
		req := httptest.NewRequest(http.MethodPost, "/api/v0/search", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("Should require an image upload", func(t *testing.T) {
		router, _ := newTestRouter(t)
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		require.NoError(t, writer.Close())
		req := httptest.NewRequest(http.MethodPost, "/api/v0/search", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestProductEndpoints(t *testing.T) {
	t.Run("Should index products and make them searchable", func(t *testing.T) {
		router, _ := newTestRouter(t)
		payload := indexRequest{Items: []productEntry{{
			ID:          "p-1",
			ImageBase64: base64.StdEncoding.EncodeToString([]byte("chair image")),
			Filename:    "chair_a.jpg",
			Category:    "furniture",
			ProductName: "Oak Chair",
		}}}
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/v0/products", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var stats indexer.Stats
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.Equal(t, 1, stats.Processed)
		body, contentType := multipartImage(t, "a chair photo", nil)
		searchReq := httptest.NewRequest(http.MethodPost, "/api/v0/search", body)
		searchReq.Header.Set("Content-Type", contentType)
		searchRec := httptest.NewRecorder()
		router.ServeHTTP(searchRec, searchReq)
		require.Equal(t, http.StatusOK, searchRec.Code)
		var resp searchResponse
		require.NoError(t, json.Unmarshal(searchRec.Body.Bytes(), &resp))
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "Oak Chair", resp.Results[0].ProductName)
	})
	t.Run("Should reject invalid base64 payloads", func(t *testing.T) {
		router, _ := newTestRouter(t)
		raw := `{"items":[{"id":"p-1","image_base64":"not base64!!","filename":"a.jpg"}]}`
		req := httptest.NewRequest(http.MethodPost, "/api/v0/products", strings.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("Should remove products by id", func(t *testing.T) {
		router, store := newTestRouter(t)
		seedStore(t, store)
		raw := `{"ids":["chair-1"]}`
		req := httptest.NewRequest(http.MethodDelete, "/api/v0/products", strings.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		matches, err := store.Query(context.Background(), axis(0), vectordb.QueryOptions{TopK: 10})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "lamp-1", matches[0].ID)
	})
	t.Run("Should reject an empty remove request", func(t *testing.T) {
		router, _ := newTestRouter(t)
		req := httptest.NewRequest(http.MethodDelete, "/api/v0/products", strings.NewReader(`{"ids":[]}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
