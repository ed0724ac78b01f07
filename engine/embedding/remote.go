package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/snapseek/snapseek/engine/core"
)

// Config describes the remote inference server hosting the joint image-text
// embedding model.
type Config struct {
	Endpoint   string
	Model      string
	Timeout    time.Duration
	TargetSize int
	CacheSize  int
}

var (
	errMissingEndpoint = errors.New("embedder endpoint is required")
	errMissingModel    = errors.New("embedder model is required")
	errInvalidTarget   = errors.New("embedder target size must be greater than zero")
)

// RemoteProvider talks to an embedding inference server over HTTP. It is
// constructed once per process and shared read-only across requests; text
// prompt vectors are cached so repeated zero-shot classification does not
// re-encode the same prompts.
type RemoteProvider struct {
	client *resty.Client
	model  string
	target int

	cacheMu sync.Mutex
	cache   *lru.Cache[string, []float32]

	dimMu sync.Mutex
	dim   int
}

type imageRequest struct {
	Model string `json:"model"`
	Image string `json:"image"`
}

type imageResponse struct {
	Embedding []float32 `json:"embedding"`
}

type textRequest struct {
	Model  string   `json:"model"`
	Inputs []string `json:"inputs"`
}

type textResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewRemoteProvider validates the config and builds the HTTP client. No
// network call happens here; the first embed carries the load cost.
func NewRemoteProvider(cfg *Config) (*RemoteProvider, error) {
	if cfg == nil {
		return nil, errors.New("embedder config is required")
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errMissingEndpoint
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errMissingModel
	}
	if cfg.TargetSize <= 0 {
		return nil, errInvalidTarget
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
		SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	provider := &RemoteProvider{
		client: client,
		model:  cfg.Model,
		target: cfg.TargetSize,
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, []float32](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("embedder: init prompt cache: %w", err)
		}
		provider.cache = cache
	}
	return provider, nil
}

// TargetSize returns the square resolution images are normalized to.
func (p *RemoteProvider) TargetSize() int {
	return p.target
}

func (p *RemoteProvider) EmbedImage(ctx context.Context, data []byte) ([]float32, error) {
	normalized, err := NormalizeImage(data, p.target)
	if err != nil {
		return nil, err
	}
	return p.embedNormalized(ctx, normalized.PNG)
}

func (p *RemoteProvider) embedNormalized(ctx context.Context, pngData []byte) ([]float32, error) {
	var out imageResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(imageRequest{Model: p.model, Image: base64.StdEncoding.EncodeToString(pngData)}).
		SetResult(&out).
		Post("/v1/embeddings/image")
	if err != nil {
		return nil, core.NewUnavailableError("embedding model unreachable", err)
	}
	if resp.IsError() {
		return nil, core.NewUnavailableError(
			fmt.Sprintf("embedding model returned status %d", resp.StatusCode()), nil)
	}
	if len(out.Embedding) == 0 {
		return nil, core.NewUnavailableError("embedding model returned an empty vector", nil)
	}
	p.recordDimension(len(out.Embedding))
	return out.Embedding, nil
}

func (p *RemoteProvider) EmbedTexts(ctx context.Context, prompts []string) ([][]float32, error) {
	if len(prompts) == 0 {
		return nil, nil
	}
	results := make([][]float32, len(prompts))
	missingIdx := make(map[string][]int)
	for i, prompt := range prompts {
		if vector, ok := p.lookupCache(prompt); ok {
			results[i] = vector
			continue
		}
		missingIdx[prompt] = append(missingIdx[prompt], i)
	}
	if len(missingIdx) == 0 {
		return results, nil
	}
	missing := make([]string, 0, len(missingIdx))
	for prompt := range missingIdx {
		missing = append(missing, prompt)
	}
	var out textResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(textRequest{Model: p.model, Inputs: missing}).
		SetResult(&out).
		Post("/v1/embeddings/text")
	if err != nil {
		return nil, core.NewUnavailableError("embedding model unreachable", err)
	}
	if resp.IsError() {
		return nil, core.NewUnavailableError(
			fmt.Sprintf("embedding model returned status %d", resp.StatusCode()), nil)
	}
	if len(out.Embeddings) != len(missing) {
		return nil, core.NewUnavailableError(
			fmt.Sprintf("embedding model returned %d vectors for %d prompts", len(out.Embeddings), len(missing)), nil)
	}
	for i, prompt := range missing {
		vector := out.Embeddings[i]
		if len(vector) > 0 {
			p.recordDimension(len(vector))
		}
		for _, idx := range missingIdx[prompt] {
			results[idx] = cloneVector(vector)
		}
		p.storeCache(prompt, vector)
	}
	return results, nil
}

// Dimension probes the model with a neutral synthetic image on first use and
// caches the answer for the process lifetime.
func (p *RemoteProvider) Dimension(ctx context.Context) (int, error) {
	p.dimMu.Lock()
	cached := p.dim
	p.dimMu.Unlock()
	if cached > 0 {
		return cached, nil
	}
	probe := neutralImage(p.target)
	if probe == nil {
		return 0, core.NewInternalError("render dimension probe image", nil)
	}
	vector, err := p.embedNormalized(ctx, probe)
	if err != nil {
		return 0, err
	}
	return len(vector), nil
}

func (p *RemoteProvider) recordDimension(dim int) {
	p.dimMu.Lock()
	if p.dim == 0 {
		p.dim = dim
	}
	p.dimMu.Unlock()
}

func (p *RemoteProvider) lookupCache(prompt string) ([]float32, bool) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	if p.cache == nil {
		return nil, false
	}
	vector, ok := p.cache.Get(cacheKey(prompt))
	if !ok {
		return nil, false
	}
	return cloneVector(vector), true
}

func (p *RemoteProvider) storeCache(prompt string, vector []float32) {
	if len(vector) == 0 {
		return
	}
	p.cacheMu.Lock()
	if p.cache != nil {
		p.cache.Add(cacheKey(prompt), cloneVector(vector))
	}
	p.cacheMu.Unlock()
}

func cacheKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
