package vectordb

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	errMissingID        = errors.New("vector index id is required")
	errMissingProvider  = errors.New("vector index provider is required")
	errMissingDSN       = errors.New("vector index dsn is required")
	errMissingBaseURL   = errors.New("vector index base url is required")
	errInvalidDimension = errors.New("vector index dimension must be greater than zero")
)

// New instantiates a vector store backed by the requested provider.
func New(ctx context.Context, cfg *Config) (Store, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ProviderPGVector:
		return newPGStore(ctx, cfg)
	case ProviderHTTP:
		return newHTTPStore(ctx, cfg)
	case ProviderMemory:
		return newMemoryStore(cfg), nil
	default:
		return nil, fmt.Errorf("vector index %q: provider %q is not supported", cfg.ID, cfg.Provider)
	}
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("vector index config is required")
	}
	if strings.TrimSpace(cfg.ID) == "" {
		return errMissingID
	}
	if strings.TrimSpace(string(cfg.Provider)) == "" {
		return fmt.Errorf("vector index %q: %w", cfg.ID, errMissingProvider)
	}
	switch cfg.Provider {
	case ProviderPGVector:
		if strings.TrimSpace(cfg.DSN) == "" {
			return fmt.Errorf("vector index %q: %w", cfg.ID, errMissingDSN)
		}
	case ProviderHTTP:
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return fmt.Errorf("vector index %q: %w", cfg.ID, errMissingBaseURL)
		}
	}
	if cfg.Dimension <= 0 {
		return fmt.Errorf("vector index %q: %w", cfg.ID, errInvalidDimension)
	}
	return nil
}
