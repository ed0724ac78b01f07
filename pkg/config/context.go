package config

import "context"

type ctxKey struct{}

// ContextWithConfig returns a context carrying the service configuration.
func ContextWithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext returns the configuration stored in the context, or nil.
func FromContext(ctx context.Context) *Config {
	if ctx == nil {
		return nil
	}
	cfg, _ := ctx.Value(ctxKey{}).(*Config)
	return cfg
}
