package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// CompletionClient sends a prompt to the language model and returns its raw text.
// Failures are reported as *CompletionError.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
