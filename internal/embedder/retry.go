package embedder

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/54b3r/tenantrag-go/internal/rag"
)

// RetryEmbedder wraps another rag.Embedder and retries a failed batch at most
// once after a short backoff. Embedding APIs fail transiently (rate limits,
// blips); one retry absorbs those without hiding a persistent outage from the
// caller.
type RetryEmbedder struct {
	// inner is the wrapped embedder that performs the actual API calls.
	inner rag.Embedder
	// maxRetries is the number of retries after the initial attempt.
	maxRetries uint64
	// log records retried failures.
	log *slog.Logger
}

// NewRetryEmbedder wraps inner with at-most-one-retry semantics.
func NewRetryEmbedder(inner rag.Embedder, log *slog.Logger) *RetryEmbedder {
	if log == nil {
		log = slog.Default()
	}
	return &RetryEmbedder{inner: inner, maxRetries: 1, log: log}
}

// Embed delegates to the wrapped embedder, retrying once with exponential
// backoff on failure. Context cancellation aborts the wait immediately.
func (e *RetryEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond

	attempt := 0
	op := func() error {
		attempt++
		vectors, err := e.inner.Embed(ctx, texts)
		if err != nil {
			e.log.Warn("embedder: batch failed",
				slog.Int("attempt", attempt),
				slog.Int("batch_size", len(texts)),
				slog.Any("error", err),
			)
			return err
		}
		out = vectors
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, e.maxRetries), ctx))
	if err != nil {
		return nil, err
	}
	return out, nil
}
