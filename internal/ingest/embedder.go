package ingest

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"sitedocs-ai/internal/contextutil"
)

// Embedder generates embedding vectors for a batch of texts.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

const (
	defaultBatchSize  = 64
	embedMaxRetries   = 3
	embedRetryBackoff = 500 * time.Millisecond
)

// BatchEmbedder wraps an Embedder with batching, retries and a rate
// limit between batches. A batch that keeps failing is skipped, not
// fatal: its texts come back with nil vectors.
type BatchEmbedder struct {
	client    Embedder
	batchSize int
	limiter   *rate.Limiter
}

// NewBatchEmbedder creates a BatchEmbedder. batchSize <= 0 uses the
// default; requestsPerSecond <= 0 disables rate limiting.
func NewBatchEmbedder(client Embedder, batchSize int, requestsPerSecond float64) *BatchEmbedder {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &BatchEmbedder{
		client:    client,
		batchSize: batchSize,
		limiter:   limiter,
	}
}

// EmbedAll embeds texts in batches. The returned slice is aligned with
// the input; entries from failed batches are nil. The failed count is
// the number of texts without a vector. The error is non-nil only when
// the context is cancelled.
func (e *BatchEmbedder) EmbedAll(ctx context.Context, texts []string) ([][]float32, int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	vectors := make([][]float32, len(texts))
	failed := 0

	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		if err := e.limiter.Wait(ctx); err != nil {
			return vectors, failed, err
		}

		batchVectors, err := e.embedWithRetry(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return vectors, failed, ctx.Err()
			}
			logger.WarnContext(ctx, "embedding batch failed, skipping",
				"batch_start", start, "batch_size", len(batch), "error", err)
			failed += len(batch)
			continue
		}

		copy(vectors[start:end], batchVectors)
	}

	return vectors, failed, nil
}

func (e *BatchEmbedder) embedWithRetry(ctx context.Context, batch []string) ([][]float32, error) {
	var lastErr error
	delay := embedRetryBackoff

	for attempt := 0; attempt < embedMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		vectors, err := e.client.EmbedTexts(ctx, batch)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
	}

	return nil, lastErr
}
