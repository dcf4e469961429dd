package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// retryingClient wraps a Client with bounded exponential backoff on
// retryable errors. Permanent errors return immediately.
type retryingClient struct {
	inner      Client
	maxRetries int
	logger     zerolog.Logger
}

// WithRetry decorates a client with retry behavior. maxRetries <= 0 defaults
// to 3 attempts.
func WithRetry(inner Client, maxRetries int, logger zerolog.Logger) Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &retryingClient{
		inner:      inner,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

func (c *retryingClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		response, err := c.inner.Chat(ctx, req)
		if err == nil {
			return response, nil
		}

		lastErr = err
		if !IsRetryableError(err) {
			return nil, err
		}
		if attempt == c.maxRetries-1 {
			break
		}

		// 1s, 2s, 4s
		delay := time.Duration(1<<attempt) * time.Second
		c.logger.Info().
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Err(err).
			Msg("Retrying model call after error")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}
