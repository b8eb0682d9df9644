package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// Sustained token budget kept below the provider limit to leave a
	// safety margin; bursts allow short spikes above it.
	tokensPerSecond = 10000
	burstTokens     = 40000

	maxRetries     = 3
	baseRetryDelay = 1 * time.Second
	maxRetryDelay  = 30 * time.Second
)

func newLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(tokensPerSecond), burstTokens)
}

// rateLimitedCall waits for limiter approval, then runs fn with
// exponential backoff on provider rate-limit errors. Other errors are
// returned immediately.
func rateLimitedCall[T any](ctx context.Context, limiter *rate.Limiter, estimatedTokens int, log *slog.Logger, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if estimatedTokens > burstTokens {
		estimatedTokens = burstTokens
	}
	if err := limiter.WaitN(ctx, estimatedTokens); err != nil {
		return zero, fmt.Errorf("rate limiter wait: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay << uint(attempt-1)
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
			log.Warn("retrying rate-limited call", "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !isRateLimitError(err) {
			return zero, err
		}
		lastErr = err
	}
	return zero, fmt.Errorf("max retries (%d) exceeded: %w", maxRetries, lastErr)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "rate_limit_exceeded") ||
		strings.Contains(msg, "too many requests")
}

// estimateTokens is a rough chars/4 heuristic, good enough to pace the
// limiter.
func estimateTokens(s string) int {
	return len(s)/4 + 1
}
