package llm

import (
	"context"
	"log"
	"time"
)

// DefaultAttemptTimeout bounds a single upstream call.
const DefaultAttemptTimeout = 3 * time.Minute

// RetryConfig controls WithRetry.
// The delay before retry n (1-based) is n * BaseDelay.
type RetryConfig struct {
	MaxRetries     int
	BaseDelay      time.Duration
	AttemptTimeout time.Duration
}

// DefaultRetryConfig returns the retry policy used for one-shot extraction calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		BaseDelay:      2 * time.Second,
		AttemptTimeout: DefaultAttemptTimeout,
	}
}

// NoRetry returns a policy with a per-attempt timeout and no retries.
// The pipeline's outline and slide calls use it and fall back locally on failure.
func NoRetry() RetryConfig {
	return RetryConfig{AttemptTimeout: DefaultAttemptTimeout}
}

type retryClient struct {
	next  Client
	cfg   RetryConfig
	sleep func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps next with a per-attempt timeout and linear-backoff retries.
// Non-retryable errors (auth, bad prompt) are returned immediately.
func WithRetry(next Client, cfg RetryConfig) Client {
	return &retryClient{next: next, cfg: cfg, sleep: sleepCtx}
}

// Complete implements Client.
func (r *retryClient) Complete(ctx context.Context, req Request) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * r.cfg.BaseDelay
			log.Printf("[LLM] Retrying %s request (attempt %d/%d) in %s: %v",
				req.Stage, attempt, r.cfg.MaxRetries, delay, lastErr)
			if err := r.sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		text, err := r.attempt(ctx, req)
		if err == nil {
			return text, nil
		}

		lastErr = err
		if !IsRetryable(err) || ctx.Err() != nil {
			break
		}
	}

	return "", lastErr
}

func (r *retryClient) attempt(ctx context.Context, req Request) (string, error) {
	if r.cfg.AttemptTimeout <= 0 {
		return r.next.Complete(ctx, req)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.AttemptTimeout)
	defer cancel()

	return r.next.Complete(attemptCtx, req)
}

// Model implements Client.
func (r *retryClient) Model() string {
	return r.next.Model()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
