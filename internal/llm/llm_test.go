package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient returns the scripted results in order and records each call.
type scriptedClient struct {
	results []error
	calls   int
	ctxs    []context.Context
}

func (s *scriptedClient) Complete(ctx context.Context, _ Request) (string, error) {
	s.ctxs = append(s.ctxs, ctx)
	i := s.calls
	s.calls++
	if i < len(s.results) && s.results[i] != nil {
		return "", s.results[i]
	}
	return `{"ok":true}`, nil
}

func (s *scriptedClient) Model() string { return "scripted" }

func noSleep(recorded *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*recorded = append(*recorded, d)
		return nil
	}
}

func TestWithRetry(t *testing.T) {
	t.Run("retries transient errors with linear delay", func(t *testing.T) {
		inner := &scriptedClient{results: []error{
			NewError(ErrorTypeTransient, "503"),
			NewError(ErrorTypeRateLimit, "429"),
		}}
		var delays []time.Duration
		c := WithRetry(inner, RetryConfig{MaxRetries: 3, BaseDelay: time.Second, AttemptTimeout: time.Minute}).(*retryClient)
		c.sleep = noSleep(&delays)

		text, err := c.Complete(context.Background(), Request{Stage: StageSlide})
		require.NoError(t, err)
		assert.Equal(t, `{"ok":true}`, text)
		assert.Equal(t, 3, inner.calls)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
	})

	t.Run("does not retry auth errors", func(t *testing.T) {
		inner := &scriptedClient{results: []error{NewError(ErrorTypeAuth, "bad key")}}
		var delays []time.Duration
		c := WithRetry(inner, DefaultRetryConfig()).(*retryClient)
		c.sleep = noSleep(&delays)

		_, err := c.Complete(context.Background(), Request{})
		assert.True(t, Is(err, ErrorTypeAuth))
		assert.Equal(t, 1, inner.calls)
		assert.Empty(t, delays)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		fail := NewError(ErrorTypeTransient, "down")
		inner := &scriptedClient{results: []error{fail, fail, fail}}
		var delays []time.Duration
		c := WithRetry(inner, RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond}).(*retryClient)
		c.sleep = noSleep(&delays)

		_, err := c.Complete(context.Background(), Request{})
		assert.ErrorIs(t, err, fail)
		assert.Equal(t, 3, inner.calls)
	})

	t.Run("no retry policy makes one attempt with a deadline", func(t *testing.T) {
		inner := &scriptedClient{results: []error{NewError(ErrorTypeTransient, "down")}}
		c := WithRetry(inner, NoRetry())

		_, err := c.Complete(context.Background(), Request{})
		assert.Error(t, err)
		assert.Equal(t, 1, inner.calls)

		deadline, ok := inner.ctxs[0].Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(DefaultAttemptTimeout), deadline, 5*time.Second)
	})

	t.Run("stops when context is cancelled during backoff", func(t *testing.T) {
		inner := &scriptedClient{results: []error{NewError(ErrorTypeTransient, "down")}}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := WithRetry(inner, RetryConfig{MaxRetries: 3, BaseDelay: time.Hour})
		_, err := c.Complete(ctx, Request{})
		assert.Error(t, err)
		assert.Equal(t, 1, inner.calls)
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		want   ErrorType
	}{
		{"401", errors.New("unauthorized"), 401, ErrorTypeAuth},
		{"429", errors.New("slow down"), 429, ErrorTypeRateLimit},
		{"400", errors.New("bad"), 400, ErrorTypeBadPrompt},
		{"503", errors.New("unavailable"), 503, ErrorTypeTransient},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), 0, ErrorTypeTransient},
		{"eof", io.ErrUnexpectedEOF, 0, ErrorTypeTransient},
		{"quota text", errors.New("Quota exceeded for project"), 0, ErrorTypeRateLimit},
		{"api key text", errors.New("invalid API key provided"), 0, ErrorTypeAuth},
		{"unknown", errors.New("something odd"), 0, ErrorTypeUnknown},
		{"already classified", NewError(ErrorTypeEmptyResponse, "empty"), 0, ErrorTypeEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("test", tt.err, tt.status)
			assert.Equal(t, tt.want, got.Type)
			assert.Equal(t, tt.want, TypeOf(got))
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("boom")
	err := NewErrorWithCause(ErrorTypeTransient, cause, "gemini server error")
	assert.Equal(t, "LLM error (transient): gemini server error: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, err.IsRetryable())
	assert.False(t, NewError(ErrorTypeBadPrompt, "x").IsRetryable())
	assert.False(t, IsRetryable(context.Canceled))
	assert.True(t, IsRetryable(errors.New("plain")))
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, ProviderGemini, "", "gemini-2.5-flash")
	assert.True(t, Is(err, ErrorTypeAuth))

	_, err = New(ctx, "mystery", "key", "m")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown LLM provider")

	c, err := New(ctx, ProviderAnthropic, "key", "claude-sonnet-4-5")
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5", c.Model())

	c, err = New(ctx, ProviderOpenAI, "key", "gpt-4.1-mini")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1-mini", c.Model())
}

func TestSystemWithJSON(t *testing.T) {
	assert.Equal(t, "be brief", systemWithJSON("be brief", false))
	assert.Equal(t, jsonInstruction, systemWithJSON("", true))
	assert.Equal(t, "be brief\n\n"+jsonInstruction, systemWithJSON("be brief", true))
}
