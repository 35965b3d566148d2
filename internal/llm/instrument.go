package llm

import (
	"context"
	"time"

	"github.com/dyluth/pitch/internal/metrics"
)

type instrumentedClient struct {
	next     Client
	recorder metrics.Recorder
}

// Instrument wraps next so every call is recorded by recorder.
func Instrument(next Client, recorder metrics.Recorder) Client {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &instrumentedClient{next: next, recorder: recorder}
}

// Complete implements Client.
func (c *instrumentedClient) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	text, err := c.next.Complete(ctx, req)

	errorType := ""
	if err != nil {
		errorType = TypeOf(err).String()
	}

	c.recorder.ObserveLLMRequest(c.next.Model(), req.Stage, err == nil, errorType, time.Since(start))
	return text, err
}

// Model implements Client.
func (c *instrumentedClient) Model() string {
	return c.next.Model()
}
