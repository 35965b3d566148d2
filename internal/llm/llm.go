// Package llm provides a provider-neutral text completion client used by the
// outline planner and the slide generator.
//
// Model output is returned as raw text. Callers must pass it through the
// structured parser; a response is never trusted to be clean JSON, even when
// JSON mode is requested.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider names accepted by New.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Pipeline stages used as metric and log labels.
const (
	StageOutline = "outline"
	StageSlide   = "slide"
)

// jsonInstruction is appended to the system prompt for providers without a native JSON mode.
const jsonInstruction = "Respond with valid JSON only. Do not wrap it in prose."

// Request is a single completion request.
type Request struct {
	Stage       string  // Pipeline stage label (outline, slide)
	System      string  // Optional system instruction
	Prompt      string  // User prompt
	MaxTokens   int     // Maximum output tokens
	Temperature float32 // Sampling temperature
	JSON        bool    // Ask the provider to respond as JSON where supported
}

// Client is a text completion endpoint.
type Client interface {
	// Complete returns the raw model text for req.
	// Errors are classified as *Error where the provider reports enough detail.
	Complete(ctx context.Context, req Request) (string, error)

	// Model returns the model identifier used for requests.
	Model() string
}

// Func adapts a function to the Client interface.
type Func struct {
	ModelName string
	Fn        func(ctx context.Context, req Request) (string, error)
}

// Complete calls f.Fn.
func (f Func) Complete(ctx context.Context, req Request) (string, error) {
	return f.Fn(ctx, req)
}

// Model returns f.ModelName.
func (f Func) Model() string {
	return f.ModelName
}

// New creates a provider client for the given model.
func New(ctx context.Context, provider, apiKey, model string) (Client, error) {
	if apiKey == "" {
		return nil, NewError(ErrorTypeAuth, "missing LLM API key")
	}
	if model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}

	switch strings.ToLower(provider) {
	case "", ProviderGemini:
		return NewGemini(ctx, apiKey, model)
	case ProviderAnthropic:
		return NewAnthropic(apiKey, model), nil
	case ProviderOpenAI:
		return NewOpenAI(apiKey, model), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q (supported: %s, %s, %s)",
			provider, ProviderGemini, ProviderAnthropic, ProviderOpenAI)
	}
}

// systemWithJSON appends the JSON instruction to a system prompt.
func systemWithJSON(system string, asJSON bool) string {
	if !asJSON {
		return system
	}
	if system == "" {
		return jsonInstruction
	}
	return system + "\n\n" + jsonInstruction
}
