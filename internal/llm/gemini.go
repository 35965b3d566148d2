package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Gemini calls the Gemini API. JSON mode uses the native response MIME type.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini client for model.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

// Complete implements Client.
func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	temperature := req.Temperature
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(req.MaxTokens),
	}

	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", classify("gemini", err, geminiStatus(err))
	}

	if result == nil {
		return "", NewError(ErrorTypeEmptyResponse, "empty response from Gemini API")
	}

	text := result.Text()
	if text == "" {
		return "", NewError(ErrorTypeEmptyResponse, "Gemini response contained no text")
	}

	return text, nil
}

// Model implements Client.
func (g *Gemini) Model() string {
	return g.model
}

func geminiStatus(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
