package llm

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// OpenAI calls the OpenAI Responses API.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an OpenAI client for model.
func NewOpenAI(apiKey, model string, opts ...option.RequestOption) *OpenAI {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Complete implements Client.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	params := responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(int64(req.MaxTokens)),
		Input:           responses.ResponseNewParamsInputUnion{OfString: openai.String(req.Prompt)},
		Temperature:     openai.Float(float64(req.Temperature)),
	}

	if system := systemWithJSON(req.System, req.JSON); system != "" {
		params.Instructions = openai.String(system)
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return "", classify("openai", err, openaiStatus(err))
	}

	if resp == nil {
		return "", NewError(ErrorTypeEmptyResponse, "empty response from OpenAI API")
	}

	text := resp.OutputText()
	if text == "" {
		return "", NewError(ErrorTypeEmptyResponse, "OpenAI response contained no output text")
	}

	return text, nil
}

// Model implements Client.
func (o *OpenAI) Model() string {
	return o.model
}

func openaiStatus(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
