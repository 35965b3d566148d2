// Package imagegen turns slide image prompts into image URLs.
//
// Two collaborators are supported: a remote image function reached over HTTP
// and Gemini Imagen called directly. Both return either a hosted URL or a
// base64 data URL. Failures are returned to the caller, which treats them as
// non-fatal.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// ErrNoImage is returned when the collaborator answered but produced no image.
var ErrNoImage = errors.New("image generator returned no image")

// Generator produces an image for a text prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// DataURL encodes raw image bytes as a data URL.
func DataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// FunctionClient calls a remote image-generation function.
// Request body is {"prompt": "..."}; the response carries either "imageUrl"
// or a base64 "image" with an optional "mimeType".
type FunctionClient struct {
	url    string
	key    string
	client *http.Client
}

// NewFunctionClient creates a client for the image function at url.
func NewFunctionClient(url, key string) *FunctionClient {
	return &FunctionClient{
		url:    strings.TrimSuffix(url, "/"),
		key:    key,
		client: &http.Client{Timeout: 2 * time.Minute},
	}
}

type functionRequest struct {
	Prompt string `json:"prompt"`
}

type functionResponse struct {
	ImageURL string `json:"imageUrl"`
	Image    string `json:"image"`
	MIMEType string `json:"mimeType"`
	Error    string `json:"error"`
}

// Generate implements Generator.
func (c *FunctionClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(functionRequest{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
		req.Header.Set("apikey", c.key)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("image function request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read image function response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image function returned status %d: %s", resp.StatusCode, truncate(string(payload), 200))
	}

	var out functionResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("failed to decode image function response: %w", err)
	}

	switch {
	case out.Error != "":
		return "", fmt.Errorf("image function error: %s", out.Error)
	case out.ImageURL != "":
		return out.ImageURL, nil
	case strings.HasPrefix(out.Image, "data:"):
		return out.Image, nil
	case out.Image != "":
		return "data:" + defaultMIME(out.MIMEType) + ";base64," + out.Image, nil
	default:
		return "", ErrNoImage
	}
}

// Imagen generates images with a Gemini Imagen model.
type Imagen struct {
	client *genai.Client
	model  string
}

// NewImagen creates an Imagen generator.
func NewImagen(ctx context.Context, apiKey, model string) (*Imagen, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Imagen{client: client, model: model}, nil
}

// Generate implements Generator.
func (g *Imagen) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateImages(ctx, g.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return "", fmt.Errorf("imagen request failed: %w", err)
	}

	if resp == nil || len(resp.GeneratedImages) == 0 {
		return "", ErrNoImage
	}

	img := resp.GeneratedImages[0].Image
	if img == nil || len(img.ImageBytes) == 0 {
		return "", ErrNoImage
	}

	return DataURL(img.MIMEType, img.ImageBytes), nil
}

func defaultMIME(mimeType string) string {
	if mimeType == "" {
		return "image/png"
	}
	return mimeType
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
