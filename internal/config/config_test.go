package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pitch.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
server:
  addr: ":9090"
llm:
  provider: Anthropic
  slide:
    max_tokens: 2048
    temperature: 0
generation:
  checkpoint_every: 2
images:
  provider: none
redis:
  instance_name: staging
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-sonnet-4-5", cfg.LLM.Model)
	assert.Equal(t, 8192, cfg.LLM.Outline.MaxTokens)
	assert.Equal(t, 2048, cfg.LLM.Slide.MaxTokens)
	assert.Equal(t, float32(0), *cfg.LLM.Slide.Temperature)
	assert.Equal(t, float32(0.7), *cfg.LLM.Outline.Temperature)
	assert.Equal(t, 2, cfg.Generation.CheckpointEvery)
	assert.Equal(t, 5, cfg.Generation.EnrichLimit)
	assert.Equal(t, "none", cfg.Images.Provider)
	assert.Equal(t, "staging", cfg.Redis.InstanceName)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/pitch.yml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "version: [unclosed")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "pitch.yml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, 4096, cfg.LLM.Slide.MaxTokens)
	assert.Equal(t, 3, cfg.Generation.CheckpointEvery)
	assert.Equal(t, 5, cfg.Generation.EnrichLimit)
	assert.Equal(t, "function", cfg.Images.Provider)
	assert.Equal(t, "default", cfg.Redis.InstanceName)
}

func TestValidate_Errors(t *testing.T) {
	negative := float32(-1)

	tests := []struct {
		name    string
		config  PitchConfig
		wantErr string
	}{
		{
			name:    "unsupported version",
			config:  PitchConfig{Version: "2.0"},
			wantErr: "unsupported version: 2.0",
		},
		{
			name:    "unknown provider",
			config:  PitchConfig{Version: "1.0", LLM: &LLMConfig{Provider: "llama"}},
			wantErr: "invalid llm.provider",
		},
		{
			name:    "negative temperature",
			config:  PitchConfig{Version: "1.0", LLM: &LLMConfig{Outline: &StageOptions{Temperature: &negative}}},
			wantErr: "llm.outline.temperature",
		},
		{
			name:    "negative max tokens",
			config:  PitchConfig{Version: "1.0", LLM: &LLMConfig{Slide: &StageOptions{MaxTokens: -5}}},
			wantErr: "llm.slide.max_tokens",
		},
		{
			name:    "negative checkpoint interval",
			config:  PitchConfig{Version: "1.0", Generation: &GenerationConfig{CheckpointEvery: -1}},
			wantErr: "generation.checkpoint_every",
		},
		{
			name:    "negative enrich limit",
			config:  PitchConfig{Version: "1.0", Generation: &GenerationConfig{EnrichLimit: -1}},
			wantErr: "generation.enrich_limit",
		},
		{
			name:    "imagen without model",
			config:  PitchConfig{Version: "1.0", Images: &ImagesConfig{Provider: "imagen"}},
			wantErr: "images.model is required",
		},
		{
			name:    "instance name with uppercase",
			config:  PitchConfig{Version: "1.0", Redis: &RedisConfig{InstanceName: "Prod"}},
			wantErr: "invalid redis.instance_name",
		},
		{
			name:    "instance name trailing hyphen",
			config:  PitchConfig{Version: "1.0", Redis: &RedisConfig{InstanceName: "prod-"}},
			wantErr: "invalid redis.instance_name",
		},
		{
			name:    "unknown image provider",
			config:  PitchConfig{Version: "1.0", Images: &ImagesConfig{Provider: "dalle"}},
			wantErr: "invalid images.provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ProviderDefaults(t *testing.T) {
	for provider, model := range defaultModels {
		t.Run(provider, func(t *testing.T) {
			cfg := PitchConfig{Version: "1.0", LLM: &LLMConfig{Provider: provider}}
			require.NoError(t, cfg.Validate())
			assert.Equal(t, model, cfg.LLM.Model)
		})
	}
}

func TestSecrets(t *testing.T) {
	t.Run("loads from environment", func(t *testing.T) {
		t.Setenv("PITCH_DATASTORE_URL", "https://data.example")
		t.Setenv("PITCH_DATASTORE_KEY", "service-key")
		t.Setenv("PITCH_LLM_API_KEY", "")
		t.Setenv("PITCH_IMAGE_FUNCTION_URL", "")
		t.Setenv("PITCH_IMAGE_FUNCTION_KEY", "")
		t.Setenv("REDIS_URL", "redis://localhost:6379")
		t.Setenv("PITCH_INSTANCE_NAME", "blue")

		s := LoadSecrets()
		require.NoError(t, s.Validate())
		assert.Equal(t, "https://data.example", s.DatastoreURL)
		assert.Equal(t, "redis://localhost:6379", s.RedisURL)

		cfg := Default()
		s.Apply(cfg)
		assert.Equal(t, "blue", cfg.Redis.InstanceName)
	})

	tests := []struct {
		name    string
		secrets Secrets
		wantErr string
	}{
		{"missing datastore url", Secrets{DatastoreKey: "k"}, "PITCH_DATASTORE_URL"},
		{"missing datastore key", Secrets{DatastoreURL: "u"}, "PITCH_DATASTORE_KEY"},
		{"bad instance name", Secrets{DatastoreURL: "u", DatastoreKey: "k", InstanceName: "Blue_1"}, "PITCH_INSTANCE_NAME"},
		{"image url without key", Secrets{DatastoreURL: "u", DatastoreKey: "k", ImageFunctionURL: "i"}, "must be set together"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.secrets.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("missing llm key is not a startup error", func(t *testing.T) {
		s := Secrets{DatastoreURL: "u", DatastoreKey: "k"}
		assert.NoError(t, s.Validate())
	})
}
