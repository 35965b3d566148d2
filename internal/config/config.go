package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "pitch.yml"

const maxInstanceNameLength = 63

var instanceNamePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// Default model per provider.
var defaultModels = map[string]string{
	"gemini":    "gemini-2.5-flash",
	"anthropic": "claude-sonnet-4-5",
	"openai":    "gpt-4.1-mini",
}

// PitchConfig represents the top-level pitch.yml configuration
type PitchConfig struct {
	Version    string            `yaml:"version"`
	Server     *ServerConfig     `yaml:"server,omitempty"`
	LLM        *LLMConfig        `yaml:"llm,omitempty"`
	Generation *GenerationConfig `yaml:"generation,omitempty"`
	Images     *ImagesConfig     `yaml:"images,omitempty"`
	Redis      *RedisConfig      `yaml:"redis,omitempty"`
}

// ServerConfig specifies the HTTP listener
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"` // Default: ":8080"
}

// LLMConfig selects the model provider and per-stage generation options
type LLMConfig struct {
	Provider string        `yaml:"provider,omitempty"` // gemini (default), anthropic or openai
	Model    string        `yaml:"model,omitempty"`    // Default depends on provider
	Outline  *StageOptions `yaml:"outline,omitempty"`
	Slide    *StageOptions `yaml:"slide,omitempty"`
}

// StageOptions are generation options for one pipeline stage
type StageOptions struct {
	MaxTokens   int      `yaml:"max_tokens,omitempty"`
	Temperature *float32 `yaml:"temperature,omitempty"`
}

// GenerationConfig tunes the slide loop
type GenerationConfig struct {
	CheckpointEvery int `yaml:"checkpoint_every,omitempty"` // Persist after this many slides (default 3)
	EnrichLimit     int `yaml:"enrich_limit,omitempty"`     // Max slides receiving images (default 5)
}

// ImagesConfig selects the image collaborator
type ImagesConfig struct {
	Provider string `yaml:"provider,omitempty"` // function (default), imagen or none
	Model    string `yaml:"model,omitempty"`    // Imagen model, required for provider imagen
}

// RedisConfig controls the Redis checkpoint and event mirror
type RedisConfig struct {
	InstanceName string `yaml:"instance_name,omitempty"` // Key namespace (default "default")
}

// Default returns a validated configuration with every default applied.
func Default() *PitchConfig {
	cfg := &PitchConfig{Version: "1.0"}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}

// Validate performs strict validation on the configuration, applying defaults in place
func (c *PitchConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}

	if c.LLM == nil {
		c.LLM = &LLMConfig{}
	}
	if err := c.LLM.Validate(); err != nil {
		return err
	}

	if c.Generation == nil {
		c.Generation = &GenerationConfig{}
	}
	if c.Generation.CheckpointEvery == 0 {
		c.Generation.CheckpointEvery = 3
	}
	if c.Generation.CheckpointEvery < 1 {
		return fmt.Errorf("generation.checkpoint_every must be >= 1, got %d", c.Generation.CheckpointEvery)
	}
	if c.Generation.EnrichLimit == 0 {
		c.Generation.EnrichLimit = 5
	}
	if c.Generation.EnrichLimit < 0 {
		return fmt.Errorf("generation.enrich_limit must be >= 0, got %d", c.Generation.EnrichLimit)
	}

	if c.Images == nil {
		c.Images = &ImagesConfig{}
	}
	if c.Images.Provider == "" {
		c.Images.Provider = "function"
	}
	switch c.Images.Provider {
	case "function", "none":
	case "imagen":
		if c.Images.Model == "" {
			return fmt.Errorf("images.model is required when images.provider is 'imagen'")
		}
	default:
		return fmt.Errorf("invalid images.provider: %s (must be 'function', 'imagen', or 'none')", c.Images.Provider)
	}

	if c.Redis == nil {
		c.Redis = &RedisConfig{}
	}
	if c.Redis.InstanceName == "" {
		c.Redis.InstanceName = "default"
	}
	if err := ValidateInstanceName(c.Redis.InstanceName); err != nil {
		return err
	}

	return nil
}

// Validate checks the provider and applies model and stage defaults
func (l *LLMConfig) Validate() error {
	if l.Provider == "" {
		l.Provider = "gemini"
	}
	l.Provider = strings.ToLower(l.Provider)

	defaultModel, ok := defaultModels[l.Provider]
	if !ok {
		return fmt.Errorf("invalid llm.provider: %s (must be 'gemini', 'anthropic', or 'openai')", l.Provider)
	}
	if l.Model == "" {
		l.Model = defaultModel
	}

	if l.Outline == nil {
		l.Outline = &StageOptions{}
	}
	if err := l.Outline.applyDefaults("outline", 8192); err != nil {
		return err
	}

	if l.Slide == nil {
		l.Slide = &StageOptions{}
	}
	return l.Slide.applyDefaults("slide", 4096)
}

func (s *StageOptions) applyDefaults(stage string, maxTokens int) error {
	if s.MaxTokens == 0 {
		s.MaxTokens = maxTokens
	}
	if s.MaxTokens < 0 {
		return fmt.Errorf("llm.%s.max_tokens must be > 0, got %d", stage, s.MaxTokens)
	}
	if s.Temperature == nil {
		defaultTemperature := float32(0.7)
		s.Temperature = &defaultTemperature
	}
	if *s.Temperature < 0 || *s.Temperature > 2 {
		return fmt.Errorf("llm.%s.temperature must be between 0 and 2, got %v", stage, *s.Temperature)
	}
	return nil
}

// ValidateInstanceName checks that a Redis key namespace is DNS-compatible:
// lowercase alphanumeric with hyphens, at most 63 characters.
func ValidateInstanceName(name string) error {
	if len(name) > maxInstanceNameLength {
		return fmt.Errorf("redis.instance_name too long: %d characters (max: %d)", len(name), maxInstanceNameLength)
	}
	if !instanceNamePattern.MatchString(name) {
		return fmt.Errorf("invalid redis.instance_name '%s': must be lowercase alphanumeric with hyphens (not at start/end)", name)
	}
	return nil
}

// Load reads and validates pitch.yml from the specified path
func Load(path string) (*PitchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config PitchConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault loads path, or returns Default when the file does not exist.
func LoadOrDefault(path string) (*PitchConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}
