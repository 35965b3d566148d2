package config

import (
	"fmt"
	"os"
)

// Secrets holds credentials and endpoints loaded from environment variables.
// They never appear in pitch.yml.
type Secrets struct {
	// DatastoreURL is the project data store base URL (from PITCH_DATASTORE_URL)
	DatastoreURL string

	// DatastoreKey is the data store service key (from PITCH_DATASTORE_KEY)
	DatastoreKey string

	// LLMAPIKey is the model provider key (from PITCH_LLM_API_KEY).
	// A missing key is reported per request, not at startup.
	LLMAPIKey string

	// ImageFunctionURL is the image generation function endpoint (from PITCH_IMAGE_FUNCTION_URL)
	ImageFunctionURL string

	// ImageFunctionKey authorizes the image function (from PITCH_IMAGE_FUNCTION_KEY)
	ImageFunctionKey string

	// RedisURL enables the Redis mirror when set (from REDIS_URL)
	RedisURL string

	// InstanceName overrides redis.instance_name (from PITCH_INSTANCE_NAME)
	InstanceName string
}

// LoadSecrets reads secrets from the environment without validating them.
func LoadSecrets() *Secrets {
	return &Secrets{
		DatastoreURL:     os.Getenv("PITCH_DATASTORE_URL"),
		DatastoreKey:     os.Getenv("PITCH_DATASTORE_KEY"),
		LLMAPIKey:        os.Getenv("PITCH_LLM_API_KEY"),
		ImageFunctionURL: os.Getenv("PITCH_IMAGE_FUNCTION_URL"),
		ImageFunctionKey: os.Getenv("PITCH_IMAGE_FUNCTION_KEY"),
		RedisURL:         os.Getenv("REDIS_URL"),
		InstanceName:     os.Getenv("PITCH_INSTANCE_NAME"),
	}
}

// Validate checks the secrets a server needs at startup.
// Returns the first validation error encountered.
func (s *Secrets) Validate() error {
	if s.DatastoreURL == "" {
		return fmt.Errorf("PITCH_DATASTORE_URL environment variable is required")
	}

	if s.DatastoreKey == "" {
		return fmt.Errorf("PITCH_DATASTORE_KEY environment variable is required")
	}

	if s.InstanceName != "" {
		if err := ValidateInstanceName(s.InstanceName); err != nil {
			return fmt.Errorf("PITCH_INSTANCE_NAME: %w", err)
		}
	}

	if (s.ImageFunctionURL == "") != (s.ImageFunctionKey == "") {
		return fmt.Errorf("PITCH_IMAGE_FUNCTION_URL and PITCH_IMAGE_FUNCTION_KEY must be set together")
	}

	return nil
}

// Apply overlays environment overrides onto cfg.
func (s *Secrets) Apply(cfg *PitchConfig) {
	if s.InstanceName != "" && cfg.Redis != nil {
		cfg.Redis.InstanceName = s.InstanceName
	}
}
