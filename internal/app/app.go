// Package app wires configuration and secrets into a ready pipeline engine.
// Both pitchd and the pitch CLI build their collaborators here.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dyluth/pitch/internal/config"
	"github.com/dyluth/pitch/internal/datastore"
	"github.com/dyluth/pitch/internal/generator"
	"github.com/dyluth/pitch/internal/imagegen"
	"github.com/dyluth/pitch/internal/llm"
	"github.com/dyluth/pitch/internal/metrics"
	"github.com/dyluth/pitch/internal/orchestrator"
	"github.com/dyluth/pitch/internal/planner"
	"github.com/dyluth/pitch/internal/runstate"
	"github.com/dyluth/pitch/internal/server"
	"github.com/dyluth/pitch/pkg/blackboard"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// App holds the wired engine and the resources it owns.
type App struct {
	Config   *config.PitchConfig
	Engine   *orchestrator.Engine
	Registry *prometheus.Registry

	// Blackboard is the Redis mirror, nil when REDIS_URL is unset.
	Blackboard *blackboard.Client
}

// Build validates secrets and constructs every collaborator.
func Build(ctx context.Context, cfg *config.PitchConfig, secrets *config.Secrets) (*App, error) {
	if err := secrets.Validate(); err != nil {
		return nil, err
	}
	secrets.Apply(cfg)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewPrometheusRecorder(reg)

	a := &App{Config: cfg, Registry: reg}

	ds := datastore.NewClient(secrets.DatastoreURL, secrets.DatastoreKey)
	var store runstate.Checkpointer = ds

	if secrets.RedisURL != "" {
		bb, err := ConnectBlackboard(ctx, secrets.RedisURL, cfg.Redis.InstanceName)
		if err != nil {
			return nil, err
		}
		a.Blackboard = bb
		store = runstate.Tee(ds, bb)
		log.Printf("[App] Mirroring checkpoints to Redis instance '%s'", cfg.Redis.InstanceName)
	}

	client, err := newLLM(ctx, cfg, secrets.LLMAPIKey, recorder)
	if err != nil {
		a.Close()
		return nil, err
	}

	images, err := newImages(ctx, cfg, secrets)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Engine = orchestrator.NewEngine(orchestrator.Config{
		Source:      ds,
		Store:       store,
		LLM:         client,
		Images:      images,
		EnrichLimit: cfg.Generation.EnrichLimit,
		Planner: planner.Options{
			MaxTokens:   cfg.LLM.Outline.MaxTokens,
			Temperature: *cfg.LLM.Outline.Temperature,
		},
		Generator: generator.Options{
			MaxTokens:       cfg.LLM.Slide.MaxTokens,
			Temperature:     *cfg.LLM.Slide.Temperature,
			CheckpointEvery: cfg.Generation.CheckpointEvery,
		},
		Recorder:     recorder,
		InstanceName: cfg.Redis.InstanceName,
	})

	return a, nil
}

// Server builds the HTTP front end for the engine.
func (a *App) Server() *server.Server {
	opts := server.Options{
		Addr:     a.Config.Server.Addr,
		Gatherer: a.Registry,
	}
	if a.Blackboard != nil {
		opts.Redis = a.Blackboard
		opts.Mirror = a.Blackboard
	}
	return server.New(a.Engine, opts)
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests for up to drain.
func (a *App) Serve(ctx context.Context, drain time.Duration) error {
	srv := a.Server()
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	<-ctx.Done()
	log.Printf("[App] Shutting down, draining for up to %v", drain)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// Close releases the Redis connection, if any.
func (a *App) Close() error {
	if a.Blackboard == nil {
		return nil
	}
	return a.Blackboard.Close()
}

// ConnectBlackboard parses redisURL, connects and verifies connectivity.
func ConnectBlackboard(ctx context.Context, redisURL, instanceName string) (*blackboard.Client, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	bb, err := blackboard.NewClient(redisOpts, instanceName)
	if err != nil {
		return nil, fmt.Errorf("failed to create blackboard client: %w", err)
	}

	if err := bb.Ping(ctx); err != nil {
		bb.Close()
		return nil, fmt.Errorf("Redis not accessible at %s: %w", redisURL, err)
	}

	return bb, nil
}

// newLLM returns nil without an API key; the engine then rejects each run
// with a single error event.
func newLLM(ctx context.Context, cfg *config.PitchConfig, apiKey string, recorder metrics.Recorder) (llm.Client, error) {
	if apiKey == "" {
		log.Printf("[App] PITCH_LLM_API_KEY not set, generation requests will be rejected")
		return nil, nil
	}

	client, err := llm.New(ctx, cfg.LLM.Provider, apiKey, cfg.LLM.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	log.Printf("[App] Using %s model %s", cfg.LLM.Provider, cfg.LLM.Model)
	return llm.Instrument(llm.WithRetry(client, llm.NoRetry()), recorder), nil
}

// newImages returns nil when image enrichment is disabled or unconfigured.
func newImages(ctx context.Context, cfg *config.PitchConfig, secrets *config.Secrets) (imagegen.Generator, error) {
	switch cfg.Images.Provider {
	case "function":
		if secrets.ImageFunctionURL == "" {
			return nil, nil
		}
		return imagegen.NewFunctionClient(secrets.ImageFunctionURL, secrets.ImageFunctionKey), nil
	case "imagen":
		if secrets.LLMAPIKey == "" {
			return nil, nil
		}
		g, err := imagegen.NewImagen(ctx, secrets.LLMAPIKey, cfg.Images.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create Imagen client: %w", err)
		}
		return g, nil
	default:
		return nil, nil
	}
}
