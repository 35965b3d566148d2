package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/pitch/internal/app"
	"github.com/dyluth/pitch/internal/config"
)

func main() {
	// 1. Load secrets from the environment
	secrets := config.LoadSecrets()
	if err := secrets.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// 2. Load pitch.yml, falling back to defaults when absent
	configPath := os.Getenv("PITCH_CONFIG")
	if configPath == "" {
		configPath = config.DefaultPath
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load %s: %v\n", configPath, err)
		os.Exit(1)
	}

	// 3. Wire the engine (verifies Redis when REDIS_URL is set)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := app.Build(ctx, cfg, secrets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	fmt.Printf("pitchd starting on %s (instance '%s', %s/%s)\n",
		cfg.Server.Addr, cfg.Redis.InstanceName, cfg.LLM.Provider, cfg.LLM.Model)

	// 4. Serve until signalled
	if err := a.Serve(ctx, 30*time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("pitchd stopped")
}
