package commands

import (
	"context"
	"fmt"

	"github.com/dyluth/pitch/internal/app"
	"github.com/dyluth/pitch/internal/config"
	"github.com/dyluth/pitch/internal/printer"
	"github.com/dyluth/pitch/pkg/blackboard"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

var (
	configPath   string
	redisURL     string
	instanceName string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pitch",
	Short: "Pitch - streaming presentation generator",
	Long: `Pitch turns a project's requirements, architecture, code and deployments
into a slide deck, streaming progress and slides as they are produced.

Runs are checkpointed to the project data store and, when REDIS_URL is set,
mirrored to Redis so they can be watched and inspected from this CLI.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to pitch.yml (defaults apply when missing)")
	rootCmd.PersistentFlags().StringVar(&redisURL, "redis-url", "", "Redis mirror URL (default $REDIS_URL)")
	rootCmd.PersistentFlags().StringVarP(&instanceName, "name", "n", "", "Redis instance name (default from pitch.yml or $PITCH_INSTANCE_NAME)")
}

// loadConfig loads pitch.yml and applies environment overrides.
func loadConfig() (*config.PitchConfig, *config.Secrets, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, nil, printer.Error(
			"invalid configuration",
			err.Error(),
			[]string{fmt.Sprintf("Fix or remove %s", configPath)},
		)
	}

	secrets := config.LoadSecrets()
	if redisURL != "" {
		secrets.RedisURL = redisURL
	}
	if instanceName != "" {
		secrets.InstanceName = instanceName
	}
	secrets.Apply(cfg)

	return cfg, secrets, nil
}

// connectBlackboard opens the Redis mirror for read-only commands.
func connectBlackboard(ctx context.Context) (*blackboard.Client, error) {
	cfg, secrets, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if secrets.RedisURL == "" {
		return nil, printer.Error(
			"Redis mirror not configured",
			"This command reads runs mirrored to Redis.",
			[]string{"Set REDIS_URL or pass --redis-url redis://host:6379"},
		)
	}

	bbClient, err := app.ConnectBlackboard(ctx, secrets.RedisURL, cfg.Redis.InstanceName)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			err.Error(),
			map[string]string{"Instance": cfg.Redis.InstanceName},
			[]string{"Check that Redis is running and REDIS_URL is correct"},
		)
	}

	return bbClient, nil
}
