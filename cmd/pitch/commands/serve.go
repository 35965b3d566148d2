package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/pitch/internal/app"
	"github.com/dyluth/pitch/internal/printer"
	"github.com/spf13/cobra"
)

var (
	serveAddr  string
	serveDrain time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the streaming HTTP server",
	Long: `Run the generation server configured by pitch.yml.

POST /generate (or /) starts a run and streams Server-Sent Events.
GET /healthz reports Redis connectivity and GET /metrics exposes Prometheus metrics.

Secrets are read from the environment:
  PITCH_DATASTORE_URL, PITCH_DATASTORE_KEY   (required)
  PITCH_LLM_API_KEY                          (runs are rejected without it)
  PITCH_IMAGE_FUNCTION_URL, PITCH_IMAGE_FUNCTION_KEY
  REDIS_URL, PITCH_INSTANCE_NAME`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().DurationVar(&serveDrain, "drain", 30*time.Second, "How long to wait for in-flight runs on shutdown")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, secrets, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := app.Build(ctx, cfg, secrets)
	if err != nil {
		return printer.Error("failed to start server", err.Error(), nil)
	}
	defer a.Close()

	printer.Success("Serving on %s (%s/%s)\n", cfg.Server.Addr, cfg.LLM.Provider, cfg.LLM.Model)
	return a.Serve(ctx, serveDrain)
}
