package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dyluth/pitch/internal/app"
	"github.com/dyluth/pitch/internal/printer"
	"github.com/dyluth/pitch/internal/server"
	"github.com/dyluth/pitch/internal/stream"
	"github.com/dyluth/pitch/internal/watch"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	genProjectID      string
	genPresentationID string
	genShareToken     string
	genMode           string
	genSlides         int
	genPrompt         string
	genOutput         string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run one generation locally and print its events",
	Long: `Run the full pipeline for one project in this process.

Events are printed as they are produced. The run is checkpointed exactly as
a server run would be, and mirrored to Redis when REDIS_URL is set.

Examples:
  # Eight concise slides with a generated presentation id
  pitch generate --project 3f2a... --token share-abc

  # Detailed deck, machine-readable output
  pitch generate --project 3f2a... --token share-abc --mode detailed --slides 20 --output jsonl`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genProjectID, "project", "p", "", "Project ID (required)")
	generateCmd.Flags().StringVar(&genPresentationID, "presentation", "", "Presentation ID (default: new UUID)")
	generateCmd.Flags().StringVarP(&genShareToken, "token", "t", "", "Share token authorizing reads and writes (required)")
	generateCmd.Flags().StringVarP(&genMode, "mode", "m", "concise", "Presentation mode (concise or detailed)")
	generateCmd.Flags().IntVarP(&genSlides, "slides", "s", server.DefaultTargetSlides, "Target slide count")
	generateCmd.Flags().StringVar(&genPrompt, "prompt", "", "Steering text for the outline and slides")
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "default", "Output format (default or jsonl)")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	format, err := parseWatchFormat(genOutput)
	if err != nil {
		return err
	}

	if genPresentationID == "" {
		genPresentationID = uuid.New().String()
	}

	body := server.GenerateRequest{
		ProjectID:      genProjectID,
		PresentationID: genPresentationID,
		ShareToken:     genShareToken,
		Mode:           genMode,
		TargetSlides:   genSlides,
		InitialPrompt:  genPrompt,
	}
	if err := body.Validate(); err != nil {
		return printer.Error("invalid request", err.Error(), []string{"Pass --project and --token"})
	}

	cfg, secrets, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := app.Build(ctx, cfg, secrets)
	if err != nil {
		return printer.Error("failed to initialize", err.Error(), nil)
	}
	defer a.Close()

	out := watch.NewEmitter(cmd.OutOrStdout(), format)
	var emitter stream.Emitter = out
	if a.Blackboard != nil {
		emitter = stream.Fanout(out, stream.NewMirror(ctx, a.Blackboard, body.PresentationID))
	}

	req := body.RunRequest()
	if format == watch.OutputFormatDefault {
		printer.Step("Generating presentation %s (%d slides, %s)\n", req.PresentationID, req.TargetSlides, req.Mode)
	}

	if err := a.Engine.Generate(ctx, req, emitter); err != nil {
		return printer.ErrorWithContext(
			"generation failed",
			err.Error(),
			map[string]string{"Presentation": req.PresentationID},
			nil,
		)
	}
	if err := out.Err(); err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	return nil
}

func parseWatchFormat(s string) (watch.OutputFormat, error) {
	switch watch.OutputFormat(s) {
	case watch.OutputFormatDefault, watch.OutputFormatJSONL:
		return watch.OutputFormat(s), nil
	default:
		return "", printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", s),
			[]string{"Valid formats: default, jsonl"},
		)
	}
}
