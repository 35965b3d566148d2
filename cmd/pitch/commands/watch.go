package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/pitch/internal/printer"
	"github.com/dyluth/pitch/internal/resolver"
	"github.com/dyluth/pitch/internal/watch"
	"github.com/dyluth/pitch/pkg/blackboard"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	watchOutputFormat string
	watchWait         time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <presentation-id>",
	Short: "Follow a generation run in real time",
	Long: `Follow a run through its Redis event mirror.

Prints status updates, blackboard entries and slides as the server streams
them, and exits when the run completes or fails. A finished run prints its
final status immediately.

Output Formats:
  default - Human-readable output with timestamps and emojis
  jsonl   - Line-delimited JSON for programmatic processing

Examples:
  pitch watch 550e8400-e29b-41d4-a716-446655440000
  pitch watch 550e84 --output jsonl > events.jsonl
  pitch watch 550e8400-e29b-41d4-a716-446655440000 --wait 10m`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or jsonl)")
	watchCmd.Flags().DurationVar(&watchWait, "wait", 0, "Give up after this long (0 waits indefinitely)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := parseWatchFormat(watchOutputFormat)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()
	if watchWait > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, watchWait)
		defer timeoutCancel()
	}

	bbClient, err := connectBlackboard(ctx)
	if err != nil {
		return err
	}
	defer bbClient.Close()

	// A full UUID may name a run that has not checkpointed yet
	presentationID := args[0]
	if _, err := uuid.Parse(presentationID); err != nil {
		if presentationID, err = resolvePresentation(ctx, bbClient, args[0]); err != nil {
			return err
		}
	}

	cp, err := bbClient.GetCheckpoint(ctx, presentationID)
	if err == nil && (cp.Status == blackboard.StatusCompleted || cp.Status == blackboard.StatusFailed) {
		return printFinished(cmd, cp)
	}

	if format == watch.OutputFormatDefault {
		printer.Step("Watching presentation %s\n", presentationID)
	}

	err = watch.StreamEvents(ctx, bbClient, presentationID, format, cmd.OutOrStdout())
	var runErr *watch.RunError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &runErr):
		return fmt.Errorf("%s", runErr.Message)
	case errors.Is(err, context.DeadlineExceeded):
		return printer.Error("watch timed out", fmt.Sprintf("No terminal event within %v", watchWait), nil)
	default:
		return err
	}
}

func printFinished(cmd *cobra.Command, cp *blackboard.Checkpoint) error {
	out := printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
	if cp.Status == blackboard.StatusFailed {
		msg, _ := cp.Metadata["error"].(string)
		out.Failure("Presentation %s failed: %s\n", cp.PresentationID, msg)
		return fmt.Errorf("presentation %s failed", cp.PresentationID)
	}
	out.Success("Presentation %s completed with %d slides and %d blackboard entries\n",
		cp.PresentationID, len(cp.Slides), len(cp.Blackboard))
	return nil
}

// resolvePresentation expands a short ID, printing friendly errors.
func resolvePresentation(ctx context.Context, bbClient *blackboard.Client, shortID string) (string, error) {
	id, err := resolver.ResolvePresentationID(ctx, bbClient, shortID)
	if err == nil {
		return id, nil
	}

	var notFound *resolver.NotFoundError
	var ambiguous *resolver.AmbiguousError
	switch {
	case errors.As(err, &notFound):
		return "", printer.Error(
			"presentation not found",
			err.Error(),
			[]string{"List presentations:\n  pitch board"},
		)
	case errors.As(err, &ambiguous):
		return "", printer.Error(
			"ambiguous presentation ID",
			fmt.Sprintf("'%s' matches %d presentations:\n%s", shortID, len(ambiguous.Matches), ambiguous.Describe()),
			nil,
		)
	default:
		return "", err
	}
}
