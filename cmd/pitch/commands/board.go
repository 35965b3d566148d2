package commands

import (
	"context"
	"time"

	"github.com/dyluth/pitch/internal/board"
	"github.com/dyluth/pitch/internal/filter"
	"github.com/dyluth/pitch/internal/printer"
	"github.com/dyluth/pitch/internal/timespec"
	"github.com/spf13/cobra"
)

var (
	boardOutput     string
	boardSince      string
	boardUntil      string
	boardCategory   string
	boardSource     string
	boardCheckpoint bool
)

var boardCmd = &cobra.Command{
	Use:   "board [presentation-id]",
	Short: "Inspect checkpointed presentations and their blackboards",
	Long: `Without an argument, list every presentation mirrored on the instance.
With a presentation ID (or a unique prefix of at least 6 characters), list its
blackboard entries in append order.

Filters (entries only, ANDed together):
  --since / --until   duration ago ("2h"), RFC3339 or date ("2026-10-01")
  --category          glob on the category ("insight", "*tion")
  --source            glob on the producing step ("collect.*")

Examples:
  pitch board
  pitch board 550e84 --category insight
  pitch board 550e84 --source 'collect.*' --since 1h --output jsonl
  pitch board 550e84 --checkpoint`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBoard,
}

func init() {
	boardCmd.Flags().StringVarP(&boardOutput, "output", "o", "default", "Output format (default or jsonl)")
	boardCmd.Flags().StringVar(&boardSince, "since", "", "Only entries at or after this time")
	boardCmd.Flags().StringVar(&boardUntil, "until", "", "Only entries at or before this time")
	boardCmd.Flags().StringVar(&boardCategory, "category", "", "Category glob")
	boardCmd.Flags().StringVar(&boardSource, "source", "", "Source step glob")
	boardCmd.Flags().BoolVar(&boardCheckpoint, "checkpoint", false, "Print the full checkpoint as JSON")
	rootCmd.AddCommand(boardCmd)
}

func runBoard(cmd *cobra.Command, args []string) error {
	format, err := board.ParseOutputFormat(boardOutput)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: default, jsonl"})
	}

	window, err := timespec.ParseRange(boardSince, boardUntil, time.Now())
	if err != nil {
		return printer.Error("invalid time range", err.Error(), nil)
	}
	criteria := &filter.Criteria{
		Window:       window,
		CategoryGlob: boardCategory,
		SourceGlob:   boardSource,
	}

	ctx := context.Background()
	bbClient, err := connectBlackboard(ctx)
	if err != nil {
		return err
	}
	defer bbClient.Close()

	if len(args) == 0 {
		if criteria.HasFilters() || boardCheckpoint {
			return printer.Error("presentation ID required", "Filters and --checkpoint apply to one presentation.", []string{"pitch board <presentation-id> ..."})
		}
		return board.ListPresentations(ctx, bbClient, format, cmd.OutOrStdout())
	}

	presentationID, err := resolvePresentation(ctx, bbClient, args[0])
	if err != nil {
		return err
	}

	if boardCheckpoint {
		return board.GetCheckpoint(ctx, bbClient, presentationID, cmd.OutOrStdout())
	}
	return board.ListEntries(ctx, bbClient, presentationID, format, criteria, cmd.OutOrStdout())
}
