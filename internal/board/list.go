// Package board renders checkpoints and blackboard entries stored on the
// Redis mirror for operators.
package board

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dyluth/pitch/internal/filter"
	"github.com/dyluth/pitch/pkg/blackboard"
)

// OutputFormat specifies how listings are written.
type OutputFormat string

const (
	// OutputFormatDefault uses a table with truncated content
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete records as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSONL:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format: %s (valid: default, jsonl)", s)
	}
}

// ListPresentations writes every checkpointed presentation on the instance,
// most recently updated first. Unreadable checkpoints are skipped with a
// warning to stderr.
func ListPresentations(ctx context.Context, bbClient *blackboard.Client, format OutputFormat, w io.Writer) error {
	ids, err := bbClient.ScanPresentations(ctx, "")
	if err != nil {
		return err
	}

	checkpoints := make([]*blackboard.Checkpoint, 0, len(ids))
	for _, id := range ids {
		cp, err := bbClient.GetCheckpoint(ctx, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Skipping unreadable presentation: id=%s (error: %v)\n", id, err)
			continue
		}
		checkpoints = append(checkpoints, cp)
	}

	sort.SliceStable(checkpoints, func(i, j int) bool {
		return checkpoints[i].UpdatedAtMs > checkpoints[j].UpdatedAtMs
	})

	switch format {
	case OutputFormatDefault:
		FormatPresentations(w, checkpoints, bbClient.InstanceName())
	case OutputFormatJSONL:
		if err := FormatJSONL(w, checkpoints); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}

// ListEntries writes the blackboard of one presentation in append order,
// keeping only entries matching criteria (nil keeps all).
func ListEntries(ctx context.Context, bbClient *blackboard.Client, presentationID string, format OutputFormat, criteria *filter.Criteria, w io.Writer) error {
	entries, err := bbClient.ListEntries(ctx, presentationID)
	if err != nil {
		return err
	}

	if criteria != nil {
		entries = criteria.Apply(entries)
	}

	switch format {
	case OutputFormatDefault:
		FormatEntries(w, entries, presentationID)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, entries); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}
