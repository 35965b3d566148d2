package board

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/pitch/pkg/blackboard"
)

// FormatPresentations writes checkpoints as a table and returns the row count.
func FormatPresentations(w io.Writer, checkpoints []*blackboard.Checkpoint, instanceName string) int {
	if len(checkpoints) == 0 {
		fmt.Fprintf(w, "No presentations found for instance '%s'\n", instanceName)
		return 0
	}

	fmt.Fprintf(w, "Presentations for instance '%s':\n\n", instanceName)
	fmt.Fprintf(w, "%-10s %-11s %-6s %-7s %-8s %s\n",
		"ID", "STATUS", "SLIDES", "ENTRIES", "UPDATED", "TITLE")
	fmt.Fprintf(w, "%-10s %-11s %-6s %-7s %-8s %s\n",
		"----------", "-----------", "------", "-------", "--------", "----------------------------------------")

	for _, cp := range checkpoints {
		title := ""
		if len(cp.Slides) > 0 {
			title = cp.Slides[0].Title
		}
		fmt.Fprintf(w, "%-10s %-11s %-6d %-7d %-8s %s\n",
			formatID(cp.PresentationID),
			cp.Status,
			len(cp.Slides),
			len(cp.Blackboard),
			formatAge(time.UnixMilli(cp.UpdatedAtMs), time.Now()),
			formatContent(title, 40),
		)
	}

	fmt.Fprintf(w, "\n%d %s found\n", len(checkpoints), plural(len(checkpoints), "presentation"))
	return len(checkpoints)
}

// FormatEntries writes blackboard entries as a table and returns the row count.
func FormatEntries(w io.Writer, entries []*blackboard.Entry, presentationID string) int {
	if len(entries) == 0 {
		fmt.Fprintf(w, "No blackboard entries found for presentation '%s'\n", presentationID)
		return 0
	}

	fmt.Fprintf(w, "Blackboard for presentation '%s':\n\n", presentationID)
	fmt.Fprintf(w, "%-8s %-11s %-22s %s\n", "AGE", "CATEGORY", "SOURCE", "CONTENT")
	fmt.Fprintf(w, "%-8s %-11s %-22s %s\n",
		"--------", "-----------", "----------------------", "------------------------------------------------------------")

	now := time.Now()
	for _, e := range entries {
		fmt.Fprintf(w, "%-8s %-11s %-22s %s\n",
			formatAge(e.Timestamp, now),
			e.Category,
			formatSource(e.Source),
			formatContent(e.Content, 60),
		)
	}

	fmt.Fprintf(w, "\n%d %s found\n", len(entries), plural(len(entries), "entry"))
	return len(entries)
}

// FormatJSONL writes each record as a single JSON line.
func FormatJSONL[T any](w io.Writer, records []T) error {
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal record to JSON: %w", err)
		}

		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatSingleJSON writes one checkpoint as pretty-printed JSON.
func FormatSingleJSON(w io.Writer, cp *blackboard.Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint to JSON: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	fmt.Fprintln(w)
	return nil
}

// formatID truncates an ID to its first 8 characters.
func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatSource drops the step prefix when the name is too long for the column.
func formatSource(source string) string {
	if len(source) <= 22 {
		return source
	}
	if i := strings.IndexByte(source, '.'); i >= 0 && len(source)-i-1 <= 22 {
		return source[i+1:]
	}
	return source[:19] + "..."
}

// formatContent returns the first non-empty line, truncated to max runes.
// Empty content returns "-".
func formatContent(content string, max int) string {
	var firstLine string
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			firstLine = trimmed
			break
		}
	}

	if firstLine == "" {
		return "-"
	}

	runes := []rune(firstLine)
	if len(runes) > max {
		return string(runes[:max-3]) + "..."
	}
	return firstLine
}

// formatAge renders t relative to now, e.g. "45s ago", "3h ago".
func formatAge(t, now time.Time) string {
	if t.IsZero() || t.UnixMilli() == 0 {
		return "-"
	}

	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return noun
	}
	if strings.HasSuffix(noun, "y") {
		return strings.TrimSuffix(noun, "y") + "ies"
	}
	return noun + "s"
}
