package board

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/pitch/internal/filter"
	"github.com/dyluth/pitch/pkg/blackboard"
	"github.com/dyluth/pitch/pkg/deck"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const presID = "550e8400-e29b-41d4-a716-446655440000"

func newClient(t *testing.T) *blackboard.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	bbClient, err := blackboard.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { bbClient.Close() })
	return bbClient
}

func seedPresentation(t *testing.T, bbClient *blackboard.Client) {
	t.Helper()
	ctx := context.Background()
	cp := &blackboard.Checkpoint{
		PresentationID: presID,
		ShareToken:     "tok",
		Status:         blackboard.StatusCompleted,
		Slides: []deck.GeneratedSlide{
			{ID: "slide-1", Order: 1, LayoutID: deck.LayoutTitleCover, Title: "Atlas Review"},
		},
		Blackboard: []*blackboard.Entry{
			blackboard.NewEntry("collect.settings", blackboard.CategoryObservation, "Project: Atlas", nil),
			blackboard.NewEntry("collect.canvas", blackboard.CategoryInsight, "Architecture is loosely coupled", nil),
			blackboard.NewEntry("synthesize.insights", blackboard.CategoryEstimate, "Completion score 35/100\nsecond line", nil),
		},
	}
	require.NoError(t, bbClient.UpdatePresentation(ctx, cp))
}

func TestListPresentations(t *testing.T) {
	t.Run("empty instance - default format", func(t *testing.T) {
		bbClient := newClient(t)

		var buf bytes.Buffer
		require.NoError(t, ListPresentations(context.Background(), bbClient, OutputFormatDefault, &buf))
		assert.Contains(t, buf.String(), "No presentations found for instance 'test-instance'")
	})

	t.Run("single presentation - default format", func(t *testing.T) {
		bbClient := newClient(t)
		seedPresentation(t, bbClient)

		var buf bytes.Buffer
		require.NoError(t, ListPresentations(context.Background(), bbClient, OutputFormatDefault, &buf))

		output := buf.String()
		assert.Contains(t, output, "550e8400")
		assert.Contains(t, output, "completed")
		assert.Contains(t, output, "Atlas Review")
		assert.Contains(t, output, "1 presentation found")
	})

	t.Run("single presentation - jsonl format", func(t *testing.T) {
		bbClient := newClient(t)
		seedPresentation(t, bbClient)

		var buf bytes.Buffer
		require.NoError(t, ListPresentations(context.Background(), bbClient, OutputFormatJSONL, &buf))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)

		var cp blackboard.Checkpoint
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &cp))
		assert.Equal(t, presID, cp.PresentationID)
		assert.Len(t, cp.Blackboard, 3)
	})
}

func TestListEntries(t *testing.T) {
	bbClient := newClient(t)
	seedPresentation(t, bbClient)
	ctx := context.Background()

	t.Run("all entries", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ListEntries(ctx, bbClient, presID, OutputFormatDefault, nil, &buf))

		output := buf.String()
		assert.Contains(t, output, "collect.settings")
		assert.Contains(t, output, "Completion score 35/100")
		assert.NotContains(t, output, "second line")
		assert.Contains(t, output, "3 entries found")
	})

	t.Run("filtered by category", func(t *testing.T) {
		var buf bytes.Buffer
		criteria := &filter.Criteria{CategoryGlob: "insight"}
		require.NoError(t, ListEntries(ctx, bbClient, presID, OutputFormatJSONL, criteria, &buf))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)
		assert.Contains(t, lines[0], `"source":"collect.canvas"`)
	})

	t.Run("no matches", func(t *testing.T) {
		var buf bytes.Buffer
		criteria := &filter.Criteria{SourceGlob: "generate.*"}
		require.NoError(t, ListEntries(ctx, bbClient, presID, OutputFormatDefault, criteria, &buf))
		assert.Contains(t, buf.String(), "No blackboard entries found")
	})

	t.Run("unknown format", func(t *testing.T) {
		err := ListEntries(ctx, bbClient, presID, OutputFormat("yaml"), nil, &bytes.Buffer{})
		assert.Error(t, err)
	})
}

func TestGetCheckpoint(t *testing.T) {
	bbClient := newClient(t)
	seedPresentation(t, bbClient)

	var buf bytes.Buffer
	require.NoError(t, GetCheckpoint(context.Background(), bbClient, presID, &buf))
	assert.Contains(t, buf.String(), `"status": "completed"`)

	err := GetCheckpoint(context.Background(), bbClient, "00000000-0000-4000-8000-000000000000", &buf)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestParseOutputFormat(t *testing.T) {
	f, err := ParseOutputFormat("jsonl")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatJSONL, f)

	_, err = ParseOutputFormat("json")
	assert.Error(t, err)
}

func TestFormatContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{"empty", "", "-"},
		{"whitespace only", "  \n\n ", "-"},
		{"short single line", "Project: Atlas", "Project: Atlas"},
		{"exactly 60 chars", strings.Repeat("a", 60), strings.Repeat("a", 60)},
		{"61 chars", strings.Repeat("a", 61), strings.Repeat("a", 57) + "..."},
		{"multi-line first line only", "\nFirst line\nSecond line", "First line"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatContent(tt.content, 60))
		})
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		ago      time.Duration
		expected string
	}{
		{30 * time.Second, "30s ago"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatAge(now.Add(-tt.ago), now))
		})
	}
	assert.Equal(t, "-", formatAge(time.Time{}, now))
}

func TestFormatSource(t *testing.T) {
	assert.Equal(t, "collect.canvas", formatSource("collect.canvas"))
	assert.Equal(t, "aVeryLongStepNameHere", formatSource("collect.aVeryLongStepNameHere"))
	assert.Equal(t, strings.Repeat("x", 19)+"...", formatSource(strings.Repeat("x", 30)))
}
