package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dyluth/pitch/internal/llm"
	"github.com/dyluth/pitch/internal/runstate"
	"github.com/dyluth/pitch/internal/testutil"
	"github.com/dyluth/pitch/pkg/blackboard"
	"github.com/dyluth/pitch/pkg/deck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sum(structure []StorySection) int {
	total := 0
	for _, s := range structure {
		total += s.SlideCount
	}
	return total
}

func TestBuildStoryStructure_SingleSlide(t *testing.T) {
	structure := BuildStoryStructure(1, deck.ModeConcise)

	require.Len(t, structure, 1)
	assert.Equal(t, "Opening", structure[0].Section)
	assert.Equal(t, 1, structure[0].SlideCount)
}

func TestBuildStoryStructure_Sums(t *testing.T) {
	for _, mode := range []deck.Mode{deck.ModeConcise, deck.ModeDetailed} {
		limit := MaxSlides(mode)
		for n := 0; n <= 60; n++ {
			t.Run(fmt.Sprintf("%s/%d", mode, n), func(t *testing.T) {
				structure := BuildStoryStructure(n, mode)

				assert.Equal(t, min(n, limit), sum(structure))
				for _, s := range structure {
					assert.Positive(t, s.SlideCount)
					for _, def := range sections {
						if def.name == s.Section {
							assert.LessOrEqual(t, s.SlideCount, def.upper(mode))
						}
					}
				}
			})
		}
	}
}

func TestBuildStoryStructure_NegativeTerminates(t *testing.T) {
	assert.Empty(t, BuildStoryStructure(-3, deck.ModeConcise))
}

func TestBuildStoryStructure_DetailedGrowsBody(t *testing.T) {
	concise := BuildStoryStructure(20, deck.ModeConcise)
	detailed := BuildStoryStructure(20, deck.ModeDetailed)

	assert.Equal(t, MaxSlides(deck.ModeConcise), sum(concise))
	assert.Equal(t, 20, sum(detailed))
}

func TestEnforceCount(t *testing.T) {
	model := []deck.SlideOutline{
		{Order: 7, LayoutID: deck.LayoutTitleCover, Title: "Atlas"},
		{Order: 3, LayoutID: deck.LayoutBulletList, Title: "Key Highlights"},
	}

	t.Run("pads from the pool", func(t *testing.T) {
		out := EnforceCount(model, 5)

		require.Len(t, out, 5)
		for i, o := range out {
			assert.Equal(t, i+1, o.Order)
		}
		// The first pad topic collides with an existing title
		assert.Equal(t, "Key Highlights 3", out[2].Title)
		assert.Equal(t, deck.LayoutTitleContent, out[2].LayoutID)
		assert.Equal(t, "Challenges and Risks", out[3].Title)
		assert.Equal(t, deck.LayoutBulletList, out[3].LayoutID)
		assert.Equal(t, "Team and Collaboration", out[4].Title)
		assert.Equal(t, deck.LayoutTwoColumn, out[4].LayoutID)
	})

	t.Run("truncates", func(t *testing.T) {
		out := EnforceCount(model, 1)
		require.Len(t, out, 1)
		assert.Equal(t, "Atlas", out[0].Title)
		assert.Equal(t, 1, out[0].Order)
	})

	t.Run("cycles the pool", func(t *testing.T) {
		out := EnforceCount(nil, 14)
		require.Len(t, out, 14)
		assert.Equal(t, deck.LayoutTitleContent, out[0].LayoutID)
		assert.Equal(t, "Key Highlights 7", out[6].Title)
		assert.Equal(t, "Challenges and Risks 8", out[7].Title)

		seen := map[string]bool{}
		for _, o := range out {
			assert.False(t, seen[o.Title], "duplicate title %q", o.Title)
			seen[o.Title] = true
		}
	})

	t.Run("keeps model layouts", func(t *testing.T) {
		out := EnforceCount([]deck.SlideOutline{
			{Order: 4, LayoutID: deck.LayoutQuote, Title: "Why now"},
			{Order: 2, LayoutID: deck.LayoutTimeline, Title: "Roadmap"},
		}, 2)
		require.Len(t, out, 2)
		assert.Equal(t, deck.LayoutQuote, out[0].LayoutID)
		assert.Equal(t, 1, out[0].Order)
		assert.Equal(t, deck.LayoutTimeline, out[1].LayoutID)
		assert.Equal(t, 2, out[1].Order)
	})

	t.Run("zero", func(t *testing.T) {
		assert.Empty(t, EnforceCount(model, 0))
	})
}

func TestFallbackOutline(t *testing.T) {
	out := FallbackOutline("Atlas")

	require.Len(t, out, 4)
	assert.Equal(t, deck.LayoutTitleCover, out[0].LayoutID)
	assert.Equal(t, "Atlas", out[0].Title)
	for i, o := range out {
		assert.Equal(t, i+1, o.Order)
		assert.True(t, deck.IsKnownLayout(o.LayoutID))
	}
}

func TestNormalize(t *testing.T) {
	o, ok := normalize(map[string]any{
		"layoutId":   "hologram",
		"title":      "  Vision ",
		"keyContent": []any{"one", "", 2.0},
	})
	require.True(t, ok)
	assert.Equal(t, deck.LayoutTitleContent, o.LayoutID)
	assert.Equal(t, "Vision", o.Title)
	assert.Equal(t, []string{"one", "2"}, o.KeyContent)

	_, ok = normalize("not an object")
	assert.False(t, ok)
}

func newRun(target int) *runstate.Run {
	run := runstate.New(runstate.Request{
		ProjectID:      "proj-1",
		PresentationID: "pres-1",
		ShareToken:     "tok",
		Mode:           deck.ModeConcise,
		TargetSlides:   target,
		InitialPrompt:  "Focus on reliability",
	}, &testutil.Recorder{}, &testutil.MemoryStore{})
	run.Data.Settings = runstate.Row{"name": "Atlas"}
	return run
}

func TestPlan(t *testing.T) {
	t.Run("enforces count on model output", func(t *testing.T) {
		items := []map[string]any{
			{"order": 1, "layoutId": "title-cover", "title": "Atlas", "keyContent": []string{"Telemetry"}},
			{"order": 2, "layoutId": "stats-grid", "title": "Status"},
		}
		raw, err := json.Marshal(items)
		require.NoError(t, err)

		fake := &testutil.FakeLLM{Respond: func(llm.Request) (string, error) {
			return "Here is the outline:\n```json\n" + string(raw) + "\n```", nil
		}}
		run := newRun(6)
		run.Append(context.Background(), blackboard.NewEntry("synthesize.insights", blackboard.CategoryNarrative, "Atlas is advanced", nil))

		out, err := New(fake, DefaultOptions()).Plan(context.Background(), run)

		require.NoError(t, err)
		require.Len(t, out, 6)
		assert.Equal(t, "Status", out[1].Title)

		reqs := fake.RequestsFor(llm.StageOutline)
		require.Len(t, reqs, 1)
		assert.True(t, reqs[0].JSON)
		assert.Contains(t, reqs[0].Prompt, "exactly 6 objects")
		assert.Contains(t, reqs[0].Prompt, "Focus on reliability")
		assert.Contains(t, reqs[0].Prompt, "[narrative] Atlas is advanced")
	})

	t.Run("model error", func(t *testing.T) {
		fake := &testutil.FakeLLM{Respond: func(llm.Request) (string, error) {
			return "", errors.New("503")
		}}
		_, err := New(fake, DefaultOptions()).Plan(context.Background(), newRun(4))
		assert.ErrorContains(t, err, "failed to request outline")
	})

	t.Run("not an array", func(t *testing.T) {
		fake := &testutil.FakeLLM{Respond: func(llm.Request) (string, error) {
			return `{"slides": []}`, nil
		}}
		outlines, err := New(fake, DefaultOptions()).Plan(context.Background(), newRun(6))
		assert.ErrorContains(t, err, "failed to parse outline")
		assert.Nil(t, outlines)
	})
}

func TestDigest_CapsPerCategory(t *testing.T) {
	var entries []*blackboard.Entry
	for i := 0; i < 10; i++ {
		entries = append(entries, blackboard.NewEntry("s", blackboard.CategoryInsight, fmt.Sprintf("insight %d", i), nil))
	}
	entries = append(entries, blackboard.NewEntry("s", blackboard.CategoryObservation, "ignored", nil))

	digest := Digest(entries)

	assert.Equal(t, 6, strings.Count(digest, "[insight]"))
	assert.NotContains(t, digest, "ignored")
}
