// Package generator realizes outline items as slides, one model call per item,
// substituting a deterministic fallback slide whenever a call or its parse fails.
package generator

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/dyluth/pitch/internal/llm"
	"github.com/dyluth/pitch/internal/metrics"
	"github.com/dyluth/pitch/internal/runstate"
	"github.com/dyluth/pitch/internal/structured"
	"github.com/dyluth/pitch/pkg/blackboard"
	"github.com/dyluth/pitch/pkg/deck"
)

// PhaseGenerating is the status phase streamed before each slide.
const PhaseGenerating = "generating"

// Options are the generation settings.
type Options struct {
	MaxTokens       int
	Temperature     float32
	CheckpointEvery int // persist the slide list after this many slides
}

// DefaultOptions returns the slide generation settings.
func DefaultOptions() Options {
	return Options{MaxTokens: 4096, Temperature: 0.7, CheckpointEvery: 3}
}

// Generator produces slides from outline items.
type Generator struct {
	client   llm.Client
	opts     Options
	recorder metrics.Recorder
}

// New creates a generator. A nil recorder disables metrics.
func New(client llm.Client, opts Options, recorder metrics.Recorder) *Generator {
	if opts.CheckpointEvery <= 0 {
		opts.CheckpointEvery = 3
	}
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &Generator{client: client, opts: opts, recorder: recorder}
}

// GenerateSlide produces the slide for outlines[index]. It never fails: any
// model or parse error yields a fallback slide, recorded in Outcome.Err.
func (g *Generator) GenerateSlide(ctx context.Context, run *runstate.Run, outlines []deck.SlideOutline, index int) deck.Outcome {
	o := outlines[index]
	prompt := BuildPrompt(run, outlines, index, RelevantContext(run, o))

	text, err := g.client.Complete(ctx, llm.Request{
		Stage:       llm.StageSlide,
		System:      systemPrompt,
		Prompt:      prompt,
		MaxTokens:   g.opts.MaxTokens,
		Temperature: g.opts.Temperature,
		JSON:        true,
	})
	if err != nil {
		return deck.Outcome{Slide: Fallback(o), Source: deck.SourceFallback, Err: fmt.Errorf("failed to generate slide %d: %w", o.Order, err)}
	}

	obj, ok := structured.ParseObject(text)
	if !ok {
		return deck.Outcome{Slide: Fallback(o), Source: deck.SourceFallback, Err: fmt.Errorf("failed to parse slide %d: response is not a JSON object", o.Order)}
	}

	return deck.Outcome{Slide: Normalize(obj, o), Source: deck.SourceModel}
}

// GenerateAll produces one slide per outline item in order. Each slide is
// streamed as soon as it exists; the slide list is checkpointed after every
// CheckpointEvery slides and after the last one.
func (g *Generator) GenerateAll(ctx context.Context, run *runstate.Run, outlines []deck.SlideOutline) []deck.GeneratedSlide {
	slides := make([]deck.GeneratedSlide, 0, len(outlines))
	fallbacks := 0

	for i, o := range outlines {
		run.Status(PhaseGenerating, fmt.Sprintf("Generating slide %d: %s", o.Order, o.Title), i+1, len(outlines))

		out := g.GenerateSlide(ctx, run, outlines, i)
		g.recorder.IncSlide(string(out.Source))
		if out.IsFallback() {
			fallbacks++
			log.Printf("[Generator] Using fallback for slide %d of presentation %s: %v", o.Order, run.PresentationID, out.Err)
		}

		slides = append(slides, out.Slide)

		if err := run.Emit(runstate.EventSlide, out.Slide); err != nil {
			log.Printf("[Generator] Failed to stream slide %d of presentation %s: %v", o.Order, run.PresentationID, err)
		}

		if (i+1)%g.opts.CheckpointEvery == 0 || i == len(outlines)-1 {
			// Failures are logged by the run; the next checkpoint carries the full list again.
			_ = run.Checkpoint(ctx, blackboard.StatusGenerating, slides)
		}
	}

	if fallbacks > 0 {
		run.Append(ctx, blackboard.NewEntry("generate.slides", blackboard.CategoryDecision,
			fmt.Sprintf("%d of %d slides used fallback content because generation failed", fallbacks, len(outlines)),
			map[string]any{"fallbacks": fallbacks, "total": len(outlines)}))
	}

	return slides
}

// Normalize coerces a parsed model object into a slide for o. Order and
// layout always come from the outline; missing id, title and notes are filled
// from it, and regions the layout does not declare are dropped.
func Normalize(obj map[string]any, o deck.SlideOutline) deck.GeneratedSlide {
	s := deck.GeneratedSlide{
		ID:          stringField(obj, "id"),
		Order:       o.Order,
		LayoutID:    o.LayoutID,
		Title:       stringField(obj, "title"),
		Subtitle:    stringField(obj, "subtitle"),
		Notes:       stringField(obj, "notes"),
		ImagePrompt: stringField(obj, "imagePrompt"),
		Content:     []deck.ContentRegion{},
	}
	if s.ID == "" {
		s.ID = slideID(o)
	}
	if s.Title == "" {
		s.Title = o.Title
	}
	if s.Notes == "" {
		s.Notes = o.Purpose
	}
	if s.ImagePrompt == "" {
		s.ImagePrompt = o.ImagePrompt
	}

	layout, known := deck.LookupLayout(o.LayoutID)
	items, _ := obj["content"].([]any)
	for _, item := range items {
		region, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id := stringField(region, "regionId")
		if id == "" || (known && !layout.HasRegion(id)) {
			continue
		}
		kind := stringField(region, "type")
		if kind == "" && known {
			kind = layout.RegionType(id)
		}
		s.Content = append(s.Content, deck.ContentRegion{RegionID: id, Type: kind, Data: region["data"]})
	}

	return s
}

// Fallback builds the slide for o without the model. Its single region
// renders the key content as emphasized markdown lines.
func Fallback(o deck.SlideOutline) deck.GeneratedSlide {
	region := "body"
	if layout, ok := deck.LookupLayout(o.LayoutID); ok && layout.PrimaryRegion != "" {
		region = layout.PrimaryRegion
	}

	points := o.KeyContent
	if len(points) == 0 {
		points = []string{firstNonEmpty(o.Purpose, o.Title)}
	}
	lines := make([]string, 0, len(points))
	for _, p := range points {
		lines = append(lines, "**"+p+"**")
	}

	return deck.GeneratedSlide{
		ID:       slideID(o),
		Order:    o.Order,
		LayoutID: o.LayoutID,
		Title:    o.Title,
		Content: []deck.ContentRegion{{
			RegionID: region,
			Type:     deck.RegionText,
			Data:     map[string]any{"text": strings.Join(lines, "\n"), "format": "markdown"},
		}},
		Notes:       o.Purpose,
		ImagePrompt: o.ImagePrompt,
	}
}

func slideID(o deck.SlideOutline) string {
	return fmt.Sprintf("slide-%d", o.Order)
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
