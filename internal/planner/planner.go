package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyluth/pitch/internal/llm"
	"github.com/dyluth/pitch/internal/runstate"
	"github.com/dyluth/pitch/internal/structured"
	"github.com/dyluth/pitch/pkg/blackboard"
	"github.com/dyluth/pitch/pkg/deck"
)

const systemPrompt = "You are a presentation strategist. You plan clear, well-paced slide decks " +
	"that tell the story of a software project to stakeholders."

// Digest limits per blackboard category.
var digestLimits = []struct {
	category blackboard.Category
	limit    int
}{
	{blackboard.CategoryNarrative, 2},
	{blackboard.CategoryInsight, 6},
	{blackboard.CategoryAnalysis, 4},
	{blackboard.CategoryEstimate, 2},
}

// Options are the generation settings for the outline call.
type Options struct {
	MaxTokens   int
	Temperature float32
}

// DefaultOptions returns the outline generation settings.
func DefaultOptions() Options {
	return Options{MaxTokens: 8192, Temperature: 0.7}
}

// Planner asks the model for an outline and enforces its length.
type Planner struct {
	client llm.Client
	opts   Options
}

// New creates a planner.
func New(client llm.Client, opts Options) *Planner {
	return &Planner{client: client, opts: opts}
}

// Plan returns exactly run.TargetSlides outline items. A failed model call or
// an unparseable response is returned as an error; the planner does not retry.
func (p *Planner) Plan(ctx context.Context, run *runstate.Run) ([]deck.SlideOutline, error) {
	structure := BuildStoryStructure(run.TargetSlides, run.Mode)

	text, err := p.client.Complete(ctx, llm.Request{
		Stage:       llm.StageOutline,
		System:      systemPrompt,
		Prompt:      BuildPrompt(run, structure),
		MaxTokens:   p.opts.MaxTokens,
		Temperature: p.opts.Temperature,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request outline: %w", err)
	}

	items, ok := structured.ParseArray(text)
	if !ok {
		return nil, fmt.Errorf("failed to parse outline: model response is not a JSON array")
	}

	outlines := make([]deck.SlideOutline, 0, len(items))
	for _, item := range items {
		if o, ok := normalize(item); ok {
			outlines = append(outlines, o)
		}
	}

	return EnforceCount(outlines, run.TargetSlides), nil
}

// BuildPrompt renders the outline request for run.
func BuildPrompt(run *runstate.Run, structure []StorySection) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Plan a %s presentation about the project %q.\n", run.Mode, run.Data.ProjectName())
	if desc := run.Data.ProjectDescription(); desc != "" {
		fmt.Fprintf(&b, "Project description: %s\n", desc)
	}
	if run.InitialPrompt != "" {
		fmt.Fprintf(&b, "The presenter asked for: %s\n", run.InitialPrompt)
	}

	b.WriteString("\nNarrative structure (section: slide count, purpose, suggested layouts):\n")
	for _, s := range structure {
		fmt.Fprintf(&b, "- %s: %d slide(s). %s. Layouts: %s\n",
			s.Section, s.SlideCount, s.Purpose, strings.Join(s.Layouts, ", "))
	}

	if digest := Digest(run.Blackboard()); digest != "" {
		b.WriteString("\nProject analysis:\n")
		b.WriteString(digest)
	}

	b.WriteString("\nAvailable layouts:\n")
	for _, l := range deck.Layouts() {
		fmt.Fprintf(&b, "- %s: %s\n", l.ID, l.Description)
	}

	fmt.Fprintf(&b, `
Return a JSON array of exactly %d objects, one per slide, in presentation order.
Each object must have:
  "order": slide number starting at 1
  "layoutId": one of the available layout ids
  "title": short slide title
  "purpose": the slide's narrative role
  "keyContent": array of 2-5 short topic strings
  "imagePrompt": optional description of an illustration, only for layouts with an image
The first slide must use "title-cover" and the last should use "closing".
`, run.TargetSlides)

	return b.String()
}

// Digest condenses the blackboard to a capped number of entries per category.
func Digest(entries []*blackboard.Entry) string {
	var b strings.Builder
	for _, d := range digestLimits {
		n := 0
		for _, e := range entries {
			if e.Category != d.category {
				continue
			}
			if n == d.limit {
				break
			}
			fmt.Fprintf(&b, "- [%s] %s\n", e.Category, e.Content)
			n++
		}
	}
	return b.String()
}
