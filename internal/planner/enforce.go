package planner

import (
	"fmt"
	"strings"

	"github.com/dyluth/pitch/pkg/deck"
)

// topic is a generic outline item used to pad a short model outline.
type topic struct {
	title      string
	purpose    string
	keyContent []string
}

// padTopics is cycled in order when the model returns too few items.
var padTopics = []topic{
	{"Key Highlights", "Summarize the most important points", []string{"Major achievements", "Standout features", "Key metrics"}},
	{"Challenges and Risks", "Acknowledge obstacles and how they are handled", []string{"Technical risks", "Open questions", "Mitigations"}},
	{"Team and Collaboration", "Show how the work is organized", []string{"Roles", "Workflow", "Tooling"}},
	{"Lessons Learned", "Reflect on what the project has taught so far", []string{"What worked", "What to change", "Surprises"}},
	{"Next Steps", "Describe the immediate follow-up work", []string{"Upcoming milestones", "Priorities", "Dependencies"}},
	{"Questions and Discussion", "Invite feedback from the audience", []string{"Open questions", "Feedback wanted", "Contact"}},
}

// padLayouts is rotated alongside padTopics.
var padLayouts = []string{
	deck.LayoutTitleContent,
	deck.LayoutBulletList,
	deck.LayoutTwoColumn,
	deck.LayoutStatsGrid,
}

// EnforceCount returns exactly n outline items. Short outlines are padded from
// the generic topic pool with the layout rotation, long ones truncated to the
// first n. Order is then reassigned 1..n in array order.
func EnforceCount(outlines []deck.SlideOutline, n int) []deck.SlideOutline {
	if n < 0 {
		n = 0
	}

	out := make([]deck.SlideOutline, 0, n)
	for _, o := range outlines {
		if len(out) == n {
			break
		}
		out = append(out, o)
	}

	titles := map[string]bool{}
	for _, o := range out {
		titles[strings.ToLower(o.Title)] = true
	}

	for pad := 0; len(out) < n; pad++ {
		t := padTopics[pad%len(padTopics)]
		title := t.title
		if titles[strings.ToLower(title)] {
			title = fmt.Sprintf("%s %d", title, len(out)+1)
		}
		titles[strings.ToLower(title)] = true

		out = append(out, deck.SlideOutline{
			LayoutID:   padLayouts[pad%len(padLayouts)],
			Title:      title,
			Purpose:    t.purpose,
			KeyContent: append([]string(nil), t.keyContent...),
		})
	}

	for i := range out {
		out[i].Order = i + 1
		if out[i].Title == "" {
			out[i].Title = fmt.Sprintf("Slide %d", i+1)
		}
	}
	return out
}

// FallbackOutline is the fixed outline used when the model call fails. It has
// four items regardless of the requested count.
func FallbackOutline(projectName string) []deck.SlideOutline {
	return []deck.SlideOutline{
		{
			Order:      1,
			LayoutID:   deck.LayoutTitleCover,
			Title:      projectName,
			Purpose:    "Introduce the project",
			KeyContent: []string{"Project overview"},
		},
		{
			Order:      2,
			LayoutID:   deck.LayoutTitleContent,
			Title:      "Executive Summary",
			Purpose:    "Summarize the project and its goals",
			KeyContent: []string{"Vision", "Goals", "Scope"},
		},
		{
			Order:      3,
			LayoutID:   deck.LayoutStatsGrid,
			Title:      "Current Status",
			Purpose:    "Show project status and metrics",
			KeyContent: []string{"Completion", "Requirements", "Architecture"},
		},
		{
			Order:      4,
			LayoutID:   deck.LayoutBulletList,
			Title:      "Key Insights",
			Purpose:    "Share insights from the project analysis",
			KeyContent: []string{"Strengths", "Risks", "Next steps"},
		},
	}
}

// normalize coerces a parsed model value into an outline item.
// Non-object values yield ok == false.
func normalize(v any) (deck.SlideOutline, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return deck.SlideOutline{}, false
	}

	o := deck.SlideOutline{
		LayoutID:    str(m["layoutId"]),
		Title:       strings.TrimSpace(str(m["title"])),
		Purpose:     strings.TrimSpace(str(m["purpose"])),
		ImagePrompt: strings.TrimSpace(str(m["imagePrompt"])),
		KeyContent:  []string{},
	}
	if !deck.IsKnownLayout(o.LayoutID) {
		o.LayoutID = deck.LayoutTitleContent
	}

	switch kc := m["keyContent"].(type) {
	case []any:
		for _, item := range kc {
			if s := strings.TrimSpace(str(item)); s != "" {
				o.KeyContent = append(o.KeyContent, s)
			}
		}
	case string:
		if s := strings.TrimSpace(kc); s != "" {
			o.KeyContent = append(o.KeyContent, s)
		}
	}

	return o, true
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
