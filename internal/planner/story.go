// Package planner turns a target slide count and the run's blackboard into an
// ordered outline of exactly that many slides.
package planner

import "github.com/dyluth/pitch/pkg/deck"

// StorySection is a narrative section with its resolved slide allocation.
// It exists only while the outline prompt is built.
type StorySection struct {
	Section    string   `json:"section"`
	SlideCount int      `json:"slideCount"`
	Layouts    []string `json:"layouts"`
	Purpose    string   `json:"purpose"`
}

// sectionDef is a static narrative section definition.
type sectionDef struct {
	name     string
	purpose  string
	min      int
	max      int // concise upper bound
	detailed int // detailed upper bound
	layouts  []string
}

var sections = []sectionDef{
	{
		name: "Opening", purpose: "Introduce the project and set the tone",
		min: 1, max: 1, detailed: 1,
		layouts: []string{deck.LayoutTitleCover},
	},
	{
		name: "Context", purpose: "Explain the problem being solved and why it matters",
		min: 1, max: 2, detailed: 4,
		layouts: []string{deck.LayoutTitleContent, deck.LayoutQuote, deck.LayoutTwoColumn},
	},
	{
		name: "Current State", purpose: "Show where the project stands today",
		min: 1, max: 2, detailed: 5,
		layouts: []string{deck.LayoutStatsGrid, deck.LayoutBulletList, deck.LayoutTwoColumn},
	},
	{
		name: "Architecture", purpose: "Describe how the system is built",
		min: 1, max: 2, detailed: 6,
		layouts: []string{deck.LayoutImageRight, deck.LayoutTwoColumn, deck.LayoutBulletList},
	},
	{
		name: "Progress", purpose: "Highlight what has been delivered so far",
		min: 1, max: 2, detailed: 5,
		layouts: []string{deck.LayoutTimeline, deck.LayoutStatsGrid, deck.LayoutBulletList},
	},
	{
		name: "Insights", purpose: "Share observations, risks and open questions",
		min: 0, max: 1, detailed: 4,
		layouts: []string{deck.LayoutBulletList, deck.LayoutQuote, deck.LayoutImageLeft},
	},
	{
		name: "Roadmap", purpose: "Lay out the next milestones",
		min: 1, max: 2, detailed: 4,
		layouts: []string{deck.LayoutTimeline, deck.LayoutBulletList},
	},
	{
		name: "Closing", purpose: "Summarize and close with a call to action",
		min: 1, max: 1, detailed: 1,
		layouts: []string{deck.LayoutClosing},
	},
}

// BuildStoryStructure allocates target slides across the fixed narrative
// sections. Every section first receives its minimum while budget remains,
// then sweeps in order grant one more slide to each section below its upper
// bound until the budget is spent or a full sweep grants nothing. Sections
// left with no slides are omitted.
func BuildStoryStructure(target int, mode deck.Mode) []StorySection {
	counts := make([]int, len(sections))
	remaining := target

	for i, s := range sections {
		n := min(s.min, max(remaining, 0))
		counts[i] = n
		remaining -= n
	}

	for remaining > 0 {
		granted := 0
		for i, s := range sections {
			if remaining == 0 {
				break
			}
			if counts[i] < s.upper(mode) {
				counts[i]++
				remaining--
				granted++
			}
		}
		if granted == 0 {
			break
		}
	}

	out := make([]StorySection, 0, len(sections))
	for i, s := range sections {
		if counts[i] == 0 {
			continue
		}
		out = append(out, StorySection{
			Section:    s.name,
			SlideCount: counts[i],
			Layouts:    append([]string(nil), s.layouts...),
			Purpose:    s.purpose,
		})
	}
	return out
}

// MaxSlides returns the largest allocation BuildStoryStructure can make in mode.
func MaxSlides(mode deck.Mode) int {
	total := 0
	for _, s := range sections {
		total += s.upper(mode)
	}
	return total
}

func (s sectionDef) upper(mode deck.Mode) int {
	if mode == deck.ModeDetailed {
		return s.detailed
	}
	return s.max
}
