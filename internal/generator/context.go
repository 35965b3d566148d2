package generator

import (
	"strings"

	"github.com/dyluth/pitch/internal/runstate"
	"github.com/dyluth/pitch/pkg/blackboard"
	"github.com/dyluth/pitch/pkg/deck"
)

// Story positions.
const (
	PositionOpening      = "opening"
	PositionIntroduction = "introduction"
	PositionBody         = "body"
	PositionConclusion   = "conclusion"
	PositionClosing      = "closing"
)

const (
	maxContextEntries      = 5
	maxContextRequirements = 10
	maxContextNodes        = 15
)

// StoryPosition classifies an outline index by where it sits in the deck.
func StoryPosition(index, total int) string {
	switch {
	case index == 0:
		return PositionOpening
	case index == total-1:
		return PositionClosing
	case index <= 3:
		return PositionIntroduction
	case index >= total-2:
		return PositionConclusion
	default:
		return PositionBody
	}
}

// Context is the run data relevant to one outline item.
type Context struct {
	Entries      []*blackboard.Entry
	Requirements []runstate.Row
	Architecture []runstate.Row
	Metrics      *runstate.Metrics
}

// RelevantContext selects up to five blackboard entries mentioning the
// outline's key content, title or purpose (case-insensitive), plus
// requirements, architecture nodes or metrics when the outline asks for them.
func RelevantContext(run *runstate.Run, outline deck.SlideOutline) Context {
	var needles []string
	for _, s := range append([]string{outline.Title, outline.Purpose}, outline.KeyContent...) {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			needles = append(needles, s)
		}
	}

	var c Context
	for _, e := range run.Blackboard() {
		if len(c.Entries) == maxContextEntries {
			break
		}
		content := strings.ToLower(e.Content)
		for _, n := range needles {
			if strings.Contains(content, n) {
				c.Entries = append(c.Entries, e)
				break
			}
		}
	}

	topic := strings.ToLower(outline.Title + " " + outline.Purpose)
	if strings.Contains(topic, "requirement") {
		c.Requirements = head(run.Data.Requirements, maxContextRequirements)
	}
	if strings.Contains(topic, "architecture") {
		c.Architecture = head(run.Data.Canvas.Nodes, maxContextNodes)
	}
	if strings.Contains(topic, "status") || strings.Contains(topic, "metric") {
		m := run.Metrics
		c.Metrics = &m
	}

	return c
}

func head(rows []runstate.Row, n int) []runstate.Row {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}
