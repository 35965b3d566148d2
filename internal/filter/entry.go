// Package filter selects blackboard entries for operator listings.
package filter

import (
	"path/filepath"

	"github.com/dyluth/pitch/internal/timespec"
	"github.com/dyluth/pitch/pkg/blackboard"
)

// Criteria defines filtering criteria for blackboard entries.
// All filters are ANDed together.
type Criteria struct {
	Window       timespec.Range // Zero bounds are open
	CategoryGlob string         // Glob on the category, e.g. "insight" or "*tion"
	SourceGlob   string         // Glob on the producing step, e.g. "collect.*"
}

// Matches returns true if the entry matches all criteria.
// A malformed glob matches nothing.
func (c *Criteria) Matches(e *blackboard.Entry) bool {
	if !c.Window.Contains(e.Timestamp) {
		return false
	}

	if c.CategoryGlob != "" {
		matched, err := filepath.Match(c.CategoryGlob, string(e.Category))
		if err != nil || !matched {
			return false
		}
	}

	if c.SourceGlob != "" {
		matched, err := filepath.Match(c.SourceGlob, e.Source)
		if err != nil || !matched {
			return false
		}
	}

	return true
}

// HasFilters returns true if any filter is active.
func (c *Criteria) HasFilters() bool {
	return !c.Window.IsZero() || c.CategoryGlob != "" || c.SourceGlob != ""
}

// Apply returns the entries matching c, preserving order.
func (c *Criteria) Apply(entries []*blackboard.Entry) []*blackboard.Entry {
	if !c.HasFilters() {
		return entries
	}
	out := make([]*blackboard.Entry, 0, len(entries))
	for _, e := range entries {
		if c.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}
