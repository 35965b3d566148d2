// Package deck defines the presentation data model shared by the planner, the
// slide generator, the checkpoint store and the client event stream.
//
// JSON field names follow the client wire contract (camelCase), which is why
// they differ from the snake_case used by the blackboard records.
package deck

import "strings"

// SlideOutline is a planned, unrealized slide descriptor produced by the planner.
// Order is 1-based and contiguous across an outline.
type SlideOutline struct {
	Order       int      `json:"order"`
	LayoutID    string   `json:"layoutId"`
	Title       string   `json:"title"`
	Purpose     string   `json:"purpose"`
	KeyContent  []string `json:"keyContent"`
	ImagePrompt string   `json:"imagePrompt,omitempty"`
}

// ContentRegion is one filled slot of a layout.
// RegionID must be declared by the slide's layout.
type ContentRegion struct {
	RegionID string `json:"regionId"`
	Type     string `json:"type"`
	Data     any    `json:"data"`
}

// GeneratedSlide is the realized content for one outline item.
// Slides are never regenerated once produced; the image enrichment pass may
// only attach ImageURL and an image region.
type GeneratedSlide struct {
	ID          string          `json:"id"`
	Order       int             `json:"order"`
	LayoutID    string          `json:"layoutId"`
	Title       string          `json:"title"`
	Subtitle    string          `json:"subtitle,omitempty"`
	Content     []ContentRegion `json:"content"`
	Notes       string          `json:"notes,omitempty"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	ImagePrompt string          `json:"imagePrompt,omitempty"`
}

// HasRegion reports whether the slide already carries content for regionID.
func (s *GeneratedSlide) HasRegion(regionID string) bool {
	for _, region := range s.Content {
		if region.RegionID == regionID {
			return true
		}
	}
	return false
}

// Mode selects how much material a presentation covers.
type Mode string

const (
	// ModeConcise keeps each narrative section near its minimum size
	ModeConcise Mode = "concise"

	// ModeDetailed allows each narrative section to grow to a larger bound
	ModeDetailed Mode = "detailed"
)

// ParseMode converts a request value to a Mode. Unknown or empty values map
// to ModeConcise.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeDetailed)) {
		return ModeDetailed
	}
	return ModeConcise
}

// Source records whether a value came from the model or was synthesized locally.
type Source string

const (
	// SourceModel marks output parsed from a model response
	SourceModel Source = "ok"

	// SourceFallback marks a deterministic placeholder built without the model
	SourceFallback Source = "fallback"
)

// Outcome is the result of generating one slide.
// Err carries the reason a fallback was used and is nil for model output.
type Outcome struct {
	Slide  GeneratedSlide
	Source Source
	Err    error
}

// IsFallback reports whether the slide was synthesized locally.
func (o Outcome) IsFallback() bool {
	return o.Source == SourceFallback
}
