package deck

import (
	"fmt"
	"strings"
)

// Region types understood by the renderer.
const (
	RegionHeading  = "heading"
	RegionText     = "text"
	RegionBullets  = "bullets"
	RegionImage    = "image"
	RegionStat     = "stat"
	RegionQuote    = "quote"
	RegionTimeline = "timeline"
)

// Layout IDs referenced directly by the pipeline.
const (
	LayoutTitleCover     = "title-cover"
	LayoutTitleContent   = "title-content"
	LayoutTwoColumn      = "two-column"
	LayoutBulletList     = "bullet-list"
	LayoutImageLeft      = "image-left"
	LayoutImageRight     = "image-right"
	LayoutStatsGrid      = "stats-grid"
	LayoutTimeline       = "timeline"
	LayoutQuote          = "quote"
	LayoutSectionDivider = "section-divider"
	LayoutClosing        = "closing"
)

// Region is a named content slot within a layout.
type Region struct {
	ID          string
	Type        string
	Description string
}

// Layout declares the regions a slide of this kind may fill.
// ImageRegion names the region that receives generated images, empty when the
// layout has no image slot. PrimaryRegion is where fallback content goes.
type Layout struct {
	ID            string
	Name          string
	Description   string
	Regions       []Region
	ImageRegion   string
	PrimaryRegion string
}

var layouts = []Layout{
	{
		ID:          LayoutTitleCover,
		Name:        "Title Cover",
		Description: "Opening slide with a large title, subtitle and optional background image",
		Regions: []Region{
			{ID: "title", Type: RegionHeading, Description: "presentation title"},
			{ID: "subtitle", Type: RegionText, Description: "one-line framing statement"},
			{ID: "background", Type: RegionImage, Description: "full-bleed background image"},
		},
		ImageRegion:   "background",
		PrimaryRegion: "subtitle",
	},
	{
		ID:          LayoutTitleContent,
		Name:        "Title and Content",
		Description: "Heading with a single body of prose or markdown",
		Regions: []Region{
			{ID: "title", Type: RegionHeading, Description: "slide heading"},
			{ID: "body", Type: RegionText, Description: "main content, markdown allowed"},
		},
		PrimaryRegion: "body",
	},
	{
		ID:          LayoutTwoColumn,
		Name:        "Two Column",
		Description: "Heading with two side-by-side text columns for comparison",
		Regions: []Region{
			{ID: "title", Type: RegionHeading, Description: "slide heading"},
			{ID: "left", Type: RegionText, Description: "left column"},
			{ID: "right", Type: RegionText, Description: "right column"},
		},
		PrimaryRegion: "left",
	},
	{
		ID:          LayoutBulletList,
		Name:        "Bullet List",
		Description: "Heading with three to six concise bullet points",
		Regions: []Region{
			{ID: "title", Type: RegionHeading, Description: "slide heading"},
			{ID: "bullets", Type: RegionBullets, Description: "list of short points"},
		},
		PrimaryRegion: "bullets",
	},
	{
		ID:          LayoutImageLeft,
		Name:        "Image Left",
		Description: "Image on the left, explanatory text on the right",
		Regions: []Region{
			{ID: "title", Type: RegionHeading, Description: "slide heading"},
			{ID: "image", Type: RegionImage, Description: "illustrative image"},
			{ID: "body", Type: RegionText, Description: "explanatory text"},
		},
		ImageRegion:   "image",
		PrimaryRegion: "body",
	},
	{
		ID:          LayoutImageRight,
		Name:        "Image Right",
		Description: "Explanatory text on the left, image on the right",
		Regions: []Region{
			{ID: "title", Type: RegionHeading, Description: "slide heading"},
			{ID: "body", Type: RegionText, Description: "explanatory text"},
			{ID: "image", Type: RegionImage, Description: "illustrative image"},
		},
		ImageRegion:   "image",
		PrimaryRegion: "body",
	},
	{
		ID:          LayoutStatsGrid,
		Name:        "Stats Grid",
		Description: "Up to four headline numbers with labels",
		Regions: []Region{
			{ID: "title", Type: RegionHeading, Description: "slide heading"},
			{ID: "stats", Type: RegionStat, Description: "array of {value, label} items"},
			{ID: "caption", Type: RegionText, Description: "one-sentence interpretation"},
		},
		PrimaryRegion: "caption",
	},
	{
		ID:          LayoutTimeline,
		Name:        "Timeline",
		Description: "Ordered milestones with dates or phases",
		Regions: []Region{
			{ID: "title", Type: RegionHeading, Description: "slide heading"},
			{ID: "timeline", Type: RegionTimeline, Description: "array of {label, detail} milestones"},
		},
		PrimaryRegion: "timeline",
	},
	{
		ID:          LayoutQuote,
		Name:        "Quote",
		Description: "A single highlighted statement with attribution",
		Regions: []Region{
			{ID: "quote", Type: RegionQuote, Description: "the statement"},
			{ID: "attribution", Type: RegionText, Description: "source or context"},
		},
		PrimaryRegion: "quote",
	},
	{
		ID:          LayoutSectionDivider,
		Name:        "Section Divider",
		Description: "Transition slide introducing the next section",
		Regions: []Region{
			{ID: "title", Type: RegionHeading, Description: "section name"},
			{ID: "subtitle", Type: RegionText, Description: "what the section covers"},
		},
		PrimaryRegion: "subtitle",
	},
	{
		ID:          LayoutClosing,
		Name:        "Closing",
		Description: "Final slide with summary, call to action and optional image",
		Regions: []Region{
			{ID: "title", Type: RegionHeading, Description: "closing heading"},
			{ID: "body", Type: RegionText, Description: "summary and next steps"},
			{ID: "image", Type: RegionImage, Description: "optional closing visual"},
		},
		ImageRegion:   "image",
		PrimaryRegion: "body",
	},
}

var layoutIndex = func() map[string]Layout {
	idx := make(map[string]Layout, len(layouts))
	for _, l := range layouts {
		idx[l.ID] = l
	}
	return idx
}()

// Layouts returns the declared layout catalog in declaration order.
func Layouts() []Layout {
	out := make([]Layout, len(layouts))
	copy(out, layouts)
	return out
}

// LookupLayout returns the layout with the given ID.
func LookupLayout(id string) (Layout, bool) {
	l, ok := layoutIndex[id]
	return l, ok
}

// IsKnownLayout reports whether id names a declared layout.
func IsKnownLayout(id string) bool {
	_, ok := layoutIndex[id]
	return ok
}

// HasRegion reports whether the layout declares regionID.
func (l Layout) HasRegion(regionID string) bool {
	for _, r := range l.Regions {
		if r.ID == regionID {
			return true
		}
	}
	return false
}

// RegionType returns the declared type of regionID, or "" if undeclared.
func (l Layout) RegionType(regionID string) string {
	for _, r := range l.Regions {
		if r.ID == regionID {
			return r.Type
		}
	}
	return ""
}

// Describe renders the region declaration for inclusion in a model prompt.
func (l Layout) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Layout %q (%s): %s\nRegions:\n", l.ID, l.Name, l.Description)
	for _, r := range l.Regions {
		fmt.Fprintf(&b, "  - regionId %q, type %q: %s\n", r.ID, r.Type, r.Description)
	}
	return b.String()
}
