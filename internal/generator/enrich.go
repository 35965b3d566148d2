package generator

import (
	"context"
	"log"

	"github.com/dyluth/pitch/internal/imagegen"
	"github.com/dyluth/pitch/internal/runstate"
	"github.com/dyluth/pitch/pkg/deck"
)

// DefaultEnrichLimit caps how many slides receive generated images.
const DefaultEnrichLimit = 5

// Enrich attaches generated images to at most limit slides that carry an image
// prompt but no image URL. The URL is set on the slide and, when the layout's
// image region is still empty, added as an image region. Failures are skipped.
// Enriched slides are streamed again. It returns the number of slides enriched.
func (g *Generator) Enrich(ctx context.Context, run *runstate.Run, slides []deck.GeneratedSlide, images imagegen.Generator, limit int) int {
	if images == nil {
		return 0
	}
	if limit <= 0 {
		limit = DefaultEnrichLimit
	}

	attempts, enriched := 0, 0
	for i := range slides {
		s := &slides[i]
		if s.ImagePrompt == "" || s.ImageURL != "" {
			continue
		}
		if attempts == limit {
			break
		}
		attempts++

		url, err := images.Generate(ctx, s.ImagePrompt)
		g.recorder.IncImage(err == nil && url != "")
		if err != nil || url == "" {
			log.Printf("[Generator] Skipping image for slide %d of presentation %s: %v", s.Order, run.PresentationID, err)
			continue
		}

		s.ImageURL = url
		if layout, ok := deck.LookupLayout(s.LayoutID); ok && layout.ImageRegion != "" && !s.HasRegion(layout.ImageRegion) {
			s.Content = append(s.Content, deck.ContentRegion{
				RegionID: layout.ImageRegion,
				Type:     deck.RegionImage,
				Data:     map[string]any{"url": url, "alt": s.ImagePrompt},
			})
		}
		enriched++

		if err := run.Emit(runstate.EventSlide, *s); err != nil {
			log.Printf("[Generator] Failed to stream enriched slide %d of presentation %s: %v", s.Order, run.PresentationID, err)
		}
	}

	return enriched
}
