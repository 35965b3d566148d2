package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutCatalog(t *testing.T) {
	t.Run("every layout declares its primary and image regions", func(t *testing.T) {
		for _, l := range Layouts() {
			assert.True(t, l.HasRegion(l.PrimaryRegion), "layout %s primary region %q undeclared", l.ID, l.PrimaryRegion)
			if l.ImageRegion != "" {
				assert.Equal(t, RegionImage, l.RegionType(l.ImageRegion), "layout %s image region", l.ID)
			}
		}
	})

	t.Run("layout ids are unique", func(t *testing.T) {
		seen := map[string]bool{}
		for _, l := range Layouts() {
			assert.False(t, seen[l.ID], "duplicate layout %s", l.ID)
			seen[l.ID] = true
		}
	})

	t.Run("lookup", func(t *testing.T) {
		l, ok := LookupLayout(LayoutTitleCover)
		require.True(t, ok)
		assert.Equal(t, "background", l.ImageRegion)

		_, ok = LookupLayout("no-such-layout")
		assert.False(t, ok)
	})

	t.Run("describe lists regions", func(t *testing.T) {
		l, _ := LookupLayout(LayoutTwoColumn)
		desc := l.Describe()
		assert.Contains(t, desc, `regionId "left"`)
		assert.Contains(t, desc, `regionId "right"`)
	})
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeDetailed, ParseMode("detailed"))
	assert.Equal(t, ModeDetailed, ParseMode(" Detailed "))
	assert.Equal(t, ModeConcise, ParseMode("concise"))
	assert.Equal(t, ModeConcise, ParseMode(""))
	assert.Equal(t, ModeConcise, ParseMode("verbose"))
}

func TestGeneratedSlideHasRegion(t *testing.T) {
	s := GeneratedSlide{Content: []ContentRegion{{RegionID: "body", Type: RegionText}}}
	assert.True(t, s.HasRegion("body"))
	assert.False(t, s.HasRegion("image"))
}
