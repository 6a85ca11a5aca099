package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/egemenmermer/business-extractor/internal/model"
)

func TestAddTrimsAndDeduplicates(t *testing.T) {
	s := New()

	assert.True(t, s.AddCategory(" cafe "))
	assert.False(t, s.AddCategory("cafe"))
	assert.False(t, s.AddCategory("   "))
	assert.True(t, s.AddCategory("Cafe"))

	assert.Equal(t, []string{"cafe", "Cafe"}, s.Categories())
	assert.Empty(t, s.SelectedCategories(), "adding does not select")
}

func TestRemoveDeselects(t *testing.T) {
	s := New()
	s.AddLocation("Paris")
	s.AddLocation("Lyon")
	s.SelectLocation("Paris", true)
	s.SelectLocation("Lyon", true)

	s.RemoveLocation("Paris")
	assert.Equal(t, []string{"Lyon"}, s.Locations())
	assert.False(t, s.LocationSelected("Paris"))

	// Re-adding does not resurrect the old selection.
	s.AddLocation("Paris")
	assert.Equal(t, []string{"Lyon", "Paris"}, s.Locations())
	assert.Equal(t, []string{"Lyon"}, s.SelectedLocations())
}

func TestSelectUnknownIsNoop(t *testing.T) {
	s := New()
	s.SelectCategory("ghost", true)
	s.ToggleCategory("ghost")
	assert.Empty(t, s.SelectedCategories())
	assert.Empty(t, s.Categories())
}

func TestToggleAndRequestOrder(t *testing.T) {
	s := New()
	for _, c := range []string{"bar", "cafe", "bakery"} {
		s.AddCategory(c)
	}
	// Selection order differs from insertion order.
	s.SelectCategory("bakery", true)
	s.SelectCategory("cafe", true)
	s.SelectCategory("bar", true)
	s.AddLocation("Paris")
	s.SelectLocation("Paris", true)

	s.ToggleCategory("cafe")
	assert.False(t, s.CategorySelected("cafe"))

	req := s.Request()
	assert.Equal(t, []string{"bar", "bakery"}, req.Categories)
	assert.Equal(t, []string{"Paris"}, req.Locations)

	s.ToggleCategory("cafe")
	assert.Equal(t, []string{"bar", "cafe", "bakery"}, s.Request().Categories)
}

func TestLoadReplacesContents(t *testing.T) {
	s := New()
	s.AddCategory("old")

	s.Load(model.SearchRequest{
		Categories: []string{"cafe", "cafe", " "},
		Locations:  []string{"Paris"},
	})
	assert.Equal(t, []string{"cafe"}, s.Categories())
	assert.Equal(t, model.SearchRequest{Categories: []string{"cafe"}, Locations: []string{"Paris"}}, s.Request())

	s.Clear()
	assert.Empty(t, s.Categories())
	assert.Empty(t, s.Request().Locations)
}
