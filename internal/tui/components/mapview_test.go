package components

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/egemenmermer/business-extractor/internal/model"
)

func TestMapViewPlotsOnlyPositionedBusinesses(t *testing.T) {
	m := NewMapView(20, 5)
	m.SetBusinesses([]model.Business{
		{ID: "a", Latitude: 48.85, Longitude: 2.35},
		{ID: "b"},
		{ID: "c", Latitude: 48.86, Longitude: 2.30},
	}, 2)

	assert.Equal(t, 2, m.Plotted())
	out := m.View()
	assert.Len(t, strings.Split(out, "\n"), 5)
	assert.NotEqual(t, strings.TrimSpace(out), "", "points are drawn")
}

func TestMapViewEmpty(t *testing.T) {
	m := NewMapView(10, 3)
	m.SetBusinesses(nil, -1)
	out := m.View()
	assert.Len(t, strings.Split(out, "\n"), 3)
	assert.Equal(t, "", strings.TrimSpace(out))
}

func TestMapViewZoomKeepsPointsInsideAtReset(t *testing.T) {
	m := NewMapView(20, 5)
	m.SetBusinesses([]model.Business{{ID: "a", Latitude: 45.76, Longitude: 4.83}}, 0)
	m.ZoomIn()
	m.Pan(1, 1)
	m.ZoomReset()
	assert.True(t, m.view.Contains(m.points[0]))
}

func TestMapViewInViewShrinksWhenZoomed(t *testing.T) {
	m := NewMapView(20, 5)
	m.SetBusinesses([]model.Business{
		{ID: "center", Latitude: 48.00, Longitude: 2.00},
		{ID: "west", Latitude: 48.00, Longitude: 1.00},
		{ID: "east", Latitude: 48.00, Longitude: 3.00},
	}, -1)
	assert.Len(t, m.InView(), 3)

	for range 3 {
		m.ZoomIn()
	}
	in := m.InView()
	if assert.Len(t, in, 1) {
		assert.Equal(t, "center", in[0].ID)
	}
}
