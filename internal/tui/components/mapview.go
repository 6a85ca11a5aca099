package components

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"

	"github.com/egemenmermer/business-extractor/internal/engine/geo"
	"github.com/egemenmermer/business-extractor/internal/model"
	"github.com/egemenmermer/business-extractor/internal/tui/styles"
)

// MapView renders a scatter plot of business positions using Braille
// characters.
type MapView struct {
	width    int
	height   int
	items    []model.Business
	points   []orb.Point
	selected int // index into points, -1 if none
	// Viewport
	view orb.Bound
	// Base extent the zoom and pan apply to
	base      orb.Bound
	zoomLevel float64 // 1.0 = no zoom, >1 = zoomed in
	pan       orb.Point
}

func NewMapView(width, height int) MapView {
	return MapView{
		width:     width,
		height:    height,
		selected:  -1,
		zoomLevel: 1.0,
	}
}

func (m *MapView) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// SetBusinesses plots every business with coordinates and refits the
// viewport. selected is the index of the highlighted business in items, or
// -1.
func (m *MapView) SetBusinesses(items []model.Business, selected int) {
	m.items = items
	m.points = nil
	m.selected = -1
	for i, b := range items {
		if !b.HasCoords() {
			continue
		}
		if i == selected {
			m.selected = len(m.points)
		}
		m.points = append(m.points, geo.Point(b))
	}
	bound, ok := geo.Bound(items)
	if !ok {
		m.base = orb.Bound{}
		m.view = orb.Bound{}
		return
	}
	m.base = geo.Padded(bound, 0.05)
	m.applyZoom()
}

// Plotted is the number of points on the map.
func (m MapView) Plotted() int {
	return len(m.points)
}

// InView returns the plotted businesses inside the current viewport.
func (m MapView) InView() []model.Business {
	return geo.Within(m.items, m.view)
}

func (m *MapView) ZoomIn() {
	m.zoomLevel = math.Min(m.zoomLevel*1.5, 20)
	m.applyZoom()
}

func (m *MapView) ZoomOut() {
	m.zoomLevel = math.Max(m.zoomLevel/1.5, 0.5)
	m.applyZoom()
}

func (m *MapView) ZoomReset() {
	m.zoomLevel = 1.0
	m.pan = orb.Point{}
	m.applyZoom()
}

// Pan moves the viewport by a tenth of its size per step.
func (m *MapView) Pan(dLat, dLng float64) {
	m.pan[1] += dLat * (m.base.Max.Y() - m.base.Min.Y()) * 0.1 / m.zoomLevel
	m.pan[0] += dLng * (m.base.Max.X() - m.base.Min.X()) * 0.1 / m.zoomLevel
	m.applyZoom()
}

func (m *MapView) applyZoom() {
	c := m.base.Center()
	halfX := (m.base.Max.X() - m.base.Min.X()) / 2 / m.zoomLevel
	halfY := (m.base.Max.Y() - m.base.Min.Y()) / 2 / m.zoomLevel
	cx, cy := c.X()+m.pan.X(), c.Y()+m.pan.Y()
	m.view = orb.Bound{
		Min: orb.Point{cx - halfX, cy - halfY},
		Max: orb.Point{cx + halfX, cy + halfY},
	}
}

// Braille character encoding:
// Each braille char is a 2x4 dot grid.
// Dot positions:  0 3
//
//	1 4
//	2 5
//	6 7
//
// Unicode: 0x2800 + sum of raised dot bits
var brailleDots = [8]rune{0x01, 0x02, 0x04, 0x08, 0x10, 0x20, 0x40, 0x80}

var dotPositions = [8][2]int{
	{0, 0}, {1, 0}, {2, 0}, {0, 1},
	{1, 1}, {2, 1}, {3, 0}, {3, 1},
}

func (m MapView) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}

	cols, rows := m.width, m.height
	dotW, dotH := cols*2, rows*4

	lngRange := m.view.Max.X() - m.view.Min.X()
	latRange := m.view.Max.Y() - m.view.Min.Y()
	if latRange == 0 || lngRange == 0 {
		return strings.Repeat(strings.Repeat(" ", cols)+"\n", rows-1) + strings.Repeat(" ", cols)
	}

	// 1° of longitude shrinks with latitude; braille dots are roughly square.
	cosLat := math.Cos(m.view.Center().Y() * math.Pi / 180)
	geoAspect := (lngRange * cosLat) / latRange
	dotAspect := float64(dotW) / float64(dotH)

	effectiveW, effectiveH := dotW, dotH
	offsetX, offsetY := 0, 0
	if geoAspect < dotAspect {
		effectiveW = max(int(float64(dotH)*geoAspect), 4)
		offsetX = (dotW - effectiveW) / 2
	} else {
		effectiveH = max(int(float64(dotW)/geoAspect), 4)
		offsetY = (dotH - effectiveH) / 2
	}

	pointGrid := make([][]bool, dotH)
	selGrid := make([][]bool, dotH)
	for i := range pointGrid {
		pointGrid[i] = make([]bool, dotW)
		selGrid[i] = make([]bool, dotW)
	}

	toDot := func(p orb.Point) (int, int) {
		x := offsetX + int((p.X()-m.view.Min.X())/lngRange*float64(effectiveW-1))
		y := offsetY + int((m.view.Max.Y()-p.Y())/latRange*float64(effectiveH-1))
		return x, y
	}

	for i, p := range m.points {
		if !m.view.Contains(p) {
			continue
		}
		x, y := toDot(p)
		if x < 0 || x >= dotW || y < 0 || y >= dotH {
			continue
		}
		if i == m.selected {
			selGrid[y][x] = true
		} else {
			pointGrid[y][x] = true
		}
	}

	pointStyle := lipgloss.NewStyle().Foreground(styles.Success)
	selStyle := lipgloss.NewStyle().Foreground(styles.Warning).Bold(true)

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			var pointVal, selVal rune = 0x2800, 0x2800
			for dot := 0; dot < 8; dot++ {
				dy := row*4 + dotPositions[dot][0]
				dx := col*2 + dotPositions[dot][1]
				if pointGrid[dy][dx] {
					pointVal |= brailleDots[dot]
				}
				if selGrid[dy][dx] {
					selVal |= brailleDots[dot]
				}
			}

			switch {
			case selVal != 0x2800:
				sb.WriteString(selStyle.Render(string(selVal)))
			case pointVal != 0x2800:
				sb.WriteString(pointStyle.Render(string(pointVal)))
			default:
				sb.WriteRune(' ')
			}
		}
		if row < rows-1 {
			sb.WriteRune('\n')
		}
	}

	return sb.String()
}
