package views

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/egemenmermer/business-extractor/internal/app"
	"github.com/egemenmermer/business-extractor/internal/engine/catalog"
	"github.com/egemenmermer/business-extractor/internal/engine/geo"
	"github.com/egemenmermer/business-extractor/internal/export"
	"github.com/egemenmermer/business-extractor/internal/model"
	"github.com/egemenmermer/business-extractor/internal/tui/components"
	"github.com/egemenmermer/business-extractor/internal/tui/styles"
)

type focusArea int

const (
	focusTable focusArea = iota
	focusSearch
	focusFilter
	focusCard
	focusJSON
	focusMap
)

// filterKind is the text filter being typed into the prompt.
type filterKind int

const (
	filterCategory filterKind = iota
	filterCity
	filterCountry
)

func (k filterKind) label() string {
	switch k {
	case filterCity:
		return "City"
	case filterCountry:
		return "Country"
	default:
		return "Category"
	}
}

func (k filterKind) build(v string) catalog.Filter {
	switch k {
	case filterCity:
		return catalog.City(v)
	case filterCountry:
		return catalog.Country(v)
	default:
		return catalog.Category(v)
	}
}

// CatalogModel browses stored businesses page by page, from the server or
// from a saved snapshot.
type CatalogModel struct {
	engine *app.Engine
	loader *catalog.Loader
	source string

	snap     catalog.Snapshot
	view     []model.Business
	sort     catalog.Sort
	table    table.Model
	search   textinput.Model
	prompt   textinput.Model
	kind     filterKind
	mapView  components.MapView
	focus    focusArea
	selected int
	width    int
	height   int
	notice   string

	cardScrollY int
	cardLines   []string
	jsonScrollY int
	jsonScrollX int
	jsonLines   []string
	jsonRaw     string
}

// catalogLoadedMsg is delivered after any loader call returns; the model
// then re-reads the loader snapshot.
type catalogLoadedMsg struct {
	Err   error
	Reset bool
}

func NewCatalogModel(engine *app.Engine, loader *catalog.Loader, source string) CatalogModel {
	search := textinput.New()
	search.Placeholder = "Search loaded results..."
	search.CharLimit = 50

	prompt := textinput.New()
	prompt.CharLimit = 100

	m := CatalogModel{
		engine:   engine,
		loader:   loader,
		source:   source,
		sort:     catalog.DefaultSort,
		search:   search,
		prompt:   prompt,
		mapView:  components.NewMapView(60, 14),
		selected: -1,
	}
	m.snap = loader.Snapshot()
	m.buildTable()
	return m
}

func (m CatalogModel) Init() tea.Cmd {
	return m.loadFirst(catalog.NoFilter{})
}

func (m CatalogModel) loadFirst(f catalog.Filter) tea.Cmd {
	loader, engine := m.loader, m.engine
	return func() tea.Msg {
		err := loader.LoadFirstPage(context.Background(), f)
		engine.NotifyAuth(err)
		return catalogLoadedMsg{Err: err, Reset: true}
	}
}

func (m CatalogModel) reload() tea.Cmd {
	loader, engine := m.loader, m.engine
	return func() tea.Msg {
		err := loader.Reload(context.Background())
		engine.NotifyAuth(err)
		return catalogLoadedMsg{Err: err, Reset: true}
	}
}

// loadMore fetches the next page unless nothing is left or a fetch is
// already running.
func (m *CatalogModel) loadMore() tea.Cmd {
	if !m.snap.HasMore || m.snap.Loading {
		return nil
	}
	m.snap.Loading = true
	loader, engine := m.loader, m.engine
	return func() tea.Msg {
		_, err := loader.LoadNextPage(context.Background())
		engine.NotifyAuth(err)
		return catalogLoadedMsg{Err: err}
	}
}

func (m CatalogModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil

	case catalogLoadedMsg:
		m.snap = m.loader.Snapshot()
		if msg.Reset {
			m.selected = 0
		}
		m.refreshView()
		if msg.Reset {
			m.table.GotoTop()
		}
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" {
			return m, tea.Quit
		}

		switch m.focus {
		case focusTable:
			switch key {
			case "esc", "q":
				return m, func() tea.Msg { return NavigateToHome{} }
			case "/", "tab":
				m.focus = focusSearch
				m.search.Focus()
				return m, textinput.Blink
			case "c":
				return m, m.openPrompt(filterCategory)
			case "t":
				return m, m.openPrompt(filterCity)
			case "n":
				return m, m.openPrompt(filterCountry)
			case "m":
				hasEmail := true
				if f, ok := m.snap.Filter.(catalog.EmailFilter); ok {
					hasEmail = !f.HasEmail
				}
				return m, m.loadFirst(catalog.Email(hasEmail))
			case "0":
				m.search.SetValue("")
				return m, m.loadFirst(catalog.NoFilter{})
			case "R":
				return m, m.reload()
			case "L":
				return m, m.loadMore()
			case "o":
				m.sort = m.sort.Toggle(nextColumn(m.sort.Column))
				m.refreshView()
				return m, nil
			case "r":
				m.sort = m.sort.Toggle(m.sort.Column)
				m.refreshView()
				return m, nil
			case "e":
				m.exportCSV()
				return m, nil
			case "1", "2", "3":
				m.focus = map[string]focusArea{"1": focusCard, "2": focusJSON, "3": focusMap}[key]
				m.table.SetStyles(unfocusedTableStyles())
				return m, nil
			}

		case focusSearch:
			switch key {
			case "esc", "enter", "tab":
				m.focus = focusTable
				m.search.Blur()
				return m, nil
			}

		case focusFilter:
			switch key {
			case "esc":
				m.focus = focusTable
				m.prompt.Blur()
				return m, nil
			case "enter":
				m.focus = focusTable
				m.prompt.Blur()
				return m, m.loadFirst(m.kind.build(m.prompt.Value()))
			}

		case focusCard:
			maxScroll := max(len(m.cardLines)-m.panelHeight(), 0)
			switch key {
			case "esc":
				m.backToTable()
			case "up", "k":
				if m.cardScrollY > 0 {
					m.cardScrollY--
				}
			case "down", "j":
				if m.cardScrollY < maxScroll {
					m.cardScrollY++
				}
			}
			return m, nil

		case focusJSON:
			maxScroll := max(len(m.jsonLines)-m.panelHeight(), 0)
			switch key {
			case "esc":
				m.backToTable()
			case "up", "k":
				if m.jsonScrollY > 0 {
					m.jsonScrollY--
				}
			case "down", "j":
				if m.jsonScrollY < maxScroll {
					m.jsonScrollY++
				}
			case "left", "h":
				m.jsonScrollX = max(m.jsonScrollX-4, 0)
			case "right", "l":
				m.jsonScrollX += 4
			case "c":
				m.copyToClipboard()
			}
			return m, nil

		case focusMap:
			switch key {
			case "esc":
				m.backToTable()
			case "+", "=":
				m.mapView.ZoomIn()
			case "-":
				m.mapView.ZoomOut()
			case "0":
				m.mapView.ZoomReset()
			case "up", "k":
				m.mapView.Pan(1, 0)
			case "down", "j":
				m.mapView.Pan(-1, 0)
			case "left", "h":
				m.mapView.Pan(0, -1)
			case "right", "l":
				m.mapView.Pan(0, 1)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusTable:
		m.table, cmd = m.table.Update(msg)
		cursor := m.table.Cursor()
		if cursor != m.selected && cursor < len(m.view) {
			m.selected = cursor
			m.cacheDetailContent()
			m.mapView.SetBusinesses(m.view, m.selected)
		}
		if len(m.view) > 0 && cursor >= len(m.view)-1 {
			cmd = tea.Batch(cmd, m.loadMore())
		}
	case focusSearch:
		before := m.search.Value()
		m.search, cmd = m.search.Update(msg)
		if m.search.Value() != before {
			m.selected = 0
			m.refreshView()
			m.table.GotoTop()
		}
	case focusFilter:
		m.prompt, cmd = m.prompt.Update(msg)
	}

	return m, cmd
}

func (m *CatalogModel) openPrompt(kind filterKind) tea.Cmd {
	m.kind = kind
	m.focus = focusFilter
	m.prompt.Placeholder = kind.label() + " name"
	m.prompt.SetValue("")
	m.prompt.Focus()
	return textinput.Blink
}

func (m *CatalogModel) backToTable() {
	m.focus = focusTable
	m.table.SetStyles(focusedTableStyles())
}

func nextColumn(current string) string {
	i := slices.Index(catalog.Columns, current)
	return catalog.Columns[(i+1)%len(catalog.Columns)]
}

// refreshView recomputes the searched and sorted rows from the loader
// snapshot, keeping the selection in range.
func (m *CatalogModel) refreshView() {
	m.view = catalog.View(m.snap.Items, m.search.Value(), m.sort)
	switch {
	case len(m.view) == 0:
		m.selected = -1
	case m.selected < 0:
		m.selected = 0
	case m.selected >= len(m.view):
		m.selected = len(m.view) - 1
	}
	m.buildTable()
	if m.selected >= 0 {
		m.table.SetCursor(m.selected)
	}
	m.cacheDetailContent()
	m.mapView.SetBusinesses(m.view, m.selected)
}

func (m *CatalogModel) cacheDetailContent() {
	m.cardScrollY = 0
	m.jsonScrollY = 0
	m.jsonScrollX = 0
	if m.selected < 0 || m.selected >= len(m.view) {
		m.cardLines = nil
		m.jsonLines = nil
		m.jsonRaw = ""
		return
	}

	biz := m.view[m.selected]
	m.cardLines = buildCardLines(biz)
	if c, ok := geo.Centroid(m.view); ok && biz.HasCoords() && len(m.view) > 1 {
		m.cardLines = append(m.cardLines, fmt.Sprintf("%-10s %.1f km", "Center:", geo.DistanceKm(c, geo.Point(biz))))
	}

	data, err := json.MarshalIndent(biz, "", "  ")
	if err != nil {
		m.jsonLines = []string{"JSON error"}
		m.jsonRaw = ""
		return
	}
	m.jsonRaw = string(data)
	m.jsonLines = strings.Split(m.jsonRaw, "\n")
}

func buildCardLines(biz model.Business) []string {
	var lines []string

	lines = append(lines, biz.BusinessName)
	category := biz.Category
	if biz.RealCategory != "" && biz.RealCategory != biz.Category {
		category = fmt.Sprintf("%s (%s)", biz.RealCategory, biz.Category)
	}
	if category != "" {
		lines = append(lines, category)
	}
	lines = append(lines, "")

	addRow := func(label, value string) {
		if value != "" {
			lines = append(lines, fmt.Sprintf("%-10s %s", label, value))
		}
	}

	addRow("Address:", biz.Address)
	var place []string
	for _, p := range []string{biz.City, biz.State, biz.PostalCode, biz.Country} {
		if p != "" {
			place = append(place, p)
		}
	}
	addRow("City:", strings.Join(place, ", "))
	addRow("Phone:", biz.Phone)
	addRow("Email:", biz.Email)
	addRow("Website:", biz.Website)
	addRow("Maps:", biz.MapsLink)
	addRow("Details:", biz.DetailsLink)
	if biz.HasCoords() {
		addRow("Coords:", fmt.Sprintf("%.6f, %.6f", biz.Latitude, biz.Longitude))
	}
	addRow("ID:", biz.ID)

	return lines
}

var tableColumns = []struct {
	title  string
	column string
	width  int
	value  func(model.Business) string
}{
	{"Name", catalog.ColumnName, 28, func(b model.Business) string { return b.BusinessName }},
	{"Category", catalog.ColumnCategory, 18, func(b model.Business) string { return b.Category }},
	{"City", catalog.ColumnCity, 14, func(b model.Business) string { return b.City }},
	{"Country", catalog.ColumnCountry, 12, func(b model.Business) string { return b.Country }},
	{"Phone", catalog.ColumnPhone, 16, func(b model.Business) string { return b.Phone }},
	{"Email", catalog.ColumnEmail, 24, func(b model.Business) string { return b.Email }},
}

func (m *CatalogModel) buildTable() {
	extra := 0
	if m.width > 130 {
		extra = (m.width - 130) / len(tableColumns)
	}

	columns := make([]table.Column, len(tableColumns))
	for i, c := range tableColumns {
		title := c.title
		if c.column == m.sort.Column {
			if m.sort.Direction == catalog.Descending {
				title += " ▼"
			} else {
				title += " ▲"
			}
		}
		columns[i] = table.Column{Title: title, Width: c.width + extra}
	}

	rows := make([]table.Row, len(m.view))
	for i, b := range m.view {
		row := make(table.Row, len(tableColumns))
		for j, c := range tableColumns {
			row[j] = truncate(c.value(b), c.width+extra)
		}
		rows[i] = row
	}

	height := 10
	if m.height > 0 {
		height = max(m.height/2-5, 5)
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	if m.focus == focusCard || m.focus == focusJSON || m.focus == focusMap {
		t.SetStyles(unfocusedTableStyles())
	} else {
		t.SetStyles(focusedTableStyles())
	}
	m.table = t
}

func focusedTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Secondary)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(styles.Primary).
		Bold(true)
	return s
}

func unfocusedTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Muted)
	s.Selected = s.Selected.
		Foreground(styles.Text).
		Background(lipgloss.Color("#333333")).
		Bold(false)
	return s
}

func (m CatalogModel) panelHeight() int {
	return max(m.height/2-8, 6)
}

func (m *CatalogModel) updateLayout() {
	if m.width <= 0 {
		return
	}
	m.buildTable()
	if m.selected >= 0 {
		m.table.SetCursor(m.selected)
	}
	m.mapView.SetSize(max(m.width-6, 30), m.panelHeight())
	m.mapView.SetBusinesses(m.view, m.selected)
}

func (m CatalogModel) View() string {
	var b strings.Builder

	title := fmt.Sprintf("Catalog (%s): %d loaded", m.source, len(m.snap.Items))
	b.WriteString(styles.Title.Render(title))
	if len(m.view) != len(m.snap.Items) {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
			Render(fmt.Sprintf(" (showing %d)", len(m.view))))
	}
	b.WriteString("\n")

	info := fmt.Sprintf("filter %s · sort %s · page %d", m.snap.Filter, m.sort, m.snap.Page)
	switch {
	case m.snap.Loading:
		info += " · loading..."
	case m.snap.HasMore:
		info += " · more available"
	default:
		info += " · end of results"
	}
	b.WriteString(styles.Hint.Render(info))
	b.WriteString("\n")

	searchStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	if m.focus == focusSearch {
		searchStyle = lipgloss.NewStyle().Foreground(styles.Primary)
	}
	b.WriteString(searchStyle.Render("Search: "))
	b.WriteString(m.search.View())
	b.WriteString("\n")

	if m.focus == focusFilter {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Primary).Render(m.kind.label() + ": "))
		b.WriteString(m.prompt.View())
		b.WriteString("\n")
	}

	b.WriteString(m.table.View())
	b.WriteString("\n\n")

	panelH := m.panelHeight()
	if m.focus == focusMap {
		label := fmt.Sprintf("[3] Map · %d of %d in view", len(m.mapView.InView()), m.mapView.Plotted())
		b.WriteString(m.renderPanel(label, true, max(m.width-2, 40), panelH, m.mapView.View()))
	} else {
		detailW := max(m.width-2, 40)
		cardOuterW := detailW * 2 / 5
		jsonOuterW := detailW - cardOuterW - 1
		cardBox := m.renderPanel("[1] Details", m.focus == focusCard, cardOuterW, panelH,
			m.viewCardPanel(max(cardOuterW-4, 20), panelH))
		jsonBox := m.renderPanel("[2] JSON", m.focus == focusJSON, jsonOuterW, panelH,
			m.viewJSONPanel(max(jsonOuterW-4, 20), panelH))
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cardBox, " ", jsonBox))
	}
	b.WriteString("\n")

	if m.snap.LastError != nil {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Warning).
			Render("Load failed: " + m.snap.LastError.Error()))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Success).Render(m.notice))
		b.WriteString("\n")
	}

	var statusText string
	switch m.focus {
	case focusTable:
		statusText = "↑↓ navigate • / search • c category • t city • n country • m email • 0 clear • o sort • r reverse • L more • e export • 1 2 3 panels • esc back"
	case focusSearch:
		statusText = "type to search loaded rows • esc back"
	case focusFilter:
		statusText = "enter apply filter • esc cancel"
	case focusCard:
		statusText = "↑↓ scroll • esc back to table"
	case focusJSON:
		statusText = "↑↓ scroll • ←→ pan • c copy json • esc back to table"
	case focusMap:
		statusText = "arrows pan • +/- zoom • 0 reset • esc back to table"
	}
	b.WriteString(styles.StatusBar.Render(statusText))

	return b.String()
}

func (m CatalogModel) renderPanel(label string, focused bool, outerW, h int, content string) string {
	color := styles.Muted
	if focused {
		color = styles.Primary
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Width(outerW - 2).
		Height(h).
		Render(content)
	return lipgloss.NewStyle().Bold(true).Foreground(color).Render(label) + "\n" + box
}

// window returns the visible [start, end) range of n lines scrolled to y.
func window(n, y, h int) (int, int) {
	y = max(min(y, n-h), 0)
	return y, min(y+h, n)
}

func (m CatalogModel) viewCardPanel(w, h int) string {
	if len(m.cardLines) == 0 {
		return styles.Hint.Render("Select a business\nto view details")
	}

	lines := m.cardLines
	scrollY, end := window(len(lines), m.cardScrollY, h)
	visible := lines[scrollY:end]

	var sb strings.Builder
	label := lipgloss.NewStyle().Foreground(styles.Muted)
	valStyle := lipgloss.NewStyle().Foreground(styles.Text)
	link := lipgloss.NewStyle().Foreground(styles.Primary)

	for i, line := range visible {
		switch {
		case scrollY+i == 0:
			sb.WriteString(lipgloss.NewStyle().Bold(true).Foreground(styles.Text).
				Render(truncate(line, w)))
		case scrollY+i == 1 && line != "":
			sb.WriteString(lipgloss.NewStyle().Foreground(styles.Secondary).
				Render(truncate(line, w)))
		case strings.HasPrefix(line, "Website:") || strings.HasPrefix(line, "Maps:") ||
			strings.HasPrefix(line, "Details:") || strings.HasPrefix(line, "Email:"):
			lbl, val, _ := strings.Cut(line, " ")
			sb.WriteString(label.Render(fmt.Sprintf("%-10s ", lbl)))
			sb.WriteString(link.Render(truncate(strings.TrimSpace(val), w-11)))
		default:
			sb.WriteString(valStyle.Render(truncate(line, w)))
		}
		if i < len(visible)-1 {
			sb.WriteString("\n")
		}
	}

	if scrollY > 0 {
		sb.WriteString("\n")
		sb.WriteString(label.Render("  ▲ more above"))
	}
	if end < len(lines) {
		sb.WriteString("\n")
		sb.WriteString(label.Render("  ▼ more below"))
	}

	return sb.String()
}

func (m CatalogModel) viewJSONPanel(w, h int) string {
	if len(m.jsonLines) == 0 {
		return styles.Hint.Render("Select a business\nto view JSON")
	}

	lines := m.jsonLines
	jsonStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	keyStyle := lipgloss.NewStyle().Foreground(styles.Secondary)
	strStyle := lipgloss.NewStyle().Foreground(styles.Success)

	scrollY, end := window(len(lines), m.jsonScrollY, h)
	visible := lines[scrollY:end]

	var sb strings.Builder
	for i, line := range visible {
		display := []rune(line)
		if m.jsonScrollX > 0 {
			if m.jsonScrollX < len(display) {
				display = display[m.jsonScrollX:]
			} else {
				display = nil
			}
		}
		text := truncate(string(display), w)

		if key, val, ok := strings.Cut(text, `":`); ok && strings.HasPrefix(strings.TrimSpace(key), `"`) {
			sb.WriteString(keyStyle.Render(key + `"`))
			sb.WriteString(strStyle.Render(":" + val))
		} else {
			sb.WriteString(jsonStyle.Render(text))
		}

		if i < len(visible)-1 {
			sb.WriteString("\n")
		}
	}

	if scrollY > 0 || end < len(lines) {
		sb.WriteString("\n")
		indicator := fmt.Sprintf("  [%d/%d]", scrollY+1, len(lines))
		if m.jsonScrollX > 0 {
			indicator += fmt.Sprintf(" ←%d", m.jsonScrollX)
		}
		sb.WriteString(jsonStyle.Render(indicator))
	}

	return sb.String()
}

func (m *CatalogModel) copyToClipboard() {
	if m.jsonRaw == "" {
		return
	}
	if err := clipboard.WriteAll(m.jsonRaw); err != nil {
		m.notice = fmt.Sprintf("Copy failed: %v", err)
		return
	}
	m.notice = "JSON copied to clipboard"
}

func (m *CatalogModel) exportCSV() {
	data := m.view
	if len(data) == 0 {
		m.notice = "Nothing to export"
		return
	}
	name := fmt.Sprintf("catalog_%s.csv", time.Now().UTC().Format("20060102T150405"))
	path := filepath.Join(m.engine.Config().DataDir, name)
	if err := export.WriteCSVFile(path, data); err != nil {
		m.notice = fmt.Sprintf("Export error: %v", err)
		return
	}
	m.notice = fmt.Sprintf("Exported %d rows to %s", len(data), path)
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
