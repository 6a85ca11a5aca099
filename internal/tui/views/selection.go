package views

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/egemenmermer/business-extractor/internal/app"
	"github.com/egemenmermer/business-extractor/internal/engine/poller"
	"github.com/egemenmermer/business-extractor/internal/tui/styles"
)

type panelID int

const (
	panelCategories panelID = iota
	panelLocations
)

// selectionPanel is one add/select/remove list.
type selectionPanel struct {
	title  string
	input  textinput.Model
	cursor int
	// editing is true while the input has focus.
	editing bool

	items    func() []string
	selected func(string) bool
	add      func(string) bool
	toggle   func(string)
	remove   func(string)
}

// SelectionModel edits the categories and locations of the next search.
type SelectionModel struct {
	engine     *app.Engine
	panels     [2]selectionPanel
	focused    panelID
	submitting bool
	err        string
}

type searchStartedMsg struct {
	JobID string
	Err   error
}

func NewSelectionModel(engine *app.Engine) SelectionModel {
	sel := engine.Selection()
	m := SelectionModel{engine: engine}
	m.panels[panelCategories] = selectionPanel{
		title:    "Categories",
		input:    newInput("add a category, e.g. cafe", 28),
		items:    sel.Categories,
		selected: sel.CategorySelected,
		add:      sel.AddCategory,
		toggle:   sel.ToggleCategory,
		remove:   sel.RemoveCategory,
	}
	m.panels[panelLocations] = selectionPanel{
		title:    "Locations",
		input:    newInput("add a location, e.g. Paris", 28),
		items:    sel.Locations,
		selected: sel.LocationSelected,
		add:      sel.AddLocation,
		toggle:   sel.ToggleLocation,
		remove:   sel.RemoveLocation,
	}
	m.panels[panelCategories].editing = true
	m.panels[panelCategories].input.Focus()
	return m
}

func newInput(placeholder string, width int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 100
	if width > 0 {
		ti.Width = width
	}
	return ti
}

func (m SelectionModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m SelectionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	p := &m.panels[m.focused]

	switch msg := msg.(type) {
	case searchStartedMsg:
		m.submitting = false
		if msg.Err != nil {
			var ve *poller.ValidationError
			if errors.As(msg.Err, &ve) {
				m.err = fmt.Sprintf("Select at least one %s", ve.Field)
			} else {
				m.err = msg.Err.Error()
			}
			return m, nil
		}
		return m, func() tea.Msg { return NavigateToTasks{} }

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "esc":
			if p.editing && p.input.Value() != "" {
				p.input.SetValue("")
				return m, nil
			}
			return m, func() tea.Msg { return NavigateToHome{} }
		case "tab", "shift+tab":
			m.err = ""
			return m, m.switchPanel()
		case "ctrl+s":
			return m, m.submit()
		case "ctrl+x":
			m.engine.Selection().Clear()
			for i := range m.panels {
				m.panels[i].cursor = 0
			}
			m.err = ""
			p.editing = true
			return m, p.input.Focus()
		}

		if p.editing {
			switch key {
			case "enter":
				v := strings.TrimSpace(p.input.Value())
				if v == "" {
					return m, nil
				}
				if !p.add(v) {
					m.err = fmt.Sprintf("%q is already in the list", v)
				} else {
					m.err = ""
				}
				p.input.SetValue("")
				return m, nil
			case "down":
				if len(p.items()) > 0 {
					p.editing = false
					p.input.Blur()
					p.cursor = 0
				}
				return m, nil
			}
			var cmd tea.Cmd
			p.input, cmd = p.input.Update(msg)
			return m, cmd
		}

		items := p.items()
		switch key {
		case "up", "k":
			if p.cursor > 0 {
				p.cursor--
			} else {
				p.editing = true
				return m, p.input.Focus()
			}
		case "down", "j":
			if p.cursor < len(items)-1 {
				p.cursor++
			}
		case " ", "x":
			if p.cursor < len(items) {
				p.toggle(items[p.cursor])
			}
		case "d", "delete", "backspace":
			if p.cursor < len(items) {
				p.remove(items[p.cursor])
				if p.cursor >= len(items)-1 && p.cursor > 0 {
					p.cursor--
				}
			}
		case "a", "i":
			p.editing = true
			return m, p.input.Focus()
		case "enter", "s":
			return m, m.submit()
		}
	}
	return m, nil
}

func (m *SelectionModel) switchPanel() tea.Cmd {
	m.panels[m.focused].input.Blur()
	m.focused = 1 - m.focused
	p := &m.panels[m.focused]
	if p.editing || len(p.items()) == 0 {
		p.editing = true
		return p.input.Focus()
	}
	return nil
}

func (m *SelectionModel) submit() tea.Cmd {
	if m.submitting {
		return nil
	}
	m.submitting = true
	m.err = ""
	engine := m.engine
	return func() tea.Msg {
		id, err := engine.StartSearch(context.Background())
		return searchStartedMsg{JobID: id, Err: err}
	}
}

func (m SelectionModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("New Search") + "\n")

	left := m.renderPanel(panelCategories)
	right := m.renderPanel(panelLocations)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right))
	b.WriteString("\n")

	req := m.engine.Selection().Request()
	summary := fmt.Sprintf("%d categories × %d locations = %d tasks",
		len(req.Categories), len(req.Locations), req.Pairs())
	b.WriteString(styles.Hint.Render(summary))
	b.WriteString("\n")

	if m.submitting {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Warning).Render("Submitting search..."))
		b.WriteString("\n")
	}
	if m.err != "" {
		b.WriteString(styles.ErrorText.Render(m.err))
		b.WriteString("\n")
	}

	b.WriteString(styles.StatusBar.Render("enter add/start • space toggle • d remove • ctrl+x clear all • tab switch panel • ctrl+s start • esc back"))

	return styles.Border.Render(b.String())
}

func (m SelectionModel) renderPanel(id panelID) string {
	p := m.panels[id]
	focused := id == m.focused

	var sb strings.Builder
	title := styles.InactiveItem.Render(p.title)
	if focused {
		title = styles.Subtitle.Render(p.title)
	}
	sb.WriteString(title + "\n")
	sb.WriteString(p.input.View() + "\n\n")

	items := p.items()
	if len(items) == 0 {
		sb.WriteString(styles.Hint.Render("Nothing added yet"))
	}

	const maxVisible = 12
	start := 0
	if p.cursor >= maxVisible {
		start = p.cursor - maxVisible + 1
	}
	end := min(start+maxVisible, len(items))

	for i := start; i < end; i++ {
		v := items[i]
		box := "[ ]"
		if p.selected(v) {
			box = lipgloss.NewStyle().Foreground(styles.Success).Render("[x]")
		}
		cursor := "  "
		style := styles.Value
		if focused && !p.editing && i == p.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}
		sb.WriteString(fmt.Sprintf("%s%s %s", cursor, box, style.Render(truncate(v, 30))))
		if i < end-1 {
			sb.WriteString("\n")
		}
	}

	border := styles.Border
	if focused {
		border = styles.FocusedBorder
	}
	return border.Padding(0, 1).Width(40).Render(sb.String())
}
