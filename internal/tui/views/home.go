package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/egemenmermer/business-extractor/internal/app"
	"github.com/egemenmermer/business-extractor/internal/tui/styles"
)

// Version is shown in the header; set by the CLI.
var Version = "dev"

type menuItem struct {
	key   string
	label string
	desc  string
	msg   tea.Msg
}

type HomeModel struct {
	engine *app.Engine
	items  []menuItem
	cursor int
	notice string
}

func NewHomeModel(engine *app.Engine, notice string) HomeModel {
	return HomeModel{
		engine: engine,
		notice: notice,
		items: []menuItem{
			{key: "n", label: "New Search", desc: "Pick categories and locations to scrape", msg: NavigateToSelection{}},
			{key: "t", label: "Job Progress", desc: "Watch the running job", msg: NavigateToTasks{}},
			{key: "b", label: "Browse Catalog", desc: "Page through stored businesses", msg: NavigateToCatalog{}},
			{key: "l", label: "Open Snapshot", desc: "Browse a saved .db snapshot offline", msg: NavigateToLoad{}},
			{key: "r", label: "Recent Searches", desc: "Reuse a previous selection", msg: NavigateToRecent{}},
			{key: "q", label: "Quit", desc: "Exit bizextract"},
		},
	}
}

func (m HomeModel) Init() tea.Cmd {
	return nil
}

func (m HomeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "enter":
			return m, m.handleSelect()
		default:
			for i, item := range m.items {
				if item.key == key {
					m.cursor = i
					return m, m.handleSelect()
				}
			}
		}
	}
	return m, nil
}

func (m HomeModel) handleSelect() tea.Cmd {
	item := m.items[m.cursor]
	if item.msg == nil {
		return tea.Quit
	}
	return func() tea.Msg { return item.msg }
}

func (m HomeModel) View() string {
	var b strings.Builder

	logo := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Render("  bizextract")

	version := lipgloss.NewStyle().
		Foreground(styles.Muted).
		Render(" " + Version)

	tagline := lipgloss.NewStyle().
		Foreground(styles.Secondary).
		Italic(true).
		Render("  Business data extraction dashboard")

	b.WriteString(logo + version + "\n")
	b.WriteString(tagline + "\n")
	b.WriteString(styles.Hint.Render("  "+m.engine.Config().APIURL) + "\n")

	snap := m.engine.Poller().Snapshot()
	if snap.JobID != "" {
		b.WriteString(styles.Hint.Render(fmt.Sprintf("  job %s · %s · %d businesses", snap.JobID, snap.State, len(snap.Businesses))))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for i, item := range m.items {
		cursor := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}

		key := lipgloss.NewStyle().
			Foreground(styles.Secondary).
			Bold(true).
			Render(fmt.Sprintf("[%s]", item.key))

		label := style.Render(item.label)
		desc := lipgloss.NewStyle().
			Foreground(styles.Muted).
			Render(" - " + item.desc)

		b.WriteString(fmt.Sprintf("%s%s %s%s\n", cursor, key, label, desc))
	}

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorText.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("↑↓ navigate • enter select • q quit"))

	return styles.Border.Render(b.String())
}
