package views

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/egemenmermer/business-extractor/internal/app"
	"github.com/egemenmermer/business-extractor/internal/tui/styles"
)

// RecentModel lists previous searches so one can be reused or its snapshot
// reopened.
type RecentModel struct {
	engine  *app.Engine
	entries []app.RecentSearch
	cursor  int
	notice  string
}

func NewRecentModel(engine *app.Engine) RecentModel {
	return RecentModel{engine: engine, entries: engine.Recent().List()}
}

func (m RecentModel) Init() tea.Cmd {
	return nil
}

func (m RecentModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.entries)-1 {
				m.cursor++
			}
		case "enter":
			if m.cursor < len(m.entries) {
				m.engine.Selection().Load(m.entries[m.cursor].Request)
				return m, func() tea.Msg { return NavigateToSelection{} }
			}
		case "o":
			if m.cursor < len(m.entries) {
				path := m.entries[m.cursor].Snapshot
				if path == "" {
					m.notice = "No snapshot was saved for this search"
					return m, nil
				}
				return m, func() tea.Msg { return NavigateToCatalog{Snapshot: path} }
			}
		case "esc":
			return m, func() tea.Msg { return NavigateToHome{} }
		}
	}
	return m, nil
}

func (m RecentModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Recent Searches"))
	b.WriteString("\n")

	if len(m.entries) == 0 {
		b.WriteString(styles.Hint.Render("No recent searches"))
		b.WriteString("\n\n")
		b.WriteString(styles.StatusBar.Render("esc back"))
		return styles.Border.Render(b.String())
	}

	for i, entry := range m.entries {
		cursor := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}

		title := fmt.Sprintf("%s in %s",
			strings.Join(entry.Request.Categories, ", "),
			strings.Join(entry.Request.Locations, ", "))
		b.WriteString(cursor + style.Render(truncate(title, 70)) + "\n")

		detail := fmt.Sprintf("  job %s  %s", entry.JobID, timeAgo(entry.SubmittedAt))
		if entry.Snapshot != "" {
			if _, err := os.Stat(entry.Snapshot); err != nil {
				detail += "  " + lipgloss.NewStyle().Foreground(styles.Error).Strikethrough(true).Render("snapshot")
			} else {
				detail += "  snapshot saved"
			}
		}
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Render(detail) + "\n")
	}

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorText.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("enter reuse selection • o open snapshot • esc back"))

	return styles.Border.Render(b.String())
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
