package views

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/egemenmermer/business-extractor/internal/engine/storage"
	"github.com/egemenmermer/business-extractor/internal/tui/styles"
)

const snapshotExt = ".db"

type pickerEntry struct {
	name    string
	dir     bool
	modTime time.Time

	summary *storage.Summary
	sumErr  error
}

// snapshotSummariesMsg carries the summaries read for the snapshots in dir.
type snapshotSummariesMsg struct {
	dir     string
	results map[string]summaryResult
}

type summaryResult struct {
	summary storage.Summary
	err     error
}

// FilePickerModel browses directories for saved snapshots. Directories are
// listed first, then snapshots newest first with their job details.
type FilePickerModel struct {
	dir     string
	entries []pickerEntry
	cursor  int
	err     error
}

// NewFilePickerModel starts in dir, falling back to the working directory
// when dir does not exist yet.
func NewFilePickerModel(dir string) FilePickerModel {
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		dir, _ = os.Getwd()
	}
	m := FilePickerModel{dir: dir}
	m.loadDir()
	return m
}

func (m *FilePickerModel) loadDir() {
	m.cursor = 0
	m.entries = nil

	dirEntries, err := os.ReadDir(m.dir)
	if err != nil {
		m.err = err
		return
	}
	m.err = nil

	for _, e := range dirEntries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !e.IsDir() && filepath.Ext(name) != snapshotExt {
			continue
		}
		entry := pickerEntry{name: name, dir: e.IsDir()}
		if info, err := e.Info(); err == nil {
			entry.modTime = info.ModTime()
		}
		m.entries = append(m.entries, entry)
	}
	sortEntries(m.entries)
}

func sortEntries(entries []pickerEntry) {
	slices.SortStableFunc(entries, func(a, b pickerEntry) int {
		switch {
		case a.dir != b.dir:
			if a.dir {
				return -1
			}
			return 1
		case a.dir:
			return strings.Compare(a.name, b.name)
		default:
			return b.modTime.Compare(a.modTime)
		}
	})
}

// summarize reads every snapshot of the current directory off the UI loop.
func (m FilePickerModel) summarize() tea.Cmd {
	dir := m.dir
	var names []string
	for _, e := range m.entries {
		if !e.dir {
			names = append(names, e.name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		results := make(map[string]summaryResult, len(names))
		for _, name := range names {
			sum, err := storage.Summarize(ctx, filepath.Join(dir, name))
			results[name] = summaryResult{summary: sum, err: err}
		}
		return snapshotSummariesMsg{dir: dir, results: results}
	}
}

func (m FilePickerModel) Init() tea.Cmd {
	return m.summarize()
}

func (m FilePickerModel) selected() (pickerEntry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return pickerEntry{}, false
	}
	return m.entries[m.cursor], true
}

func (m FilePickerModel) enter(dir string) (FilePickerModel, tea.Cmd) {
	m.dir = dir
	m.loadDir()
	return m, m.summarize()
}

func (m FilePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotSummariesMsg:
		if msg.dir != m.dir {
			return m, nil
		}
		for i := range m.entries {
			res, ok := msg.results[m.entries[i].name]
			if !ok {
				continue
			}
			if res.err != nil {
				m.entries[i].sumErr = res.err
				continue
			}
			sum := res.summary
			m.entries[i].summary = &sum
		}
		return m, nil

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
			entry, ok := m.selected()
			if !ok {
				return m, nil
			}
			fullPath := filepath.Join(m.dir, entry.name)
			if entry.dir {
				return m.enter(fullPath)
			}
			return m, func() tea.Msg {
				return NavigateToCatalog{Snapshot: fullPath}
			}
		case "backspace":
			if parent := filepath.Dir(m.dir); parent != m.dir {
				return m.enter(parent)
			}
		case "r":
			return m.enter(m.dir)
		case "esc":
			return m, func() tea.Msg { return NavigateToHome{} }
		}
	}
	return m, nil
}

// describe is the one-line listing detail of a snapshot.
func (e pickerEntry) describe() string {
	switch {
	case e.sumErr != nil:
		return "unreadable"
	case e.summary == nil:
		return "…"
	}
	s := e.summary
	saved := s.SavedAt
	if saved.IsZero() {
		saved = e.modTime
	}
	return fmt.Sprintf("%d businesses · %d tasks · %s", s.Businesses, s.Tasks, timeAgo(saved))
}

func (m FilePickerModel) renderDetail(e pickerEntry) string {
	if e.dir || e.summary == nil {
		if e.sumErr != nil {
			return styles.ErrorText.Render(e.sumErr.Error())
		}
		return ""
	}
	s := e.summary
	var b strings.Builder
	row := func(label, value string) {
		if value == "" {
			value = "-"
		}
		b.WriteString(styles.Label.Render(fmt.Sprintf("%-12s", label)))
		b.WriteString(styles.Value.Render(value))
		b.WriteString("\n")
	}
	row("Job:", s.JobID)
	row("Categories:", strings.Join(s.Request.Categories, ", "))
	row("Locations:", strings.Join(s.Request.Locations, ", "))
	if !s.SavedAt.IsZero() {
		row("Saved:", s.SavedAt.Local().Format("2006-01-02 15:04"))
	}
	return b.String()
}

func (m FilePickerModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Open Snapshot"))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Render(m.dir))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(styles.ErrorText.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
		b.WriteString(styles.StatusBar.Render("backspace parent dir • esc back"))
		return styles.Border.Render(b.String())
	}

	if len(m.entries) == 0 {
		b.WriteString(styles.Hint.Render("No snapshots or directories found"))
		b.WriteString("\n")
	}

	start, end := window(len(m.entries), max(m.cursor-12, 0), 15)
	for i := start; i < end; i++ {
		entry := m.entries[i]
		cursor := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}

		if entry.dir {
			b.WriteString(fmt.Sprintf("%s📁 %s\n", cursor, style.Render(entry.name+"/")))
			continue
		}
		b.WriteString(fmt.Sprintf("%s💾 %s  %s\n", cursor,
			style.Render(truncate(entry.name, 40)), styles.Hint.Render(entry.describe())))
	}

	if entry, ok := m.selected(); ok {
		if detail := m.renderDetail(entry); detail != "" {
			b.WriteString("\n")
			b.WriteString(detail)
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("enter open • backspace parent dir • r refresh • esc back"))

	return styles.Border.Render(b.String())
}
