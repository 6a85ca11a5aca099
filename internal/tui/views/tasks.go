package views

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/egemenmermer/business-extractor/internal/app"
	"github.com/egemenmermer/business-extractor/internal/engine/gateway"
	"github.com/egemenmermer/business-extractor/internal/engine/poller"
	"github.com/egemenmermer/business-extractor/internal/model"
	"github.com/egemenmermer/business-extractor/internal/tui/components"
	"github.com/egemenmermer/business-extractor/internal/tui/styles"
)

// TasksModel shows the task queue of the current job while the poller runs.
type TasksModel struct {
	engine      *app.Engine
	snap        poller.Snapshot
	bar         progress.Model
	taskBar     progress.Model
	mapView     components.MapView
	startTime   time.Time
	scroll      int
	confirmStop bool
	busy        bool
	notice      string
	noticeErr   bool
	width       int
	height      int
}

type tasksTickMsg time.Time

type actionDoneMsg struct {
	Text string
	Err  error
}

func NewTasksModel(engine *app.Engine) TasksModel {
	return TasksModel{
		engine: engine,
		snap:   engine.Poller().Snapshot(),
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(50),
		),
		taskBar: progress.New(
			progress.WithSolidFill(string(styles.Primary)),
			progress.WithWidth(20),
			progress.WithoutPercentage(),
		),
		mapView:   components.NewMapView(40, 12),
		startTime: time.Now(),
	}
}

func (m TasksModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(t time.Time) tea.Msg {
		return tasksTickMsg(t)
	})
}

func (m TasksModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w := max(msg.Width-60, 30)
		m.mapView.SetSize(w, max(msg.Height/2-4, 8))
		m.mapView.SetBusinesses(m.snap.Businesses, -1)

	case tasksTickMsg:
		prev := m.snap.UpdatedAt
		m.snap = m.engine.Poller().Snapshot()
		if !m.snap.UpdatedAt.Equal(prev) {
			m.mapView.SetBusinesses(m.snap.Businesses, -1)
		}
		return m, tickCmd()

	case actionDoneMsg:
		m.busy = false
		if msg.Err != nil {
			m.notice = msg.Err.Error()
			m.noticeErr = true
		} else {
			m.notice = msg.Text
			m.noticeErr = false
		}
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" {
			m.engine.Poller().Stop()
			return m, tea.Quit
		}
		if m.confirmStop {
			m.confirmStop = false
			if key == "esc" {
				m.engine.Poller().Stop()
				return m, func() tea.Msg { return NavigateToHome{} }
			}
			return m, nil
		}

		switch key {
		case "esc":
			if m.snap.Polling() {
				m.confirmStop = true
				return m, nil
			}
			return m, func() tea.Msg { return NavigateToHome{} }
		case "up", "k":
			if m.scroll > 0 {
				m.scroll--
			}
		case "down", "j":
			if m.scroll < len(m.snap.Tasks)-1 {
				m.scroll++
			}
		case "b", "enter":
			return m, func() tea.Msg { return NavigateToCatalog{} }
		case "s":
			return m, m.runAction(m.save)
		case "e":
			return m, m.runAction(m.export(gateway.FormatCSV))
		case "x":
			return m, m.runAction(m.export(gateway.FormatXLSX))
		case "+", "=":
			m.mapView.ZoomIn()
		case "-":
			m.mapView.ZoomOut()
		}
	}
	return m, nil
}

func (m *TasksModel) runAction(fn func() tea.Msg) tea.Cmd {
	if m.busy {
		return nil
	}
	m.busy = true
	m.notice = ""
	return fn
}

func (m TasksModel) save() tea.Msg {
	path := m.engine.DefaultSnapshotPath(time.Now())
	n, err := m.engine.Save(context.Background(), path)
	if errors.Is(err, app.ErrNothingToSave) {
		return actionDoneMsg{Err: errors.New("nothing to save yet")}
	}
	if err != nil {
		return actionDoneMsg{Err: fmt.Errorf("save failed: %w", err)}
	}
	return actionDoneMsg{Text: fmt.Sprintf("Saved %d businesses to %s", n, path)}
}

func (m TasksModel) export(format string) func() tea.Msg {
	engine := m.engine
	return func() tea.Msg {
		path, err := engine.Export(context.Background(), format, engine.Config().DataDir)
		if err != nil {
			return actionDoneMsg{Err: fmt.Errorf("export failed: %w", err)}
		}
		return actionDoneMsg{Text: "Export written to " + path}
	}
}

func (m TasksModel) View() string {
	var b strings.Builder

	title := "Tasks"
	if m.snap.JobID != "" {
		title = fmt.Sprintf("Tasks: job %s", m.snap.JobID)
	}
	b.WriteString(styles.Title.Render(title))
	b.WriteString("\n")

	stats := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Muted).
		Padding(0, 1).
		Width(30).
		Render(m.renderStats())

	mapBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Muted).
		Render(m.mapView.View())

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, stats, " ", mapBox))
	b.WriteString("\n\n")

	b.WriteString(m.bar.ViewAs(overallProgress(m.snap.Tasks)))
	b.WriteString("\n\n")

	b.WriteString(m.renderTasks())
	b.WriteString("\n")

	if m.snap.LastError != nil && m.snap.Polling() {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Warning).
			Render("Last poll failed: " + m.snap.LastError.Error()))
		b.WriteString("\n")
	}

	if m.busy {
		b.WriteString(styles.Hint.Render("Working..."))
		b.WriteString("\n")
	} else if m.notice != "" {
		if m.noticeErr {
			b.WriteString(styles.ErrorText.Render(m.notice))
		} else {
			b.WriteString(styles.SuccessText.Render(m.notice))
		}
		b.WriteString("\n")
	}

	switch {
	case m.confirmStop:
		b.WriteString(styles.ErrorText.Render("Press ESC again to stop polling and go back"))
		b.WriteString("\n")
		b.WriteString(styles.StatusBar.Render("esc confirm stop • any key continue"))
	case m.snap.Polling():
		b.WriteString(styles.StatusBar.Render("↑↓ scroll • b browse • s save • e csv • x xlsx • +/- zoom • esc stop • ctrl+c quit"))
	default:
		b.WriteString(styles.StatusBar.Render("↑↓ scroll • b browse • s save • e csv • x xlsx • esc back"))
	}

	return b.String()
}

func (m TasksModel) renderStats() string {
	var sb strings.Builder

	statLabel := lipgloss.NewStyle().Foreground(styles.Muted).Width(12)
	statVal := lipgloss.NewStyle().Foreground(styles.Text).Bold(true)

	row := func(label string, value string) {
		sb.WriteString(statLabel.Render(label))
		sb.WriteString(statVal.Render(value))
		sb.WriteString("\n")
	}

	counts := model.CountByStatus(m.snap.Tasks)
	stateStyle := statVal
	switch m.snap.State {
	case poller.StatePolling:
		stateStyle = lipgloss.NewStyle().Foreground(styles.Warning).Bold(true)
	case poller.StateStopped:
		stateStyle = lipgloss.NewStyle().Foreground(styles.Success).Bold(true)
	}
	sb.WriteString(statLabel.Render("State:"))
	sb.WriteString(stateStyle.Render(m.snap.State.String()))
	sb.WriteString("\n")

	row("Tasks:", fmt.Sprintf("%d", len(m.snap.Tasks)))
	row("Pending:", fmt.Sprintf("%d", counts[model.TaskPending]))
	row("Running:", fmt.Sprintf("%d", counts[model.TaskProcessing]))
	row("Done:", fmt.Sprintf("%d", counts[model.TaskCompleted]))

	failStyle := statVal
	if counts[model.TaskFailed] > 0 {
		failStyle = lipgloss.NewStyle().Foreground(styles.Error).Bold(true)
	}
	sb.WriteString(statLabel.Render("Failed:"))
	sb.WriteString(failStyle.Render(fmt.Sprintf("%d", counts[model.TaskFailed])))
	sb.WriteString("\n")

	found := fmt.Sprintf("%d", len(m.snap.Businesses))
	if m.snap.Total > len(m.snap.Businesses) {
		found = fmt.Sprintf("%d/%d", len(m.snap.Businesses), m.snap.Total)
	}
	row("Found:", found)
	row("On map:", fmt.Sprintf("%d", m.mapView.Plotted()))
	if !m.snap.UpdatedAt.IsZero() {
		row("Updated:", m.snap.UpdatedAt.Format("15:04:05"))
	}
	row("Every:", m.engine.Poller().Interval().String())
	row("Elapsed:", time.Since(m.startTime).Truncate(time.Second).String())

	return sb.String()
}

func (m TasksModel) renderTasks() string {
	tasks := m.snap.Tasks
	if len(tasks) == 0 {
		if m.snap.JobID == "" {
			return styles.Hint.Render("No job submitted. Start a new search from the home menu.")
		}
		return styles.Hint.Render("Waiting for the server to create tasks...")
	}

	visible := 10
	if m.height > 0 {
		visible = max(m.height-30, 5)
	}
	start := min(m.scroll, max(len(tasks)-visible, 0))
	end := min(start+visible, len(tasks))

	var sb strings.Builder
	for i := start; i < end; i++ {
		t := tasks[i]
		pair := truncate(fmt.Sprintf("%s @ %s", t.Category, t.Location), 34)
		counter := fmt.Sprintf("%d/%d", t.ProcessedItems, t.TotalItems)
		line := fmt.Sprintf("%s %-34s %s %s",
			styles.TaskStatus(t.Status).Render(string(t.Status)),
			pair,
			m.taskBar.ViewAs(t.Progress()),
			styles.Hint.Render(counter),
		)
		sb.WriteString(line)
		if t.Status == model.TaskFailed && t.Message != "" {
			sb.WriteString(" ")
			sb.WriteString(styles.ErrorText.Render(truncate(t.Message, 40)))
		}
		sb.WriteString("\n")
	}
	if len(tasks) > visible {
		sb.WriteString(styles.Hint.Render(fmt.Sprintf("  %d-%d of %d tasks", start+1, end, len(tasks))))
		sb.WriteString("\n")
	}
	return sb.String()
}

// overallProgress is the mean task progress, counting terminal tasks as
// complete.
func overallProgress(tasks []model.Task) float64 {
	if len(tasks) == 0 {
		return 0
	}
	var sum float64
	for _, t := range tasks {
		if t.Status.Terminal() {
			sum++
			continue
		}
		sum += t.Progress()
	}
	return sum / float64(len(tasks))
}
