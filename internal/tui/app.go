// Package tui is the terminal dashboard over the engine.
package tui

import (
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/egemenmermer/business-extractor/internal/app"
	"github.com/egemenmermer/business-extractor/internal/tui/views"
)

type viewID int

const (
	viewHome viewID = iota
	viewSelection
	viewTasks
	viewCatalog
	viewFilePicker
	viewRecent
)

// App is the root bubbletea model.
type App struct {
	engine      *app.Engine
	currentView viewID
	width       int
	height      int
	home        views.HomeModel
	selection   views.SelectionModel
	tasks       views.TasksModel
	catalog     views.CatalogModel
	filePicker  views.FilePickerModel
	recent      views.RecentModel
}

func NewApp(engine *app.Engine) App {
	return App{
		engine:      engine,
		currentView: viewHome,
		home:        views.NewHomeModel(engine, ""),
	}
}

func (a App) Init() tea.Cmd {
	return a.home.Init()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && a.currentView != viewTasks {
			return a, tea.Quit
		}
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
	case views.SessionExpiredMsg:
		a.engine.Poller().Stop()
		return a.goHome(fmt.Sprintf("Session expired (%v). Set a new BIZEXTRACT_TOKEN and restart.", msg.Err))
	case views.NavigateToHome:
		return a.goHome("")
	case views.NavigateToSelection:
		a.currentView = viewSelection
		a.selection = views.NewSelectionModel(a.engine)
		return a, a.selection.Init()
	case views.NavigateToTasks:
		a.currentView = viewTasks
		a.tasks = views.NewTasksModel(a.engine)
		return a, tea.Batch(a.tasks.Init(), a.sizeCmd())
	case views.NavigateToLoad:
		a.currentView = viewFilePicker
		a.filePicker = views.NewFilePickerModel(a.engine.Config().SnapshotDir())
		return a, a.filePicker.Init()
	case views.NavigateToRecent:
		a.currentView = viewRecent
		a.recent = views.NewRecentModel(a.engine)
		return a, a.recent.Init()
	case views.NavigateToCatalog:
		loader, source := a.engine.Catalog(), "server"
		if msg.Snapshot != "" {
			l, meta, err := a.engine.OpenSnapshot(msg.Snapshot)
			if err != nil {
				a.engine.Logger().Warn("opening snapshot", zap.String("path", msg.Snapshot), zap.Error(err))
				return a.goHome(err.Error())
			}
			loader, source = l, filepath.Base(msg.Snapshot)
			if meta.JobID != "" {
				source += " · job " + meta.JobID
			}
		}
		a.currentView = viewCatalog
		a.catalog = views.NewCatalogModel(a.engine, loader, source)
		return a, tea.Batch(a.catalog.Init(), a.sizeCmd())
	}

	var cmd tea.Cmd
	switch a.currentView {
	case viewHome:
		var m tea.Model
		m, cmd = a.home.Update(msg)
		a.home = m.(views.HomeModel)
	case viewSelection:
		var m tea.Model
		m, cmd = a.selection.Update(msg)
		a.selection = m.(views.SelectionModel)
	case viewTasks:
		var m tea.Model
		m, cmd = a.tasks.Update(msg)
		a.tasks = m.(views.TasksModel)
	case viewCatalog:
		var m tea.Model
		m, cmd = a.catalog.Update(msg)
		a.catalog = m.(views.CatalogModel)
	case viewFilePicker:
		var m tea.Model
		m, cmd = a.filePicker.Update(msg)
		a.filePicker = m.(views.FilePickerModel)
	case viewRecent:
		var m tea.Model
		m, cmd = a.recent.Update(msg)
		a.recent = m.(views.RecentModel)
	}

	return a, cmd
}

func (a App) goHome(notice string) (tea.Model, tea.Cmd) {
	a.currentView = viewHome
	a.home = views.NewHomeModel(a.engine, notice)
	return a, a.home.Init()
}

func (a App) View() string {
	var content string
	switch a.currentView {
	case viewHome:
		content = a.home.View()
	case viewSelection:
		content = a.selection.View()
	case viewTasks:
		content = a.tasks.View()
	case viewCatalog:
		content = a.catalog.View()
	case viewFilePicker:
		content = a.filePicker.View()
	case viewRecent:
		content = a.recent.View()
	}

	return lipgloss.Place(
		a.width, a.height,
		lipgloss.Center, lipgloss.Top,
		content,
	)
}

// sizeCmd sends a WindowSizeMsg so newly created views get the current terminal size.
func (a App) sizeCmd() tea.Cmd {
	w, h := a.width, a.height
	return func() tea.Msg {
		return tea.WindowSizeMsg{Width: w, Height: h}
	}
}

// Run starts the TUI and blocks until it exits. Session failures reported by
// any engine module send the user back to the home screen.
func Run(engine *app.Engine) error {
	p := tea.NewProgram(NewApp(engine), tea.WithAltScreen())
	engine.OnAuthError(func(err error) {
		go p.Send(views.SessionExpiredMsg{Err: err})
	})
	_, err := p.Run()
	return err
}
