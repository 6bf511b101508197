package tui

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/moodlog/internal/export"
	"github.com/sadopc/moodlog/internal/flags"
	"github.com/sadopc/moodlog/internal/goals"
	"github.com/sadopc/moodlog/internal/mood"
	"github.com/sadopc/moodlog/internal/stats"
	"github.com/sadopc/moodlog/internal/store"
)

// Options configures the root model.
type Options struct {
	Journal store.Journal
	// Settings is nil when the journal is remote; the settings view is then
	// read-only.
	Settings SettingsStore
	// Flags backs the done-today markers. Nil disables them.
	Flags flags.Store

	TrendDays         int
	MinTagOccurrences int
	Policy            stats.DuplicatePolicy

	// ExportDir is where exports are written. Defaults to the home directory.
	ExportDir string
	Now       func() time.Time
	Logger    *log.Logger
}

// App is the root Bubble Tea model.
type App struct {
	env    *env
	prefs  prefs
	width  int
	height int

	exportDir string

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	dashboard dashboardModel
	journal   journalModel
	stats     statsModel
	calendar  calendarModel
	goals     goalsModel
	settings  settingsModel

	help    help.Model
	status  string
	isError bool
	day     time.Time
}

func NewApp(opts Options) App {
	h := help.New()
	h.ShowAll = false

	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.ExportDir == "" {
		opts.ExportDir, _ = os.UserHomeDir()
	}
	p := prefs{
		trendDays:      opts.TrendDays,
		minOccurrences: opts.MinTagOccurrences,
		policy:         opts.Policy,
	}
	if p.trendDays <= 0 {
		p.trendDays = stats.TrendRanges[0]
	}
	if p.minOccurrences <= 0 {
		p.minOccurrences = stats.DefaultMinOccurrences
	}

	e := &env{
		journal:  opts.Journal,
		settings: opts.Settings,
		goals:    goals.New(opts.Journal, opts.Flags, goals.WithLogger(opts.Logger)),
		now:      opts.Now,
		logger:   opts.Logger,
	}

	return App{
		env:        e,
		prefs:      p,
		exportDir:  opts.ExportDir,
		activeView: viewDashboard,
		dashboard:  newDashboardModel(e),
		journal:    newJournalModel(e),
		stats:      newStatsModel(e, p),
		calendar:   newCalendarModel(e, p),
		goals:      newGoalsModel(e),
		settings:   newSettingsModel(e, p),
		help:       h,
		day:        opts.Now(),
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.dashboard.refresh(),
		a.goals.refresh(),
		tickCmd(),
	)
}

// tickCmd wakes the UI once a minute so views notice the day rolling over.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Minute, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.journal.setSize(a.width, contentHeight)
		a.stats.setSize(a.width, contentHeight)
		a.calendar.setSize(a.width, contentHeight)
		a.goals.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			return a.switchTo(viewDashboard)
		case key.Matches(msg, keys.Tab2):
			return a.switchTo(viewJournal)
		case key.Matches(msg, keys.Tab3):
			return a.switchTo(viewStats)
		case key.Matches(msg, keys.Tab4):
			return a.switchTo(viewCalendar)
		case key.Matches(msg, keys.Tab5):
			return a.switchTo(viewGoals)
		case key.Matches(msg, keys.Tab6):
			return a.switchTo(viewSettings)
		case key.Matches(msg, keys.Tab):
			return a.switchTo((a.activeView + 1) % viewState(len(viewNames)))
		}

	case tickMsg:
		if now := a.env.now(); !mood.SameDay(now, a.day) {
			a.day = now
			return a, tea.Batch(tickCmd(), a.refreshCurrentView(), a.goals.refresh())
		}
		return a, tickCmd()

	case statusMsg:
		a.status = msg.text
		a.isError = msg.isError
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.isError = false
		a.exportPicking = false
		return a, nil

	case entryCreatedMsg:
		a.status = fmt.Sprintf("Saved %s entry for %s", mood.Label(msg.entry.Mood), msg.entry.Date)
		a.isError = false
		return a, tea.Batch(a.journal.refresh(), a.dashboard.refresh())

	case entryChangedMsg:
		a.status = msg.text
		a.isError = false
		return a, tea.Batch(a.journal.refresh(), a.dashboard.refresh())

	case prefsChangedMsg:
		a.prefs = msg.prefs
		a.stats.prefs = msg.prefs
		a.calendar.prefs = msg.prefs
		a.settings.prefs = msg.prefs
		a.status = "Settings saved"
		a.isError = false
		return a, a.settings.refresh()

	case goalsDataMsg:
		a.goals = a.goals.load(msg)
		return a, nil

	case goalOutcomeMsg:
		var cmd tea.Cmd
		a.goals, cmd = a.goals.finish(msg)
		return a, cmd
	}

	return a.updateActiveView(msg)
}

func (a App) switchTo(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	return a, a.refreshCurrentView()
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewJournal:
		a.journal, cmd = a.journal.update(msg)
	case viewStats:
		a.stats, cmd = a.stats.update(msg)
	case viewCalendar:
		a.calendar, cmd = a.calendar.update(msg)
	case viewGoals:
		a.goals, cmd = a.goals.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewJournal:
		return a.journal.formActive
	case viewGoals:
		return a.goals.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewDashboard:
		return a.dashboard.refresh()
	case viewJournal:
		return a.journal.refresh()
	case viewStats:
		return a.stats.refresh()
	case viewCalendar:
		return a.calendar.refresh()
	case viewGoals:
		return a.goals.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewDashboard:
		content = a.dashboard.view()
	case viewJournal:
		content = a.journal.view()
	case viewStats:
		content = a.stats.view()
	case viewCalendar:
		content = a.calendar.view()
	case viewGoals:
		content = a.goals.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("moodlog")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.isError {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	pending := ""
	if n := a.goals.pendingCount(); n > 0 {
		pending = warningStyle.Render(fmt.Sprintf(" ● %d syncing", n))
	}

	left := footerStyle.Render(helpView)
	right := pending + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

var exportFormats = []string{"Entries CSV", "Tag statistics CSV", "JSON"}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	e, dir, minOcc := a.env, a.exportDir, a.prefs.minOccurrences
	return func() tea.Msg {
		ctx, cancel := e.ctx()
		defer cancel()
		entries, err := e.journal.ListEntries(ctx, store.EntryFilter{})
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}

		now := e.now()
		dateStr := now.Format("2006-01-02")

		var path string
		switch format {
		case 0:
			path = filepath.Join(dir, fmt.Sprintf("moodlog-entries-%s.csv", dateStr))
			err = export.EntriesToCSV(entries, path)
		case 1:
			path = filepath.Join(dir, fmt.Sprintf("moodlog-tags-%s.csv", dateStr))
			err = export.TagsToCSV(stats.RankTags(entries, minOcc).All, path)
		default:
			path = filepath.Join(dir, fmt.Sprintf("moodlog-export-%s.json", dateStr))
			err = export.ToJSON(entries, stats.RankTags(entries, minOcc), now, path)
		}
		if err != nil {
			return statusMsg{text: fmt.Sprintf("%s error: %v", exportFormats[format], err), isError: true}
		}
		return exportDoneMsg{path: path}
	}
}
