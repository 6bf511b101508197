package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/moodlog/internal/config"
	"github.com/sadopc/moodlog/internal/stats"
	"github.com/sadopc/moodlog/internal/store"
)

type settingsModel struct {
	env    *env
	prefs  prefs
	width  int
	height int

	settings   []store.Setting
	err        error
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	trendDays      *int
	minOccurrences *string
	policy         *string
}

func newSettingsModel(e *env, p prefs) settingsModel {
	td, mo, dp := 0, "", ""
	return settingsModel{
		env:            e,
		prefs:          p,
		trendDays:      &td,
		minOccurrences: &mo,
		policy:         &dp,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings []store.Setting
	err      error
}

func (s settingsModel) refresh() tea.Cmd {
	if s.env.settings == nil {
		return nil
	}
	db := s.env.settings
	return func() tea.Msg {
		settings, err := db.GetAllSettings()
		return settingsDataMsg{settings: settings, err: err}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		s.err = msg.err
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.New):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.trendDays = s.prefs.trendDays
	*s.minOccurrences = strconv.Itoa(s.prefs.minOccurrences)
	*s.policy = s.prefs.policy.String()

	rangeOptions := make([]huh.Option[int], 0, len(stats.TrendRanges)+1)
	known := false
	for _, r := range stats.TrendRanges {
		rangeOptions = append(rangeOptions, huh.NewOption(fmt.Sprintf("%d days", r), r))
		known = known || r == s.prefs.trendDays
	}
	if !known {
		rangeOptions = append(rangeOptions, huh.NewOption(fmt.Sprintf("%d days", s.prefs.trendDays), s.prefs.trendDays))
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().Title("Trend range").Options(rangeOptions...).Value(s.trendDays),
			huh.NewInput().Title("Minimum uses before a tag is ranked").Value(s.minOccurrences).Validate(positiveInt),
			huh.NewSelect[string]().Title("When a day has several entries, use").
				Options(
					huh.NewOption("The last one listed", stats.LastInInput.String()),
					huh.NewOption("The most recently written", stats.NewestCreated.String()),
				).Value(s.policy),
		).Title("Analytics"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func positiveInt(v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return errors.New("enter a whole number of 1 or more")
	}
	return nil
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		minOcc, _ := strconv.Atoi(strings.TrimSpace(*s.minOccurrences))
		p := prefs{
			trendDays:      *s.trendDays,
			minOccurrences: max(minOcc, 1),
			policy:         stats.ParseDuplicatePolicy(*s.policy),
		}
		return s, s.save(p)
	}

	return s, cmd
}

// save persists p when the journal is local. Remote sessions keep the change
// in memory only.
func (s settingsModel) save(p prefs) tea.Cmd {
	db := s.env.settings
	return func() tea.Msg {
		if db == nil {
			return prefsChangedMsg{prefs: p}
		}
		for _, kv := range []store.Setting{
			{Key: config.KeyTrendDays, Value: strconv.Itoa(p.trendDays)},
			{Key: config.KeyMinTagOccurrences, Value: strconv.Itoa(p.minOccurrences)},
			{Key: config.KeyDuplicatePolicy, Value: p.policy.String()},
		} {
			if err := db.SetSetting(kv.Key, kv.Value); err != nil {
				return statusMsg{text: fmt.Sprintf("Save settings: %v", err), isError: true}
			}
		}
		return prefsChangedMsg{prefs: p}
	}
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	var rows []string
	rows = append(rows, title, "")

	row := func(k, v string) {
		label := lipgloss.NewStyle().Width(24).Render(k)
		rows = append(rows, fmt.Sprintf("  %s %s", label, highlightStyle.Render(v)))
	}
	row(config.KeyTrendDays, fmt.Sprintf("%d days", s.prefs.trendDays))
	row(config.KeyMinTagOccurrences, strconv.Itoa(s.prefs.minOccurrences))
	row(config.KeyDuplicatePolicy, s.prefs.policy.String())

	// Anything else stored alongside the analytics preferences, such as
	// done-today flags.
	shown := map[string]bool{
		config.KeyTrendDays:         true,
		config.KeyMinTagOccurrences: true,
		config.KeyDuplicatePolicy:   true,
	}
	for _, setting := range s.settings {
		if !shown[setting.Key] {
			rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-24s %s", setting.Key, setting.Value)))
		}
	}

	rows = append(rows, "")
	switch {
	case s.err != nil:
		rows = append(rows, errorStyle.Render("Could not read settings: "+s.err.Error()))
	case s.env.settings == nil:
		rows = append(rows, warningStyle.Render("Remote journal: changes last for this session only"))
	}
	rows = append(rows, mutedStyle.Render("Press enter to edit settings"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
