package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/moodlog/internal/goals"
	"github.com/sadopc/moodlog/internal/mood"
	"github.com/sadopc/moodlog/internal/stats"
	"github.com/sadopc/moodlog/internal/store"
)

type goalFormKind int

const (
	goalFormCreate goalFormKind = iota
	goalFormEdit
	goalFormDelete
)

type goalsModel struct {
	env    *env
	width  int
	height int

	goals  []store.Goal
	cursor int
	err    error
	bar    progress.Model

	// Per-goal calendar
	calendar      bool
	calYear       int
	calMonth      time.Month
	calGoalID     int64
	calCompletion []store.Completion

	formActive bool
	formKind   goalFormKind
	formGoalID int64
	form       *huh.Form

	// Form values as pointers (survive value copies)
	formTitle       *string
	formDescription *string
	formFrequency   *int
	formConfirm     *bool
}

func newGoalsModel(e *env) goalsModel {
	title, desc, freq, confirm := "", "", 3, false
	return goalsModel{
		env:             e,
		bar:             progress.New(progress.WithDefaultGradient(), progress.WithWidth(20), progress.WithoutPercentage()),
		formTitle:       &title,
		formDescription: &desc,
		formFrequency:   &freq,
		formConfirm:     &confirm,
	}
}

func (g *goalsModel) setSize(w, h int) {
	g.width = w
	g.height = h
}

type goalsDataMsg struct {
	goals []store.Goal
	err   error
}

// goalOutcomeMsg carries the backend's answer for an attempt back to the
// update loop, where it is reconciled.
type goalOutcomeMsg struct {
	attempt *goals.Attempt
	goal    *store.Goal
	err     error
}

type goalChangedMsg struct {
	text string
}

type goalCompletionsMsg struct {
	goalID      int64
	year        int
	month       time.Month
	completions []store.Completion
	err         error
}

func (g goalsModel) refresh() tea.Cmd {
	e := g.env
	return func() tea.Msg {
		ctx, cancel := e.ctx()
		defer cancel()
		list, err := e.journal.ListGoals(ctx)
		return goalsDataMsg{goals: list, err: err}
	}
}

// pendingCount is the number of goals whose completion is still in flight.
func (g goalsModel) pendingCount() int {
	now := g.env.now()
	n := 0
	for _, goal := range g.goals {
		if g.env.goals.State(goal.ID, now) == goals.PendingLocalCommit {
			n++
		}
	}
	return n
}

func (g goalsModel) selected() (store.Goal, bool) {
	if g.cursor < 0 || g.cursor >= len(g.goals) {
		return store.Goal{}, false
	}
	return g.goals[g.cursor], true
}

func (g goalsModel) update(msg tea.Msg) (goalsModel, tea.Cmd) {
	if data, ok := msg.(goalsDataMsg); ok {
		return g.load(data), nil
	}
	if g.formActive && g.form != nil {
		return g.updateForm(msg)
	}

	switch msg := msg.(type) {
	case goalChangedMsg:
		text := msg.text
		return g, tea.Batch(g.refresh(), func() tea.Msg { return statusMsg{text: text} })

	case goalCompletionsMsg:
		if msg.goalID != g.calGoalID || msg.year != g.calYear || msg.month != g.calMonth {
			return g, nil
		}
		if msg.err != nil {
			text := fmt.Sprintf("Could not load completions: %v", msg.err)
			return g, func() tea.Msg { return statusMsg{text: text, isError: true} }
		}
		g.calCompletion = msg.completions
		return g, nil

	case tea.KeyMsg:
		if g.calendar {
			return g.updateCalendar(msg)
		}
		switch {
		case key.Matches(msg, keys.Up):
			if g.cursor > 0 {
				g.cursor--
			}
		case key.Matches(msg, keys.Down):
			if g.cursor < len(g.goals)-1 {
				g.cursor++
			}
		case key.Matches(msg, keys.Complete):
			if goal, ok := g.selected(); ok {
				return g.complete(goal)
			}
		case key.Matches(msg, keys.Enter):
			if goal, ok := g.selected(); ok {
				now := g.env.now()
				g.calendar = true
				g.calGoalID = goal.ID
				g.calYear, g.calMonth = now.Year(), now.Month()
				g.calCompletion = nil
				return g, g.loadCompletions()
			}
		case key.Matches(msg, keys.New):
			return g.showCreateForm()
		case key.Matches(msg, keys.Edit):
			if goal, ok := g.selected(); ok {
				return g.showEditForm(goal)
			}
		case key.Matches(msg, keys.Delete):
			if goal, ok := g.selected(); ok {
				return g.showDeleteForm(goal)
			}
		}
	}
	return g, nil
}

func (g goalsModel) load(msg goalsDataMsg) goalsModel {
	g.err = msg.err
	if msg.err == nil {
		g.env.goals.Load(msg.goals)
		g.env.goals.Prune(g.env.now())
		g.goals = g.env.goals.Goals()
	}
	if g.cursor >= len(g.goals) {
		g.cursor = max(0, len(g.goals)-1)
	}
	return g
}

// finish reconciles an increment response. It runs whatever view is active.
func (g goalsModel) finish(msg goalOutcomeMsg) (goalsModel, tea.Cmd) {
	out := g.env.goals.Finish(msg.attempt, msg.goal, msg.err, g.env.now())
	g.goals = g.env.goals.Goals()
	if out.Stale {
		return g, nil
	}
	if out.Err != nil {
		text := fmt.Sprintf("Could not save %q: %v", out.Goal.Title, out.Err)
		return g, func() tea.Msg { return statusMsg{text: text, isError: true} }
	}
	text := fmt.Sprintf("%s: %d/%d this week", out.Goal.Title, out.Goal.Completed, out.Goal.FrequencyPerWeek)
	return g, func() tea.Msg { return statusMsg{text: text} }
}

// complete applies the optimistic completion synchronously and sends the
// increment in the background.
func (g goalsModel) complete(goal store.Goal) (goalsModel, tea.Cmd) {
	r := g.env.goals
	a, err := r.Begin(goal.ID, g.env.now())
	if err != nil {
		isError := !goals.IsNotice(err)
		text := err.Error()
		return g, func() tea.Msg { return statusMsg{text: text, isError: isError} }
	}
	g.goals = r.Goals()

	e := g.env
	return g, func() tea.Msg {
		ctx, cancel := e.ctx()
		defer cancel()
		result, err := r.Send(ctx, a)
		return goalOutcomeMsg{attempt: a, goal: result, err: err}
	}
}

func (g goalsModel) updateCalendar(msg tea.KeyMsg) (goalsModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		g.calendar = false
	case key.Matches(msg, keys.Left), key.Matches(msg, keys.Right):
		step := time.Month(1)
		if key.Matches(msg, keys.Left) {
			step = -1
		}
		t := mood.DayAt(g.calYear, g.calMonth+step, 1, time.Local)
		g.calYear, g.calMonth = t.Year(), t.Month()
		g.calCompletion = nil
		return g, g.loadCompletions()
	}
	return g, nil
}

func (g goalsModel) loadCompletions() tea.Cmd {
	e, id, year, month := g.env, g.calGoalID, g.calYear, g.calMonth
	return func() tea.Msg {
		ctx, cancel := e.ctx()
		defer cancel()
		first := mood.DayAt(year, month, 1, time.Local)
		last := mood.DayAt(year, month+1, 0, time.Local)
		list, err := e.journal.ListGoalCompletions(ctx, id, mood.DayKey(first), mood.DayKey(last))
		return goalCompletionsMsg{goalID: id, year: year, month: month, completions: list, err: err}
	}
}

func (g goalsModel) showCreateForm() (goalsModel, tea.Cmd) {
	*g.formTitle = ""
	*g.formDescription = ""
	*g.formFrequency = 3
	g.formKind = goalFormCreate
	return g.showGoalForm("New Goal")
}

func (g goalsModel) showEditForm(goal store.Goal) (goalsModel, tea.Cmd) {
	*g.formTitle = goal.Title
	*g.formDescription = goal.Description
	*g.formFrequency = goal.FrequencyPerWeek
	g.formKind = goalFormEdit
	g.formGoalID = goal.ID
	return g.showGoalForm("Edit Goal")
}

func (g goalsModel) showGoalForm(title string) (goalsModel, tea.Cmd) {
	freqOptions := make([]huh.Option[int], 0, 7)
	for i := 1; i <= 7; i++ {
		label := strconv.Itoa(i) + " times a week"
		if i == 1 {
			label = "once a week"
		} else if i == 7 {
			label = "every day"
		}
		freqOptions = append(freqOptions, huh.NewOption(label, i))
	}

	g.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Goal").Value(g.formTitle).Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("a title is required")
				}
				return nil
			}),
			huh.NewInput().Title("Description").Value(g.formDescription),
			huh.NewSelect[int]().Title("How often?").Options(freqOptions...).Value(g.formFrequency),
		).Title(title),
	).WithShowHelp(true).WithShowErrors(true)

	g.formActive = true
	return g, g.form.Init()
}

func (g goalsModel) showDeleteForm(goal store.Goal) (goalsModel, tea.Cmd) {
	*g.formConfirm = false
	g.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %q?", goal.Title)).
				Description("Its completion history is deleted too.").
				Affirmative("Delete").
				Negative("Keep").
				Value(g.formConfirm),
		),
	)
	g.formKind = goalFormDelete
	g.formActive = true
	return g, g.form.Init()
}

func (g goalsModel) updateForm(msg tea.Msg) (goalsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			g.formActive = false
			g.form = nil
			return g, nil
		}
	}

	form, cmd := g.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		g.form = f
	}

	if g.form.State == huh.StateCompleted {
		g.formActive = false
		e := g.env
		switch g.formKind {
		case goalFormCreate:
			in := store.GoalInput{
				Title:            strings.TrimSpace(*g.formTitle),
				Description:      strings.TrimSpace(*g.formDescription),
				FrequencyPerWeek: *g.formFrequency,
			}
			return g, func() tea.Msg {
				ctx, cancel := e.ctx()
				defer cancel()
				goal, err := e.journal.CreateGoal(ctx, in)
				if err != nil {
					return statusMsg{text: fmt.Sprintf("Create goal failed: %v", err), isError: true}
				}
				return goalChangedMsg{text: fmt.Sprintf("Created %q", goal.Title)}
			}
		case goalFormEdit:
			id := g.formGoalID
			title := strings.TrimSpace(*g.formTitle)
			description := strings.TrimSpace(*g.formDescription)
			frequency := *g.formFrequency
			return g, g.updateGoal(id, store.GoalUpdate{Title: &title, Description: &description, FrequencyPerWeek: &frequency})
		case goalFormDelete:
			goal, ok := g.selected()
			if !*g.formConfirm || !ok {
				return g, nil
			}
			return g, func() tea.Msg {
				ctx, cancel := e.ctx()
				defer cancel()
				if err := e.journal.DeleteGoal(ctx, goal.ID); err != nil {
					return statusMsg{text: fmt.Sprintf("Delete failed: %v", err), isError: true}
				}
				return goalChangedMsg{text: fmt.Sprintf("Deleted %q", goal.Title)}
			}
		}
	}

	return g, cmd
}

func (g goalsModel) updateGoal(id int64, in store.GoalUpdate) tea.Cmd {
	e := g.env
	return func() tea.Msg {
		ctx, cancel := e.ctx()
		defer cancel()
		goal, err := e.journal.UpdateGoal(ctx, id, in)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Update goal failed: %v", err), isError: true}
		}
		return goalChangedMsg{text: fmt.Sprintf("Updated %q", goal.Title)}
	}
}

func (g goalsModel) view() string {
	w := g.width - 4
	title := titleStyle.Render("Goals")

	if g.formActive && g.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", g.form.View()),
		)
	}
	if g.calendar {
		return g.renderCalendar(w)
	}
	if g.err != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", errorStyle.Render("Could not load goals: "+g.err.Error())),
		)
	}

	var rows []string
	rows = append(rows, title, "")
	if len(g.goals) == 0 {
		rows = append(rows, mutedStyle.Render("  No goals yet. Press n to add one."))
		return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
	}

	now := g.env.now()
	for i, goal := range g.goals {
		cursor := "  "
		style := normalItemStyle
		if i == g.cursor {
			cursor = "> "
			style = selectedItemStyle
		}

		mark := mutedStyle.Render("○")
		switch {
		case g.env.goals.State(goal.ID, now) == goals.PendingLocalCommit:
			mark = warningStyle.Render("◌")
		case g.env.goals.IsDoneToday(goal.ID, now):
			mark = successStyle.Render("✓")
		}

		percent := 0.0
		if goal.FrequencyPerWeek > 0 {
			percent = float64(goal.Completed) / float64(goal.FrequencyPerWeek)
		}
		progressText := fmt.Sprintf("%d/%d", goal.Completed, goal.FrequencyPerWeek)
		if goal.Met() {
			progressText = successStyle.Render(progressText)
		}

		streak := ""
		if goal.Streak > 0 {
			streak = highlightStyle.Render(fmt.Sprintf("  %dw streak", goal.Streak))
		}

		rows = append(rows, fmt.Sprintf("%s %s %s %s%s",
			style.Render(cursor+fmt.Sprintf("%-24s", truncate(goal.Title, 24))),
			mark,
			g.bar.ViewAs(percent),
			progressText,
			streak,
		))
		if i == g.cursor && goal.Description != "" {
			rows = append(rows, mutedStyle.Render("    "+truncate(goal.Description, w-10)))
		}
	}

	rows = append(rows, "", mutedStyle.Render("  space: done today  n: new  u: edit  d: delete  enter: calendar"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (g goalsModel) renderCalendar(w int) string {
	goal, _ := g.env.goals.Goal(g.calGoalID)
	title := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render(goal.Title), "  ",
		mutedStyle.Render(fmt.Sprintf("%s %d", g.calMonth, g.calYear)),
	)

	days := stats.GoalCalendar(g.calCompletion, g.calYear, g.calMonth, g.env.now())
	cells := make([]gridCell, len(days))
	done := 0
	for i, d := range days {
		style := mutedStyle
		if d.Completed {
			style = successStyle.Bold(true)
			if d.IsCurrentMonth {
				done++
			}
		}
		cells[i] = gridCell{label: d.Label, style: style, currentMonth: d.IsCurrentMonth, today: d.IsToday}
	}

	return activePanelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title, "",
			renderGrid(cells), "",
			mutedStyle.Render(fmt.Sprintf("  completed on %d days", done)), "",
			mutedStyle.Render("  ←/→: change month  esc: back"),
		),
	)
}
