package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/moodlog/internal/mood"
	"github.com/sadopc/moodlog/internal/stats"
	"github.com/sadopc/moodlog/internal/store"
)

type calendarModel struct {
	env    *env
	prefs  prefs
	width  int
	height int

	year  int
	month time.Month
	days  []stats.CalendarDay
	err   error
}

func newCalendarModel(e *env, p prefs) calendarModel {
	now := e.now()
	return calendarModel{env: e, prefs: p, year: now.Year(), month: now.Month()}
}

func (c *calendarModel) setSize(w, h int) {
	c.width = w
	c.height = h
}

type calendarDataMsg struct {
	year    int
	month   time.Month
	entries []store.Entry
	err     error
}

// gridBounds returns the day keys of the first and last cells of the grid for
// the month, which spill into the neighbouring weeks.
func gridBounds(year int, month time.Month) (string, string) {
	return mood.DayKey(mood.DayAt(year, month, 1-6, time.Local)), mood.DayKey(mood.DayAt(year, month+1, 6, time.Local))
}

func (c calendarModel) refresh() tea.Cmd {
	e, year, month := c.env, c.year, c.month
	return func() tea.Msg {
		ctx, cancel := e.ctx()
		defer cancel()
		from, to := gridBounds(year, month)
		entries, err := e.journal.ListEntries(ctx, store.EntryFilter{From: from, To: to})
		return calendarDataMsg{year: year, month: month, entries: entries, err: err}
	}
}

func (c calendarModel) update(msg tea.Msg) (calendarModel, tea.Cmd) {
	switch msg := msg.(type) {
	case calendarDataMsg:
		// A slow response for a month we already left is dropped.
		if msg.year != c.year || msg.month != c.month {
			return c, nil
		}
		c.err = msg.err
		c.days = stats.BuildMonth(msg.entries, c.year, c.month, c.env.now(), c.prefs.policy)
		return c, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			c.shift(-1)
			return c, c.refresh()
		case key.Matches(msg, keys.Right):
			c.shift(1)
			return c, c.refresh()
		}
	}
	return c, nil
}

func (c *calendarModel) shift(months int) {
	t := mood.DayAt(c.year, c.month+time.Month(months), 1, time.Local)
	c.year, c.month = t.Year(), t.Month()
	c.days = nil
}

// gridCell is what renderGrid needs to draw one day.
type gridCell struct {
	label        int
	style        lipgloss.Style
	currentMonth bool
	today        bool
}

func renderGrid(cells []gridCell) string {
	var header []string
	for _, d := range stats.WeekDays {
		header = append(header, mutedStyle.Inherit(dayStyle).Render(d))
	}
	rows := []string{lipgloss.JoinHorizontal(lipgloss.Top, header...)}

	for start := 0; start < len(cells); start += 7 {
		var week []string
		for _, cell := range cells[start:min(start+7, len(cells))] {
			text := fmt.Sprintf("%2d", cell.label)
			switch {
			case !cell.currentMonth:
				week = append(week, otherMonthStyle.Render(text))
			case cell.today:
				week = append(week, cell.style.Inherit(todayStyle).Render(text))
			default:
				week = append(week, cell.style.Inherit(dayStyle).Render(text))
			}
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, week...))
	}
	return strings.Join(rows, "\n")
}

func (c calendarModel) view() string {
	w := c.width - 4
	title := titleStyle.Render(fmt.Sprintf("%s %d", c.month, c.year))

	if c.err != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", errorStyle.Render(c.err.Error())),
		)
	}

	cells := make([]gridCell, len(c.days))
	logged, sum := 0, 0
	for i, d := range c.days {
		cell := gridCell{label: d.Label, style: normalItemStyle, currentMonth: d.IsCurrentMonth, today: d.IsToday}
		if d.Entry != nil {
			cell.style = moodStyle(d.Entry.Mood).Bold(true)
			if d.IsCurrentMonth {
				logged++
				sum += d.Entry.Mood
			}
		}
		cells[i] = cell
	}

	summary := mutedStyle.Render("  No entries this month")
	if logged > 0 {
		summary = mutedStyle.Render(fmt.Sprintf("  %d days logged, average ", logged)) +
			highlightStyle.Render(fmt.Sprintf("%.2f", float64(sum)/float64(logged)))
	}

	var legend []string
	for _, l := range mood.Levels {
		legend = append(legend, moodStyle(l.Value).Render("● "+l.Label))
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title, "",
			renderGrid(cells), "",
			summary,
			"  "+strings.Join(legend, "  "), "",
			mutedStyle.Render("  ←/→: change month"),
		),
	)
}
