package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/moodlog/internal/mood"
	"github.com/sadopc/moodlog/internal/stats"
	"github.com/sadopc/moodlog/internal/store"
)

const recentLimit = 5

type dashboardModel struct {
	env    *env
	width  int
	height int

	overview stats.Overview
	recent   []store.Entry
	today    *store.Entry
	err      error
}

func newDashboardModel(e *env) dashboardModel {
	return dashboardModel{env: e}
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

type dashboardDataMsg struct {
	entries []store.Entry
	err     error
}

func (d dashboardModel) refresh() tea.Cmd {
	e := d.env
	return func() tea.Msg {
		ctx, cancel := e.ctx()
		defer cancel()
		entries, err := e.journal.ListEntries(ctx, store.EntryFilter{})
		return dashboardDataMsg{entries: entries, err: err}
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		d.err = msg.err
		if msg.err != nil {
			return d, nil
		}
		now := d.env.now()
		d.overview = stats.BuildOverview(msg.entries, now)
		d.recent = msg.entries[:min(recentLimit, len(msg.entries))]
		d.today = nil
		today := mood.DayKey(now)
		for i := range msg.entries {
			if msg.entries[i].Date == today {
				d.today = &msg.entries[i]
				break
			}
		}
		return d, nil
	}
	return d, nil
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}
	w := d.width - 4

	if d.err != nil {
		return panelStyle.Width(w).Render(errorStyle.Render("Could not load entries: " + d.err.Error()))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		d.renderCards(w),
		d.renderToday(w),
		d.renderRecent(w),
	)
}

func (d dashboardModel) renderCards(w int) string {
	cardWidth := w/4 - 2
	if cardWidth < 14 {
		cardWidth = 14
	}
	card := func(label, value string) string {
		return cardStyle.Width(cardWidth).Render(
			lipgloss.JoinVertical(lipgloss.Center, cardValueStyle.Render(value), mutedStyle.Render(label)),
		)
	}

	o := d.overview
	avg := "-"
	if o.TotalEntries > 0 {
		avg = fmt.Sprintf("%.2f", o.AverageMood)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		card("entries", fmt.Sprint(o.TotalEntries)),
		card("average mood", avg),
		card("day streak", fmt.Sprint(o.CurrentStreak)),
		card("amazing days", fmt.Sprint(o.BestDayCount)),
	)
}

func (d dashboardModel) renderToday(w int) string {
	title := titleStyle.Render("Today")
	var body string
	if d.today == nil {
		body = mutedStyle.Render("No entry yet. Press 2 then n to write one.")
	} else {
		body = fmt.Sprintf("%s %s  %s",
			moodMarker(d.today.Mood),
			moodStyle(d.today.Mood).Render(mood.Label(d.today.Mood)),
			truncate(d.today.Title(), w-20),
		)
	}
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body))
}

func (d dashboardModel) renderRecent(w int) string {
	title := titleStyle.Render("Recent Entries")
	if len(d.recent) == 0 {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", mutedStyle.Render("  Nothing logged yet")),
		)
	}

	var rows []string
	rows = append(rows, title, "")
	for _, e := range d.recent {
		line := fmt.Sprintf("  %s  %s %-8s %s",
			mutedStyle.Render(e.Date),
			moodMarker(e.Mood),
			mood.Label(e.Mood),
			truncate(e.Title(), w-36),
		)
		if tags := tagList(e); tags != "" {
			line += "  " + highlightStyle.Render(truncate(tags, 30))
		}
		rows = append(rows, line)
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
