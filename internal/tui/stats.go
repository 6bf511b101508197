package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/moodlog/internal/mood"
	"github.com/sadopc/moodlog/internal/stats"
	"github.com/sadopc/moodlog/internal/store"
)

// barSlot is the horizontal room one labelled bar needs.
const barSlot = 7

type statsModel struct {
	env    *env
	prefs  prefs
	width  int
	height int

	entries []store.Entry
	trend   stats.Trend
	dist    stats.Distribution
	tags    stats.TagStats
	err     error

	trendChart barchart.Model
	distChart  barchart.Model
}

func newStatsModel(e *env, p prefs) statsModel {
	return statsModel{
		env:        e,
		prefs:      p,
		trendChart: barchart.New(60, 10),
		distChart:  barchart.New(40, 8),
	}
}

func (s *statsModel) setSize(w, h int) {
	s.width = w
	s.height = h
	s.buildCharts()
}

type statsDataMsg struct {
	entries []store.Entry
	err     error
}

func (s statsModel) refresh() tea.Cmd {
	e := s.env
	return func() tea.Msg {
		ctx, cancel := e.ctx()
		defer cancel()
		entries, err := e.journal.ListEntries(ctx, store.EntryFilter{})
		return statsDataMsg{entries: entries, err: err}
	}
}

func (s statsModel) update(msg tea.Msg) (statsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case statsDataMsg:
		s.err = msg.err
		s.entries = msg.entries
		s.recompute()
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Range), key.Matches(msg, keys.Right):
			s.prefs.trendDays = nextRange(s.prefs.trendDays, 1)
			s.recompute()
		case key.Matches(msg, keys.Left):
			s.prefs.trendDays = nextRange(s.prefs.trendDays, -1)
			s.recompute()
		}
	}
	return s, nil
}

// nextRange steps through stats.TrendRanges. A custom window steps to the
// first preset.
func nextRange(current, step int) int {
	n := len(stats.TrendRanges)
	for i, r := range stats.TrendRanges {
		if r == current {
			return stats.TrendRanges[((i+step)%n+n)%n]
		}
	}
	return stats.TrendRanges[0]
}

func (s *statsModel) recompute() {
	now := s.env.now()
	s.trend = stats.BuildTrend(s.entries, s.prefs.trendDays, now, s.prefs.policy)
	s.dist = stats.BuildDistribution(s.entries)
	s.tags = stats.RankTags(s.entries, s.prefs.minOccurrences)
	s.buildCharts()
}

// trendBucket is one bar of the trend chart: the mean of the logged days in
// a run of consecutive points.
type trendBucket struct {
	Label string
	Mean  float64
	Days  int
}

// bucketTrend folds points into at most maxBars buckets of equal width.
func bucketTrend(points []stats.TrendPoint, maxBars int) []trendBucket {
	if len(points) == 0 {
		return nil
	}
	if maxBars < 1 {
		maxBars = 1
	}
	size := (len(points) + maxBars - 1) / maxBars

	var out []trendBucket
	for start := 0; start < len(points); start += size {
		end := min(start+size, len(points))
		b := trendBucket{Label: points[start].Label}
		sum := 0
		for _, p := range points[start:end] {
			if p.Mood != nil {
				sum += *p.Mood
				b.Days++
			}
		}
		if b.Days > 0 {
			b.Mean = float64(sum) / float64(b.Days)
		}
		out = append(out, b)
	}
	return out
}

func (s *statsModel) buildCharts() {
	chartWidth := s.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if s.height > 36 {
		chartHeight = 14
	}

	s.trendChart = barchart.New(chartWidth, chartHeight)
	var bars []barchart.BarData
	for _, b := range bucketTrend(s.trend.Points, chartWidth/barSlot) {
		value := barchart.BarValue{Name: "", Value: 0, Style: lipgloss.NewStyle().Foreground(colorSubtle)}
		if b.Days > 0 {
			level := int(math.Round(b.Mean))
			value = barchart.BarValue{Name: mood.Label(level), Value: b.Mean, Style: moodStyle(level)}
		}
		bars = append(bars, barchart.BarData{Label: b.Label, Values: []barchart.BarValue{value}})
	}
	s.trendChart.PushAll(bars)
	s.trendChart.Draw()

	s.distChart = barchart.New(min(chartWidth, 50), 8)
	bars = nil
	for _, l := range mood.Levels {
		bars = append(bars, barchart.BarData{
			Label: l.Shorthand,
			Values: []barchart.BarValue{{
				Name:  l.Label,
				Value: float64(s.dist.Count(l.Value)),
				Style: moodStyle(l.Value),
			}},
		})
	}
	s.distChart.PushAll(bars)
	s.distChart.Draw()
}

func (s statsModel) view() string {
	w := s.width - 4

	if s.err != nil {
		return panelStyle.Width(w).Render(errorStyle.Render("Could not load entries: " + s.err.Error()))
	}

	var rangeTabs []string
	for _, r := range stats.TrendRanges {
		label := fmt.Sprintf("%dd", r)
		if r == s.prefs.trendDays {
			rangeTabs = append(rangeTabs, activeTabStyle.Render(label))
		} else {
			rangeTabs = append(rangeTabs, inactiveTabStyle.Render(label))
		}
	}

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Mood Trend"), "  ",
		lipgloss.JoinHorizontal(lipgloss.Bottom, rangeTabs...), "  ",
		s.renderAverage(),
	)

	nav := mutedStyle.Render("  ←/→ or r: change range")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", s.trendChart.View(), "",
			lipgloss.JoinHorizontal(lipgloss.Top,
				lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Distribution"), s.distChart.View(), s.renderLegend()),
				"    ",
				s.renderTags(),
			),
			"", nav,
		),
	)
}

func (s statsModel) renderAverage() string {
	if len(s.trend.Average) == 0 {
		return ""
	}
	last := s.trend.Average[len(s.trend.Average)-1]
	if last == nil {
		return mutedStyle.Render(fmt.Sprintf("%d-day average: -", stats.MovingAverageWindow))
	}
	return mutedStyle.Render(fmt.Sprintf("%d-day average: ", stats.MovingAverageWindow)) +
		highlightStyle.Render(fmt.Sprintf("%.2f", *last))
}

func (s statsModel) renderLegend() string {
	var items []string
	for _, l := range mood.Levels {
		items = append(items, fmt.Sprintf("%s %s %d", moodStyle(l.Value).Render("●"), l.Shorthand, s.dist.Count(l.Value)))
	}
	return strings.Join(items, "  ")
}

func (s statsModel) renderTags() string {
	section := func(title string, rows []stats.TagAggregate) []string {
		out := []string{titleStyle.Render(title)}
		if len(rows) == 0 {
			return append(out, mutedStyle.Render(fmt.Sprintf("  tags need %d+ uses", s.prefs.minOccurrences)))
		}
		for _, r := range rows {
			level := int(math.Round(r.AverageMood))
			out = append(out, fmt.Sprintf("  %-16s %s %s",
				truncate("#"+r.Tag, 16),
				moodStyle(level).Render(fmt.Sprintf("%.2f", r.AverageMood)),
				mutedStyle.Render(fmt.Sprintf("(%d)", r.Count)),
			))
		}
		return out
	}

	var rows []string
	rows = append(rows, section("Lifts your mood", s.tags.TopPositive)...)
	rows = append(rows, "")
	rows = append(rows, section("Weighs you down", s.tags.TopNegative)...)
	return strings.Join(rows, "\n")
}
