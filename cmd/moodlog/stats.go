package moodlog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/sadopc/moodlog/internal/mood"
	"github.com/sadopc/moodlog/internal/stats"
	"github.com/sadopc/moodlog/internal/store"
)

var (
	statsDays int
	statsMin  int
	statsJSON bool
)

type trendRow struct {
	Date          string   `json:"date"`
	Mood          *int     `json:"mood"`
	MovingAverage *float64 `json:"moving_average"`
}

type statsReport struct {
	Overview         stats.Overview `json:"overview"`
	MoodDistribution map[int]int    `json:"mood_distribution"`
	TrendDays        int            `json:"trend_days"`
	Trend            []trendRow     `json:"trend"`
	Tags             stats.TagStats `json:"tags"`
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the mood overview, trend, distribution and tag rankings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			entries, err := s.journal.ListEntries(ctx, store.EntryFilter{})
			if err != nil {
				return err
			}
			days := s.trendDays
			if statsDays > 0 {
				days = statsDays
			}
			minOcc := s.minTagOccurrences
			if statsMin > 0 {
				minOcc = statsMin
			}

			report, err := buildReport(ctx, s, entries, days, minOcc, time.Now())
			if err != nil {
				return err
			}
			if statsJSON {
				enc := json.NewEncoder(out(cmd))
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(out(cmd), report)
			return nil
		})
	},
}

func buildReport(ctx context.Context, s *session, entries []store.Entry, days, minOcc int, now time.Time) (statsReport, error) {
	r := statsReport{
		Overview:         stats.BuildOverview(entries, now),
		MoodDistribution: make(map[int]int, len(mood.Levels)),
		TrendDays:        days,
		Tags:             stats.RankTags(entries, minOcc),
	}
	// A server is authoritative for the headline numbers.
	if s.remote != nil {
		remote, err := s.remote.Statistics(ctx)
		if err != nil {
			return r, err
		}
		r.Overview.TotalEntries = remote.Statistics.TotalEntries
		r.Overview.AverageMood = remote.Statistics.AverageMood
		r.Overview.CurrentStreak = remote.CurrentStreak
	}
	for _, l := range mood.Levels {
		r.MoodDistribution[l.Value] = r.Overview.Distribution.Count(l.Value)
	}

	trend := stats.BuildTrend(entries, days, now, s.policy)
	r.Trend = make([]trendRow, len(trend.Points))
	for i, p := range trend.Points {
		r.Trend[i] = trendRow{Date: mood.DayKey(p.Date), Mood: p.Mood, MovingAverage: trend.Average[i]}
	}
	return r, nil
}

func printReport(w io.Writer, r statsReport) {
	bold.Fprintln(w, "Overview")
	tbl := uitable.New()
	tbl.Separator = "  "
	avg := "-"
	if r.Overview.TotalEntries > 0 {
		avg = fmt.Sprintf("%.2f", r.Overview.AverageMood)
	}
	tbl.AddRow("  Entries", r.Overview.TotalEntries)
	tbl.AddRow("  Average mood", avg)
	tbl.AddRow("  Current streak", fmt.Sprintf("%d days", r.Overview.CurrentStreak))
	fmt.Fprintln(w, tbl)

	fmt.Fprintln(w)
	bold.Fprintln(w, "Distribution")
	peak := r.Overview.Distribution.Max()
	tbl = uitable.New()
	tbl.Separator = "  "
	for i := len(mood.Levels) - 1; i >= 0; i-- {
		l := mood.Levels[i]
		n := r.MoodDistribution[l.Value]
		width := 0
		if peak > 0 {
			width = n * 30 / peak
		}
		tbl.AddRow("  "+l.Label, moodColor(l.Value).Sprint(strings.Repeat("█", width)), n)
	}
	fmt.Fprintln(w, tbl)

	fmt.Fprintln(w)
	bold.Fprintf(w, "Last %d days", r.TrendDays)
	faint.Fprintf(w, " (%d-day moving average)\n", stats.MovingAverageWindow)
	tbl = uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(faint.Sprint("  DATE"), faint.Sprint("MOOD"), faint.Sprint("AVG"))
	for _, p := range r.Trend {
		m, a := faint.Sprint("-"), faint.Sprint("-")
		if p.Mood != nil {
			m = moodColor(*p.Mood).Sprint(mood.Label(*p.Mood))
		}
		if p.MovingAverage != nil {
			a = fmt.Sprintf("%.2f", *p.MovingAverage)
		}
		tbl.AddRow("  "+p.Date, m, a)
	}
	fmt.Fprintln(w, tbl)

	fmt.Fprintln(w)
	printTags(w, "Tags that lift your mood", r.Tags.TopPositive)
	fmt.Fprintln(w)
	printTags(w, "Tags that weigh you down", r.Tags.TopNegative)
}

func printTags(w io.Writer, title string, rows []stats.TagAggregate) {
	bold.Fprintln(w, title)
	if len(rows) == 0 {
		faint.Fprintln(w, "  not enough tagged entries yet")
		return
	}
	tbl := uitable.New()
	tbl.Separator = "  "
	for _, r := range rows {
		tbl.AddRow("  #"+r.Tag, fmt.Sprintf("%.2f", r.AverageMood), faint.Sprintf("%d entries", r.Count))
	}
	fmt.Fprintln(w, tbl)
}

func init() {
	statsCmd.Flags().IntVar(&statsDays, "days", 0, "Trend window in days (default from settings)")
	statsCmd.Flags().IntVar(&statsMin, "min", 0, "Uses a tag needs before it is ranked (default from settings)")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print the report as JSON")
	rootCmd.AddCommand(statsCmd)
}
