package moodlog

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/moodlog/internal/mood"
	"github.com/sadopc/moodlog/internal/stats"
	"github.com/sadopc/moodlog/internal/store"
)

var calendarMonth string

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Show a month of moods as a calendar",
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		year, month, err := parseMonth(calendarMonth, now)
		if err != nil {
			return err
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			entries, err := s.journal.ListEntries(ctx, store.EntryFilter{
				From: mood.DayKey(mood.DayAt(year, month, 1-6, time.Local)),
				To:   mood.DayKey(mood.DayAt(year, month+1, 6, time.Local)),
			})
			if err != nil {
				return err
			}

			days := stats.BuildMonth(entries, year, month, now, s.policy)
			cells := make([]string, len(days))
			for i, d := range days {
				label := fmt.Sprintf("%3d", d.Label)
				switch {
				case !d.IsCurrentMonth:
					cells[i] = faint.Sprint("  .")
				case d.Entry != nil:
					cells[i] = moodColor(d.Entry.Mood).Sprint(label)
				default:
					cells[i] = label
				}
				if d.IsToday {
					cells[i] = bold.Sprint(cells[i])
				}
			}
			printGrid(out(cmd), fmt.Sprintf("%s %d", month, year), cells)

			var legend []string
			for _, l := range mood.Levels {
				legend = append(legend, moodColor(l.Value).Sprint(l.Label))
			}
			fmt.Fprintln(out(cmd), strings.Join(legend, "  "))
			return nil
		})
	},
}

// parseMonth reads YYYY-MM. An empty value is the month of now.
func parseMonth(raw string, now time.Time) (int, time.Month, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --month %q (expected YYYY-MM)", raw)
	}
	return t.Year(), t.Month(), nil
}

func printGrid(w io.Writer, title string, cells []string) {
	bold.Fprintln(w, title)
	fmt.Fprintln(w, faint.Sprint(strings.Join(stats.WeekDays, "  ")))
	for start := 0; start < len(cells); start += 7 {
		end := min(start+7, len(cells))
		fmt.Fprintln(w, strings.Join(cells[start:end], "  "))
	}
}

func init() {
	calendarCmd.Flags().StringVar(&calendarMonth, "month", "", "Month to show, YYYY-MM (default current)")
	rootCmd.AddCommand(calendarCmd)
}
