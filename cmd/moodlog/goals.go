package moodlog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/sadopc/moodlog/internal/flags"
	"github.com/sadopc/moodlog/internal/goals"
	"github.com/sadopc/moodlog/internal/mood"
	"github.com/sadopc/moodlog/internal/stats"
	"github.com/sadopc/moodlog/internal/store"
)

var goalsCmd = &cobra.Command{
	Use:     "goals",
	Aliases: []string{"goal"},
	Short:   "Manage weekly goals",
}

var goalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List goals with this week's progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			list, err := s.journal.ListGoals(ctx)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				faint.Fprintln(out(cmd), "No goals yet. Add one with: moodlog goals add <title>")
				return nil
			}

			r := s.reconciler()
			r.Load(list)
			now := time.Now()
			if n := r.Prune(now); n > 0 {
				s.logger.Printf("removed %d stale done markers", n)
			}

			tbl := uitable.New()
			tbl.Separator = "  "
			tbl.AddRow(bold.Sprint("ID"), bold.Sprint("GOAL"), bold.Sprint("WEEK"), bold.Sprint("STREAK"), bold.Sprint("TODAY"))
			for _, g := range list {
				progress := fmt.Sprintf("%d/%d", g.Completed, g.FrequencyPerWeek)
				if g.Met() {
					progress = success.Sprint(progress)
				}
				today := faint.Sprint("-")
				if r.IsDoneToday(g.ID, now) {
					today = success.Sprint("done")
				}
				tbl.AddRow(g.ID, g.Title, progress, fmt.Sprintf("%dw", g.Streak), today)
			}
			tbl.RightAlign(0)
			fmt.Fprintln(out(cmd), tbl)
			return nil
		})
	},
}

var (
	goalFrequency   int
	goalDescription string
)

var goalsAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a goal",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := store.GoalInput{
			Title:            strings.Join(args, " "),
			Description:      goalDescription,
			FrequencyPerWeek: goalFrequency,
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			g, err := s.journal.CreateGoal(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%s goal #%d %q, %d times a week\n", success.Sprint("Added"), g.ID, g.Title, g.FrequencyPerWeek)
			return nil
		})
	},
}

var (
	editGoalTitle       string
	editGoalDescription string
	editGoalFrequency   int
)

var goalsEditCmd = &cobra.Command{
	Use:     "edit <id>",
	Short:   "Change a goal's title, description or weekly target",
	Example: `  moodlog goals edit 2 --frequency 4`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("goal", args[0])
		if err != nil {
			return err
		}
		var in store.GoalUpdate
		if cmd.Flags().Changed("title") {
			in.Title = &editGoalTitle
		}
		if cmd.Flags().Changed("description") {
			in.Description = &editGoalDescription
		}
		if cmd.Flags().Changed("frequency") {
			in.FrequencyPerWeek = &editGoalFrequency
		}
		if in == (store.GoalUpdate{}) {
			return errors.New("nothing to change: pass --title, --description or --frequency")
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			g, err := s.journal.UpdateGoal(ctx, id, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%s goal #%d %q, %d/%d this week\n",
				success.Sprint("Updated"), g.ID, g.Title, g.Completed, g.FrequencyPerWeek)
			return nil
		})
	},
}

var goalsDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a goal as done for today",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("goal", args[0])
		if err != nil {
			return err
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			list, err := s.journal.ListGoals(ctx)
			if err != nil {
				return err
			}
			r := s.reconciler()
			r.Load(list)

			outcome, err := r.MarkComplete(ctx, id, time.Now())
			switch {
			case goals.IsNotice(err):
				notice.Fprintln(out(cmd), capitalize(err.Error()))
				return nil
			case err != nil:
				failure.Fprintln(out(cmd), "Not saved, try again later")
				return err
			}
			g := outcome.Goal
			fmt.Fprintf(out(cmd), "%s %s: %d/%d this week", success.Sprint("Done"), g.Title, g.Completed, g.FrequencyPerWeek)
			if g.Streak > 0 {
				fmt.Fprintf(out(cmd), ", %d week streak", g.Streak)
			}
			fmt.Fprintln(out(cmd))
			return nil
		})
	},
}

var goalsDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a goal and its history",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("goal", args[0])
		if err != nil {
			return err
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if err := s.journal.DeleteGoal(ctx, id); err != nil {
				return err
			}
			if err := s.flags.Remove(goals.FlagKey(id)); err != nil && !errors.Is(err, flags.ErrUnavailable) {
				s.logger.Printf("clear done marker for goal %d: %v", id, err)
			}
			fmt.Fprintf(out(cmd), "Deleted goal #%d\n", id)
			return nil
		})
	},
}

var goalCalendarMonth string

var goalsCalendarCmd = &cobra.Command{
	Use:   "calendar <id>",
	Short: "Show the days a goal was completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("goal", args[0])
		if err != nil {
			return err
		}
		now := time.Now()
		year, month, err := parseMonth(goalCalendarMonth, now)
		if err != nil {
			return err
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			first := mood.DayKey(mood.DayAt(year, month, 1, time.Local))
			last := mood.DayKey(mood.DayAt(year, month+1, 0, time.Local))
			completions, err := s.journal.ListGoalCompletions(ctx, id, first, last)
			if err != nil {
				return err
			}

			days := stats.GoalCalendar(completions, year, month, now)
			cells := make([]string, len(days))
			done := 0
			for i, d := range days {
				label := fmt.Sprintf("%3d", d.Label)
				switch {
				case !d.IsCurrentMonth:
					cells[i] = faint.Sprint("  .")
				case d.Completed:
					cells[i] = success.Sprint(label)
					done++
				default:
					cells[i] = faint.Sprint(label)
				}
				if d.IsToday {
					cells[i] = bold.Sprint(cells[i])
				}
			}
			printGrid(out(cmd), fmt.Sprintf("Goal #%d, %s %d", id, month, year), cells)
			fmt.Fprintf(out(cmd), "Completed on %d days\n", done)
			return nil
		})
	},
}

func parseID(what, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, raw)
	}
	return id, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func init() {
	goalsAddCmd.Flags().IntVarP(&goalFrequency, "frequency", "f", 3, "Times per week, 1-7")
	goalsAddCmd.Flags().StringVarP(&goalDescription, "description", "d", "", "Optional description")
	goalsEditCmd.Flags().StringVar(&editGoalTitle, "title", "", "New title")
	goalsEditCmd.Flags().StringVarP(&editGoalDescription, "description", "d", "", "New description")
	goalsEditCmd.Flags().IntVarP(&editGoalFrequency, "frequency", "f", 0, "New times per week, 1-7")
	goalsCalendarCmd.Flags().StringVar(&goalCalendarMonth, "month", "", "Month to show, YYYY-MM (default current)")

	goalsCmd.AddCommand(goalsListCmd, goalsAddCmd, goalsEditCmd, goalsDoneCmd, goalsDeleteCmd, goalsCalendarCmd)
	rootCmd.AddCommand(goalsCmd)
}
