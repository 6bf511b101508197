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

	"github.com/sadopc/moodlog/internal/mood"
	"github.com/sadopc/moodlog/internal/stats"
	"github.com/sadopc/moodlog/internal/store"
)

var (
	addMood string
	addDate string
	addTags []string
)

var addCmd = &cobra.Command{
	Use:   "add [text...]",
	Short: "Record how you feel",
	Example: `  moodlog add --mood good --tag sun --tag friends "Lunch in the park"
  moodlog add --mood 2 --date 2024-05-14 "Rough day"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := parseMood(addMood)
		if err != nil {
			return err
		}
		date := strings.TrimSpace(addDate)
		if date == "" {
			date = mood.DayKey(time.Now())
		}
		in := store.EntryInput{
			Date:    date,
			Mood:    m,
			Content: strings.Join(args, " "),
			Tags:    addTags,
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			e, err := s.journal.CreateEntry(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%s %s entry for %s (#%d)\n",
				success.Sprint("Saved"), moodColor(e.Mood).Sprint(mood.Label(e.Mood)), e.Date, e.ID)
			return nil
		})
	},
}

// parseMood accepts a number on the scale, a label or a shorthand letter.
func parseMood(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("--mood is required (1-5 or one of %s)", moodNames())
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if !mood.Valid(n) {
			return 0, fmt.Errorf("mood must be between %d and %d", mood.Min, mood.Max)
		}
		return n, nil
	}
	for _, l := range mood.Levels {
		if strings.EqualFold(raw, l.Label) || strings.EqualFold(raw, l.Shorthand) {
			return l.Value, nil
		}
	}
	return 0, fmt.Errorf("unknown mood %q (use 1-5 or one of %s)", raw, moodNames())
}

func moodNames() string {
	names := make([]string, len(mood.Levels))
	for i, l := range mood.Levels {
		names[i] = strings.ToLower(l.Label)
	}
	return strings.Join(names, ", ")
}

var (
	editMood      string
	editTags      []string
	editClearTags bool
)

var editCmd = &cobra.Command{
	Use:   "edit <id> [text...]",
	Short: "Change an entry's mood, text or tags",
	Example: `  moodlog edit 12 --mood okay
  moodlog edit 12 --tag work "Long meeting, better afterwards"
  moodlog edit 12 --clear-tags`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("entry", args[0])
		if err != nil {
			return err
		}
		var in store.EntryUpdate
		if cmd.Flags().Changed("mood") {
			m, err := parseMood(editMood)
			if err != nil {
				return err
			}
			in.Mood = &m
		}
		if len(args) > 1 {
			content := strings.Join(args[1:], " ")
			in.Content = &content
		}
		switch {
		case editClearTags:
			in.Tags = []string{}
		case cmd.Flags().Changed("tag"):
			in.Tags = editTags
		}
		if in.Mood == nil && in.Content == nil && in.Tags == nil {
			return errors.New("nothing to change: pass --mood, --tag, --clear-tags or new text")
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			e, err := s.journal.UpdateEntry(ctx, id, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%s %s entry for %s (#%d)\n",
				success.Sprint("Updated"), moodColor(e.Mood).Sprint(mood.Label(e.Mood)), e.Date, e.ID)
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a journal entry",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("entry", args[0])
		if err != nil {
			return err
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if err := s.journal.DeleteEntry(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Deleted entry #%d\n", id)
			return nil
		})
	},
}

var (
	listFrom  string
	listTo    string
	listLimit int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := store.EntryFilter{From: listFrom, To: listTo, Limit: listLimit}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			entries, err := s.journal.ListEntries(ctx, f)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				faint.Fprintln(out(cmd), "No entries")
				return nil
			}

			tbl := uitable.New()
			tbl.Separator = "  "
			tbl.MaxColWidth = 60
			tbl.AddRow(bold.Sprint("ID"), bold.Sprint("DATE"), bold.Sprint("MOOD"), bold.Sprint("TITLE"), bold.Sprint("TAGS"))
			for _, e := range entries {
				tags := make([]string, 0, len(e.Selections))
				for _, t := range e.Selections {
					tags = append(tags, "#"+stats.TagKey(t))
				}
				tbl.AddRow(e.ID, e.Date, moodColor(e.Mood).Sprint(mood.Label(e.Mood)), e.Title(), strings.Join(tags, " "))
			}
			tbl.RightAlign(0)
			fmt.Fprintln(out(cmd), tbl)
			return nil
		})
	},
}

func init() {
	addCmd.Flags().StringVarP(&addMood, "mood", "m", "", "Mood: 1-5 or terrible, bad, okay, good, amazing")
	addCmd.Flags().StringVar(&addDate, "date", "", "Day of the entry, YYYY-MM-DD (default today)")
	addCmd.Flags().StringSliceVarP(&addTags, "tag", "t", nil, "Tag to attach (repeatable)")
	rootCmd.AddCommand(addCmd)

	editCmd.Flags().StringVarP(&editMood, "mood", "m", "", "New mood: 1-5 or terrible, bad, okay, good, amazing")
	editCmd.Flags().StringSliceVarP(&editTags, "tag", "t", nil, "Replace the tags (repeatable)")
	editCmd.Flags().BoolVar(&editClearTags, "clear-tags", false, "Remove every tag")
	rootCmd.AddCommand(editCmd, deleteCmd)

	listCmd.Flags().StringVar(&listFrom, "from", "", "First day to include, YYYY-MM-DD")
	listCmd.Flags().StringVar(&listTo, "to", "", "Last day to include, YYYY-MM-DD")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum entries to show (0 for all)")
	rootCmd.AddCommand(listCmd)
}
