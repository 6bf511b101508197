package moodlog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/moodlog/internal/export"
	"github.com/sadopc/moodlog/internal/stats"
	"github.com/sadopc/moodlog/internal/store"
)

var (
	exportFormat string
	exportOut    string
	exportFrom   string
	exportTo     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export entries or tag statistics to CSV or JSON",
	Long: "Formats:\n" +
		"  csv   one row per entry\n" +
		"  tags  one row per tag with its count and average mood\n" +
		"  json  entries plus tag rankings",
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(strings.TrimSpace(exportFormat))
		ext := "csv"
		switch format {
		case "csv", "tags":
		case "json":
			ext = "json"
		default:
			return fmt.Errorf("unknown --format %q (use csv, tags or json)", exportFormat)
		}

		now := time.Now()
		path := exportOut
		if path == "" {
			path = fmt.Sprintf("moodlog-%s-%s.%s", format, now.Format("2006-01-02"), ext)
		}

		return withSession(cmd, func(ctx context.Context, s *session) error {
			entries, err := s.journal.ListEntries(ctx, store.EntryFilter{From: exportFrom, To: exportTo})
			if err != nil {
				return err
			}
			switch format {
			case "csv":
				err = export.EntriesToCSV(entries, path)
			case "tags":
				err = export.TagsToCSV(stats.RankTags(entries, s.minTagOccurrences).All, path)
			case "json":
				err = export.ToJSON(entries, stats.RankTags(entries, s.minTagOccurrences), now, path)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%s %d entries to %s\n", success.Sprint("Exported"), len(entries), path)
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv, tags or json")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default moodlog-<format>-<date>.<ext>)")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "First day to include, YYYY-MM-DD")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Last day to include, YYYY-MM-DD")
	rootCmd.AddCommand(exportCmd)
}
