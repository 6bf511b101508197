package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sadopc/moodlog/internal/mood"
	"github.com/sadopc/moodlog/internal/stats"
	"github.com/sadopc/moodlog/internal/store"
)

var entryHeader = []string{"ID", "Date", "Mood", "Label", "Tags", "Title", "Content"}

func EntriesToCSV(entries []store.Entry, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(entryHeader); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			strconv.FormatInt(e.ID, 10),
			e.Date,
			strconv.Itoa(e.Mood),
			mood.Label(e.Mood),
			strings.Join(tagNames(e), "; "),
			e.Title(),
			e.Content,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// TagsToCSV writes one row per tag, including tags too rare to be ranked.
func TagsToCSV(rows []stats.TagAggregate, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"Tag", "Count", "Average Mood"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write([]string{r.Tag, strconv.Itoa(r.Count), strconv.FormatFloat(r.AverageMood, 'f', 2, 64)}); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func tagNames(e store.Entry) []string {
	names := make([]string, 0, len(e.Selections))
	for _, t := range e.Selections {
		names = append(names, stats.TagKey(t))
	}
	return names
}
