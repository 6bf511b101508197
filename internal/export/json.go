package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/moodlog/internal/mood"
	"github.com/sadopc/moodlog/internal/stats"
	"github.com/sadopc/moodlog/internal/store"
)

type jsonExport struct {
	ExportedAt  string               `json:"exported_at"`
	Count       int                  `json:"count"`
	Entries     []jsonEntry          `json:"entries"`
	Tags        []stats.TagAggregate `json:"tags"`
	TopPositive []stats.TagAggregate `json:"top_positive"`
	TopNegative []stats.TagAggregate `json:"top_negative"`
}

type jsonEntry struct {
	ID        int64    `json:"id"`
	Date      string   `json:"date"`
	CreatedAt string   `json:"created_at,omitempty"`
	Mood      int      `json:"mood"`
	Label     string   `json:"label"`
	Tags      []string `json:"tags"`
	Title     string   `json:"title,omitempty"`
	Content   string   `json:"content,omitempty"`
}

// ToJSON writes entries together with their tag statistics.
func ToJSON(entries []store.Entry, tags stats.TagStats, exportedAt time.Time, path string) error {
	export := jsonExport{
		ExportedAt:  exportedAt.UTC().Format(time.RFC3339),
		Count:       len(entries),
		Tags:        tags.All,
		TopPositive: tags.TopPositive,
		TopNegative: tags.TopNegative,
	}

	for _, e := range entries {
		created := ""
		if e.CreatedAt != nil {
			created = e.CreatedAt.Local().Format(time.RFC3339)
		}
		export.Entries = append(export.Entries, jsonEntry{
			ID:        e.ID,
			Date:      e.Date,
			CreatedAt: created,
			Mood:      e.Mood,
			Label:     mood.Label(e.Mood),
			Tags:      tagNames(e),
			Title:     e.Title(),
			Content:   e.Content,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
