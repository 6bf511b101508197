package tui

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/sadopc/moodlog/internal/goals"
	"github.com/sadopc/moodlog/internal/mood"
	"github.com/sadopc/moodlog/internal/stats"
	"github.com/sadopc/moodlog/internal/store"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewJournal
	viewStats
	viewCalendar
	viewGoals
	viewSettings
)

var viewNames = []string{"Dashboard", "Journal", "Stats", "Calendar", "Goals", "Settings"}

// requestTimeout bounds every backend call made from the UI.
const requestTimeout = 10 * time.Second

// SettingsStore persists preferences edited in the settings view. It is nil
// when the journal is remote.
type SettingsStore interface {
	GetAllSettings() ([]store.Setting, error)
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// prefs are the analytics knobs shared by the views.
type prefs struct {
	trendDays      int
	minOccurrences int
	policy         stats.DuplicatePolicy
}

// env is what every view needs to reach the outside world.
type env struct {
	journal  store.Journal
	settings SettingsStore
	goals    *goals.Reconciler
	now      func() time.Time
	logger   *log.Logger
}

func (e *env) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

type entryCreatedMsg struct {
	entry *store.Entry
}

// entryChangedMsg follows an edit or a delete.
type entryChangedMsg struct {
	text string
}

type prefsChangedMsg struct {
	prefs prefs
}

// --- Helpers ---

func moodMarker(value int) string {
	l := mood.Lookup(value)
	return moodStyle(value).Render(l.Marker)
}

func tagList(e store.Entry) string {
	names := make([]string, 0, len(e.Selections))
	for _, t := range e.Selections {
		names = append(names, "#"+stats.TagKey(t))
	}
	return strings.Join(names, " ")
}

func splitTags(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
