package store

import (
	"context"
	"strings"
	"time"
)

// Tag is a label attached to a journal entry.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Entry struct {
	ID         int64      `json:"id"`
	Date       string     `json:"date"` // day key, YYYY-MM-DD
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	Mood       int        `json:"mood"`
	Content    string     `json:"content"`
	Selections []Tag      `json:"selections"`
}

// Title is the first non-empty line of the entry content.
func (e Entry) Title() string {
	for _, line := range strings.Split(e.Content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		if line != "" {
			return line
		}
	}
	return ""
}

type Goal struct {
	ID                    int64     `json:"id"`
	Title                 string    `json:"title"`
	Description           string    `json:"description"`
	FrequencyPerWeek      int       `json:"frequency_per_week"`
	Completed             int       `json:"completed"`
	Streak                int       `json:"streak"`
	PeriodStart           string    `json:"period_start,omitempty"`
	LastCompletedDate     string    `json:"last_completed_date,omitempty"`
	AlreadyCompletedToday bool      `json:"already_completed_today"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Met reports whether the goal's target for the current period is reached.
func (g Goal) Met() bool {
	return g.FrequencyPerWeek > 0 && g.Completed >= g.FrequencyPerWeek
}

// Completion records that a goal was completed on a day.
type Completion struct {
	GoalID int64  `json:"goal_id,omitempty"`
	Date   string `json:"date"`
}

type Setting struct {
	Key   string
	Value string
}

// EntryInput is the payload for creating an entry.
type EntryInput struct {
	Date    string   `json:"date"`
	Mood    int      `json:"mood"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// EntryUpdate changes an existing entry. Nil fields are left alone; a non-nil
// Tags replaces the entry's tags, so an empty slice clears them.
type EntryUpdate struct {
	Mood    *int     `json:"mood,omitempty"`
	Content *string  `json:"content,omitempty"`
	Tags    []string `json:"tags"`
}

// GoalInput is the payload for creating a goal.
type GoalInput struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	FrequencyPerWeek int    `json:"frequency_per_week"`
}

// GoalUpdate changes a goal's definition. Nil fields are left alone.
type GoalUpdate struct {
	Title            *string `json:"title,omitempty"`
	Description      *string `json:"description,omitempty"`
	FrequencyPerWeek *int    `json:"frequency_per_week,omitempty"`
}

// EntryFilter is used to filter entries in queries. From and To are
// inclusive day keys.
type EntryFilter struct {
	From  string
	To    string
	Limit int
}

// Backend is the persistence collaborator the analytics and goal code read
// from. It is implemented by *Store and by the HTTP client in package api.
type Backend interface {
	ListEntries(ctx context.Context, f EntryFilter) ([]Entry, error)
	ListGoals(ctx context.Context) ([]Goal, error)
	IncrementGoalProgress(ctx context.Context, goalID int64) (*Goal, error)
	ListGoalCompletions(ctx context.Context, goalID int64, start, end string) ([]Completion, error)
}

// Journal is a Backend that can also record entries and manage goals.
type Journal interface {
	Backend
	CreateEntry(ctx context.Context, in EntryInput) (*Entry, error)
	UpdateEntry(ctx context.Context, id int64, in EntryUpdate) (*Entry, error)
	DeleteEntry(ctx context.Context, id int64) error
	ListTags(ctx context.Context) ([]Tag, error)
	CreateGoal(ctx context.Context, in GoalInput) (*Goal, error)
	UpdateGoal(ctx context.Context, goalID int64, in GoalUpdate) (*Goal, error)
	DeleteGoal(ctx context.Context, goalID int64) error
}
