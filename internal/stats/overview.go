package stats

import (
	"time"

	"github.com/sadopc/moodlog/internal/mood"
	"github.com/sadopc/moodlog/internal/store"
)

// Overview summarises the journal for the dashboard cards.
type Overview struct {
	TotalEntries  int          `json:"total_entries"`
	AverageMood   float64      `json:"average_mood"`
	CurrentStreak int          `json:"current_streak"`
	BestDayCount  int          `json:"best_day_count"`
	Distribution  Distribution `json:"-"`
}

// BuildOverview computes totals, the mean mood and the current streak.
func BuildOverview(entries []store.Entry, now time.Time) Overview {
	d := BuildDistribution(entries)
	o := Overview{
		TotalEntries:  len(entries),
		CurrentStreak: CurrentStreak(entries, now),
		BestDayCount:  d.Max(),
		Distribution:  d,
	}
	sum, n := 0, 0
	for _, e := range entries {
		if mood.Valid(e.Mood) {
			sum += e.Mood
			n++
		}
	}
	if n > 0 {
		o.AverageMood = float64(sum) / float64(n)
	}
	return o
}

// CurrentStreak counts consecutive days with at least one entry, ending today.
// A day without an entry yet does not break a streak that reached yesterday.
func CurrentStreak(entries []store.Entry, now time.Time) int {
	days := make(map[string]bool, len(entries))
	for _, e := range entries {
		if key, ok := mood.NormalizeKey(e.Date, now.Location()); ok {
			days[key] = true
		}
	}

	day := mood.AddDays(now, 0)
	if !days[mood.DayKey(day)] {
		day = mood.AddDays(day, -1)
	}
	streak := 0
	for days[mood.DayKey(day)] {
		streak++
		day = mood.AddDays(day, -1)
	}
	return streak
}
