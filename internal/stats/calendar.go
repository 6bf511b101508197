package stats

import (
	"time"

	"github.com/sadopc/moodlog/internal/mood"
	"github.com/sadopc/moodlog/internal/store"
)

// WeekDays are the calendar column headers, Sunday first.
var WeekDays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// CalendarDay is one cell of the mood calendar grid.
type CalendarDay struct {
	Date           time.Time
	Label          int
	Entry          *store.Entry
	IsCurrentMonth bool
	IsToday        bool
}

// BuildCalendar lays out the month containing now.
func BuildCalendar(entries []store.Entry, now time.Time, policy DuplicatePolicy) []CalendarDay {
	return BuildMonth(entries, now.Year(), now.Month(), now, policy)
}

// BuildMonth returns a Sunday-aligned grid covering every day of the month,
// padded with days of the neighbouring months to whole weeks.
func BuildMonth(entries []store.Entry, year int, month time.Month, now time.Time, policy DuplicatePolicy) []CalendarDay {
	lookup := indexByDay(entries, now.Location(), policy)
	todayKey := mood.DayKey(now)

	days := monthGrid(year, month, now.Location())
	out := make([]CalendarDay, len(days))
	for i, d := range days {
		key := mood.DayKey(d)
		out[i] = CalendarDay{
			Date:           d,
			Label:          d.Day(),
			Entry:          lookup[key],
			IsCurrentMonth: d.Month() == month,
			IsToday:        key == todayKey,
		}
	}
	return out
}

// GoalDay is a calendar cell for a single goal.
type GoalDay struct {
	Date           time.Time
	Label          int
	Completed      bool
	IsCurrentMonth bool
	IsToday        bool
}

// GoalCalendar marks the days of a month on which a goal was completed.
func GoalCalendar(completions []store.Completion, year int, month time.Month, now time.Time) []GoalDay {
	done := make(map[string]bool, len(completions))
	for _, c := range completions {
		if key, ok := mood.NormalizeKey(c.Date, now.Location()); ok {
			done[key] = true
		}
	}
	todayKey := mood.DayKey(now)

	days := monthGrid(year, month, now.Location())
	out := make([]GoalDay, len(days))
	for i, d := range days {
		key := mood.DayKey(d)
		out[i] = GoalDay{
			Date:           d,
			Label:          d.Day(),
			Completed:      done[key],
			IsCurrentMonth: d.Month() == month,
			IsToday:        key == todayKey,
		}
	}
	return out
}

// monthGrid starts at the Sunday on or before the 1st and runs until the last
// day of the month is covered and the grid ends on a week boundary.
func monthGrid(year int, month time.Month, loc *time.Location) []time.Time {
	first := mood.DayAt(year, month, 1, loc)
	lastKey := mood.DayKey(mood.DayAt(year, month+1, 0, loc))
	current := mood.AddDays(first, -int(first.Weekday()))

	var days []time.Time
	for mood.DayKey(current) <= lastKey || current.Weekday() != time.Sunday {
		days = append(days, mood.StartOfDay(current))
		current = mood.AddDays(current, 1)
	}
	return days
}
