package stats

import (
	"time"

	"github.com/sadopc/moodlog/internal/mood"
	"github.com/sadopc/moodlog/internal/store"
)

// MovingAverageWindow is the trailing window used for the trend line.
const MovingAverageWindow = 7

// TrendRanges are the windows offered by the UI. Any positive size works.
var TrendRanges = []int{7, 30, 90}

// TrendPoint is one day of the trend. Mood is nil when the day has no entry.
type TrendPoint struct {
	Label    string
	Date     time.Time
	Mood     *int
	HasEntry bool
}

// Trend holds one point per day, oldest first, and the moving average aligned
// with it index by index.
type Trend struct {
	Points  []TrendPoint
	Average []*float64
}

// Moods returns the mood series of the trend.
func (t Trend) Moods() []*int {
	out := make([]*int, len(t.Points))
	for i, p := range t.Points {
		out[i] = p.Mood
	}
	return out
}

// BuildTrend projects entries onto the windowDays days ending at now.
func BuildTrend(entries []store.Entry, windowDays int, now time.Time, policy DuplicatePolicy) Trend {
	if windowDays <= 0 {
		return Trend{Points: []TrendPoint{}, Average: []*float64{}}
	}

	lookup := indexByDay(entries, now.Location(), policy)

	points := make([]TrendPoint, 0, windowDays)
	for i := windowDays - 1; i >= 0; i-- {
		day := mood.AddDays(now, -i)
		p := TrendPoint{Label: trendLabel(day, windowDays), Date: mood.StartOfDay(day)}
		if e, ok := lookup[mood.DayKey(day)]; ok {
			m := e.Mood
			p.Mood = &m
			p.HasEntry = true
		}
		points = append(points, p)
	}

	t := Trend{Points: points}
	t.Average = MovingAverage(t.Moods(), MovingAverageWindow)
	return t
}

func trendLabel(day time.Time, windowDays int) string {
	if windowDays <= 7 {
		return day.Format("Mon")
	}
	return day.Format("Jan 2")
}

// MovingAverage is the trailing mean of the non-nil values among the last
// window values at each index. A position whose window holds only nils is nil.
func MovingAverage(values []*int, window int) []*float64 {
	if window < 1 {
		window = 1
	}
	out := make([]*float64, len(values))
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		sum, n := 0, 0
		for _, v := range values[start : i+1] {
			if v != nil {
				sum += *v
				n++
			}
		}
		if n > 0 {
			avg := float64(sum) / float64(n)
			out[i] = &avg
		}
	}
	return out
}
