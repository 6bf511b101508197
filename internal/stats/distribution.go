package stats

import (
	"github.com/sadopc/moodlog/internal/mood"
	"github.com/sadopc/moodlog/internal/store"
)

// Bucket is the entry count for one mood level.
type Bucket struct {
	Level mood.Level
	Count int
}

// Distribution holds raw entry counts for moods 1 through 5, in that order.
type Distribution [mood.Max - mood.Min + 1]Bucket

// BuildDistribution counts entries per mood. Moods off the scale are ignored.
func BuildDistribution(entries []store.Entry) Distribution {
	var d Distribution
	for i, l := range mood.Levels {
		d[i].Level = l
	}
	for _, e := range entries {
		if mood.Valid(e.Mood) {
			d[e.Mood-mood.Min].Count++
		}
	}
	return d
}

// Count returns the number of entries with the given mood.
func (d Distribution) Count(value int) int {
	if !mood.Valid(value) {
		return 0
	}
	return d[value-mood.Min].Count
}

// Max returns the largest bucket count.
func (d Distribution) Max() int {
	best := 0
	for _, b := range d {
		if b.Count > best {
			best = b.Count
		}
	}
	return best
}

// Total returns the number of counted entries.
func (d Distribution) Total() int {
	n := 0
	for _, b := range d {
		n += b.Count
	}
	return n
}
