package stats

import (
	"sort"
	"strconv"

	"github.com/sadopc/moodlog/internal/store"
)

const (
	// DefaultMinOccurrences is the support a tag needs to be ranked.
	DefaultMinOccurrences = 2
	// RankSize is the length of each ranking.
	RankSize = 5
)

// TagAggregate is the entry count and mean mood for one tag.
type TagAggregate struct {
	Tag         string  `json:"tag"`
	Count       int     `json:"count"`
	AverageMood float64 `json:"average_mood"`
}

// TagStats ranks tags by the mean mood of the entries carrying them.
// TopNegative lists the lowest average first. All keeps every tag, including
// ones below the support threshold, in first-seen order.
type TagStats struct {
	TopPositive []TagAggregate `json:"top_positive"`
	TopNegative []TagAggregate `json:"top_negative"`
	All         []TagAggregate `json:"all"`
}

// TagKey is the identity of a tag for aggregation: its name, or its ID when
// the name is empty. Names are compared exactly, so casing matters.
func TagKey(t store.Tag) string {
	if t.Name != "" {
		return t.Name
	}
	return strconv.FormatInt(t.ID, 10)
}

// RankTags aggregates entries by tag. minOccurrences <= 0 uses
// DefaultMinOccurrences.
func RankTags(entries []store.Entry, minOccurrences int) TagStats {
	if minOccurrences <= 0 {
		minOccurrences = DefaultMinOccurrences
	}

	type acc struct {
		count, sum int
	}
	var order []string
	sums := make(map[string]*acc)
	for _, e := range entries {
		for _, t := range e.Selections {
			key := TagKey(t)
			a, ok := sums[key]
			if !ok {
				a = &acc{}
				sums[key] = a
				order = append(order, key)
			}
			a.count++
			a.sum += e.Mood
		}
	}

	stats := TagStats{
		TopPositive: []TagAggregate{},
		TopNegative: []TagAggregate{},
		All:         make([]TagAggregate, 0, len(order)),
	}
	var ranked []TagAggregate
	for _, key := range order {
		a := sums[key]
		row := TagAggregate{Tag: key, Count: a.count, AverageMood: float64(a.sum) / float64(a.count)}
		stats.All = append(stats.All, row)
		if a.count >= minOccurrences {
			ranked = append(ranked, row)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AverageMood > ranked[j].AverageMood
	})

	n := min(RankSize, len(ranked))
	stats.TopPositive = append(stats.TopPositive, ranked[:n]...)
	for i := len(ranked) - 1; i >= len(ranked)-n; i-- {
		stats.TopNegative = append(stats.TopNegative, ranked[i])
	}
	return stats
}
