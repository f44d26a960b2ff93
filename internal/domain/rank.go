package domain

import (
	"cmp"
	"slices"
)

// Ranked is one area's position in a frame.
type Ranked struct {
	Area  string  `json:"area"`
	Value float64 `json:"value"`
	Rank  int     `json:"rank"`
}

// Frame is the ranking for a single year.
type Frame struct {
	Year    int      `json:"year"`
	Entries []Ranked `json:"entries"`
}

// Rank builds one frame per year in years, each holding the top n areas by
// value. Missing values count as zero. Ranks are capped at n so areas
// leaving the top n share the overflow slot.
func Rank(records []Record, years []int, n int) []Frame {
	if n <= 0 {
		return []Frame{}
	}

	areas := make([]string, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if !seen[r.Area] {
			seen[r.Area] = true
			areas = append(areas, r.Area)
		}
	}

	frames := make([]Frame, 0, len(years))
	for _, year := range years {
		values := make(map[string]float64, len(areas))
		for _, r := range records {
			if v, ok := r.Value(year); ok {
				values[r.Area] = v
			}
		}

		ranked := make([]Ranked, len(areas))
		for i, a := range areas {
			ranked[i] = Ranked{Area: a, Value: values[a]}
		}
		slices.SortStableFunc(ranked, func(a, b Ranked) int {
			if c := cmp.Compare(b.Value, a.Value); c != 0 {
				return c
			}
			return cmp.Compare(a.Area, b.Area)
		})
		for i := range ranked {
			ranked[i].Rank = min(n, i)
		}
		if len(ranked) > n {
			ranked = ranked[:n]
		}
		frames = append(frames, Frame{Year: year, Entries: ranked})
	}
	return frames
}
