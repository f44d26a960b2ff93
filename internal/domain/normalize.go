package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Fixed outline styling for every styled record.
const (
	OutlineColor = "#333"
	OutlineWidth = 0.5
)

// logOffset shifts values before taking logs so zero stays finite.
const logOffset = 1.0

// Mapping turns a raw value into a score given the value range.
type Mapping func(value, lo, hi float64) float64

// LinearMapping scales value linearly between lo and hi.
func LinearMapping(value, lo, hi float64) float64 {
	return (value - lo) / (hi - lo)
}

// LogMapping scales value on a natural-log axis after shifting everything
// by logOffset. Values below -logOffset are treated as zero. The result is
// clamped to [0,1].
func LogMapping(value, lo, hi float64) float64 {
	v := math.Log(math.Max(value+logOffset, logOffset))
	l := math.Log(math.Max(lo+logOffset, logOffset))
	h := math.Log(math.Max(hi+logOffset, logOffset))
	return clampUnit((v - l) / (h - l))
}

// Scale names a Mapping strategy.
type Scale string

const (
	ScaleLog    Scale = "log"
	ScaleLinear Scale = "linear"
)

// ParseScale accepts "log", "linear", or "" (log).
func ParseScale(s string) (Scale, error) {
	switch Scale(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScaleLog:
		return ScaleLog, nil
	case ScaleLinear:
		return ScaleLinear, nil
	default:
		return "", fmt.Errorf("%w: unknown scale %q", ErrInvalidQuery, s)
	}
}

// Mapping returns the mapping function for the scale.
func (s Scale) Mapping() Mapping {
	if s == ScaleLinear {
		return LinearMapping
	}
	return LogMapping
}

// AreaKey is the default lookup key: the trimmed, lower-cased area name,
// matching the geography name table.
func AreaKey(area string) string {
	return strings.ToLower(strings.TrimSpace(area))
}

// StyledRecord is a record prepared for display in one selected year.
type StyledRecord struct {
	Key string `json:"key"`
	Record
	SelectedValue   float64 `json:"value"`
	FillColor       string  `json:"fill_color"`
	OutlineColor    string  `json:"outline_color"`
	OutlineWidth    float64 `json:"outline_width"`
	HoverText       string  `json:"hover_text"`
	NormalizedValue float64 `json:"normalized_value"`
}

// Snapshot is the styled view of a filtered dataset for one year.
type Snapshot struct {
	Item    string         `json:"item,omitempty"`
	Element string         `json:"element,omitempty"`
	Year    int            `json:"year"`
	Scale   Scale          `json:"scale,omitempty"`
	Years   []int          `json:"years,omitempty"`
	Min     float64        `json:"min"`
	Max     float64        `json:"max"`
	NoData  bool           `json:"no_data"`
	Entries []StyledRecord `json:"entries"`
}

// Lookup returns the entry for key.
func (s Snapshot) Lookup(key string) (StyledRecord, bool) {
	for _, e := range s.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return StyledRecord{}, false
}

// Normalizer builds snapshots. The zero value uses the default gradient,
// log mapping, and AreaKey.
type Normalizer struct {
	Gradient Gradient
	Mapping  Mapping
	Key      func(area string) string
}

// Normalize styles records for year. Records with a null, zero, or
// non-finite value for year are skipped. When no record has a value the
// snapshot is empty and NoData is set. A degenerate range (min == max) scores every entry 1.
func (n Normalizer) Normalize(records []Record, year int) Snapshot {
	snap := Snapshot{Year: year, Entries: []StyledRecord{}}

	lo, hi, ok := valueRange(records, year)
	if !ok {
		snap.NoData = true
		return snap
	}
	snap.Min, snap.Max = lo, hi

	mapping := n.Mapping
	if mapping == nil {
		mapping = LogMapping
	}
	keyFn := n.Key
	if keyFn == nil {
		keyFn = AreaKey
	}

	index := make(map[string]int)
	for _, r := range records {
		v, ok := r.Value(year)
		if !ok || v == 0 || !isFinite(v) {
			continue
		}

		score := 1.0
		if lo != hi {
			score = clampUnit(mapping(v, lo, hi))
		}

		entry := StyledRecord{
			Key:             keyFn(r.Area),
			Record:          r,
			SelectedValue:   v,
			FillColor:       n.Gradient.At(score),
			OutlineColor:    OutlineColor,
			OutlineWidth:    OutlineWidth,
			HoverText:       HoverText(r.Area, v, r.Unit),
			NormalizedValue: score,
		}

		if i, dup := index[entry.Key]; dup {
			snap.Entries[i] = entry
			continue
		}
		index[entry.Key] = len(snap.Entries)
		snap.Entries = append(snap.Entries, entry)
	}

	snap.NoData = len(snap.Entries) == 0
	return snap
}

// HoverText formats "<Area>: <value> <Unit>".
func HoverText(area string, value float64, unit string) string {
	return fmt.Sprintf("%s: %s %s", area, FormatValue(value), unit)
}

// FormatValue prints a value with the shortest exact decimal form.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// valueRange returns min and max over the present values for year.
func valueRange(records []Record, year int) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, r := range records {
		v, present := r.Value(year)
		if !present || !isFinite(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		ok = true
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}

// clampUnit clamps to [0,1]; NaN becomes 0.
func clampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
