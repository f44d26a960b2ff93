package domain

import (
	"slices"
	"strconv"
)

// Year bounds accepted by AvailableYears.
const (
	MinYear = 1960
	MaxYear = 2030
)

// AvailableYears returns the year columns of the first record, ascending.
// Only the first record is inspected; all records from one dataset share a
// header.
func AvailableYears(records []Record) []int {
	if len(records) == 0 {
		return []int{}
	}

	years := make([]int, 0)
	for _, col := range records[0].Columns() {
		if !yearColumnRe.MatchString(col) {
			continue
		}
		y, err := strconv.Atoi(col)
		if err != nil || y < MinYear || y > MaxYear {
			continue
		}
		years = append(years, y)
	}
	slices.Sort(years)
	return slices.Compact(years)
}
