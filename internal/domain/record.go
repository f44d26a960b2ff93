package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Descriptive column names in the merged dataset.
const (
	ColumnArea     = "Area"
	ColumnItem     = "Item"
	ColumnTypology = "food_commodity_typology"
	ColumnElement  = "Element"
	ColumnUnit     = "Unit"
)

// yearColumnRe matches the four-digit year columns.
var yearColumnRe = regexp.MustCompile(`^\d{4}$`)

// Record is one row of the merged dataset.
type Record struct {
	Area     string `json:"area"`
	Item     string `json:"item"`
	Typology string `json:"food_commodity_typology,omitempty"`
	Element  string `json:"element"`
	Unit     string `json:"unit"`

	// Attributes holds every other non-year column verbatim.
	Attributes map[string]string `json:"attributes,omitempty"`

	// Values holds the numeric year cells. Null cells are absent.
	Values map[int]float64 `json:"values"`

	columns []string
}

// Columns returns the header field names in source order.
func (r Record) Columns() []string {
	return r.columns
}

// Value returns the value for year and whether the cell was present.
func (r Record) Value(year int) (float64, bool) {
	v, ok := r.Values[year]
	return v, ok
}

// NewRecord builds a record with an explicit column set. It is mainly useful
// for fixtures; ParseCSV fills columns from the header row.
func NewRecord(area, item, typology, element, unit string, values map[int]float64) Record {
	cols := []string{ColumnArea, ColumnItem, ColumnTypology, ColumnElement, ColumnUnit}
	years := make([]int, 0, len(values))
	for y := range values {
		years = append(years, y)
	}
	slices.Sort(years)
	for _, y := range years {
		cols = append(cols, strconv.Itoa(y))
	}
	return Record{
		Area:     area,
		Item:     item,
		Typology: typology,
		Element:  element,
		Unit:     unit,
		Values:   values,
		columns:  cols,
	}
}

// ParseCSV reads the merged dataset. The header row supplies field names;
// year cells are parsed as numbers and empty or non-numeric cells are null.
func ParseCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	header = trimHeader(header)

	var records []Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse dataset: %w", err)
		}
		if isBlankRow(row) {
			continue
		}
		records = append(records, parseRow(header, row))
	}
	return records, nil
}

func parseRow(header, row []string) Record {
	rec := Record{
		Values:  make(map[int]float64),
		columns: header,
	}
	for i, name := range header {
		var cell string
		if i < len(row) {
			cell = strings.TrimSpace(row[i])
		}

		if yearColumnRe.MatchString(name) {
			if v, ok := parseNumber(cell); ok {
				year, _ := strconv.Atoi(name)
				rec.Values[year] = v
			}
			continue
		}

		switch name {
		case ColumnArea:
			rec.Area = cell
		case ColumnItem:
			rec.Item = cell
		case ColumnTypology:
			rec.Typology = cell
		case ColumnElement:
			rec.Element = cell
		case ColumnUnit:
			rec.Unit = cell
		default:
			if rec.Attributes == nil {
				rec.Attributes = make(map[string]string)
			}
			rec.Attributes[name] = cell
		}
	}
	return rec
}

// parseNumber returns false for empty, non-numeric, and non-finite cells
// ("NaN", "Inf").
func parseNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(v) {
		return 0, false
	}
	return v, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func trimHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return out
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
