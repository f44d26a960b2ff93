// Package xlsx writes styled snapshots to an Excel workbook, one sheet per year.
package xlsx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/colocaviz/cropmap-service/internal/domain"
	"github.com/xuri/excelize/v2"
)

var headers = []string{
	"area", "key", "value", "unit", "normalized_value", "fill_color", "hover_text",
}

// Write renders snaps into a workbook and writes it to w.
func Write(w io.Writer, snaps []domain.Snapshot) error {
	f, err := build(snaps)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ExportSnapshots writes snaps to outputPath, creating parent directories.
func ExportSnapshots(snaps []domain.Snapshot, outputPath string) error {
	f, err := build(snaps)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func build(snaps []domain.Snapshot) (*excelize.File, error) {
	if len(snaps) == 0 {
		return nil, fmt.Errorf("%w: no snapshots to export", domain.ErrInvalidQuery)
	}

	f := excelize.NewFile()
	styles := make(map[string]int)

	for i, snap := range snaps {
		sheet := strconv.Itoa(snap.Year)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("name sheet %s: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("add sheet %s: %w", sheet, err)
		}

		if err := writeSheet(f, sheet, snap, styles); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return f, nil
}

func writeSheet(f *excelize.File, sheet string, snap domain.Snapshot, styles map[string]int) error {
	for i, h := range headers {
		if err := setCell(f, sheet, i+1, 1, h); err != nil {
			return err
		}
	}

	if snap.NoData {
		return setCell(f, sheet, 1, 2, "no data")
	}

	for i, e := range snap.Entries {
		r := i + 2
		row := []any{e.Area, e.Key, e.SelectedValue, e.Unit, e.NormalizedValue, e.FillColor, e.HoverText}
		for col, value := range row {
			if err := setCell(f, sheet, col+1, r, value); err != nil {
				return err
			}
		}

		style, err := fillStyle(f, styles, e.FillColor)
		if err != nil {
			return err
		}
		cell, err := excelize.CoordinatesToCellName(6, r)
		if err != nil {
			return fmt.Errorf("cell %d,%d: %w", 6, r, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("style %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell %d,%d: %w", col, row, err)
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
	}
	return nil
}

// fillStyle returns a solid-fill style for color, creating it once per workbook.
func fillStyle(f *excelize.File, styles map[string]int, color string) (int, error) {
	if id, ok := styles[color]; ok {
		return id, nil
	}
	id, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
	})
	if err != nil {
		return 0, fmt.Errorf("fill style %s: %w", color, err)
	}
	styles[color] = id
	return id, nil
}
