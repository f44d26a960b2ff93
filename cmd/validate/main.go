// Command validate performs integrity checks on a merged dataset file and,
// optionally, the food footprint trees. It verifies the header, per-record
// fields, key uniqueness, and that every item/element/year normalizes into
// a well-formed snapshot.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -csv data/merged_data.csv \
//	  -carbon data/food_carbon.json \
//	  -water data/food_water.json
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/colocaviz/cropmap-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	csvPath := flag.String("csv", "", "path to the merged dataset CSV")
	carbonPath := flag.String("carbon", "", "path to the carbon footprint tree JSON (optional)")
	waterPath := flag.String("water", "", "path to the water footprint tree JSON (optional)")
	flag.Parse()

	if *csvPath == "" || (*carbonPath == "") != (*waterPath == "") {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*csvPath, *carbonPath, *waterPath); code != 0 {
		os.Exit(code)
	}
}

func run(csvPath, carbonPath, waterPath string) int {
	fmt.Println("=== Dataset Integrity Validation ===")
	fmt.Println()

	data, err := os.ReadFile(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read dataset: %v\n", err)
		return 1
	}
	records, err := domain.ParseCSV(bytes.NewReader(data))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateHeader(records),
		validateRecords(records),
		validateUniqueness(records),
		validateNormalization(records),
	}

	if carbonPath != "" {
		carbon, water, err := loadTrees(carbonPath, waterPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 1
		}
		phases = append(phases, validateFoods(carbon, water))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d, years: %v\n", len(records), domain.AvailableYears(records))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i >= 20 {
				fmt.Printf("  ... and %d more\n", len(p.errors)-20)
				break
			}
			fmt.Printf("  %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	return 0
}

func loadTrees(carbonPath, waterPath string) (carbon, water *domain.FoodNode, err error) {
	for _, t := range []struct {
		path string
		dst  **domain.FoodNode
	}{{carbonPath, &carbon}, {waterPath, &water}} {
		data, err := os.ReadFile(t.path)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", t.path, err)
		}
		if *t.dst, err = domain.ParseFoodTree(data); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", t.path, err)
		}
	}
	return carbon, water, nil
}

func validateHeader(records []domain.Record) *phase {
	p := &phase{name: "Header"}
	if len(records) == 0 {
		p.errorf("dataset has no records")
		return p
	}

	cols := records[0].Columns()
	for _, required := range []string{domain.ColumnArea, domain.ColumnItem, domain.ColumnElement, domain.ColumnUnit} {
		if !slices.Contains(cols, required) {
			p.errorf("missing column %q", required)
		}
	}
	if len(domain.AvailableYears(records)) == 0 {
		p.errorf("no year columns within %d-%d", domain.MinYear, domain.MaxYear)
	}
	return p
}

func validateRecords(records []domain.Record) *phase {
	p := &phase{name: "Record fields"}
	for i, r := range records {
		line := i + 2
		if r.Area == "" {
			p.errorf("line %d: empty %s", line, domain.ColumnArea)
		}
		if r.Item == "" && r.Typology == "" {
			p.errorf("line %d: empty %s and %s", line, domain.ColumnItem, domain.ColumnTypology)
		}
		if r.Element == "" {
			p.errorf("line %d: empty %s", line, domain.ColumnElement)
		}
		for year, v := range r.Values {
			if v < 0 {
				p.errorf("line %d: negative value %v for %d", line, v, year)
			}
		}
	}
	return p
}

// validateUniqueness flags area/item/element triples that appear more than
// once. Only the last of them survives normalization.
func validateUniqueness(records []domain.Record) *phase {
	p := &phase{name: "Area/item/element uniqueness"}
	seen := make(map[[3]string]int, len(records))
	for i, r := range records {
		k := [3]string{domain.AreaKey(r.Area), r.Item, r.Element}
		if first, dup := seen[k]; dup {
			p.errorf("line %d duplicates line %d: %s / %s / %s", i+2, first+2, r.Area, r.Item, r.Element)
			continue
		}
		seen[k] = i
	}
	return p
}

func validateNormalization(records []domain.Record) *phase {
	p := &phase{name: "Normalization"}
	years := domain.AvailableYears(records)

	type selection struct{ item, element string }
	var selections []selection
	seen := make(map[selection]bool)
	for _, r := range records {
		s := selection{r.Item, r.Element}
		if !seen[s] {
			seen[s] = true
			selections = append(selections, s)
		}
	}

	var n domain.Normalizer
	for _, s := range selections {
		filtered := domain.Select(records, s.item, s.element)
		for _, year := range years {
			snap := n.Normalize(filtered, year)
			if snap.NoData {
				continue
			}
			if snap.Min > snap.Max {
				p.errorf("%s / %s / %d: min %v above max %v", s.item, s.element, year, snap.Min, snap.Max)
			}
			for _, e := range snap.Entries {
				if e.NormalizedValue < 0 || e.NormalizedValue > 1 {
					p.errorf("%s / %s / %d: %s normalized to %v", s.item, s.element, year, e.Area, e.NormalizedValue)
				}
				if e.FillColor == "" {
					p.errorf("%s / %s / %d: %s has no fill color", s.item, s.element, year, e.Area)
				}
			}
		}
	}
	return p
}

func validateFoods(carbon, water *domain.FoodNode) *phase {
	p := &phase{name: "Food footprint trees"}
	if carbon.Name != domain.RootName {
		p.errorf("carbon tree root is %q, want %q", carbon.Name, domain.RootName)
	}
	if water.Name != domain.RootName {
		p.errorf("water tree root is %q, want %q", water.Name, domain.RootName)
	}

	foods := domain.BuildFoodIndex(carbon, water)
	names := make(map[string]bool, len(foods))
	missingWater := 0
	for _, f := range foods {
		if names[f.Name] {
			p.errorf("food %q appears more than once in the carbon tree", f.Name)
		}
		names[f.Name] = true
		if f.Carbon < 0 {
			p.errorf("food %q has negative carbon %v", f.Name, f.Carbon)
		}
		if f.Water == nil {
			missingWater++
		}
	}
	fmt.Printf("Foods: %d, without water footprint: %d\n", len(foods), missingWater)
	return p
}
