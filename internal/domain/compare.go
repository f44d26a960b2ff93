package domain

import "math"

// Reference surfaces in hectares.
const (
	LausanneHectares    = 55
	ParisHectares       = 10540
	LemanLakeHectares   = 58100
	SwitzerlandHectares = 4128500
)

// AreaComparison relates a harvested area to a familiar surface.
type AreaComparison struct {
	Hectares float64 `json:"hectares"`

	// Reference is the surface the area is drawn against.
	Reference         string  `json:"reference"`
	ReferenceHectares float64 `json:"reference_hectares"`
	Percentage        int     `json:"percentage"`

	// Unit is the next smaller surface; Multiple is how many of it fit.
	Unit     string `json:"unit"`
	Multiple int    `json:"multiple"`
}

// CompareArea picks Paris, Lake Geneva, or Switzerland as the reference
// surface for hectares.
func CompareArea(hectares float64) AreaComparison {
	c := AreaComparison{Hectares: hectares}
	switch {
	case hectares <= ParisHectares:
		c.Reference, c.ReferenceHectares = "Paris", ParisHectares
		c.Unit, c.Multiple = "Lausanne", roundRatio(hectares, LausanneHectares)
	case hectares <= LemanLakeHectares:
		c.Reference, c.ReferenceHectares = "Leman Lake", LemanLakeHectares
		c.Unit, c.Multiple = "Paris", roundRatio(hectares, ParisHectares)
	default:
		c.Reference, c.ReferenceHectares = "Switzerland", SwitzerlandHectares
		c.Unit, c.Multiple = "Leman Lake", roundRatio(hectares, LemanLakeHectares)
	}
	c.Percentage = roundRatio(hectares*100, c.ReferenceHectares)
	return c
}

func roundRatio(v, unit float64) int {
	r := v / unit
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return int(math.Round(r))
}
