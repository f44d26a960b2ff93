package domain

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultGradientStops run low → mid → high: mint, cream, red.
var DefaultGradientStops = []string{"#A8E6CF", "#FFFACD", "#CC3232"}

// Gradient maps a score in [0,1] onto evenly spaced color stops using
// piecewise linear RGB interpolation.
type Gradient struct {
	stops []colorful.Color
}

// NewGradient parses two or more hex color stops.
func NewGradient(stops ...string) (Gradient, error) {
	if len(stops) < 2 {
		return Gradient{}, fmt.Errorf("%w: gradient needs at least 2 stops, got %d", ErrInvalidQuery, len(stops))
	}
	g := Gradient{stops: make([]colorful.Color, len(stops))}
	for i, s := range stops {
		c, err := colorful.Hex(s)
		if err != nil {
			return Gradient{}, fmt.Errorf("%w: gradient stop %q: %v", ErrInvalidQuery, s, err)
		}
		g.stops[i] = c
	}
	return g, nil
}

// DefaultGradient returns the three-stop gradient used by the maps.
func DefaultGradient() Gradient {
	g, err := NewGradient(DefaultGradientStops...)
	if err != nil {
		panic(err)
	}
	return g
}

// Stops returns the number of color stops.
func (g Gradient) Stops() int {
	return len(g.stops)
}

// At returns the "#rrggbb" color for score t. Scores outside [0,1] are clamped.
func (g Gradient) At(t float64) string {
	if len(g.stops) == 0 {
		g = DefaultGradient()
	}
	t = clampUnit(t)

	segments := len(g.stops) - 1
	pos := t * float64(segments)
	seg := int(pos)
	if seg >= segments {
		seg = segments - 1
	}
	local := pos - float64(seg)

	return g.stops[seg].BlendRgb(g.stops[seg+1], local).Clamped().Hex()
}
