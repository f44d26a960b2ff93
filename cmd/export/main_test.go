package main

import (
	"testing"

	"github.com/colocaviz/cropmap-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions("Sweet potatoes", "", "2019, 2020", "linear", "", true)
	require.NoError(t, err)

	assert.Equal(t, []int{2019, 2020}, opts.years)
	assert.Equal(t, domain.ScaleLinear, opts.scale)
	assert.Equal(t, "exports/sweet_potatoes.xlsx", opts.out)
	assert.True(t, opts.publish)
}

func TestParseOptions_Errors(t *testing.T) {
	_, err := parseOptions("", "", "", "log", "", false)
	require.Error(t, err)

	_, err = parseOptions("Rice", "", "2019,twenty", "log", "", false)
	require.Error(t, err)

	_, err = parseOptions("Rice", "", "", "cubic", "", false)
	require.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestParseYears_Empty(t *testing.T) {
	years, err := parseYears("  ")
	require.NoError(t, err)
	assert.Nil(t, years)
}
