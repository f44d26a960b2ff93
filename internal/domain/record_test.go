package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCSV = `Area,Item,food_commodity_typology,Element,Unit,Flag,2018,2019,2020
France,Rice,Cereals,area harvested,ha,A,15000,15880,
Italy,Rice,Cereals,area harvested,ha,A,217000,220040,227320
Spain,Rice,Cereals,production,t,E,800000,,750000
`

func TestParseCSV(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(testCSV))
	require.NoError(t, err)
	require.Len(t, records, 3)

	fr := records[0]
	assert.Equal(t, "France", fr.Area)
	assert.Equal(t, "Rice", fr.Item)
	assert.Equal(t, "Cereals", fr.Typology)
	assert.Equal(t, "area harvested", fr.Element)
	assert.Equal(t, "ha", fr.Unit)
	assert.Equal(t, map[string]string{"Flag": "A"}, fr.Attributes)
	assert.Equal(t, []string{"Area", "Item", "food_commodity_typology", "Element", "Unit", "Flag", "2018", "2019", "2020"}, fr.Columns())

	v, ok := fr.Value(2019)
	assert.True(t, ok)
	assert.Equal(t, 15880.0, v)

	_, ok = fr.Value(2020)
	assert.False(t, ok, "empty cell is null")

	_, ok = records[2].Value(2019)
	assert.False(t, ok)
}

func TestParseCSV_Edges(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		records, err := ParseCSV(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("header only", func(t *testing.T) {
		records, err := ParseCSV(strings.NewReader("Area,Item,2019\n"))
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("non-numeric year cell is null", func(t *testing.T) {
		records, err := ParseCSV(strings.NewReader("Area,2019\nChad,n/a\n"))
		require.NoError(t, err)
		require.Len(t, records, 1)
		_, ok := records[0].Value(2019)
		assert.False(t, ok)
	})

	t.Run("non-finite year cells are null", func(t *testing.T) {
		records, err := ParseCSV(strings.NewReader("Area,2019\nChad,NaN\nMali,90\nPeru,Inf\nFiji,-Infinity\n"))
		require.NoError(t, err)
		require.Len(t, records, 4)
		for _, i := range []int{0, 2, 3} {
			_, ok := records[i].Value(2019)
			assert.False(t, ok, records[i].Area)
		}
		v, ok := records[1].Value(2019)
		require.True(t, ok)
		assert.Equal(t, 90.0, v)
	})

	t.Run("short rows and blank lines", func(t *testing.T) {
		records, err := ParseCSV(strings.NewReader("Area,Unit,2019\nChad\n,,\nMali,ha,12\n"))
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "Chad", records[0].Area)
		assert.Empty(t, records[0].Unit)
		assert.Equal(t, 12.0, records[1].Values[2019])
	})

	t.Run("byte order mark", func(t *testing.T) {
		records, err := ParseCSV(strings.NewReader("\ufeffArea,2019\nPeru,3\n"))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "Peru", records[0].Area)
	})

	t.Run("malformed quoting", func(t *testing.T) {
		_, err := ParseCSV(strings.NewReader("Area,2019\n\"Peru,3\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse dataset")
	})
}

func TestNewRecord_ColumnsSorted(t *testing.T) {
	r := NewRecord("Chad", "Millet", "Cereals", "production", "t", map[int]float64{2021: 1, 1999: 2})
	assert.Equal(t, []string{"Area", "Item", "food_commodity_typology", "Element", "Unit", "1999", "2021"}, r.Columns())
}
