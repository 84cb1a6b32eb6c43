package traffic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gangnam = Coord{Lat: 37.5172, Lon: 127.0473}

func TestHaversine(t *testing.T) {
	assert.InDelta(t, 0, Haversine(37.5, 127.0, 37.5, 127.0), 1e-9)
	// 위도 0.01도 ≈ 1.112 km
	assert.InDelta(t, 1112, Haversine(37.50, 127.0, 37.51, 127.0), 2)
}

func TestFilterByRadius(t *testing.T) {
	points := []LinkPoint{
		{LinkID: "far", Lat: 37.5672, Lon: 127.0473},
		{LinkID: "near", Lat: 37.5222, Lon: 127.0473},
		{LinkID: "here", Lat: 37.5172, Lon: 127.0473},
	}

	got := FilterByRadius(points, gangnam, 1000, DefaultFallbackLinks)
	require.Len(t, got, 2)
	assert.Equal(t, "here", got[0].LinkID)
	assert.Equal(t, "near", got[1].LinkID)
	assert.InDelta(t, 556, got[1].DistanceM, 2)
}

func TestFilterByRadius_Fallback(t *testing.T) {
	points := []LinkPoint{
		{LinkID: "far", Lat: 37.5672, Lon: 127.0473},
		{LinkID: "near", Lat: 37.5222, Lon: 127.0473},
	}

	got := FilterByRadius(points, gangnam, 100, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "near", got[0].LinkID)

	assert.Empty(t, FilterByRadius(nil, gangnam, 100, 50))
}

func TestSelectTopLinks(t *testing.T) {
	var table SpeedTable
	add := func(id string, n int) {
		for h := n - 1; h >= 0; h-- {
			table = append(table, SpeedRecord{LinkID: id, Label: HourLabel(h), Hour: h, AvgSpeed: 30})
		}
	}
	add("A", 3)
	add("B", 2)
	add("C", 5)

	ids := map[string]struct{}{"A": {}, "B": {}}

	got := SelectTopLinks(table, ids, 1)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"A"}, got.Links())
	assert.Equal(t, 0, got[0].Hour, "result must be sorted by hour")

	assert.Len(t, SelectTopLinks(table, ids, 10), 5)
	assert.Empty(t, SelectTopLinks(table, map[string]struct{}{"Z": {}}, 10))
}

func TestReadLinkPointsCSV(t *testing.T) {
	in := "k_link_id,lat,lon\n" +
		"1000.0,37.5,127.0\n" +
		"0,37.5,127.0\n" +
		"2000,bad,127.0\n"

	points, err := ReadLinkPointsCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []LinkPoint{{LinkID: "1000", Lat: 37.5, Lon: 127.0}}, points)
}
