package congestion

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/redev/backend/internal/traffic"
)

func rec(link string, hour int, speed float64) traffic.SpeedRecord {
	return traffic.SpeedRecord{LinkID: link, Label: traffic.HourLabel(hour), Hour: hour, AvgSpeed: speed}
}

func vol(link string, hour int, vehicles float64) traffic.VolumeRecord {
	return traffic.VolumeRecord{LinkID: link, Hour: hour, Vehicles: vehicles}
}

func TestFromSpeed(t *testing.T) {
	table := traffic.SpeedTable{
		rec("A", 0, 60),
		rec("A", 1, 30),
		rec("B", 0, 0.5),
		rec("B", 1, 0),
	}

	points := FromSpeed(table)
	require.Len(t, points, 4)

	assert.Equal(t, 60.0, points[0].FreeFlow)
	assert.InDelta(t, 0, points[0].CongestionPct, 1e-9)
	assert.InDelta(t, 50, points[1].CongestionPct, 1e-9)

	// 자유주행속도 최소 1 km/h
	assert.Equal(t, 1.0, points[2].FreeFlow)
	assert.InDelta(t, 50, points[2].CongestionPct, 1e-9)
	assert.InDelta(t, 100, points[3].CongestionPct, 1e-9)

	for _, p := range points {
		assert.GreaterOrEqual(t, p.CongestionPct, 0.0)
		assert.LessOrEqual(t, p.CongestionPct, 100.0)
	}
}

func TestFromSpeed_SkipsNaN(t *testing.T) {
	table := traffic.SpeedTable{
		rec("A", 0, 60),
		rec("A", 1, math.NaN()),
		rec("A", 2, 15),
	}

	points := FromSpeed(table)
	require.Len(t, points, 2)
	for _, p := range points {
		assert.False(t, math.IsNaN(p.CongestionPct))
		assert.GreaterOrEqual(t, p.CongestionPct, 0.0)
		assert.LessOrEqual(t, p.CongestionPct, 100.0)
	}
	assert.Equal(t, 2, points[1].Hour)
	assert.InDelta(t, 75, points[1].CongestionPct, 1e-9)
}

func TestDaily(t *testing.T) {
	points := FromSpeed(traffic.SpeedTable{
		rec("B", 0, 0.5),
		rec("B", 1, 0),
		rec("A", 0, 60),
		rec("A", 1, 30),
	})

	daily := Daily(points)
	require.Len(t, daily, 2)
	assert.Equal(t, "A", daily[0].LinkID)
	assert.InDelta(t, 25, daily[0].DailyValue, 1e-9)
	assert.Equal(t, 2, daily[0].Observations)
	assert.InDelta(t, 75, daily[1].DailyValue, 1e-9)

	assert.InDelta(t, 50, Overall(points), 1e-9)
	assert.Equal(t, 0.0, Overall(nil))
}

func TestSoft_FixedBoundary(t *testing.T) {
	speed := traffic.SpeedTable{
		rec("A", 8, 30),
		rec("A", 9, 24),
		rec("A", 9, 36),
		rec("B", 8, 50),
	}
	volume := []traffic.VolumeRecord{
		vol("A", 8, 100),
		vol("A", 8, 300),
		vol("A", 9, 100),
		vol("C", 8, 100),
	}

	res := Soft(speed, volume, Boundary{Mode: BoundaryFixed, Value: 30}, 6)

	assert.Equal(t, 30.0, res.Boundary)
	assert.Equal(t, BoundaryFixed, res.Mode)
	assert.Equal(t, 6.0, res.Tau)
	require.Len(t, res.Rows, 2, "B and C have no join partner")

	assert.Equal(t, "A", res.Rows[0].LinkID)
	assert.Equal(t, 8, res.Rows[0].Hour)
	assert.InDelta(t, 50, res.Rows[0].CFI, 1e-9)
	assert.Equal(t, 400.0, res.Rows[0].TotalVehicles)

	// 대칭 속도 24 / 36 → 평균 확률 0.5
	assert.InDelta(t, 50, res.Rows[1].CFI, 1e-9)
}

func TestSoft_PercentileBoundary(t *testing.T) {
	speed := traffic.SpeedTable{rec("A", 0, 10), rec("A", 1, 20), rec("A", 2, 30), rec("A", 3, 40)}
	volume := []traffic.VolumeRecord{vol("A", 0, 1), vol("A", 1, 1), vol("A", 2, 1), vol("A", 3, 1)}

	res := Soft(speed, volume, Boundary{Mode: BoundaryPercentile, Value: 40}, 6)
	assert.InDelta(t, 22, res.Boundary, 1e-9)

	// 백분위는 5~95로 제한
	res = Soft(speed, volume, Boundary{Mode: BoundaryPercentile, Value: 1}, 6)
	assert.InDelta(t, 11.5, res.Boundary, 1e-9)

	res = Soft(speed, volume, Boundary{Mode: BoundaryPercentile, Value: 99}, 6)
	assert.InDelta(t, 38.5, res.Boundary, 1e-9)
}

func TestSoft_TauFloor(t *testing.T) {
	speed := traffic.SpeedTable{rec("A", 0, 10), rec("A", 1, 50)}
	volume := []traffic.VolumeRecord{vol("A", 0, 10), vol("A", 1, 10)}

	res := Soft(speed, volume, Boundary{Mode: BoundaryFixed, Value: 30}, 0)
	assert.Equal(t, 1e-6, res.Tau)
	require.Len(t, res.Rows, 2)
	assert.InDelta(t, 100, res.Rows[0].CFI, 1e-9)
	assert.InDelta(t, 0, res.Rows[1].CFI, 1e-9)
}

func TestSoft_ConvergesToWeighted(t *testing.T) {
	tests := []struct {
		name     string
		seed     int64
		boundary float64
	}{
		{"boundary 20", 1, 20},
		{"boundary 30", 2, 30},
		{"boundary 45", 3, 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(tt.seed))

			var speed traffic.SpeedTable
			var volume []traffic.VolumeRecord
			for _, link := range []string{"A", "B", "C"} {
				for hour := 0; hour < 24; hour++ {
					volume = append(volume, vol(link, hour, 1+rng.Float64()*500))
					for i := 0; i < 3; i++ {
						v := 5 + rng.Float64()*75
						// 경계속도와 같은 속도는 시그모이드가 0.5
						if math.Abs(v-tt.boundary) < 1e-3 {
							continue
						}
						speed = append(speed, rec(link, hour, v))
					}
				}
			}

			b := Boundary{Mode: BoundaryFixed, Value: tt.boundary}
			soft := Soft(speed, volume, b, 1e-9)
			hard := Weighted(speed, volume, tt.boundary)

			require.Len(t, soft.Rows, len(hard))
			for i := range hard {
				assert.Equal(t, hard[i].LinkID, soft.Rows[i].LinkID)
				assert.Equal(t, hard[i].Hour, soft.Rows[i].Hour)
				assert.InDelta(t, hard[i].CFI, soft.Rows[i].CFI, 1e-6)
			}
		})
	}
}

func TestSoft_EmptyJoin(t *testing.T) {
	res := Soft(traffic.SpeedTable{rec("A", 0, 10)}, []traffic.VolumeRecord{vol("B", 0, 10)}, DefaultBoundary(), DefaultTauKmh)

	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)
	assert.True(t, math.IsNaN(res.Boundary))
	assert.Equal(t, BoundaryPercentile, res.Mode)
}

func TestSoft_ZeroVolume(t *testing.T) {
	res := Soft(traffic.SpeedTable{rec("A", 0, 10)}, []traffic.VolumeRecord{vol("A", 0, 0)}, Boundary{Mode: BoundaryFixed, Value: 30}, 6)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 0.0, res.Rows[0].CFI)
}

func TestWeighted(t *testing.T) {
	speed := traffic.SpeedTable{rec("A", 8, 25), rec("A", 9, 40), rec("B", 8, 30)}
	volume := []traffic.VolumeRecord{vol("A", 8, 100), vol("A", 9, 50), vol("B", 8, 0)}

	got := Weighted(speed, volume, DefaultBoundarySpeed)
	require.Len(t, got, 3)

	assert.Equal(t, 100.0, got[0].CFI)
	assert.Equal(t, 100.0, got[0].CongestedVehicles)
	assert.Equal(t, 0.0, got[1].CFI)
	assert.Equal(t, "B", got[2].LinkID)
	assert.Equal(t, 0.0, got[2].CFI, "zero total vehicles")
}

func TestWeightedRobust(t *testing.T) {
	speed := traffic.SpeedTable{rec("A", 8, 25), rec("A", 9, 40), rec("B", 8, 30)}
	volume := []traffic.VolumeRecord{vol("A", 8, 100), vol("A", 9, 50), vol("B", 8, 0)}

	res := WeightedRobust(speed, volume, Boundary{Mode: BoundaryFixed, Value: 30}, 60)
	require.Len(t, res.Rows, 3)

	assert.Equal(t, 30.0, res.Boundary)
	assert.Equal(t, 2, res.Missing)
	assert.False(t, res.Rows[0].Missing)
	assert.Equal(t, 100.0, res.Rows[0].CFI)
	assert.True(t, res.Rows[1].Missing)
	assert.Equal(t, 0.0, res.Rows[1].CFI)
	assert.True(t, res.Rows[2].Missing)

	empty := WeightedRobust(nil, nil, DefaultBoundary(), DefaultMinSamples)
	assert.Empty(t, empty.Rows)
	assert.True(t, math.IsNaN(empty.Boundary))
}

func TestBoundaryValidate(t *testing.T) {
	assert.NoError(t, DefaultBoundary().Validate())
	assert.NoError(t, Boundary{Mode: BoundaryFixed, Value: 30}.Validate())
	assert.ErrorIs(t, Boundary{Mode: "median"}.Validate(), ErrInvalidInput)
}

func TestColors(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		want Color
	}{
		{"green", 29.9, ColorGreen},
		{"yellow lower edge", 30, ColorYellow},
		{"yellow", 69.9, ColorYellow},
		{"red", 70, ColorRed},
		{"nan", math.NaN(), ColorGray},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ColorAbsolute(tt.v))
		})
	}
}

func TestClassify(t *testing.T) {
	daily := []DailyAggregate{
		{LinkID: "A", DailyValue: 1},
		{LinkID: "B", DailyValue: 2},
		{LinkID: "C", DailyValue: 3},
		{LinkID: "D", DailyValue: 4},
	}

	abs := Classify(daily, ColorModeAbsolute)
	for _, c := range abs {
		assert.Equal(t, ColorGreen, c.Color)
	}

	// q30 = 1.9, q70 = 3.1
	rel := Classify(daily, ColorModeRelative)
	assert.Equal(t, ColorGreen, rel[0].Color)
	assert.Equal(t, ColorYellow, rel[1].Color)
	assert.Equal(t, ColorYellow, rel[2].Color)
	assert.Equal(t, ColorRed, rel[3].Color)
}

func TestSoftResult_JSONNaN(t *testing.T) {
	res := Soft(nil, nil, DefaultBoundary(), DefaultTauKmh)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rows":[],"boundary":null,"mode":"percentile","tau":6}`, string(b))
}
