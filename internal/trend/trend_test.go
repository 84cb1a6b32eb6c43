package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/redev/backend/internal/congestion"
)

func pt(link string, hour int, pct float64) congestion.Point {
	return congestion.Point{LinkID: link, Hour: hour, CongestionPct: pct}
}

func TestDegreeFor(t *testing.T) {
	tests := []struct {
		hours int
		want  int
	}{
		{0, 0}, {1, 0}, {2, 1}, {3, 2}, {4, 3}, {24, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DegreeFor(tt.hours), "hours=%d", tt.hours)
	}
}

func TestPolyFit_ExactQuadratic(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4}
	y := make([]float64, len(x))
	for i, xi := range x {
		y[i] = 1 + 2*xi + 3*xi*xi
	}

	coeffs, err := PolyFit(x, y, 2)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 2, 3}, coeffs, 1e-8)
	assert.InDelta(t, 1+2*10+3*100, PolyEval(coeffs, 10), 1e-6)
}

func TestPolyFit_LeastSquaresLine(t *testing.T) {
	coeffs, err := PolyFit([]float64{0, 1, 2}, []float64{0, 2, 1}, 1)
	require.NoError(t, err)
	// 평균 x=1, y=1, 기울기 0.5
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, coeffs, 1e-9)
}

func TestPolyFit_Invalid(t *testing.T) {
	_, err := PolyFit([]float64{1, 2}, []float64{1}, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = PolyFit([]float64{1}, []float64{1}, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestHourlyStats(t *testing.T) {
	stats := HourlyStats([]congestion.Point{
		pt("A", 9, 10), pt("B", 9, 20), pt("C", 9, 30), pt("D", 9, 40),
		pt("A", 8, 50),
	})

	require.Len(t, stats, 2)
	assert.Equal(t, 8, stats[0].Hour)
	assert.Equal(t, 50.0, stats[0].Mean)

	assert.Equal(t, 9, stats[1].Hour)
	assert.InDelta(t, 25, stats[1].Mean, 1e-9)
	assert.InDelta(t, 17.5, stats[1].P25, 1e-9)
	assert.InDelta(t, 32.5, stats[1].P75, 1e-9)
	assert.Equal(t, 4, stats[1].Count)
}

func TestHouseholdRatio(t *testing.T) {
	assert.InDelta(t, 1.2, HouseholdRatio(1200, 1000), 1e-12)
	assert.Equal(t, 1200.0, HouseholdRatio(1200, 0))
}

func TestSensitivity(t *testing.T) {
	assert.Equal(t, 0.75, Sensitivity("강남구"))
	assert.Equal(t, DefaultSensitivity, Sensitivity("수원시"))

	table := SensitivityTable()
	assert.Len(t, table, 25)
	for gu, eta := range table {
		assert.GreaterOrEqual(t, eta, 0.5, gu)
		assert.LessOrEqual(t, eta, 0.75, gu)
	}
}

func TestDawnWeights(t *testing.T) {
	hours := make([]int, 24)
	for h := range hours {
		hours[h] = h
	}
	w := DawnWeights(hours, DefaultDawnParams())

	assert.InDelta(t, 0.2, w[0], 1e-3)
	assert.InDelta(t, 1.0, w[23], 1e-6)
	for h := 1; h < 24; h++ {
		assert.Greater(t, w[h], w[h-1])
	}
}

func TestProjectValue(t *testing.T) {
	tests := []struct {
		name            string
		base, w, eta, r float64
		want            float64
	}{
		{"growth", 50, 1, 0.6, 1.2, 100 * (1 - 0.5/1.12)},
		{"no growth", 42, 1, 0.6, 1.0, 42},
		{"shrink clipped", 0, 1, 0.6, 0.5, 0},
		{"negative denominator", 10, 1, 1, -1, 100},
		{"zero denominator", 50, 1, 1, 0, 0},
		{"tiny positive denominator", 50, 1, 1, 1e-9, 0},
		{"zero denominator full congestion", 100, 1, 1, 0, 100},
		{"full congestion", 100, 1, 0.6, 1.2, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ProjectValue(tt.base, tt.w, tt.eta, tt.r), 1e-9)
		})
	}
}

func TestProject_Bounds(t *testing.T) {
	after := Project([]float64{0, 50, 100}, []float64{1, 1, 1}, 0.6, 1.2)
	require.Len(t, after, 3)
	for _, v := range after {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}

	assert.Len(t, Project([]float64{1, 2, 3}, []float64{1}, 0.6, 1.2), 1)
}

func TestFitAndProject(t *testing.T) {
	points := []congestion.Point{
		pt("A", 7, 40), pt("B", 7, 40),
		pt("A", 8, 40), pt("B", 8, 40),
		pt("A", 9, 40), pt("B", 9, 40),
	}

	curve, err := FitAndProject(points, ProjectionInput{
		Gu:                 "강남구",
		PlannedHouseholds:  1500,
		ExistingHouseholds: 1000,
	})
	require.NoError(t, err)
	require.Len(t, curve.Rows, 24)

	assert.Equal(t, 2, curve.Degree)
	assert.Equal(t, 0.75, curve.Eta)
	assert.InDelta(t, 1.5, curve.Ratio, 1e-12)

	for h, row := range curve.Rows {
		assert.Equal(t, h, row.Hour)
		assert.InDelta(t, 40, row.Base, 1e-6)
		assert.GreaterOrEqual(t, row.After, row.Base-1e-9)
		assert.LessOrEqual(t, row.After, 100.0)
		assert.Equal(t, h >= 7 && h <= 9, row.Observed)
	}

	// 낮 시간대는 새벽보다 영향이 큼
	assert.Greater(t, curve.Rows[18].After, curve.Rows[2].After)
}

func TestFitAndProject_SingleHourIsConstant(t *testing.T) {
	eta := 0.5
	curve, err := FitAndProject([]congestion.Point{pt("A", 8, 30), pt("B", 8, 50)}, ProjectionInput{
		Eta:                &eta,
		PlannedHouseholds:  1000,
		ExistingHouseholds: 1000,
	})
	require.NoError(t, err)
	require.Len(t, curve.Rows, 24)

	assert.Equal(t, 0, curve.Degree)
	for _, row := range curve.Rows {
		assert.InDelta(t, 40, row.Base, 1e-9)
		assert.InDelta(t, 40, row.After, 1e-9, "r = 1 leaves the curve unchanged")
	}
	assert.InDelta(t, 35, curve.Rows[8].P25, 1e-9)
	assert.InDelta(t, 45, curve.Rows[8].P75, 1e-9)
	assert.Equal(t, curve.Rows[0].Base, curve.Rows[0].P25, "unobserved hours use the fitted value")
}

func TestFitAndProject_Empty(t *testing.T) {
	curve, err := FitAndProject(nil, ProjectionInput{})
	require.NoError(t, err)
	assert.Empty(t, curve.Rows)
}
