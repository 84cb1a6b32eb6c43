package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-12)
	assert.InDelta(t, 2.0, Mean([]float64{1, math.NaN(), 3}), 1e-12)
	assert.True(t, math.IsNaN(Mean(nil)))
}

func TestStdDev(t *testing.T) {
	assert.InDelta(t, 1.0, StdDev([]float64{1, 2, 3}), 1e-12)
	assert.Equal(t, 0.0, StdDev([]float64{5}))
}

func TestPercentile(t *testing.T) {
	values := []float64{40, 10, 30, 20}

	tests := []struct {
		name string
		p    float64
		want float64
	}{
		{"min", 0, 10},
		{"max", 100, 40},
		{"median", 50, 25},
		{"p40", 40, 22},
		{"p10", 10, 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Percentile(values, tt.p), 1e-9)
		})
	}
}

func TestPercentile_Empty(t *testing.T) {
	assert.True(t, math.IsNaN(Percentile(nil, 50)))
	assert.True(t, math.IsNaN(Percentile([]float64{math.NaN()}, 50)))
}

func TestPercentiles(t *testing.T) {
	got := Percentiles([]float64{1, 2, 3, 4, 5}, 10, 50, 90)
	assert.InDeltaSlice(t, []float64{1.4, 3, 4.6}, got, 1e-9)
}

func TestClip(t *testing.T) {
	assert.Equal(t, 0.0, Clip(-5, 0, 100))
	assert.Equal(t, 100.0, Clip(120, 0, 100))
	assert.Equal(t, 42.0, Clip(42, 0, 100))
	assert.True(t, math.IsNaN(Clip(math.NaN(), 0, 100)))
}

func TestHistogram(t *testing.T) {
	bins := Histogram([]float64{0, 1, 2, 3, 4, 10}, 5)

	assert.Len(t, bins, 5)
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 6, total)
	assert.Equal(t, 2, bins[0].Count)
	assert.Equal(t, 2, bins[1].Count)
	assert.Equal(t, 0, bins[3].Count)
	assert.Equal(t, 1, bins[4].Count)
}

func TestHistogram_Constant(t *testing.T) {
	bins := Histogram([]float64{7, 7, 7}, 30)
	assert.Equal(t, []Bin{{Lo: 7, Hi: 7, Count: 3}}, bins)
}
