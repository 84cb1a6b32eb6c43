package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// =============================================================================
// 기술 통계
// =============================================================================

// Mean 평균 (NaN 제외)
func Mean(values []float64) float64 {
	clean := DropNaN(values)
	if len(clean) == 0 {
		return math.NaN()
	}
	return stat.Mean(clean, nil)
}

// StdDev 표본 표준편차 (n-1, NaN 제외)
func StdDev(values []float64) float64 {
	clean := DropNaN(values)
	if len(clean) < 2 {
		return 0
	}
	return stat.StdDev(clean, nil)
}

// Percentile 백분위수 (0~100, 선형 보간, NaN 제외)
// 정렬되지 않은 입력도 허용. 비어 있으면 NaN
func Percentile(values []float64, p float64) float64 {
	sorted := sortedCopy(values)
	return PercentileSorted(sorted, p)
}

// Percentiles 여러 백분위수를 한 번의 정렬로 계산
func Percentiles(values []float64, ps ...float64) []float64 {
	sorted := sortedCopy(values)
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = PercentileSorted(sorted, p)
	}
	return out
}

// PercentileSorted 정렬된 슬라이스의 백분위수
// idx = p/100 * (n-1) 위치를 인접 두 값으로 선형 보간
func PercentileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	idx := p / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Clip v를 [lo, hi]로 제한. NaN은 그대로 유지
func Clip(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Max(lo, math.Min(hi, v))
}

// DropNaN NaN을 제외한 새 슬라이스
func DropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func sortedCopy(values []float64) []float64 {
	out := DropNaN(values)
	sort.Float64s(out)
	return out
}

// =============================================================================
// 히스토그램
// =============================================================================

// Bin 히스토그램 구간 [Lo, Hi)
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// Histogram 동일 폭 구간 히스토그램. 마지막 구간은 최대값 포함
func Histogram(values []float64, bins int) []Bin {
	clean := sortedCopy(values)
	if len(clean) == 0 || bins <= 0 {
		return nil
	}

	lo, hi := clean[0], clean[len(clean)-1]
	if hi == lo {
		return []Bin{{Lo: lo, Hi: hi, Count: len(clean)}}
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lo = lo + float64(i)*width
		out[i].Hi = lo + float64(i+1)*width
	}

	for _, v := range clean {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}
