package congestion

import (
	"math"

	"github.com/wonny/redev/backend/internal/stats"
)

// Color RGB
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// 색상 팔레트
var (
	ColorGreen  = Color{0, 200, 0}
	ColorYellow = Color{255, 200, 0}
	ColorRed    = Color{255, 0, 0}
	ColorGray   = Color{200, 200, 200}
)

// ColorMode 색상 스케일
type ColorMode string

const (
	ColorModeAbsolute ColorMode = "absolute" // 30 / 70 % 고정 구간
	ColorModeRelative ColorMode = "relative" // 선택 영역 내 30 / 70 분위
)

// ColorAbsolute <30 초록, <70 노랑, 그 외 빨강, NaN 회색
func ColorAbsolute(v float64) Color {
	return ColorRelative(v, 30, 70)
}

// ColorRelative 분위 경계 q30 / q70 기준 색상
func ColorRelative(v, q30, q70 float64) Color {
	switch {
	case math.IsNaN(v):
		return ColorGray
	case v < q30:
		return ColorGreen
	case v < q70:
		return ColorYellow
	default:
		return ColorRed
	}
}

// ColoredLink 색상이 지정된 링크 일평균
type ColoredLink struct {
	DailyAggregate
	Color Color `json:"color"`
}

// Classify 일평균 혼잡도에 색상 지정
// relative 모드는 입력 집합의 30 / 70 분위를 경계로 사용
func Classify(daily []DailyAggregate, mode ColorMode) []ColoredLink {
	q30, q70 := 30.0, 70.0
	if mode == ColorModeRelative {
		values := make([]float64, len(daily))
		for i, d := range daily {
			values[i] = d.DailyValue
		}
		qs := stats.Percentiles(values, 30, 70)
		q30, q70 = qs[0], qs[1]
	}

	out := make([]ColoredLink, len(daily))
	for i, d := range daily {
		out[i] = ColoredLink{DailyAggregate: d, Color: ColorRelative(d.DailyValue, q30, q70)}
	}
	return out
}
