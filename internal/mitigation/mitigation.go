package mitigation

import (
	"math"

	"github.com/wonny/redev/backend/internal/stats"
)

// ReliefDenominator 버스 증편 선형 완화 계수
// ⭐ SSOT: 증편률 b% 는 혼잡도를 (1 - b/150) 배로 낮춤. 시나리오 엔진과 공유
const ReliefDenominator = 150.0

// MaxBusIncrease 증편률 상한 (%)
const MaxBusIncrease = 100.0

const (
	minAfter       = 1e-6
	checkTolerance = 1e-9
)

// Relieve 증편률 b% 적용 후 혼잡도 (0 미만 없음)
func Relieve(congestion, busPct float64) float64 {
	return math.Max(0, congestion*(1-busPct/ReliefDenominator))
}

// Caps base + extraMargin (짧은 쪽 길이 기준)
func Caps(base []float64, extraMargin float64) []float64 {
	out := make([]float64, len(base))
	for i, b := range base {
		out[i] = b + extraMargin
	}
	return out
}

// MinBusIncreaseToCap 모든 시간대에서 after × (1 - b/150) ≤ base + margin 을
// 만족하는 최소 균일 증편률 b (0~100)
// b = 150 · max_h max(0, 1 - cap(h) / max(after(h), 1e-6))
func MinBusIncreaseToCap(after, base []float64, extraMargin float64) float64 {
	n := len(after)
	if len(base) < n {
		n = len(base)
	}

	worst := 0.0
	for i := 0; i < n; i++ {
		limit := base[i] + extraMargin
		need := 1 - limit/math.Max(after[i], minAfter)
		if need > worst {
			worst = need
		}
	}

	return stats.Clip(ReliefDenominator*worst, 0, MaxBusIncrease)
}

// Check 증편률 b 적용 시 모든 시간대가 cap 이하인지 검증
func Check(after, base []float64, extraMargin, busPct float64) bool {
	n := len(after)
	if len(base) < n {
		n = len(base)
	}

	for i := 0; i < n; i++ {
		limit := base[i] + extraMargin
		if after[i]*(1-busPct/ReliefDenominator) > limit+checkTolerance*math.Max(1, math.Abs(limit)) {
			return false
		}
	}
	return true
}

// Plan 완화안 계산 결과
type Plan struct {
	BusIncreasePct float64   `json:"bus_increase_pct"`
	Feasible       bool      `json:"feasible"` // 100% 상한 내에서 cap 충족 여부
	Relieved       []float64 `json:"relieved"`
	Caps           []float64 `json:"caps"`
}

// Solve 최소 증편률과 완화 후 곡선
func Solve(after, base []float64, extraMargin float64) Plan {
	b := MinBusIncreaseToCap(after, base, extraMargin)

	n := len(after)
	if len(base) < n {
		n = len(base)
	}
	relieved := make([]float64, n)
	for i := 0; i < n; i++ {
		relieved[i] = Relieve(after[i], b)
	}

	return Plan{
		BusIncreasePct: b,
		Feasible:       Check(after, base, extraMargin, b),
		Relieved:       relieved,
		Caps:           Caps(base[:n], extraMargin),
	}
}
