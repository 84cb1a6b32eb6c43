package scenario

import "math"

// 체크리스트 기준
const (
	ImprovementCiteThreshold = 5.0  // 혼잡도 개선 Δ 근거 제시 기준 (%p)
	LowMarginThreshold       = 10.0 // 마진율 경고 기준 (%)
)

// 체크리스트 문구
const (
	CheckCiteImprovement = "• 교통영향평가 협의 시, **혼잡도 개선 Δ≥5%** 근거 제시 (버스 증편 + 노선 최적화)"
	CheckStopSimulation  = "• 혼잡도 개선이 작음 → **정류장 위치/환승편의** 시뮬레이션 보완 권고"
	CheckLowMargin       = "• 마진율 낮음 → 공사비 단가/평형 믹스/비분양 비율 재검토 권고"
	CheckNegativeNPV     = "• NPV 음수 → 분양가 산정 재검토 또는 인프라 투자 축소 필요"
)

// Checklist 인허가·사업성 점검 항목
// 판정은 표시값(소수 첫째 자리 반올림) 기준. 혼잡도 판정은 첫 번째 시나리오(A)
func Checklist(c Comparison) []string {
	if len(c.Rows) == 0 {
		return nil
	}

	items := make([]string, 0, 3)

	first := c.Rows[0].Result.Rounded()
	if first.CongestionImprovementPct >= ImprovementCiteThreshold {
		items = append(items, CheckCiteImprovement)
	} else {
		items = append(items, CheckStopSimulation)
	}

	maxMargin, maxNPV := math.Inf(-1), math.Inf(-1)
	for _, r := range c.Rows {
		rounded := r.Result.Rounded()
		maxMargin = math.Max(maxMargin, rounded.MarginPct)
		maxNPV = math.Max(maxNPV, rounded.NPV100m)
	}

	if maxMargin < LowMarginThreshold {
		items = append(items, CheckLowMargin)
	}
	if maxNPV < 0 {
		items = append(items, CheckNegativeNPV)
	}

	return items
}
