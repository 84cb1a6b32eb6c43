package scenario

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/wonny/redev/backend/internal/mitigation"
)

// ⭐ SSOT: 단위 환산 상수
const (
	// PyeongToM2 1평 = 3.3058㎡
	PyeongToM2 = 3.3058

	// minCashFlow 회수기간 계산 시 0 나눗셈 방지
	minCashFlow = 1e-6
)

// Won10kToWon100m 만원 → 억원 환산 체인 (/1e4, /100)
// 매출·공사비 금액에 동일하게 적용되므로 시나리오 간 비교는 영향 없음
func Won10kToWon100m(v float64) float64 {
	return v / 1e4 / 100
}

// Result 사업성 KPI (억원, %)
type Result struct {
	SellableAreaM2           float64 `json:"sellable_area_m2"`
	PredictedCongestionPct   float64 `json:"predicted_congestion_pct"`
	CongestionImprovementPct float64 `json:"congestion_improvement_pct"`
	Revenue100m              float64 `json:"revenue_100m"`
	TotalCost100m            float64 `json:"total_cost_100m"`
	Profit100m               float64 `json:"profit_100m"`
	MarginPct                float64 `json:"margin_pct"`
	NPV100m                  float64 `json:"npv_100m"`
	PaybackYears             int     `json:"payback_years"`
}

// CalcKPIs 분양면적 → 매출/비용 → 이익/마진 → NPV/회수기간
// 검증은 호출자 책임 (Validate)
func CalcKPIs(in Input) Result {
	households := float64(in.Households)

	sellable := households * in.AvgUnitSizePy * PyeongToM2 * (1 - in.NonSaleRatio)
	predicted := mitigation.Relieve(in.CongestionBase, in.BusIncreasePct)
	improvement := math.Max(0, in.CongestionBase-predicted)

	revenue := Won10kToWon100m(sellable*in.SalePricePerM2*in.SaleRate)
	cost := Won10kToWon100m(sellable*in.BuildCostPerM2) + in.InfraInvestBillion
	profit := revenue - cost

	margin := 0.0
	if cost > 0 {
		margin = profit / cost * 100
	}

	npv, payback := discount(profit, cost, in.DiscountRate, in.Years)

	return Result{
		SellableAreaM2:           sellable,
		PredictedCongestionPct:   predicted,
		CongestionImprovementPct: improvement,
		Revenue100m:              revenue,
		TotalCost100m:            cost,
		Profit100m:               profit,
		MarginPct:                margin,
		NPV100m:                  npv,
		PaybackYears:             payback,
	}
}

// discount 이익을 사업기간에 균등 배분한 현금흐름의 NPV와 회수기간
// years == 0: 할인 없이 NPV = 이익, 회수기간 1년
func discount(profit, cost, rate float64, years int) (float64, int) {
	if years <= 0 {
		return profit, 1
	}

	cf := profit / float64(years)
	npv := 0.0
	for t := 1; t <= years; t++ {
		npv += cf / math.Pow(1+rate, float64(t))
	}

	payback := math.Ceil(cost / math.Max(minCashFlow, cf))
	payback = math.Max(1, payback)
	payback = math.Min(float64(years), payback)

	return npv, int(payback)
}

// Rounded 표시용 소수 첫째 자리 반올림 (0.5 → 올림, 음수는 -0.5 → -1)
// 분양면적은 원값 유지
func (r Result) Rounded() Result {
	out := r
	out.PredictedCongestionPct = round1(r.PredictedCongestionPct)
	out.CongestionImprovementPct = round1(r.CongestionImprovementPct)
	out.Revenue100m = round1(r.Revenue100m)
	out.TotalCost100m = round1(r.TotalCost100m)
	out.Profit100m = round1(r.Profit100m)
	out.MarginPct = round1(r.MarginPct)
	out.NPV100m = round1(r.NPV100m)
	return out
}

func round1(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(1).Float64()
	return f
}
