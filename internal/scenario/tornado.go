package scenario

import (
	"math"
	"sort"
)

// DefaultTornadoPct 민감도 분석 기본 변동폭 (%)
const DefaultTornadoPct = 15.0

// Factor names
const (
	FactorSale  = "분양가"
	FactorCost  = "공사비"
	FactorBus   = "버스증편"
	FactorInfra = "인프라"
)

// TornadoFactor 요인 하나의 저/고 NPV
type TornadoFactor struct {
	Name    string  `json:"name"`
	LowNPV  float64 `json:"low_npv_100m"`
	HighNPV float64 `json:"high_npv_100m"`
	Swing   float64 `json:"swing"` // |high - low|
}

// TornadoResult 민감도(토네이도) 분석 결과
type TornadoResult struct {
	BaseNPV float64         `json:"base_npv_100m"`
	Pct     float64         `json:"pct"`
	Factors []TornadoFactor `json:"factors"` // swing 내림차순
}

// Tornado 기준 시나리오에서 요인별 ±pct 변동 시 NPV
// 분양가·공사비·인프라: 배수 변동 (인프라 하한 0)
// 버스증편: ±pct %p, 0~100 클램프 (NPV에는 영향 없음)
func Tornado(common Common, base Variant, pct float64) (TornadoResult, error) {
	if pct <= 0 {
		pct = DefaultTornadoPct
	}

	in := common.With(base)
	if err := in.Validate(); err != nil {
		return TornadoResult{}, err
	}

	npv := func(mut func(*Input)) float64 {
		x := in
		mut(&x)
		return CalcKPIs(x).NPV100m
	}

	lo, hi := 1-pct/100, 1+pct/100

	factors := []TornadoFactor{
		newFactor(FactorSale,
			npv(func(x *Input) { x.SalePricePerM2 = in.SalePricePerM2 * lo }),
			npv(func(x *Input) { x.SalePricePerM2 = in.SalePricePerM2 * hi })),
		newFactor(FactorCost,
			npv(func(x *Input) { x.BuildCostPerM2 = in.BuildCostPerM2 * lo }),
			npv(func(x *Input) { x.BuildCostPerM2 = in.BuildCostPerM2 * hi })),
		newFactor(FactorBus,
			npv(func(x *Input) { x.BusIncreasePct = math.Max(0, in.BusIncreasePct-pct) }),
			npv(func(x *Input) { x.BusIncreasePct = math.Min(100, in.BusIncreasePct+pct) })),
		newFactor(FactorInfra,
			npv(func(x *Input) { x.InfraInvestBillion = math.Max(0, in.InfraInvestBillion*lo) }),
			npv(func(x *Input) { x.InfraInvestBillion = in.InfraInvestBillion * hi })),
	}

	sort.SliceStable(factors, func(i, j int) bool {
		return factors[i].Swing > factors[j].Swing
	})

	return TornadoResult{
		BaseNPV: CalcKPIs(in).NPV100m,
		Pct:     pct,
		Factors: factors,
	}, nil
}

func newFactor(name string, low, high float64) TornadoFactor {
	return TornadoFactor{
		Name:    name,
		LowNPV:  low,
		HighNPV: high,
		Swing:   math.Abs(high - low),
	}
}
