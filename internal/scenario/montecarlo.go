package scenario

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/redev/backend/internal/stats"
)

// Monte Carlo 기본값
const (
	DefaultMCRuns     = 1000
	MinMCRuns         = 100
	MaxMCRuns         = 5000
	DefaultSigmaSale  = 7.0   // 분양가 표준편차 (%)
	DefaultSigmaCost  = 5.0   // 공사비 표준편차 (%)
	DefaultMCSeed     = 42
	DefaultMCBins     = 30
	minSampledPriceM2 = 100.0 // 샘플 분양가/공사비 하한 (만원/㎡)
	ctxCheckInterval  = 256
)

// MCConfig Monte Carlo 설정
type MCConfig struct {
	N            int     `json:"n"`
	SigmaSalePct float64 `json:"sigma_sale_pct"`
	SigmaCostPct float64 `json:"sigma_cost_pct"`
	Seed         int64   `json:"seed"`
}

// DefaultMCConfig 기본 설정 (1000회, σ 7%/5%, seed 42)
func DefaultMCConfig() MCConfig {
	return MCConfig{
		N:            DefaultMCRuns,
		SigmaSalePct: DefaultSigmaSale,
		SigmaCostPct: DefaultSigmaCost,
		Seed:         DefaultMCSeed,
	}
}

func (c MCConfig) normalized() MCConfig {
	if c.N < MinMCRuns {
		c.N = MinMCRuns
	}
	if c.N > MaxMCRuns {
		c.N = MaxMCRuns
	}
	if c.SigmaSalePct < 0 {
		c.SigmaSalePct = 0
	}
	if c.SigmaCostPct < 0 {
		c.SigmaCostPct = 0
	}
	if c.Seed == 0 {
		c.Seed = DefaultMCSeed
	}
	return c
}

// MCResult Monte Carlo 결과 (NPV 분포, 억원)
type MCResult struct {
	RunID        string      `json:"run_id"`
	Config       MCConfig    `json:"config"`
	P10          float64     `json:"p10"`
	P50          float64     `json:"p50"`
	P90          float64     `json:"p90"`
	Mean         float64     `json:"mean"`
	StdDev       float64     `json:"std_dev"`
	ProbNegative float64     `json:"prob_negative"` // NPV < 0 비율
	Histogram    []stats.Bin `json:"histogram"`
	NPVs         []float64   `json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
}

// MonteCarlo 분양가·공사비를 정규분포로 샘플링해 NPV 분포 추정
// 같은 seed면 같은 결과 (분양가 표본 전부 → 공사비 표본 순서로 추출)
func MonteCarlo(ctx context.Context, common Common, base Variant, cfg MCConfig) (*MCResult, error) {
	cfg = cfg.normalized()

	in := common.With(base)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	sales := sample(rng, in.SalePricePerM2, in.SalePricePerM2*cfg.SigmaSalePct/100, cfg.N)
	costs := sample(rng, in.BuildCostPerM2, in.BuildCostPerM2*cfg.SigmaCostPct/100, cfg.N)

	npvs := make([]float64, cfg.N)
	negatives := 0
	for i := 0; i < cfg.N; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		x := in
		x.SalePricePerM2 = math.Max(minSampledPriceM2, sales[i])
		x.BuildCostPerM2 = math.Max(minSampledPriceM2, costs[i])
		npvs[i] = CalcKPIs(x).NPV100m
		if npvs[i] < 0 {
			negatives++
		}
	}

	ps := stats.Percentiles(npvs, 10, 50, 90)

	return &MCResult{
		RunID:        uuid.New().String(),
		Config:       cfg,
		P10:          ps[0],
		P50:          ps[1],
		P90:          ps[2],
		Mean:         stats.Mean(npvs),
		StdDev:       stats.StdDev(npvs),
		ProbNegative: float64(negatives) / float64(cfg.N),
		Histogram:    stats.Histogram(npvs, DefaultMCBins),
		NPVs:         npvs,
		CreatedAt:    time.Now(),
	}, nil
}

func sample(rng *rand.Rand, mean, std float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = mean + std*rng.NormFloat64()
	}
	return out
}
