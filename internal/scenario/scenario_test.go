package scenario

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-6

// =============================================================================
// KPI
// =============================================================================

func TestCalcKPIs_Example(t *testing.T) {
	in := DefaultInput()
	require.NoError(t, in.Validate())

	r := CalcKPIs(in)

	assert.InDelta(t, 70248.25, r.SellableAreaM2, eps)
	assert.InDelta(t, 45.0, r.PredictedCongestionPct, eps)
	assert.InDelta(t, 5.0, r.CongestionImprovementPct, eps)
	assert.InDelta(t, 82.611942, r.Revenue100m, eps)
	assert.InDelta(t, 93.223425, r.TotalCost100m, eps)
	assert.InDelta(t, -10.611483, r.Profit100m, eps)
	assert.InDelta(t, -11.382850394, r.MarginPct, eps)
	assert.InDelta(t, -8.985833666, r.NPV100m, eps)
	assert.Equal(t, 4, r.PaybackYears)
}

func TestCalcKPIs_ZeroYears(t *testing.T) {
	in := DefaultInput()
	in.Years = 0
	require.NoError(t, in.Validate())

	r := CalcKPIs(in)
	assert.InDelta(t, r.Profit100m, r.NPV100m, eps)
	assert.InDelta(t, -10.611483, r.NPV100m, eps)
	assert.Equal(t, 1, r.PaybackYears)
}

func TestCalcKPIs_Profitable(t *testing.T) {
	in := DefaultInput()
	in.SalePricePerM2 = 2000

	r := CalcKPIs(in)
	assert.InDelta(t, 137.68657, r.Revenue100m, eps)
	assert.InDelta(t, 44.463145, r.Profit100m, eps)
	assert.InDelta(t, 47.695249, r.MarginPct, 1e-5)
	assert.InDelta(t, 37.651516310, r.NPV100m, eps)
	// cost / cf = 8.39 → 9년, 사업기간 4년으로 상한
	assert.Equal(t, 4, r.PaybackYears)
}

func TestCalcKPIs_PaybackFloor(t *testing.T) {
	in := DefaultInput()
	in.SalePricePerM2 = 2000
	in.BuildCostPerM2 = 100
	in.InfraInvestBillion = 0

	r := CalcKPIs(in)
	assert.InDelta(t, 110.644733363, r.NPV100m, eps)
	assert.Equal(t, 1, r.PaybackYears)
}

func TestCalcKPIs_BusDoesNotChangeMoney(t *testing.T) {
	a := DefaultInput()
	b := DefaultInput()
	b.BusIncreasePct = 100

	ra, rb := CalcKPIs(a), CalcKPIs(b)
	assert.Equal(t, ra.NPV100m, rb.NPV100m)
	assert.InDelta(t, 50.0/3, rb.PredictedCongestionPct, eps)
	assert.Greater(t, rb.CongestionImprovementPct, ra.CongestionImprovementPct)
}

func TestCalcKPIs_DiscountRateMonotonic(t *testing.T) {
	tests := []struct {
		name string
		seed int64
		sale float64
	}{
		{"loss making", 1, 900},
		{"break even range", 2, 1300},
		{"profitable", 3, 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(tt.seed))

			for trial := 0; trial < 100; trial++ {
				in := DefaultInput()
				in.SalePricePerM2 = tt.sale * (0.8 + rng.Float64()*0.4)
				in.BuildCostPerM2 = 600 + rng.Float64()*600
				in.Years = 1 + rng.Intn(15)

				in.DiscountRate = 0.03
				prev := CalcKPIs(in)
				for pct := 4; pct <= 15; pct++ {
					rate := float64(pct) / 100
					in.DiscountRate = rate
					require.NoError(t, in.Validate())

					r := CalcKPIs(in)
					assert.GreaterOrEqual(t, r.PaybackYears, prev.PaybackYears,
						"trial %d rate %.2f", trial, rate)
					// 할인율이 오르면 NPV 크기는 줄어듦 (부호는 이익 부호)
					assert.LessOrEqual(t, math.Abs(r.NPV100m), math.Abs(prev.NPV100m)+eps)
					prev = r
				}
			}
		})
	}
}

func TestWon10kToWon100m(t *testing.T) {
	assert.InDelta(t, 1.0, Won10kToWon100m(1e6), eps)
	assert.InDelta(t, 0.0012, Won10kToWon100m(1200), eps)
	assert.Equal(t, 0.0, Won10kToWon100m(0))
}

func TestResult_Rounded(t *testing.T) {
	r := Result{
		SellableAreaM2:           70248.25,
		PredictedCongestionPct:   44.95,
		CongestionImprovementPct: 5.04,
		MarginPct:                -11.382850394,
		NPV100m:                  -8.95,
		PaybackYears:             4,
	}

	got := r.Rounded()
	assert.Equal(t, 70248.25, got.SellableAreaM2)
	assert.Equal(t, 45.0, got.PredictedCongestionPct)
	assert.Equal(t, 5.0, got.CongestionImprovementPct)
	assert.Equal(t, -11.4, got.MarginPct)
	assert.Equal(t, -9.0, got.NPV100m)
	assert.Equal(t, 4, got.PaybackYears)
}

// =============================================================================
// Validation
// =============================================================================

func TestInput_Validate(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*Input)
		field string
	}{
		{"households zero", func(in *Input) { in.Households = 0 }, "households"},
		{"unit size negative", func(in *Input) { in.AvgUnitSizePy = -1 }, "avg_unit_size_py"},
		{"sale price zero", func(in *Input) { in.SalePricePerM2 = 0 }, "sale_price_per_m2"},
		{"infra negative", func(in *Input) { in.InfraInvestBillion = -0.1 }, "infra_invest_billion"},
		{"congestion over 100", func(in *Input) { in.CongestionBase = 101 }, "congestion_base"},
		{"bus over 100", func(in *Input) { in.BusIncreasePct = 120 }, "bus_increase_pct"},
		{"non-sale over 0.4", func(in *Input) { in.NonSaleRatio = 0.5 }, "non_sale_ratio"},
		{"sale rate under 0.8", func(in *Input) { in.SaleRate = 0.5 }, "sale_rate"},
		{"discount over 0.15", func(in *Input) { in.DiscountRate = 0.2 }, "discount_rate"},
		{"years negative", func(in *Input) { in.Years = -1 }, "years"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := DefaultInput()
			tt.mut(&in)

			err := in.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))

			var ve ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
			assert.Contains(t, err.Error(), tt.field+": ")
		})
	}
}

func TestInput_ValidateBoundaries(t *testing.T) {
	in := DefaultInput()
	in.NonSaleRatio = 0.4
	in.SaleRate = 0.8
	in.DiscountRate = 0.15
	in.CongestionBase = 0
	in.BusIncreasePct = 100
	in.InfraInvestBillion = 0
	in.Years = 0
	assert.NoError(t, in.Validate())
}

func TestCommon_WithSplit(t *testing.T) {
	in := DefaultInput()
	common, variant := in.Split("A")
	assert.Equal(t, "A", variant.Name)
	assert.Equal(t, in, common.With(variant))
}

// =============================================================================
// Compare / Checklist
// =============================================================================

func basePreset(t *testing.T) Preset {
	t.Helper()
	set, err := DefaultPresets()
	require.NoError(t, err)
	p, err := set.Get("base")
	require.NoError(t, err)
	return p
}

func TestCompare_BasePreset(t *testing.T) {
	p := basePreset(t)

	cmp, err := Compare(context.Background(), p.Common, p.Variants)
	require.NoError(t, err)
	require.Len(t, cmp.Rows, 3)

	assert.Equal(t, []string{"A", "B", "C"}, []string{
		cmp.Rows[0].Variant.Name, cmp.Rows[1].Variant.Name, cmp.Rows[2].Variant.Name,
	})
	assert.InDelta(t, -5.702183515, cmp.Rows[0].Result.NPV100m, eps)
	assert.InDelta(t, -19.211822248, cmp.Rows[1].Result.NPV100m, eps)
	assert.InDelta(t, -0.660572923, cmp.Rows[2].Result.NPV100m, eps)
	assert.InDelta(t, 5.0, cmp.Rows[0].Result.CongestionImprovementPct, eps)
	assert.Equal(t, "C", cmp.Best)

	row, ok := cmp.Row("B")
	require.True(t, ok)
	assert.InDelta(t, 25.0/3, row.Result.CongestionImprovementPct, eps)
}

func TestCompare_Errors(t *testing.T) {
	p := basePreset(t)

	_, err := Compare(context.Background(), p.Common, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	bad := append([]Variant{}, p.Variants...)
	bad[1].SalePricePerM2 = 0
	_, err = Compare(context.Background(), p.Common, bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "variant B")
}

func TestChecklist_BasePreset(t *testing.T) {
	p := basePreset(t)
	cmp, err := Compare(context.Background(), p.Common, p.Variants)
	require.NoError(t, err)

	assert.Equal(t, []string{CheckCiteImprovement, CheckLowMargin, CheckNegativeNPV}, Checklist(cmp))
}

func TestChecklist_SmallImprovementHealthyMargin(t *testing.T) {
	in := DefaultInput()
	in.SalePricePerM2 = 2000
	in.BusIncreasePct = 5
	common, v := in.Split("A")

	cmp, err := Compare(context.Background(), common, []Variant{v})
	require.NoError(t, err)

	assert.Equal(t, []string{CheckStopSimulation}, Checklist(cmp))
	assert.Nil(t, Checklist(Comparison{}))
}

// =============================================================================
// Tornado
// =============================================================================

func TestTornado(t *testing.T) {
	common, base := DefaultInput().Split("base")

	res, err := Tornado(common, base, 15)
	require.NoError(t, err)
	require.Len(t, res.Factors, 4)

	assert.InDelta(t, -8.985833666, res.BaseNPV, eps)
	assert.Equal(t, FactorSale, res.Factors[0].Name)
	assert.Equal(t, FactorCost, res.Factors[1].Name)
	assert.Equal(t, FactorInfra, res.Factors[2].Name)
	assert.Equal(t, FactorBus, res.Factors[3].Name)

	assert.InDelta(t, -19.479237411, res.Factors[0].LowNPV, eps)
	assert.InDelta(t, 1.507570078, res.Factors[0].HighNPV, eps)
	assert.InDelta(t, 20.986807490, res.Factors[0].Swing, eps)
	assert.InDelta(t, 16.061332262, res.Factors[1].Swing, eps)
	assert.InDelta(t, 7.621225327, res.Factors[2].Swing, eps)
	assert.Equal(t, 0.0, res.Factors[3].Swing)
}

func TestTornado_DefaultPct(t *testing.T) {
	common, base := DefaultInput().Split("base")
	res, err := Tornado(common, base, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTornadoPct, res.Pct)
}

// =============================================================================
// Monte Carlo
// =============================================================================

func TestMonteCarlo_Deterministic(t *testing.T) {
	common, base := DefaultInput().Split("base")
	cfg := DefaultMCConfig()

	a, err := MonteCarlo(context.Background(), common, base, cfg)
	require.NoError(t, err)
	b, err := MonteCarlo(context.Background(), common, base, cfg)
	require.NoError(t, err)

	assert.Equal(t, a.NPVs, b.NPVs)
	assert.Equal(t, a.P50, b.P50)
	assert.NotEqual(t, a.RunID, b.RunID)

	assert.Len(t, a.NPVs, DefaultMCRuns)
	assert.LessOrEqual(t, a.P10, a.P50)
	assert.LessOrEqual(t, a.P50, a.P90)
	assert.Greater(t, a.StdDev, 0.0)
	assert.InDelta(t, -8.99, a.Mean, 2.0)
	assert.GreaterOrEqual(t, a.ProbNegative, 0.0)
	assert.LessOrEqual(t, a.ProbNegative, 1.0)

	total := 0
	for _, bin := range a.Histogram {
		total += bin.Count
	}
	assert.Equal(t, DefaultMCRuns, total)
	assert.LessOrEqual(t, len(a.Histogram), DefaultMCBins)
}

func TestMonteCarlo_ConfigNormalization(t *testing.T) {
	common, base := DefaultInput().Split("base")

	res, err := MonteCarlo(context.Background(), common, base, MCConfig{N: 10, Seed: 0})
	require.NoError(t, err)
	assert.Equal(t, MinMCRuns, res.Config.N)
	assert.Equal(t, int64(DefaultMCSeed), res.Config.Seed)

	// σ = 0 → 모든 표본이 기준 NPV
	for _, v := range res.NPVs {
		assert.InDelta(t, -8.985833666, v, eps)
	}
}

func TestMonteCarlo_Cancelled(t *testing.T) {
	common, base := DefaultInput().Split("base")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := MonteCarlo(ctx, common, base, DefaultMCConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// Presets
// =============================================================================

func TestDefaultPresets(t *testing.T) {
	set, err := DefaultPresets()
	require.NoError(t, err)
	assert.Equal(t, []string{"conservative", "base", "aggressive"}, set.Names())

	p, err := set.Get("aggressive")
	require.NoError(t, err)
	assert.Equal(t, 1500, p.Common.Households)
	assert.Equal(t, 3, p.Common.Years)
	assert.Equal(t, 25.0, p.BaseVariant().BusIncreasePct)
	assert.Equal(t, 1350.0, p.BaseInput().SalePricePerM2)

	_, err = set.Get("nope")
	assert.ErrorIs(t, err, ErrPresetNotFound)
}

func TestPresetSet_Hash(t *testing.T) {
	a, err := DefaultPresets()
	require.NoError(t, err)
	b, err := DefaultPresets()
	require.NoError(t, err)

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64)

	b.Presets[0].Common.Households++
	hc, err := b.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}

func TestParsePresets_UnknownField(t *testing.T) {
	data := []byte(`
presets:
  - name: x
    label: X
    typo_field: 1
`)
	_, err := ParsePresets(data)
	assert.Error(t, err)
}

func TestParsePresets_InvalidVariant(t *testing.T) {
	data := []byte(`
presets:
  - name: x
    label: X
    common: {households: 100, avg_unit_size_py: 25, congestion_base: 50, non_sale_ratio: 0.15, sale_rate: 0.98, discount_rate: 0.07, years: 4}
    base_bus_increase_pct: 10
    variants:
      - {name: A, sale_price_per_m2: 1200, build_cost_per_m2: 0, bus_increase_pct: 10, infra_invest_billion: 30}
`)
	_, err := ParsePresets(data)
	require.Error(t, err)

	var ve ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "presets[0].base.build_cost_per_m2", ve.Field)
}

func TestLoadPresets(t *testing.T) {
	set, err := LoadPresets("")
	require.NoError(t, err)
	assert.Len(t, set.Presets, 3)

	path := filepath.Join(t.TempDir(), "presets.yaml")
	require.NoError(t, os.WriteFile(path, defaultPresetsYAML, 0o644))
	fromFile, err := LoadPresets(path)
	require.NoError(t, err)
	assert.Equal(t, set, fromFile)

	_, err = LoadPresets(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
