package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/redev/backend/internal/scenario"
	"github.com/wonny/redev/backend/internal/store"
)

// scenarioCmd represents the scenario command
var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "사업성 시나리오 계산",
	Long: `프리셋(conservative|base|aggressive) 또는 JSON 입력으로 사업성을 계산합니다.

Subcommands:
  kpis        - 단일 시나리오 KPI
  compare     - A/B/C 비교 + 체크리스트
  tornado     - NPV 민감도 (±pct)
  montecarlo  - 분양가/공사비 불확실성 NPV 분포

Example:
  go run ./cmd/redev scenario kpis --preset base
  go run ./cmd/redev scenario kpis --input input.json --json
  go run ./cmd/redev scenario montecarlo --n 2000 --seed 7`,
}

var (
	scenarioPreset string
	scenarioInput  string
	scenarioSave   bool

	tornadoPct float64

	mcN         int
	mcSeed      int64
	mcSigmaSale float64
	mcSigmaCost float64
)

func init() {
	rootCmd.AddCommand(scenarioCmd)

	scenarioCmd.PersistentFlags().StringVar(&scenarioPreset, "preset", "base", "프리셋 이름")
	scenarioCmd.PersistentFlags().StringVar(&scenarioInput, "input", "", "Input JSON 파일 (지정 시 프리셋 기준 시나리오 대신 사용)")
	scenarioCmd.PersistentFlags().BoolVar(&scenarioSave, "save", false, "실행 이력 저장 (DATABASE_URL 필요)")

	kpisCmd := &cobra.Command{Use: "kpis", Short: "단일 시나리오 KPI", RunE: runKPIs}
	compareCmd := &cobra.Command{Use: "compare", Short: "A/B/C 시나리오 비교", RunE: runCompare}
	tornadoCmd := &cobra.Command{Use: "tornado", Short: "NPV 민감도", RunE: runTornado}
	mcCmd := &cobra.Command{Use: "montecarlo", Short: "NPV Monte Carlo", RunE: runMonteCarlo}

	tornadoCmd.Flags().Float64Var(&tornadoPct, "pct", scenario.DefaultTornadoPct, "변동폭 (%)")

	def := scenario.DefaultMCConfig()
	mcCmd.Flags().IntVar(&mcN, "n", def.N, "표본 수 (100~5000)")
	mcCmd.Flags().Int64Var(&mcSeed, "seed", def.Seed, "난수 seed")
	mcCmd.Flags().Float64Var(&mcSigmaSale, "sigma-sale", def.SigmaSalePct, "분양가 표준편차 (%)")
	mcCmd.Flags().Float64Var(&mcSigmaCost, "sigma-cost", def.SigmaCostPct, "공사비 표준편차 (%)")

	scenarioCmd.AddCommand(kpisCmd, compareCmd, tornadoCmd, mcCmd)
}

// loadScenario 프리셋과 (선택) 입력 파일
func loadScenario(a *app) (scenario.Preset, scenario.Input, error) {
	set, err := a.presets()
	if err != nil {
		return scenario.Preset{}, scenario.Input{}, err
	}
	preset, err := set.Get(scenarioPreset)
	if err != nil {
		return scenario.Preset{}, scenario.Input{}, fmt.Errorf("%w (available: %s)", err, strings.Join(set.Names(), ", "))
	}

	in := preset.BaseInput()
	if scenarioInput != "" {
		data, err := os.ReadFile(scenarioInput)
		if err != nil {
			return scenario.Preset{}, scenario.Input{}, fmt.Errorf("read input: %w", err)
		}
		// 파일에 없는 필드는 프리셋 값 유지
		if err := json.Unmarshal(data, &in); err != nil {
			return scenario.Preset{}, scenario.Input{}, fmt.Errorf("parse input: %w", err)
		}
	}
	return preset, in, nil
}

// saveRun --save일 때만 저장
func saveRun(ctx context.Context, a *app, kind string, input, result interface{}) {
	if !scenarioSave {
		return
	}
	runs := a.runStore()
	if runs == nil {
		PrintWarning("DATABASE_URL not set, run not saved")
		return
	}

	run, err := store.NewRun(kind, scenarioPreset, input, result)
	if err == nil {
		err = runs.SaveRun(ctx, run)
	}
	if err != nil {
		PrintError(fmt.Sprintf("save run: %v", err))
		return
	}
	PrintInfo(fmt.Sprintf("Run saved: %s", run.ID))
}

func runKPIs(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	_, in, err := loadScenario(a)
	if err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}

	result := scenario.CalcKPIs(in)
	saveRun(cmd.Context(), a, store.KindKPIs, in, result)

	if jsonOut {
		return PrintJSON(result)
	}

	r := result.Rounded()
	PrintHeader(fmt.Sprintf("KPI (%s)", scenarioPreset))
	w := 16
	PrintKeyValue("분양면적(㎡)", f1(r.SellableAreaM2), w)
	PrintKeyValue("예상혼잡도(%)", f1(r.PredictedCongestionPct), w)
	PrintKeyValue("혼잡도개선(%p)", f1(r.CongestionImprovementPct), w)
	PrintKeyValue("매출(억원)", f1(r.Revenue100m), w)
	PrintKeyValue("총비용(억원)", f1(r.TotalCost100m), w)
	PrintKeyValue("이익(억원)", f1(r.Profit100m), w)
	PrintKeyValue("마진율(%)", f1(r.MarginPct), w)
	PrintKeyValue("NPV(억원)", f1(r.NPV100m), w)
	PrintKeyValue("회수기간(년)", fmt.Sprintf("%d", r.PaybackYears), w)
	return nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	preset, _, err := loadScenario(a)
	if err != nil {
		return err
	}

	cmp, err := scenario.Compare(cmd.Context(), preset.Common, preset.Variants)
	if err != nil {
		return err
	}
	checklist := scenario.Checklist(cmp)
	saveRun(cmd.Context(), a, store.KindCompare, preset, cmp)

	if jsonOut {
		return PrintJSON(map[string]interface{}{"comparison": cmp, "checklist": checklist})
	}

	PrintHeader(fmt.Sprintf("시나리오 비교 (%s)", preset.Label))
	widths := []int{8, 10, 10, 10, 10, 10, 10}
	PrintTableHeader([]string{"시나리오", "혼잡도(%)", "개선(%p)", "이익", "마진(%)", "NPV", "회수(년)"}, widths)
	for _, row := range cmp.Rows {
		r := row.Result.Rounded()
		name := row.Variant.Name
		if name == cmp.Best {
			name += " ★"
		}
		PrintTableRow([]string{
			name, f1(r.PredictedCongestionPct), f1(r.CongestionImprovementPct),
			f1(r.Profit100m), f1(r.MarginPct), f1(r.NPV100m), fmt.Sprintf("%d", r.PaybackYears),
		}, widths)
	}

	if len(checklist) > 0 {
		fmt.Println("\n체크리스트:")
		PrintList(checklist)
	}
	return nil
}

func runTornado(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	_, in, err := loadScenario(a)
	if err != nil {
		return err
	}

	common, base := in.Split("base")
	result, err := scenario.Tornado(common, base, tornadoPct)
	if err != nil {
		return err
	}
	saveRun(cmd.Context(), a, store.KindTornado, in, result)

	if jsonOut {
		return PrintJSON(result)
	}

	PrintHeader(fmt.Sprintf("NPV 민감도 ±%.0f%% (기준 NPV %s억)", result.Pct, f1(result.BaseNPV)))
	widths := []int{10, 12, 12, 10}
	PrintTableHeader([]string{"요인", "하한 NPV", "상한 NPV", "Swing"}, widths)
	for _, f := range result.Factors {
		PrintTableRow([]string{f.Name, f1(f.LowNPV), f1(f.HighNPV), f1(f.Swing)}, widths)
	}
	return nil
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	_, in, err := loadScenario(a)
	if err != nil {
		return err
	}

	cfg := scenario.MCConfig{N: mcN, Seed: mcSeed, SigmaSalePct: mcSigmaSale, SigmaCostPct: mcSigmaCost}
	common, base := in.Split("base")

	timer := a.metrics.TimeAnalysis("montecarlo")
	result, err := scenario.MonteCarlo(cmd.Context(), common, base, cfg)
	timer.ObserveDuration()
	if err != nil {
		return err
	}
	saveRun(cmd.Context(), a, store.KindMonteCarlo, in, result)

	if jsonOut {
		return PrintJSON(result)
	}

	PrintHeader(fmt.Sprintf("Monte Carlo NPV (N=%d, seed=%d)", result.Config.N, result.Config.Seed))
	w := 10
	PrintKeyValue("P10", f1(result.P10), w)
	PrintKeyValue("P50", f1(result.P50), w)
	PrintKeyValue("P90", f1(result.P90), w)
	PrintKeyValue("평균", f1(result.Mean), w)
	PrintKeyValue("표준편차", f1(result.StdDev), w)
	PrintKeyValue("P(NPV<0)", fmt.Sprintf("%.1f%%", result.ProbNegative*100), w)
	return nil
}
