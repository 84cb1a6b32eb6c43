package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wonny/redev/backend/internal/report"
	"github.com/wonny/redev/backend/internal/scenario"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "시나리오 비교 보고서 (Markdown + CSV)",
	Long: `프리셋의 A/B/C 비교, 체크리스트, 민감도, Monte Carlo 결과를
Markdown 보고서와 UTF-8 BOM CSV로 저장합니다.

Example:
  go run ./cmd/redev report --preset base --out reports/`,
	RunE: runReport,
}

var (
	reportPreset string
	reportOut    string
	reportTitle  string
	reportNoMC   bool
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportPreset, "preset", "base", "프리셋 이름")
	reportCmd.Flags().StringVar(&reportOut, "out", "reports", "출력 디렉터리")
	reportCmd.Flags().StringVar(&reportTitle, "title", "재개발 사업성 검토", "보고서 제목")
	reportCmd.Flags().BoolVar(&reportNoMC, "no-montecarlo", false, "Monte Carlo 생략")
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	set, err := a.presets()
	if err != nil {
		return err
	}
	preset, err := set.Get(reportPreset)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	cmp, err := scenario.Compare(ctx, preset.Common, preset.Variants)
	if err != nil {
		return err
	}

	rep := report.New(reportTitle, preset.Name, cmp)

	tornado, err := scenario.Tornado(preset.Common, preset.BaseVariant(), scenario.DefaultTornadoPct)
	if err != nil {
		return err
	}
	rep.Tornado = &tornado

	if !reportNoMC {
		mc, err := scenario.MonteCarlo(ctx, preset.Common, preset.BaseVariant(), scenario.DefaultMCConfig())
		if err != nil {
			return err
		}
		rep.MonteCarlo = mc
	}

	if err := os.MkdirAll(reportOut, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	stamp := rep.GeneratedAt.Format("20060102_150405")
	mdPath := filepath.Join(reportOut, fmt.Sprintf("report_%s_%s.md", preset.Name, stamp))
	csvPath := filepath.Join(reportOut, fmt.Sprintf("scenarios_%s_%s.csv", preset.Name, stamp))

	if err := writeFile(mdPath, func(f *os.File) error { return report.WriteMarkdown(f, rep) }); err != nil {
		return err
	}
	if err := writeFile(csvPath, func(f *os.File) error { return report.WriteCSV(f, cmp) }); err != nil {
		return err
	}

	PrintSuccess("Report written")
	PrintList([]string{mdPath, csvPath})
	return nil
}

func writeFile(path string, fn func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
