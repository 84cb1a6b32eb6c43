package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/redev/backend/internal/traffic"
)

// normalizeCmd represents the normalize command
var normalizeCmd = &cobra.Command{
	Use:   "normalize [source] [out.csv]",
	Short: "링크 속도 보고서 → 정규화 CSV",
	Long: `원본 속도 보고서(xlsx/csv/html)를 (link_id, 시간대, 평균속도) CSV로 변환합니다.

출력이 없거나 원본이 더 새로울 때만 재생성하며, --force로 강제할 수 있습니다.
인자를 생략하면 TRAFFIC_XLSX_PATH → TRAFFIC_CSV_PATH를 사용합니다.

Example:
  go run ./cmd/redev normalize
  go run ./cmd/redev normalize "data/AverageSpeed(LINK).xlsx" data/speed.csv --force
  go run ./cmd/redev normalize report.xlsx --prefer its --sheet 2023`,
	Args: cobra.MaximumNArgs(2),
	RunE: runNormalize,
}

var (
	normalizeForce  bool
	normalizePrefer string
	normalizeSheet  string
)

func init() {
	rootCmd.AddCommand(normalizeCmd)

	normalizeCmd.Flags().BoolVar(&normalizeForce, "force", false, "출력 파일이 최신이어도 재생성")
	normalizeCmd.Flags().StringVar(&normalizePrefer, "prefer", "", "링크 ID 우선 컬럼 (lev55|its, 기본: LINK_ID_PREFER)")
	normalizeCmd.Flags().StringVar(&normalizeSheet, "sheet", "", "xlsx 시트 이름 (기본: 첫 시트)")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	src, dst := a.cfg.Data.TrafficXLSX, a.cfg.Data.TrafficCSV
	if len(args) > 0 {
		src = args[0]
	}
	if len(args) > 1 {
		dst = args[1]
	}

	prefer := normalizePrefer
	if prefer == "" {
		prefer = a.cfg.Traffic.LinkIDPrefer
	}

	timer := a.metrics.TimeAnalysis("normalize")
	start := time.Now()

	regenerated, err := traffic.EnsureSpeedCSV(src, dst, traffic.EnsureOptions{
		NormalizeOptions: traffic.NormalizeOptions{Prefer: prefer, Sheet: normalizeSheet},
		Force:            normalizeForce,
	})
	timer.ObserveDuration()
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}

	if !regenerated {
		PrintInfo(fmt.Sprintf("%s is up to date (use --force to regenerate)", dst))
		return nil
	}

	table, err := traffic.LoadSpeedCSV(dst)
	if err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("Wrote %s in %s", dst, time.Since(start).Round(time.Millisecond)))
	PrintKeyValue("Source", src, 8)
	PrintKeyValue("Rows", fmt.Sprintf("%d", len(table)), 8)
	PrintKeyValue("Links", fmt.Sprintf("%d", len(table.Links())), 8)
	return nil
}
