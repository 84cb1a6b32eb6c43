package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/redev/backend/internal/analysis"
	"github.com/wonny/redev/backend/internal/congestion"
	"github.com/wonny/redev/backend/internal/traffic"
	"github.com/wonny/redev/backend/internal/trend"
)

// trendCmd represents the trend command
var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "혼잡 추세 + 재건축 후 추정 + 최소 버스 증편률",
	Long: `선택 영역(자치구 중심 또는 --lat/--lon, 반경)의 링크 속도로
시간대별 혼잡 추세를 적합하고, 세대수 증가에 따른 재건축 후 곡선과
기준선 + margin을 넘지 않기 위한 최소 버스 증편률을 계산합니다.

Example:
  go run ./cmd/redev trend --gu 강남구 --planned 2000 --existing 1000
  go run ./cmd/redev trend --gu 마포구 --lat 37.556 --lon 126.91 --radius 800 --margin 2`,
	RunE: runTrend,
}

var (
	trendGu        string
	trendLat       float64
	trendLon       float64
	trendRadius    float64
	trendMaxLinks  int
	trendColorMode string
	trendPlanned   float64
	trendExisting  float64
	trendEta       float64
	trendMargin    float64
)

func init() {
	rootCmd.AddCommand(trendCmd)

	trendCmd.Flags().StringVar(&trendGu, "gu", "", "자치구 (예: 강남구)")
	trendCmd.Flags().Float64Var(&trendLat, "lat", 0, "중심 위도 (기본: 자치구 중심)")
	trendCmd.Flags().Float64Var(&trendLon, "lon", 0, "중심 경도 (기본: 자치구 중심)")
	trendCmd.Flags().Float64Var(&trendRadius, "radius", 0, "반경 m (기본: TRAFFIC_RADIUS_M)")
	trendCmd.Flags().IntVar(&trendMaxLinks, "max-links", 0, "최대 링크 수 (기본: TRAFFIC_MAX_LINKS)")
	trendCmd.Flags().StringVar(&trendColorMode, "color", string(congestion.ColorModeAbsolute), "색상 모드 (absolute|relative)")
	trendCmd.Flags().Float64Var(&trendPlanned, "planned", 0, "계획 세대수")
	trendCmd.Flags().Float64Var(&trendExisting, "existing", 0, "기존 세대수")
	trendCmd.Flags().Float64Var(&trendEta, "eta", -1, "세대 민감도 η (음수면 자치구 테이블)")
	trendCmd.Flags().Float64Var(&trendMargin, "margin", 0, "완화 목표: 기준 + margin %p")
	trendCmd.MarkFlagRequired("gu")
}

func runTrend(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	req := analysis.TrendRequest{
		Selection: analysis.Selection{
			Gu:        trendGu,
			RadiusM:   trendRadius,
			MaxLinks:  trendMaxLinks,
			ColorMode: congestion.ColorMode(trendColorMode),
		},
		Projection: trend.ProjectionInput{
			Gu:                 trendGu,
			PlannedHouseholds:  trendPlanned,
			ExistingHouseholds: trendExisting,
		},
		ExtraMargin: trendMargin,
	}
	if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
		req.Selection.Center = &traffic.Coord{Lat: trendLat, Lon: trendLon}
	}
	if trendEta >= 0 {
		eta := trendEta
		req.Projection.Eta = &eta
	}

	result, err := a.analysisService().Trend(cmd.Context(), req)
	if err != nil {
		return err
	}

	if jsonOut {
		return PrintJSON(result)
	}

	PrintHeader(fmt.Sprintf("%s 혼잡 추세 (링크 %d개)", trendGu, result.LinkCount))
	if result.Fallback {
		PrintWarning(fmt.Sprintf("반경 내 링크가 없어 최근접 %d개 링크를 사용했습니다", result.LinkCount))
	}
	PrintKeyValue("전체 평균 혼잡도(%)", f1(result.Overall), 20)
	PrintKeyValue("η / 세대 비율", fmt.Sprintf("%.2f / %.2f", result.Curve.Eta, result.Curve.Ratio), 20)
	PrintKeyValue("최소 버스 증편률(%)", f1(result.Mitigation.BusIncreasePct), 20)
	PrintKeyValue("목표 충족", fmt.Sprintf("%v", result.Mitigation.Feasible), 20)
	fmt.Println()

	widths := []int{6, 10, 10, 10}
	PrintTableHeader([]string{"시간", "기준(%)", "재건축후", "완화후"}, widths)
	for i, row := range result.Curve.Rows {
		relieved := "-"
		if i < len(result.Mitigation.Relieved) {
			relieved = f1(result.Mitigation.Relieved[i])
		}
		PrintTableRow([]string{traffic.HourLabel(row.Hour), f1(row.Base), f1(row.After), relieved}, widths)
	}
	return nil
}
