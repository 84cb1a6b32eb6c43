package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/redev/backend/internal/scenario"
)

// utf8BOM 엑셀에서 한글 CSV가 깨지지 않도록 앞에 붙임
const utf8BOM = "\ufeff"

// Report 사업성 검토 보고서 내용
type Report struct {
	Title       string
	Preset      string
	Comparison  scenario.Comparison
	Checklist   []string
	Tornado     *scenario.TornadoResult
	MonteCarlo  *scenario.MCResult
	GeneratedAt time.Time
}

// New 비교 결과로 보고서 구성 (체크리스트 포함)
func New(title, preset string, cmp scenario.Comparison) Report {
	return Report{
		Title:       title,
		Preset:      preset,
		Comparison:  cmp,
		Checklist:   scenario.Checklist(cmp),
		GeneratedAt: time.Now(),
	}
}

// csvHeader 시나리오 비교 CSV 컬럼
var csvHeader = []string{
	"시나리오", "분양가(만원/㎡)", "공사비(만원/㎡)", "버스증편(%)", "인프라(억원)",
	"예상혼잡도(%)", "혼잡도개선(%p)", "매출(억원)", "총비용(억원)", "이익(억원)",
	"마진율(%)", "NPV(억원)", "회수기간(년)",
}

// WriteCSV 시나리오 비교표를 UTF-8 BOM CSV로 출력
func WriteCSV(w io.Writer, cmp scenario.Comparison) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, row := range cmp.Rows {
		r := row.Result.Rounded()
		rec := []string{
			row.Variant.Name,
			num(row.Variant.SalePricePerM2),
			num(row.Variant.BuildCostPerM2),
			num(row.Variant.BusIncreasePct),
			num(row.Variant.InfraInvestBillion),
			fixed1(r.PredictedCongestionPct),
			fixed1(r.CongestionImprovementPct),
			fixed1(r.Revenue100m),
			fixed1(r.TotalCost100m),
			fixed1(r.Profit100m),
			fixed1(r.MarginPct),
			fixed1(r.NPV100m),
			strconv.Itoa(r.PaybackYears),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteMarkdown 보고서를 Markdown으로 출력
// 가정 로그 → 시나리오 비교 → 체크리스트 → (민감도, Monte Carlo)
func WriteMarkdown(w io.Writer, r Report) error {
	var b strings.Builder

	title := r.Title
	if title == "" {
		title = "재개발 사업성 검토 보고서"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if !r.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "생성 시각: %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04"))
	}

	// 가정 로그
	c := r.Comparison.Common
	b.WriteString("## 가정\n\n")
	if r.Preset != "" {
		fmt.Fprintf(&b, "- 프리셋: %s\n", r.Preset)
	}
	fmt.Fprintf(&b, "- 세대수: %d\n", c.Households)
	fmt.Fprintf(&b, "- 평균 평형: %s평\n", num(c.AvgUnitSizePy))
	fmt.Fprintf(&b, "- 비분양 비율: %s%%\n", fixed1(c.NonSaleRatio*100))
	fmt.Fprintf(&b, "- 분양률: %s%%\n", fixed1(c.SaleRate*100))
	fmt.Fprintf(&b, "- 할인율: %s%%\n", fixed1(c.DiscountRate*100))
	fmt.Fprintf(&b, "- 사업기간: %d년\n", c.Years)
	fmt.Fprintf(&b, "- 기준 혼잡도: %s%%\n\n", num(c.CongestionBase))

	// 시나리오 비교
	b.WriteString("## 시나리오 비교\n\n")
	b.WriteString("| 시나리오 | 예상혼잡도(%) | 개선(%p) | 매출(억원) | 총비용(억원) | 이익(억원) | 마진율(%) | NPV(억원) | 회수기간(년) |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, row := range r.Comparison.Rows {
		res := row.Result.Rounded()
		name := row.Variant.Name
		if name == r.Comparison.Best {
			name = "**" + name + "**"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s | %d |\n",
			name,
			fixed1(res.PredictedCongestionPct),
			fixed1(res.CongestionImprovementPct),
			fixed1(res.Revenue100m),
			fixed1(res.TotalCost100m),
			fixed1(res.Profit100m),
			fixed1(res.MarginPct),
			fixed1(res.NPV100m),
			res.PaybackYears,
		)
	}
	if r.Comparison.Best != "" {
		fmt.Fprintf(&b, "\nNPV 최대 시나리오: **%s**\n", r.Comparison.Best)
	}

	// 체크리스트
	if len(r.Checklist) > 0 {
		b.WriteString("\n## 체크리스트\n\n")
		for _, item := range r.Checklist {
			b.WriteString(item)
			b.WriteString("\n")
		}
	}

	if r.Tornado != nil {
		fmt.Fprintf(&b, "\n## 민감도 분석 (±%s%%)\n\n", num(r.Tornado.Pct))
		fmt.Fprintf(&b, "기준 NPV: %s억원\n\n", fixed1(r.Tornado.BaseNPV))
		b.WriteString("| 요인 | 하방 NPV | 상방 NPV | 변동폭 |\n")
		b.WriteString("|---|---:|---:|---:|\n")
		for _, f := range r.Tornado.Factors {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				f.Name, fixed1(f.LowNPV), fixed1(f.HighNPV), fixed1(f.Swing))
		}
	}

	if mc := r.MonteCarlo; mc != nil {
		b.WriteString("\n## Monte Carlo\n\n")
		fmt.Fprintf(&b, "- 반복 횟수: %d (σ 분양가 %s%%, σ 공사비 %s%%, seed %d)\n",
			mc.Config.N, num(mc.Config.SigmaSalePct), num(mc.Config.SigmaCostPct), mc.Config.Seed)
		fmt.Fprintf(&b, "- NPV P10 / P50 / P90: %s / %s / %s 억원\n",
			fixed1(mc.P10), fixed1(mc.P50), fixed1(mc.P90))
		fmt.Fprintf(&b, "- NPV < 0 확률: %s%%\n", fixed1(mc.ProbNegative*100))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// fixed1 소수 첫째 자리 고정 표기 (반올림: 0.5 → 올림)
func fixed1(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1)
}

// num 불필요한 소수점 없이 표기 (1200, 24.5)
func num(v float64) string {
	return decimal.NewFromFloat(v).String()
}
