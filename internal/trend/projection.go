package trend

import (
	"math"
	"sort"

	"github.com/wonny/redev/backend/internal/congestion"
	"github.com/wonny/redev/backend/internal/stats"
)

// HoursPerDay 추세 곡선 길이
const HoursPerDay = 24

// HourStat 시간대별 혼잡도 분포
type HourStat struct {
	Hour  int     `json:"hour"`
	Mean  float64 `json:"mean"`
	P25   float64 `json:"p25"`
	P75   float64 `json:"p75"`
	Count int     `json:"count"`
}

// HourlyStats 시간대별 평균 / 25·75 분위 (hour 오름차순)
func HourlyStats(points []congestion.Point) []HourStat {
	byHour := make(map[int][]float64)
	for _, p := range points {
		if math.IsNaN(p.CongestionPct) {
			continue
		}
		byHour[p.Hour] = append(byHour[p.Hour], p.CongestionPct)
	}

	out := make([]HourStat, 0, len(byHour))
	for h, values := range byHour {
		qs := stats.Percentiles(values, 25, 75)
		out = append(out, HourStat{
			Hour:  h,
			Mean:  stats.Mean(values),
			P25:   qs[0],
			P75:   qs[1],
			Count: len(values),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour < out[j].Hour })
	return out
}

// HouseholdRatio 세대 증가비 r = planned / max(1, existing)
func HouseholdRatio(planned, existing float64) float64 {
	return planned / math.Max(1, existing)
}

// DawnParams 새벽 완화 시그모이드 파라미터
type DawnParams struct {
	MinFactor float64 `json:"min_factor"`
	TurnHour  float64 `json:"turn_hour"`
	K         float64 `json:"k"`
}

// DefaultDawnParams min 0.2, 회복 중심 6.5시, 기울기 1.6
func DefaultDawnParams() DawnParams {
	return DawnParams{MinFactor: 0.2, TurnHour: 6.5, K: 1.6}
}

// DawnWeights 시간대 가중치 w(h)
// w = 1 * (min + (1 - min) / (1 + exp(-k (h - turn))))
func DawnWeights(hours []int, p DawnParams) []float64 {
	out := make([]float64, len(hours))
	for i, h := range hours {
		out[i] = p.MinFactor + (1.0-p.MinFactor)/(1.0+math.Exp(-p.K*(float64(h)-p.TurnHour)))
	}
	return out
}

// ProjectValue 재건축 후 혼잡도
// after = 100 * (1 - (1 - base/100) / (1 + η w (r - 1)))
// 분모가 음수이면 100 (완전 혼잡), 0이면 0+ 극한값
func ProjectValue(base, w, eta, r float64) float64 {
	den := 1 + eta*w*(r-1)
	if den < 0 {
		return 100
	}
	if den == 0 {
		if base >= 100 {
			return 100
		}
		return 0
	}
	return stats.Clip(100*(1-(1-base/100)/den), 0, 100)
}

// Project base 곡선 전체에 ProjectValue 적용 (짧은 쪽 길이 기준)
func Project(base, w []float64, eta, r float64) []float64 {
	n := len(base)
	if len(w) < n {
		n = len(w)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = ProjectValue(base[i], w[i], eta, r)
	}
	return out
}

// ProjectionInput 재건축 시나리오 입력
type ProjectionInput struct {
	Gu                 string      `json:"gu"`
	Eta                *float64    `json:"eta,omitempty"` // nil이면 자치구 테이블
	PlannedHouseholds  float64     `json:"planned_households"`
	ExistingHouseholds float64     `json:"existing_households"`
	Dawn               *DawnParams `json:"dawn,omitempty"`
}

// ResolvedEta η 결정 (명시값 우선)
func (in ProjectionInput) ResolvedEta() float64 {
	if in.Eta != nil {
		return *in.Eta
	}
	return Sensitivity(in.Gu)
}

// ResolvedDawn 새벽 파라미터 (없으면 기본값)
func (in ProjectionInput) ResolvedDawn() DawnParams {
	if in.Dawn != nil {
		return *in.Dawn
	}
	return DefaultDawnParams()
}

// CurveRow 시간대별 추세 / 재건축 후 추정
type CurveRow struct {
	Hour     int     `json:"hour"`
	Base     float64 `json:"base"`
	After    float64 `json:"after"`
	P25      float64 `json:"p25"`
	P75      float64 `json:"p75"`
	Weight   float64 `json:"weight"`
	Observed bool    `json:"observed"`
}

// Curve 24시간 곡선
type Curve struct {
	Rows   []CurveRow `json:"rows"`
	Coeffs []float64  `json:"coeffs"`
	Degree int        `json:"degree"`
	Eta    float64    `json:"eta"`
	Ratio  float64    `json:"ratio"`
}

// Base returns the baseline series
func (c Curve) Base() []float64 {
	out := make([]float64, len(c.Rows))
	for i, r := range c.Rows {
		out[i] = r.Base
	}
	return out
}

// After returns the projected series
func (c Curve) After() []float64 {
	out := make([]float64, len(c.Rows))
	for i, r := range c.Rows {
		out[i] = r.After
	}
	return out
}

// FitAndProject 시간대 평균에 다항식 적합 → 24시간 기준 추세 + 재건축 후 곡선
// 관측이 없는 시간대는 적합식으로 평가하고 분위 밴드는 기준값으로 채움.
// 입력이 비어 있으면 빈 곡선
func FitAndProject(points []congestion.Point, in ProjectionInput) (Curve, error) {
	hourly := HourlyStats(points)
	if len(hourly) == 0 {
		return Curve{Rows: []CurveRow{}}, nil
	}

	x := make([]float64, len(hourly))
	y := make([]float64, len(hourly))
	observed := make(map[int]HourStat, len(hourly))
	for i, s := range hourly {
		x[i] = float64(s.Hour)
		y[i] = s.Mean
		observed[s.Hour] = s
	}

	degree := DegreeFor(len(hourly))
	coeffs, err := PolyFit(x, y, degree)
	if err != nil {
		return Curve{}, err
	}

	hours := make([]int, HoursPerDay)
	for h := range hours {
		hours[h] = h
	}

	eta := in.ResolvedEta()
	r := HouseholdRatio(in.PlannedHouseholds, in.ExistingHouseholds)
	weights := DawnWeights(hours, in.ResolvedDawn())

	rows := make([]CurveRow, HoursPerDay)
	for _, h := range hours {
		base := stats.Clip(PolyEval(coeffs, float64(h)), 0, 100)
		row := CurveRow{
			Hour:   h,
			Base:   base,
			After:  ProjectValue(base, weights[h], eta, r),
			P25:    base,
			P75:    base,
			Weight: weights[h],
		}
		if s, ok := observed[h]; ok {
			row.P25 = stats.Clip(s.P25, 0, 100)
			row.P75 = stats.Clip(s.P75, 0, 100)
			row.Observed = true
		}
		rows[h] = row
	}

	return Curve{Rows: rows, Coeffs: coeffs, Degree: degree, Eta: eta, Ratio: r}, nil
}
