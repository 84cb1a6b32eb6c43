package congestion

import (
	"math"
	"sort"

	"github.com/wonny/redev/backend/internal/stats"
	"github.com/wonny/redev/backend/internal/traffic"
)

// FromSpeed 평균속도 → 혼잡도(%)
// 자유주행속도 ff = 링크별 최대속도 (최소 1),
// pct = (1 - min(1, v/ff)) * 100, 속도가 NaN인 행은 제외
func FromSpeed(table traffic.SpeedTable) []Point {
	freeFlow := make(map[string]float64)
	for _, r := range table {
		if math.IsNaN(r.AvgSpeed) {
			continue
		}
		if cur, ok := freeFlow[r.LinkID]; !ok || r.AvgSpeed > cur {
			freeFlow[r.LinkID] = r.AvgSpeed
		}
	}

	out := make([]Point, 0, len(table))
	for _, r := range table {
		if math.IsNaN(r.AvgSpeed) {
			continue
		}
		ff := math.Max(freeFlow[r.LinkID], minFreeFlow)
		pct := (1 - math.Min(1, r.AvgSpeed/ff)) * 100

		out = append(out, Point{
			LinkID:        r.LinkID,
			Hour:          r.Hour,
			Speed:         r.AvgSpeed,
			FreeFlow:      ff,
			CongestionPct: stats.Clip(pct, 0, 100),
		})
	}
	return out
}

// Daily 링크별 일평균 혼잡도 (link_id 오름차순)
func Daily(points []Point) []DailyAggregate {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, p := range points {
		if math.IsNaN(p.CongestionPct) {
			continue
		}
		sums[p.LinkID] += p.CongestionPct
		counts[p.LinkID]++
	}

	out := make([]DailyAggregate, 0, len(sums))
	for id, sum := range sums {
		out = append(out, DailyAggregate{
			LinkID:       id,
			DailyValue:   sum / float64(counts[id]),
			Observations: counts[id],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LinkID < out[j].LinkID })
	return out
}

// Overall 전체 관측치 평균 혼잡도 (없으면 0)
func Overall(points []Point) float64 {
	values := make([]float64, 0, len(points))
	for _, p := range points {
		values = append(values, p.CongestionPct)
	}
	m := stats.Mean(values)
	if math.IsNaN(m) {
		return 0
	}
	return m
}
