package congestion

import (
	"math"
	"sort"

	"github.com/wonny/redev/backend/internal/stats"
	"github.com/wonny/redev/backend/internal/traffic"
)

type linkHour struct {
	link string
	hour int
}

// joined 속도 × 교통량 inner join 행
type joined struct {
	key      linkHour
	speed    float64
	vehicles float64
}

// join (link_id, hour) inner join. 속도가 NaN인 행은 제외
func join(speed traffic.SpeedTable, volume []traffic.VolumeRecord) []joined {
	byKey := make(map[linkHour][]float64, len(volume))
	for _, v := range volume {
		k := linkHour{link: v.LinkID, hour: ((v.Hour % 24) + 24) % 24}
		byKey[k] = append(byKey[k], v.Vehicles)
	}

	out := make([]joined, 0, len(speed))
	for _, s := range speed {
		if math.IsNaN(s.AvgSpeed) {
			continue
		}
		k := linkHour{link: s.LinkID, hour: s.Hour}
		for _, veh := range byKey[k] {
			out = append(out, joined{key: k, speed: s.AvgSpeed, vehicles: veh})
		}
	}
	return out
}

// resolveBoundary fixed 값 또는 조인된 속도 분포의 백분위(5~95)
func resolveBoundary(rows []joined, b Boundary) float64 {
	if b.Mode != BoundaryPercentile {
		return b.Value
	}

	p := math.Max(minPercentile, math.Min(maxPercentile, b.Value))
	speeds := make([]float64, len(rows))
	for i, r := range rows {
		speeds[i] = r.speed
	}
	return stats.Percentile(speeds, p)
}

// groupKeys (link_id, hour) 순 정렬된 그룹 키
func groupKeys(rows []joined) ([]linkHour, map[linkHour][]joined) {
	groups := make(map[linkHour][]joined)
	for _, r := range rows {
		groups[r.key] = append(groups[r.key], r)
	}

	keys := make([]linkHour, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].link != keys[j].link {
			return keys[i].link < keys[j].link
		}
		return keys[i].hour < keys[j].hour
	})
	return keys, groups
}

// =============================================================================
// Soft CFI
// =============================================================================

// Soft 시그모이드 혼잡확률의 교통량 가중 평균 (혼잡빈도강도 근사)
// p = 1 / (1 + exp((v - vb) / tau)), tau 최소 1e-6
func Soft(speed traffic.SpeedTable, volume []traffic.VolumeRecord, b Boundary, tauKmh float64) SoftResult {
	tau := math.Max(minTau, tauKmh)
	rows := join(speed, volume)

	if len(rows) == 0 {
		return SoftResult{
			Rows:     []CFIPoint{},
			Boundary: math.NaN(),
			Mode:     b.Mode,
			Tau:      tau,
		}
	}

	vb := resolveBoundary(rows, b)
	keys, groups := groupKeys(rows)

	out := make([]CFIPoint, 0, len(keys))
	for _, k := range keys {
		var num, den, total float64
		for _, r := range groups[k] {
			p := 1.0 / (1.0 + math.Exp((r.speed-vb)/tau))
			if math.IsInf(p, 0) || math.IsNaN(p) || math.IsNaN(r.vehicles) || math.IsInf(r.vehicles, 0) || r.vehicles < 0 {
				continue
			}
			num += p * r.vehicles
			den += r.vehicles
			total += r.vehicles
		}

		cfi := 0.0
		if den > 0 {
			cfi = num / math.Max(1e-9, den) * 100
		}

		out = append(out, CFIPoint{
			LinkID:        k.link,
			Hour:          k.hour,
			CFI:           stats.Clip(cfi, 0, 100),
			TotalVehicles: total,
		})
	}

	return SoftResult{Rows: out, Boundary: vb, Mode: b.Mode, Tau: tau}
}

// =============================================================================
// Hard-threshold CFI
// =============================================================================

// Weighted 경계속도 이하 차량 비율(%)
// 전체 차량수가 0이면 0
func Weighted(speed traffic.SpeedTable, volume []traffic.VolumeRecord, boundarySpeed float64) []CFIPoint {
	return weighted(join(speed, volume), boundarySpeed)
}

func weighted(rows []joined, boundarySpeed float64) []CFIPoint {
	keys, groups := groupKeys(rows)

	out := make([]CFIPoint, 0, len(keys))
	for _, k := range keys {
		var total, congested float64
		for _, r := range groups[k] {
			total += r.vehicles
			if r.speed <= boundarySpeed {
				congested += r.vehicles
			}
		}

		cfi := 0.0
		if total > 0 {
			cfi = congested / total * 100
		}

		out = append(out, CFIPoint{
			LinkID:            k.link,
			Hour:              k.hour,
			CFI:               cfi,
			TotalVehicles:     total,
			CongestedVehicles: congested,
		})
	}
	return out
}

// WeightedRobust hard CFI + 백분위 경계 + 최소 표본 기준
// 전체 차량수 < minSamples 인 (link, hour)는 Missing, CFI 0
func WeightedRobust(speed traffic.SpeedTable, volume []traffic.VolumeRecord, b Boundary, minSamples float64) RobustResult {
	rows := join(speed, volume)
	if len(rows) == 0 {
		return RobustResult{Rows: []CFIPoint{}, Boundary: math.NaN(), MinSamples: minSamples}
	}

	vb := resolveBoundary(rows, b)
	points := weighted(rows, vb)

	missing := 0
	for i := range points {
		if points[i].TotalVehicles < minSamples {
			points[i].Missing = true
			points[i].CFI = 0
			missing++
		}
	}

	return RobustResult{Rows: points, Boundary: vb, MinSamples: minSamples, Missing: missing}
}
