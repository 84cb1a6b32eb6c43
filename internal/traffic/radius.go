package traffic

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
)

const earthRadiusMeters = 6371000.0

// DefaultFallbackLinks 반경 내 링크가 없을 때 사용할 최근접 링크 수
const DefaultFallbackLinks = 50

// Coord WGS84 좌표
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LinkPoint 링크 대표점 (중심점)
type LinkPoint struct {
	LinkID string  `json:"link_id"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// NearbyLink 중심까지 거리가 계산된 링크
type NearbyLink struct {
	LinkPoint
	DistanceM float64 `json:"distance_m"`
}

// Haversine calculates the distance between two points in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaPhi := (lat2 - lat1) * math.Pi / 180
	deltaLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// FilterByRadius 중심 반경(m) 내 링크 (거리 오름차순)
// 반경 내가 비어 있으면 가장 가까운 fallbackN개
func FilterByRadius(points []LinkPoint, center Coord, radiusM float64, fallbackN int) []NearbyLink {
	all := make([]NearbyLink, 0, len(points))
	for _, p := range points {
		all = append(all, NearbyLink{
			LinkPoint: p,
			DistanceM: Haversine(center.Lat, center.Lon, p.Lat, p.Lon),
		})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].DistanceM < all[j].DistanceM })

	n := sort.Search(len(all), func(i int) bool { return all[i].DistanceM > radiusM })
	if n > 0 {
		return all[:n]
	}

	if fallbackN > len(all) {
		fallbackN = len(all)
	}
	if fallbackN < 0 {
		fallbackN = 0
	}
	return all[:fallbackN]
}

// LinkSet 링크 ID 집합
func LinkSet(links []NearbyLink) map[string]struct{} {
	out := make(map[string]struct{}, len(links))
	for _, l := range links {
		out[l.LinkID] = struct{}{}
	}
	return out
}

// SelectTopLinks ids에 속한 링크 중 관측치가 많은 상위 maxLinks개만 유지
// 동률은 link_id 오름차순. 결과는 (link_id, hour) 정렬
func SelectTopLinks(table SpeedTable, ids map[string]struct{}, maxLinks int) SpeedTable {
	matched := table.Filter(ids)
	if len(matched) == 0 || maxLinks <= 0 {
		return SpeedTable{}
	}

	counts := make(map[string]int)
	for _, r := range matched {
		counts[r.LinkID]++
	}

	links := make([]string, 0, len(counts))
	for id := range counts {
		links = append(links, id)
	}
	sort.Slice(links, func(i, j int) bool {
		if counts[links[i]] != counts[links[j]] {
			return counts[links[i]] > counts[links[j]]
		}
		return links[i] < links[j]
	})

	if len(links) > maxLinks {
		links = links[:maxLinks]
	}
	keep := make(map[string]struct{}, len(links))
	for _, id := range links {
		keep[id] = struct{}{}
	}

	return matched.Filter(keep).Sorted()
}

// ReadLinkPointsCSV 링크 중심점 CSV (link_id, lat, lon)
// 좌표가 숫자가 아니거나 ID가 유효하지 않은 행은 제외
func ReadLinkPointsCSV(r io.Reader) ([]LinkPoint, error) {
	rows, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []LinkPoint{}, nil
	}

	idx := headerIndex(rows[0])
	linkCol := CanonicalLinkColumn(rows[0], PreferLev55)
	latCol, okLat := idx["lat"]
	lonCol, okLon := idx["lon"]
	if linkCol < 0 || !okLat || !okLon {
		return nil, fmt.Errorf("%w: link_id, lat, lon required", ErrMissingColumn)
	}

	out := make([]LinkPoint, 0, len(rows)-1)
	for _, row := range rows[1:] {
		id, ok := NormalizeLinkID(cell(row, linkCol))
		if !ok {
			continue
		}
		lat, err1 := strconv.ParseFloat(cell(row, latCol), 64)
		lon, err2 := strconv.ParseFloat(cell(row, lonCol), 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, LinkPoint{LinkID: id, Lat: lat, Lon: lon})
	}
	return out, nil
}

// LoadLinkPoints opens path and calls ReadLinkPointsCSV
func LoadLinkPoints(path string) ([]LinkPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadLinkPointsCSV(f)
}
