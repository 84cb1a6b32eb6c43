package projects

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"

	"github.com/wonny/redev/backend/internal/traffic"
)

// 좌표 결측 보정
const (
	JitterStdDeg = 0.002 // ≈ 200m
	JitterSeed   = 42
)

// CoordRecord 지오코딩된 단지 좌표 (좌표 CSV 한 행)
type CoordRecord struct {
	ID          string  `json:"apt_id"`
	Name        string  `json:"name"`
	Gu          string  `json:"gu"`
	Address     string  `json:"address"`
	FullAddress string  `json:"full_address"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// Valid 위경도가 모두 유한한지
func (c CoordRecord) Valid() bool {
	return !math.IsNaN(c.Lat) && !math.IsNaN(c.Lon) && !math.IsInf(c.Lat, 0) && !math.IsInf(c.Lon, 0)
}

// Site 좌표가 붙은 단지
type Site struct {
	Project
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	FullAddress    string  `json:"full_address"`
	HasGeo         bool    `json:"has_geo"` // false: 구 중심 + 지터로 보정된 좌표
	AddressDisplay string  `json:"address_display"`
}

// NormalizeCoords 좌표 CSV 행(첫 행 = 헤더) → CoordRecord
// 명칭은 정비구역명칭 → 추진위원회/조합명 → name 순
// 위경도 변환 실패는 NaN
func NormalizeCoords(rows [][]string) []CoordRecord {
	if len(rows) == 0 {
		return nil
	}

	cols := resolveColumns(rows[0])
	out := make([]CoordRecord, 0, len(rows)-1)

	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		out = append(out, CoordRecord{
			ID:          cols.get(row, fieldID),
			Name:        coalesce(cols.get(row, fieldName), cols.get(row, fieldOrgName)),
			Gu:          cols.get(row, fieldGu),
			Address:     coalesce(cols.get(row, fieldLocation), cols.get(row, fieldLotNumber)),
			FullAddress: cols.get(row, fieldFullAddress),
			Lat:         parseCoord(cols.get(row, fieldLat)),
			Lon:         parseCoord(cols.get(row, fieldLon)),
		})
	}
	return out
}

// LoadCoordsCSV 좌표 CSV 로드 (UTF-8/CP949 자동 판별)
func LoadCoordsCSV(path string) ([]CoordRecord, error) {
	rows, err := traffic.ReadCSVFile(path)
	if err != nil {
		return nil, fmt.Errorf("load coords %s: %w", path, err)
	}
	return NormalizeCoords(rows), nil
}

// coordsHeader 좌표 CSV 출력 컬럼 (NormalizeCoords로 다시 읽힘)
var coordsHeader = []string{"사업번호", "정비구역명칭", "자치구", "정비구역위치", "full_address", "lat", "lon"}

// WriteCoordsCSV 좌표 CSV 출력. 좌표 없음은 빈 칸
func WriteCoordsCSV(w io.Writer, records []CoordRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(coordsHeader); err != nil {
		return err
	}
	for _, r := range records {
		lat, lon := "", ""
		if r.Valid() {
			lat = strconv.FormatFloat(r.Lat, 'f', -1, 64)
			lon = strconv.FormatFloat(r.Lon, 'f', -1, 64)
		}
		if err := cw.Write([]string{r.ID, r.Name, r.Gu, r.Address, r.FullAddress, lat, lon}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// MergeCoordinates 자치구 단지에 좌표 결합 (name+gu 기준 left join)
// 좌표가 없는 단지는 구 중심 + N(0, 0.002°) 지터 (seed 42, 위도 전부 → 경도 전부)
// 같은 (name, gu)의 좌표가 여럿이면 유효한 첫 좌표 사용
func MergeCoordinates(projects []Project, coords []CoordRecord, gu string) []Site {
	type key struct{ name, gu string }

	lookup := make(map[key]CoordRecord)
	for _, c := range coords {
		if c.Gu != gu {
			continue
		}
		k := key{c.Name, c.Gu}
		if prev, ok := lookup[k]; ok && (prev.Valid() || !c.Valid()) {
			continue
		}
		lookup[k] = c
	}

	sites := make([]Site, 0)
	missing := make([]int, 0)

	for _, p := range FilterByGu(projects, gu) {
		s := Site{Project: p, Lat: math.NaN(), Lon: math.NaN()}
		if c, ok := lookup[key{p.Name, p.Gu}]; ok {
			s.FullAddress = c.FullAddress
			if c.Valid() {
				s.Lat, s.Lon = c.Lat, c.Lon
				s.HasGeo = true
			}
		}
		if !s.HasGeo {
			missing = append(missing, len(sites))
		}

		s.AddressDisplay = coalesce(s.FullAddress, s.Address)
		sites = append(sites, s)
	}

	if len(missing) > 0 {
		center, _ := GuCenter(gu)
		rng := rand.New(rand.NewSource(JitterSeed))
		for _, i := range missing {
			sites[i].Lat = center.Lat + rng.NormFloat64()*JitterStdDeg
		}
		for _, i := range missing {
			sites[i].Lon = center.Lon + rng.NormFloat64()*JitterStdDeg
		}
	}

	return sites
}

// Center 좌표 평균. 비어 있으면 false
func Center(sites []Site) (traffic.Coord, bool) {
	if len(sites) == 0 {
		return traffic.Coord{}, false
	}
	var lat, lon float64
	for _, s := range sites {
		lat += s.Lat
		lon += s.Lon
	}
	n := float64(len(sites))
	return traffic.Coord{Lat: lat / n, Lon: lon / n}, true
}

// Coord 단지 좌표
func (s Site) Coord() traffic.Coord {
	return traffic.Coord{Lat: s.Lat, Lon: s.Lon}
}

func parseCoord(raw string) float64 {
	v := parseNumber(raw)
	if v == nil {
		return math.NaN()
	}
	return *v
}
