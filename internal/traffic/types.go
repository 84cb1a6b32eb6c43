package traffic

import (
	"errors"
	"fmt"
	"sort"
)

// Canonical long-format column names
// ⭐ SSOT: 정규화 CSV 스키마는 여기서만 정의
const (
	ColLinkID    = "link_id"
	ColITSLinkID = "its_link_id"
	ColLabel     = "시간대"
	ColSpeed     = "평균속도(km/h)"
	ColHour      = "hour"
	ColVehicles  = "차량대수"
)

// CanonicalHeader is the header of the normalized speed CSV
var CanonicalHeader = []string{ColLinkID, ColLabel, ColSpeed, ColHour}

// Link id preference
const (
	PreferLev55 = "lev55" // 표준노드링크 레벨5.5 (k_link_id, UP_LINK_ID)
	PreferITS   = "its"   // ITS 링크 ID
)

// MaxPlausibleSpeed km/h 초과 값은 측정 오류로 간주하여 제외
const MaxPlausibleSpeed = 200.0

var (
	// ErrHeaderNotFound 시간대 헤더 행을 찾지 못함
	ErrHeaderNotFound = errors.New("time header row not found")

	// ErrMissingColumn 필수 컬럼 누락
	ErrMissingColumn = errors.New("missing column")

	// ErrUnsupportedFormat 지원하지 않는 파일 형식
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// SpeedRecord 링크 × 시간대 평균속도
type SpeedRecord struct {
	LinkID   string  `json:"link_id"`
	Label    string  `json:"label"`
	Hour     int     `json:"hour"`
	AvgSpeed float64 `json:"avg_speed"`
}

// VolumeRecord 링크 × 시간대 차량대수
type VolumeRecord struct {
	LinkID   string  `json:"link_id"`
	Hour     int     `json:"hour"`
	Vehicles float64 `json:"vehicles"`
}

// SpeedTable long-format 속도 테이블
type SpeedTable []SpeedRecord

// Links returns the distinct link ids in first-seen order
func (t SpeedTable) Links() []string {
	seen := make(map[string]struct{}, len(t))
	out := make([]string, 0)
	for _, r := range t {
		if _, ok := seen[r.LinkID]; ok {
			continue
		}
		seen[r.LinkID] = struct{}{}
		out = append(out, r.LinkID)
	}
	return out
}

// Filter keeps the records whose link id is in ids
func (t SpeedTable) Filter(ids map[string]struct{}) SpeedTable {
	out := make(SpeedTable, 0)
	for _, r := range t {
		if _, ok := ids[r.LinkID]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Sorted returns a copy ordered by (link_id, hour)
func (t SpeedTable) Sorted() SpeedTable {
	out := make(SpeedTable, len(t))
	copy(out, t)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LinkID != out[j].LinkID {
			return out[i].LinkID < out[j].LinkID
		}
		return out[i].Hour < out[j].Hour
	})
	return out
}

// HourLabel 시간대 라벨 ("8~9시")
func HourLabel(hour int) string {
	return fmt.Sprintf("%d~%d시", hour, hour+1)
}
