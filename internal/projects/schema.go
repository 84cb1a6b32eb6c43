package projects

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/wonny/redev/backend/internal/traffic"
)

// UnnamedProject 명칭과 조합명이 모두 비어 있을 때 사용
const UnnamedProject = "무명 정비구역"

// Project 정비사업 단지 (원본 CSV 한 행)
// 숫자 필드는 값이 없으면 nil
type Project struct {
	ID            string   `json:"apt_id"`
	Name          string   `json:"name"`
	OrgName       string   `json:"org_name"`
	BizType       string   `json:"biz_type"`
	OpType        string   `json:"op_type"`
	Gu            string   `json:"gu"`
	Address       string   `json:"address"`
	Households    *float64 `json:"households"`
	LandAreaM2    *float64 `json:"land_area_m2"`
	FAR           *float64 `json:"far"` // 용적률 (%)
	Floors        *int     `json:"floors"`
	FloorsUp      *int     `json:"floors_up"`
	FloorsDown    *int     `json:"floors_down"`
	Status        string   `json:"status"`
	FloorsDisplay string   `json:"floors_display"`
}

// field 정규화 스키마의 필드 이름
type field int

const (
	fieldID field = iota
	fieldName
	fieldOrgName
	fieldBizType
	fieldOpType
	fieldGu
	fieldLocation
	fieldLotNumber
	fieldHouseholds
	fieldLandArea
	fieldFAR
	fieldFloors
	fieldFloorsUp
	fieldFloorsDown
	fieldStatus
	fieldFullAddress
	fieldLat
	fieldLon
	numFields
)

// ⭐ SSOT: 헤더 후보 목록 (앞선 후보 우선)
var fieldCandidates = [numFields][]string{
	fieldID:          {"사업번호", "apt_id"},
	fieldName:        {"정비구역명칭", "name"},
	fieldOrgName:     {"추진위원회/조합명", "org_name"},
	fieldBizType:     {"사업구분", "biz_type"},
	fieldOpType:      {"운영구분", "op_type"},
	fieldGu:          {"자치구", "gu"},
	fieldLocation:    {"정비구역위치", "address"},
	fieldLotNumber:   {"대표지번"},
	fieldHouseholds:  {"분양세대총수", "households"},
	fieldLandArea:    {"정비구역면적(㎡)", "정비구역면적", "land_area_m2"},
	fieldFAR:         {"용적률", "far"},
	fieldFloors:      {"층수", "floors"},
	fieldFloorsUp:    {"지상층수", "floors_up"},
	fieldFloorsDown:  {"지하층수", "floors_down"},
	fieldStatus:      {"진행단계", "status"},
	fieldFullAddress: {"full_address"},
	fieldLat:         {"lat", "위도"},
	fieldLon:         {"lon", "lng", "경도"},
}

// columns 파일 단위로 한 번 해석한 필드 → 컬럼 위치 (-1: 없음)
type columns [numFields]int

func resolveColumns(header []string) columns {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	var cols columns
	for f := field(0); f < numFields; f++ {
		cols[f] = -1
		for _, cand := range fieldCandidates[f] {
			if i, ok := pos[cand]; ok {
				cols[f] = i
				break
			}
		}
	}
	return cols
}

func (c columns) has(f field) bool {
	return c[f] >= 0
}

func (c columns) get(row []string, f field) string {
	i := c[f]
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// NormalizeSchema 원본 행(첫 행 = 헤더) → Project 목록
// 빈 행은 건너뜀
func NormalizeSchema(rows [][]string) []Project {
	if len(rows) == 0 {
		return nil
	}

	cols := resolveColumns(rows[0])
	out := make([]Project, 0, len(rows)-1)

	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}

		orgName := cols.get(row, fieldOrgName)
		p := Project{
			ID:         cols.get(row, fieldID),
			Name:       coalesce(cols.get(row, fieldName), orgName, UnnamedProject),
			OrgName:    orgName,
			BizType:    cols.get(row, fieldBizType),
			OpType:     cols.get(row, fieldOpType),
			Gu:         cols.get(row, fieldGu),
			Address:    coalesce(cols.get(row, fieldLocation), cols.get(row, fieldLotNumber)),
			Households: parseNumber(cols.get(row, fieldHouseholds)),
			LandAreaM2: parseNumber(cols.get(row, fieldLandArea)),
			FAR:        parsePercent(cols.get(row, fieldFAR)),
			Floors:     parseFloors(cols.get(row, fieldFloors)),
			FloorsUp:   parseFloors(cols.get(row, fieldFloorsUp)),
			FloorsDown: parseFloors(cols.get(row, fieldFloorsDown)),
			Status:     cols.get(row, fieldStatus),
		}
		p.FloorsDisplay = FloorsDisplay(p.FloorsUp, p.FloorsDown, p.Floors)

		out = append(out, p)
	}
	return out
}

// FloorsDisplay "지상 N / 지하 M", 둘 다 없으면 "N층", 그것도 없으면 ""
func FloorsDisplay(up, down, floors *int) string {
	parts := make([]string, 0, 2)
	if up != nil {
		parts = append(parts, fmt.Sprintf("지상 %d", *up))
	}
	if down != nil {
		parts = append(parts, fmt.Sprintf("지하 %d", *down))
	}
	if len(parts) > 0 {
		return strings.Join(parts, " / ")
	}
	if floors != nil {
		return fmt.Sprintf("%d층", *floors)
	}
	return ""
}

// FilterByGu 자치구 단지만
func FilterByGu(projects []Project, gu string) []Project {
	out := make([]Project, 0)
	for _, p := range projects {
		if p.Gu == gu {
			out = append(out, p)
		}
	}
	return out
}

// LoadProjectsCSV 정비사업 CSV 로드 (UTF-8/CP949 자동 판별)
func LoadProjectsCSV(path string) ([]Project, error) {
	rows, err := traffic.ReadCSVFile(path)
	if err != nil {
		return nil, fmt.Errorf("load projects %s: %w", path, err)
	}
	return NormalizeSchema(rows), nil
}

// =============================================================================
// 값 변환
// =============================================================================

var floorsRe = regexp.MustCompile(`-?\d+`)

func parseNumber(raw string) *float64 {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v != v {
		return nil
	}
	return &v
}

// parsePercent "250%", "1,250 %" → 250, 1250
func parsePercent(raw string) *float64 {
	return parseNumber(strings.ReplaceAll(raw, "%", ""))
}

// parseFloors 첫 번째 정수 ("지상 35층" → 35, "B2" → 2, "-3" → -3)
func parseFloors(raw string) *int {
	m := floorsRe.FindString(raw)
	if m == "" {
		return nil
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &v
}

func coalesce(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
