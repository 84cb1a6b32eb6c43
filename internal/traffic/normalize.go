package traffic

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// headerScanRows 헤더 탐색 범위 (상단 N행)
	headerScanRows = 15

	// minTimeColumns 헤더로 인정할 최소 시간대 컬럼 수
	minTimeColumns = 8
)

// NormalizeOptions wide → long 변환 옵션
type NormalizeOptions struct {
	Prefer string // lev55, its
	Sheet  string // xlsx 시트 이름 (비어 있으면 첫 시트)
}

// FindHeaderRow 시간대 헤더 행 탐색
// 상단 15행 중 "H~H시" 패턴 셀이 8개 이상인 첫 행
func FindHeaderRow(rows [][]string) (int, error) {
	limit := headerScanRows
	if len(rows) < limit {
		limit = len(rows)
	}

	for i := 0; i < limit; i++ {
		count := 0
		for _, cell := range rows[i] {
			if IsHourLabel(cell) {
				count++
			}
		}
		if count >= minTimeColumns {
			return i, nil
		}
	}

	return -1, fmt.Errorf("%w: no row in the first %d rows has >= %d cells matching %q",
		ErrHeaderNotFound, headerScanRows, minTimeColumns, hourLabelRe.String())
}

// NormalizeSpeedTable wide-format 보고서 → long-format SpeedTable
// 이미 정규화된 long 레이아웃이면 그대로 다시 읽음
func NormalizeSpeedTable(rows [][]string, opts NormalizeOptions) (SpeedTable, error) {
	if len(rows) > 0 && isCanonicalHeader(rows[0]) {
		return speedTableFromLong(rows)
	}

	headerIdx, err := FindHeaderRow(rows)
	if err != nil {
		return nil, err
	}

	headers := resolveHeaders(rows, headerIdx)

	// 시간대 컬럼 분리
	type timeCol struct {
		idx   int
		label string
		hour  int
	}
	var timeCols []timeCol
	for j, h := range headers {
		if hour, ok := ParseHour(h); ok {
			timeCols = append(timeCols, timeCol{idx: j, label: strings.TrimSpace(h), hour: hour})
		}
	}

	baseHeaders := make([]string, len(headers))
	for j, h := range headers {
		if !IsHourLabel(h) {
			baseHeaders[j] = h
		}
	}

	linkIdx := CanonicalLinkColumn(baseHeaders, opts.Prefer)
	if linkIdx < 0 {
		return nil, fmt.Errorf("%w: link id column", ErrMissingColumn)
	}

	table := make(SpeedTable, 0, (len(rows)-headerIdx-1)*len(timeCols))
	for _, row := range rows[headerIdx+1:] {
		if linkIdx >= len(row) {
			continue
		}
		linkID, ok := NormalizeLinkID(row[linkIdx])
		if !ok {
			continue
		}

		for _, tc := range timeCols {
			if tc.idx >= len(row) {
				continue
			}
			speed, ok := parseSpeed(row[tc.idx])
			if !ok {
				continue
			}
			table = append(table, SpeedRecord{
				LinkID:   linkID,
				Label:    tc.label,
				Hour:     tc.hour,
				AvgSpeed: speed,
			})
		}
	}

	return table, nil
}

// resolveHeaders 헤더 행의 빈 셀은 위쪽 행(병합 셀)의 값으로 채움
func resolveHeaders(rows [][]string, headerIdx int) []string {
	width := 0
	for _, r := range rows[:headerIdx+1] {
		if len(r) > width {
			width = len(r)
		}
	}

	headers := make([]string, width)
	for j := 0; j < width; j++ {
		for i := headerIdx; i >= 0; i-- {
			if j < len(rows[i]) {
				if v := strings.TrimSpace(rows[i][j]); v != "" {
					headers[j] = v
					break
				}
			}
		}
	}
	return headers
}

// isCanonicalHeader link_id(its_link_id), 평균속도, hour 컬럼이 모두 있는 헤더
func isCanonicalHeader(header []string) bool {
	idx := headerIndex(header)
	_, hasLink := idx[ColLinkID]
	if !hasLink {
		_, hasLink = idx[ColITSLinkID]
	}
	_, hasSpeed := idx[ColSpeed]
	_, hasHour := idx[ColHour]
	return hasLink && hasSpeed && hasHour
}

// speedTableFromLong long-format 행 → SpeedTable
func speedTableFromLong(rows [][]string) (SpeedTable, error) {
	if len(rows) == 0 {
		return SpeedTable{}, nil
	}

	idx := headerIndex(rows[0])
	linkCol, ok := idx[ColLinkID]
	if !ok {
		linkCol, ok = idx[ColITSLinkID]
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColLinkID)
	}
	speedCol, ok := idx[ColSpeed]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColSpeed)
	}
	hourCol, ok := idx[ColHour]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColHour)
	}
	labelCol, hasLabel := idx[ColLabel]

	table := make(SpeedTable, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) <= linkCol || len(row) <= speedCol || len(row) <= hourCol {
			continue
		}

		linkID, ok := NormalizeLinkID(row[linkCol])
		if !ok {
			continue
		}
		hourF, err := strconv.ParseFloat(strings.TrimSpace(row[hourCol]), 64)
		if err != nil || hourF < 0 || hourF > 23 {
			continue
		}
		speed, ok := parseSpeed(row[speedCol])
		if !ok {
			continue
		}

		hour := int(hourF)
		label := HourLabel(hour)
		if hasLabel && labelCol < len(row) && strings.TrimSpace(row[labelCol]) != "" {
			label = strings.TrimSpace(row[labelCol])
		}

		table = append(table, SpeedRecord{LinkID: linkID, Label: label, Hour: hour, AvgSpeed: speed})
	}

	return table, nil
}

// parseSpeed 숫자가 아닌 셀, 음수, 비정상 고속은 제외
func parseSpeed(raw string) (float64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "" || s == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != v {
		return 0, false
	}
	if v < 0 || v > MaxPlausibleSpeed {
		return 0, false
	}
	return v, true
}

// headerIndex column name → position (첫 번째 등장 기준, BOM 제거)
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}
