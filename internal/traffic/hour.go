package traffic

import (
	"regexp"
	"strconv"
)

// hourLabelRe 시간대 라벨 ("0~1시", "23~24시")
var hourLabelRe = regexp.MustCompile(`(\d{1,2})\s*~\s*(\d{1,2})\s*시`)

var firstDigitsRe = regexp.MustCompile(`\d+`)

// IsHourLabel reports whether s looks like an hour-range label
func IsHourLabel(s string) bool {
	return hourLabelRe.MatchString(s)
}

// ParseHour 시간대 라벨의 시작 시각 (0~23)
// 형식이 맞지 않으면 false. 강제 변환하지 않음
func ParseHour(label string) (int, bool) {
	m := hourLabelRe.FindStringSubmatch(label)
	if m == nil {
		return 0, false
	}

	start, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	end, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}

	if start < 0 || start > 23 || end < 0 || end > 24 {
		return 0, false
	}
	return start, true
}

// coerceHour "0시", " 08 ", "8.0" → 첫 숫자열 mod 24, 없으면 0
func coerceHour(raw string) int {
	m := firstDigitsRe.FindString(raw)
	if m == "" {
		return 0
	}
	h, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return h % 24
}
