package geocode

import (
	"regexp"
	"strings"
)

var (
	parenRe       = regexp.MustCompile(`\(.*?\)`)
	spaceRe       = regexp.MustCompile(`\s+`)
	floorUnitRe   = regexp.MustCompile(`(^|[^\p{L}\p{N}_])\d+\s*[층호]($|[^\p{L}\p{N}_])`)
	metroPrefixes = []string{"서울", "경기", "인천"}
)

// SeoulPrefix 전체 주소 접두어
const SeoulPrefix = "서울특별시"

// NormalizeAddress 캐시 키용 주소 정규화 (괄호 부분 제거, 공백 정리)
func NormalizeAddress(addr string) string {
	s := parenRe.ReplaceAllString(addr, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// BuildFullAddress 지오코딩 질의용 전체 주소
// 괄호·"N층"·"N호"·"외" 제거 후, 서울/경기/인천으로 시작하지 않으면 "서울특별시 <구> " 접두
func BuildFullAddress(gu, addr string) string {
	s := parenRe.ReplaceAllString(strings.TrimSpace(addr), " ")
	// 인접한 "3층 5호" 모두 제거되도록 두 번 적용
	s = floorUnitRe.ReplaceAllString(s, "$1 $2")
	s = floorUnitRe.ReplaceAllString(s, "$1 $2")
	s = strings.ReplaceAll(s, " 외", " ")
	s = strings.ReplaceAll(s, "외 ", " ")
	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))

	if s == "" || hasMetroPrefix(s) {
		return s
	}

	gu = strings.TrimSpace(gu)
	if gu != "" && !strings.HasPrefix(s, gu) {
		s = gu + " " + s
	}
	return SeoulPrefix + " " + s
}

func hasMetroPrefix(s string) bool {
	for _, p := range metroPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
