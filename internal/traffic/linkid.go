package traffic

import (
	"regexp"
	"strconv"
	"strings"
)

// linkColumnCandidates 링크 ID 컬럼 후보 (우선순위 순)
var linkColumnCandidates = []string{
	"link_id", "k_link_id", "LINK_ID", "UP_LINK_ID",
	"ITS_LINK_ID", "its_link_id", "링크ID", "링크아이디",
}

var itsColumnCandidates = []string{
	"ITS_LINK_ID", "its_link_id",
	"link_id", "k_link_id", "LINK_ID", "UP_LINK_ID", "링크ID", "링크아이디",
}

// "(5.5)", "_5.5", " 5.5" 같은 레벨 접미사
var levelSuffixRe = regexp.MustCompile(`[\s_\-]*\(?5\.5\)?$`)

var invalidLinkIDs = map[string]struct{}{
	"0": {}, "-1": {}, "": {}, "nan": {}, "None": {},
}

// NormalizeLinkID 링크 ID 문자열 표준화
// 8891093.0 → "8891093", 0/-1/빈값/nan/None 은 제외(false)
func NormalizeLinkID(raw string) (string, bool) {
	s := strings.TrimSpace(raw)

	// 엑셀 지수 표기 (1.2200038E+09)
	if strings.ContainsAny(s, "eE") && !strings.EqualFold(s, "none") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			s = strconv.FormatFloat(f, 'f', 0, 64)
		}
	}

	s = strings.TrimSuffix(s, ".0")
	if _, bad := invalidLinkIDs[s]; bad {
		return "", false
	}
	return s, true
}

// CanonicalLinkColumn 헤더에서 링크 ID 컬럼 위치 결정
// 후보 이름 → 대소문자 무시 → 레벨 접미사 제거 순으로 비교.
// 찾지 못하면 첫 번째 비시간대 컬럼. 아무것도 없으면 -1
func CanonicalLinkColumn(headers []string, prefer string) int {
	candidates := linkColumnCandidates
	if prefer == PreferITS {
		candidates = itsColumnCandidates
	}

	keys := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = strings.TrimSpace(h)
	}

	for _, match := range []func(h, c string) bool{
		func(h, c string) bool { return h == c },
		strings.EqualFold,
		func(h, c string) bool { return strings.EqualFold(levelSuffixRe.ReplaceAllString(h, ""), c) },
	} {
		for _, c := range candidates {
			for i, h := range keys {
				if h != "" && match(h, c) {
					return i
				}
			}
		}
	}

	for i, h := range keys {
		if h == "" {
			continue
		}
		if _, ok := ParseHour(h); !ok {
			return i
		}
	}
	return -1
}
