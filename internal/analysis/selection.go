package analysis

import (
	"fmt"

	"github.com/wonny/redev/backend/internal/congestion"
	"github.com/wonny/redev/backend/internal/projects"
	"github.com/wonny/redev/backend/internal/traffic"
)

// Selection 분석 대상 (자치구, 중심, 반경, 링크 수, 색상 모드)
// 값 타입: 요청마다 새로 만들고 공유 상태를 두지 않음
type Selection struct {
	Gu        string               `json:"gu"`
	Center    *traffic.Coord       `json:"center,omitempty"` // nil이면 자치구 중심
	RadiusM   float64              `json:"radius_m,omitempty"`
	MaxLinks  int                  `json:"max_links,omitempty"`
	ColorMode congestion.ColorMode `json:"color_mode,omitempty"`
}

// resolved 기본값을 채운 사본
func (s Selection) resolved(defaultRadiusM float64, defaultMaxLinks int) (Selection, error) {
	out := s
	if out.Center == nil {
		c, _ := projects.GuCenter(out.Gu)
		out.Center = &c
	} else {
		c := *out.Center
		out.Center = &c
	}
	if out.RadiusM <= 0 {
		out.RadiusM = defaultRadiusM
	}
	if out.MaxLinks <= 0 {
		out.MaxLinks = defaultMaxLinks
	}
	switch out.ColorMode {
	case "":
		out.ColorMode = congestion.ColorModeAbsolute
	case congestion.ColorModeAbsolute, congestion.ColorModeRelative:
	default:
		return Selection{}, fmt.Errorf("%w: color mode %q", ErrInvalidSelection, out.ColorMode)
	}
	return out, nil
}
