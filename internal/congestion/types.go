package congestion

import (
	"encoding/json"
	"fmt"
	"math"
)

// Point 링크 × 시간대 혼잡도 (hard)
type Point struct {
	LinkID        string  `json:"link_id"`
	Hour          int     `json:"hour"`
	Speed         float64 `json:"speed"`
	FreeFlow      float64 `json:"free_flow"`
	CongestionPct float64 `json:"congestion_pct"`
}

// DailyAggregate 링크별 일평균 혼잡도
type DailyAggregate struct {
	LinkID       string  `json:"link_id"`
	DailyValue   float64 `json:"daily_value"`
	Observations int     `json:"observations"`
}

// CFIPoint 링크 × 시간대 혼잡빈도강도(%)
type CFIPoint struct {
	LinkID            string  `json:"link_id"`
	Hour              int     `json:"hour"`
	CFI               float64 `json:"cfi"`
	TotalVehicles     float64 `json:"total_vehicles"`
	CongestedVehicles float64 `json:"congested_vehicles,omitempty"`
	Missing           bool    `json:"missing,omitempty"`
}

// BoundaryMode 경계속도 결정 방식
type BoundaryMode string

const (
	BoundaryPercentile BoundaryMode = "percentile" // 관측 속도 분포의 백분위
	BoundaryFixed      BoundaryMode = "fixed"      // 고정 km/h
)

// Boundary 혼잡 경계속도 설정
// percentile: Value = 백분위(5~95로 제한), fixed: Value = km/h
type Boundary struct {
	Mode  BoundaryMode `json:"mode"`
	Value float64      `json:"value"`
}

// Validate checks the boundary mode
func (b Boundary) Validate() error {
	switch b.Mode {
	case BoundaryPercentile, BoundaryFixed:
		return nil
	}
	return fmt.Errorf("%w: boundary mode %q", ErrInvalidInput, b.Mode)
}

// Defaults
const (
	DefaultPercentile    = 40.0
	DefaultTauKmh        = 6.0
	DefaultBoundarySpeed = 30.0
	DefaultMinSamples    = 30.0

	minPercentile = 5.0
	maxPercentile = 95.0
	minTau        = 1e-6
	minFreeFlow   = 1.0
)

// DefaultBoundary percentile 40
func DefaultBoundary() Boundary {
	return Boundary{Mode: BoundaryPercentile, Value: DefaultPercentile}
}

// SoftResult sigmoid CFI 결과
// 조인 결과가 비어 있으면 Rows는 빈 슬라이스, Boundary는 NaN
type SoftResult struct {
	Rows     []CFIPoint   `json:"rows"`
	Boundary float64      `json:"boundary"`
	Mode     BoundaryMode `json:"mode"`
	Tau      float64      `json:"tau"`
}

// RobustResult 최소 표본 기준을 적용한 hard CFI 결과
type RobustResult struct {
	Rows       []CFIPoint `json:"rows"`
	Boundary   float64    `json:"boundary"`
	MinSamples float64    `json:"min_samples"`
	Missing    int        `json:"missing"`
}

// nullable NaN → JSON null
func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// MarshalJSON encodes a NaN boundary as null
func (r SoftResult) MarshalJSON() ([]byte, error) {
	type alias SoftResult
	return json.Marshal(struct {
		alias
		Boundary *float64 `json:"boundary"`
	}{alias: alias(r), Boundary: nullable(r.Boundary)})
}

// MarshalJSON encodes a NaN boundary as null
func (r RobustResult) MarshalJSON() ([]byte, error) {
	type alias RobustResult
	return json.Marshal(struct {
		alias
		Boundary *float64 `json:"boundary"`
	}{alias: alias(r), Boundary: nullable(r.Boundary)})
}
