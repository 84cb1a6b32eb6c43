package analysis

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/wonny/redev/backend/internal/congestion"
	"github.com/wonny/redev/backend/internal/mitigation"
	"github.com/wonny/redev/backend/internal/traffic"
	"github.com/wonny/redev/backend/internal/trend"
	"github.com/wonny/redev/backend/pkg/config"
	"github.com/wonny/redev/backend/pkg/logger"
	"github.com/wonny/redev/backend/pkg/metrics"
	"github.com/wonny/redev/backend/pkg/redis"
)

var (
	// ErrInvalidSelection 잘못된 분석 대상
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrNoData 속도/교통량 데이터 파일 없음
	ErrNoData = errors.New("traffic data not available")
)

// Options 분석 데이터 경로와 기본값
type Options struct {
	SpeedCSV      string
	VolumeCSV     string
	LinkPointsCSV string

	RadiusM    float64
	MaxLinks   int
	Boundary   congestion.Boundary
	TauKmh     float64
	MinSamples float64
}

// OptionsFromConfig config → Options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SpeedCSV:      cfg.Data.TrafficCSV,
		VolumeCSV:     cfg.Data.VolumeCSV,
		LinkPointsCSV: cfg.Data.LinkPointsCSV,
		RadiusM:       cfg.Traffic.RadiusM,
		MaxLinks:      cfg.Traffic.MaxLinks,
		Boundary: congestion.Boundary{
			Mode:  congestion.BoundaryMode(cfg.Traffic.BoundaryMode),
			Value: cfg.Traffic.BoundaryValue,
		},
		TauKmh:     cfg.Traffic.TauKmh,
		MinSamples: cfg.Traffic.MinSamples,
	}
}

// Service 속도 CSV → 반경 필터 → 혼잡도 → 추세/재건축 후 추정 → 완화안
type Service struct {
	opts    Options
	cache   *redis.Cache
	metrics *metrics.Collector
	logger  *logger.Logger

	speed  *fileMemo[traffic.SpeedTable]
	volume *fileMemo[[]traffic.VolumeRecord]
	links  *fileMemo[[]traffic.LinkPoint]
}

// NewService creates an analysis service. cache and metrics may be nil
func NewService(opts Options, cache *redis.Cache, m *metrics.Collector, log *logger.Logger) *Service {
	if cache == nil {
		cache = redis.NewCache(redis.Disabled(), "redev")
	}
	return &Service{
		opts:    opts,
		cache:   cache,
		metrics: m,
		logger:  log.WithComponent("analysis"),
		speed:   newFileMemo(traffic.LoadSpeedCSV),
		volume:  newFileMemo(traffic.LoadVolumeFile),
		links:   newFileMemo(traffic.LoadLinkPoints),
	}
}

// Forget drops memoized tables (speed CSV 재생성 후 호출)
func (s *Service) Forget() {
	s.speed.Forget()
	s.volume.Forget()
	s.links.Forget()
}

// =============================================================================
// Trend
// =============================================================================

// TrendRequest 추세 + 재건축 후 추정 요청
type TrendRequest struct {
	Selection   Selection             `json:"selection"`
	Projection  trend.ProjectionInput `json:"projection"`
	ExtraMargin float64               `json:"extra_margin"` // 완화 목표: 기준 + margin %p
}

// TrendResult 분석 결과
type TrendResult struct {
	Selection     Selection                `json:"selection"`
	LinkCount     int                      `json:"link_count"`
	Fallback      bool                     `json:"fallback"` // 반경 내 링크가 없어 최근접 링크 사용
	Overall       float64                  `json:"overall"`
	Links         []congestion.ColoredLink `json:"links"`
	Curve         trend.Curve              `json:"curve"`
	Mitigation    mitigation.Plan          `json:"mitigation"`
	SourceModTime time.Time                `json:"source_mod_time"`
}

// Trend 선택 영역의 혼잡 추세와 재건축 후 곡선, 최소 버스 증편률
// 결과는 (속도 파일, 수정 시각, 요청 내용) 키로 Redis에 메모이제이션
func (s *Service) Trend(ctx context.Context, req TrendRequest) (*TrendResult, error) {
	sel, err := req.Selection.resolved(s.opts.RadiusM, s.opts.MaxLinks)
	if err != nil {
		return nil, err
	}
	req.Selection = sel
	if req.Projection.Gu == "" {
		req.Projection.Gu = sel.Gu
	}

	table, modTime, err := s.speedTable()
	if err != nil {
		return nil, err
	}

	paramsKey, err := redis.ContentKey("trend", req)
	if err != nil {
		return nil, err
	}
	key := redis.TrendKey(s.opts.SpeedCSV, modTime, paramsKey)

	var out TrendResult
	computed := false
	err = s.cache.GetOrSet(ctx, key, &out, redis.TTLMedium, func() (interface{}, error) {
		computed = true
		timer := s.metrics.TimeAnalysis("trend")
		defer timer.ObserveDuration()

		return s.computeTrend(ctx, req, table, modTime)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordCache("trend", !computed)
	return &out, nil
}

func (s *Service) computeTrend(ctx context.Context, req TrendRequest, table traffic.SpeedTable, modTime time.Time) (*TrendResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sel := req.Selection
	sub, fallback, err := s.selectLinks(table, sel)
	if err != nil {
		return nil, err
	}

	points := congestion.FromSpeed(sub)
	daily := congestion.Daily(points)

	curve, err := trend.FitAndProject(points, req.Projection)
	if err != nil {
		return nil, fmt.Errorf("trend fit: %w", err)
	}

	plan := mitigation.Solve(curve.After(), curve.Base(), req.ExtraMargin)

	s.logger.WithFields(map[string]interface{}{
		"gu":       sel.Gu,
		"links":    len(daily),
		"fallback": fallback,
		"bus_min":  plan.BusIncreasePct,
	}).Debug("Trend computed")

	return &TrendResult{
		Selection:     sel,
		LinkCount:     len(daily),
		Fallback:      fallback,
		Overall:       congestion.Overall(points),
		Links:         congestion.Classify(daily, sel.ColorMode),
		Curve:         curve,
		Mitigation:    plan,
		SourceModTime: modTime,
	}, nil
}

// selectLinks 반경 필터 + 관측 많은 상위 링크
// 링크 중심점 파일이 없으면 공간 필터 없이 전체 링크에서 선택
func (s *Service) selectLinks(table traffic.SpeedTable, sel Selection) (traffic.SpeedTable, bool, error) {
	points, _, _, err := s.links.Get(s.opts.LinkPointsCSV)
	switch {
	case errors.Is(err, fs.ErrNotExist) || s.opts.LinkPointsCSV == "":
		ids := make(map[string]struct{})
		for _, id := range table.Links() {
			ids[id] = struct{}{}
		}
		return traffic.SelectTopLinks(table, ids, sel.MaxLinks), false, nil
	case err != nil:
		return nil, false, fmt.Errorf("load link points: %w", err)
	}

	near := traffic.FilterByRadius(points, *sel.Center, sel.RadiusM, traffic.DefaultFallbackLinks)
	fallback := len(near) > 0 && near[len(near)-1].DistanceM > sel.RadiusM
	return traffic.SelectTopLinks(table, traffic.LinkSet(near), sel.MaxLinks), fallback, nil
}

func (s *Service) speedTable() (traffic.SpeedTable, time.Time, error) {
	table, modTime, hit, err := s.speed.Get(s.opts.SpeedCSV)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, time.Time{}, fmt.Errorf("%w: %s", ErrNoData, s.opts.SpeedCSV)
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	s.metrics.RecordCache("speed_table", hit)
	return table, modTime, nil
}

// =============================================================================
// CFI
// =============================================================================

// CFI methods
const (
	CFISoft   = "soft"
	CFIRobust = "robust"
)

// CFIRequest 혼잡빈도강도 요청 (0 값은 설정 기본값)
type CFIRequest struct {
	Selection  Selection            `json:"selection"`
	Method     string               `json:"method"` // soft, robust
	Boundary   *congestion.Boundary `json:"boundary,omitempty"`
	TauKmh     float64              `json:"tau_kmh,omitempty"`
	MinSamples float64              `json:"min_samples,omitempty"`
}

// CFIResult 혼잡빈도강도 결과 (Method에 해당하는 필드만 채움)
type CFIResult struct {
	Selection Selection                `json:"selection"`
	Method    string                   `json:"method"`
	Soft      *congestion.SoftResult   `json:"soft,omitempty"`
	Robust    *congestion.RobustResult `json:"robust,omitempty"`
}

// CFI 선택 영역 속도 × 교통량 결합 혼잡빈도강도
// NaN 경계값이 있어 Redis 캐시 대상이 아님 (파일 메모만 사용)
func (s *Service) CFI(ctx context.Context, req CFIRequest) (*CFIResult, error) {
	sel, err := req.Selection.resolved(s.opts.RadiusM, s.opts.MaxLinks)
	if err != nil {
		return nil, err
	}

	boundary := s.opts.Boundary
	if req.Boundary != nil {
		boundary = *req.Boundary
	}
	if err := boundary.Validate(); err != nil {
		return nil, err
	}

	table, _, err := s.speedTable()
	if err != nil {
		return nil, err
	}
	volume, _, _, err := s.volume.Get(s.opts.VolumeCSV)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoData, s.opts.VolumeCSV)
	}
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timer := s.metrics.TimeAnalysis("cfi")
	defer timer.ObserveDuration()

	sub, _, err := s.selectLinks(table, sel)
	if err != nil {
		return nil, err
	}

	out := &CFIResult{Selection: sel, Method: req.Method}
	switch req.Method {
	case CFISoft, "":
		out.Method = CFISoft
		tau := req.TauKmh
		if tau <= 0 {
			tau = s.opts.TauKmh
		}
		res := congestion.Soft(sub, volume, boundary, tau)
		out.Soft = &res
	case CFIRobust:
		minSamples := req.MinSamples
		if minSamples <= 0 {
			minSamples = s.opts.MinSamples
		}
		res := congestion.WeightedRobust(sub, volume, boundary, minSamples)
		out.Robust = &res
	default:
		return nil, fmt.Errorf("%w: cfi method %q", ErrInvalidSelection, req.Method)
	}
	return out, nil
}
