package geocode

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/redev/backend/pkg/logger"
	"github.com/wonny/redev/backend/pkg/metrics"
)

// DefaultConcurrency 배치 지오코딩 동시 요청 수
const DefaultConcurrency = 4

// Service 캐시 우선 지오코딩
type Service struct {
	geocoder    Geocoder
	cache       *Cache
	logger      *logger.Logger
	metrics     *metrics.Collector
	concurrency int
}

// NewService creates a geocode service. metrics may be nil
func NewService(geocoder Geocoder, cache *Cache, log *logger.Logger, m *metrics.Collector, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Service{
		geocoder:    geocoder,
		cache:       cache,
		logger:      log.WithComponent("geocode"),
		metrics:     m,
		concurrency: concurrency,
	}
}

// Cache returns the underlying cache
func (s *Service) Cache() *Cache {
	return s.cache
}

// BatchResult 배치 지오코딩 집계
type BatchResult struct {
	Requested int           `json:"requested"` // 정규화 후 고유 주소 수
	Cached    int           `json:"cached"`
	Fetched   int           `json:"fetched"`
	Missed    int           `json:"missed"` // 결과 없음/실패 (score 0으로 저장)
	Duration  time.Duration `json:"duration"`
}

// Lookup 캐시 → API 순으로 한 주소 조회. 결과는 캐시에 저장
func (s *Service) Lookup(ctx context.Context, addr string) (Result, error) {
	norm := NormalizeAddress(addr)
	if norm == "" {
		return Result{}, ErrNoResult
	}

	if r, ok, err := s.cache.Get(ctx, norm); err != nil {
		return Result{}, err
	} else if ok {
		s.metrics.RecordCache("geocode", true)
		return r, nil
	}
	s.metrics.RecordCache("geocode", false)

	r, err := s.fetch(ctx, addr, norm)
	if err != nil {
		return Result{}, err
	}
	return r, nil
}

// GeocodeBatch 캐시에 없는 주소만 동시에 조회
// 개별 주소 실패는 score 0 결과로 저장하고 계속 진행 (API 키 누락, ctx 취소는 중단)
func (s *Service) GeocodeBatch(ctx context.Context, addresses []string) (BatchResult, error) {
	start := time.Now()

	type job struct{ raw, norm string }
	seen := make(map[string]struct{}, len(addresses))
	jobs := make([]job, 0, len(addresses))

	var res BatchResult
	for _, raw := range addresses {
		norm := NormalizeAddress(raw)
		if norm == "" {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		res.Requested++

		_, ok, err := s.cache.Get(ctx, norm)
		if err != nil {
			return res, err
		}
		if ok {
			res.Cached++
			continue
		}
		jobs = append(jobs, job{raw: raw, norm: norm})
	}

	var fetched, missed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, j := range jobs {
		g.Go(func() error {
			r, err := s.fetch(gctx, j.raw, j.norm)
			if err != nil {
				return err
			}
			if r.Found {
				fetched.Add(1)
			} else {
				missed.Add(1)
			}
			return nil
		})
	}

	err := g.Wait()
	res.Fetched = int(fetched.Load())
	res.Missed = int(missed.Load())
	res.Duration = time.Since(start)

	s.logger.WithFields(map[string]interface{}{
		"requested": res.Requested,
		"cached":    res.Cached,
		"fetched":   res.Fetched,
		"missed":    res.Missed,
		"duration":  res.Duration,
	}).Info("Geocode batch completed")

	return res, err
}

// fetch API 조회 후 저장. 조회 실패는 Found=false 결과로 저장
func (s *Service) fetch(ctx context.Context, raw, norm string) (Result, error) {
	r, err := s.geocoder.Geocode(ctx, norm)
	switch {
	case err == nil:
		s.metrics.RecordGeocode("found")
		r.NormAddr = norm
		r.RawAddr = raw
	case errors.Is(err, ErrMissingAPIKey), ctx.Err() != nil:
		return Result{}, err
	default:
		outcome := "error"
		if errors.Is(err, ErrNoResult) {
			outcome = "not_found"
		}
		s.metrics.RecordGeocode(outcome)
		s.logger.WithError(err).WithField("address", norm).Warn("Geocode failed")

		r = Result{NormAddr: norm, RawAddr: raw, Source: SourceKakao}
	}

	if err := s.cache.Put(ctx, r); err != nil {
		return Result{}, err
	}
	return r, nil
}
