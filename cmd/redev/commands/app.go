package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/redev/backend/internal/analysis"
	"github.com/wonny/redev/backend/internal/geocode"
	"github.com/wonny/redev/backend/internal/scenario"
	"github.com/wonny/redev/backend/internal/store"
	"github.com/wonny/redev/backend/pkg/config"
	"github.com/wonny/redev/backend/pkg/database"
	"github.com/wonny/redev/backend/pkg/logger"
	"github.com/wonny/redev/backend/pkg/metrics"
	"github.com/wonny/redev/backend/pkg/redis"
)

// app 커맨드 공통 의존성
// Redis/PostgreSQL은 선택이며 설정이 없으면 비활성
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Collector // METRICS_ENABLED=false면 nil
	redis   *redis.Client
	db      *database.DB // DATABASE_URL이 없으면 nil

	geoCache *geocode.Cache
}

// newApp loads config and connects optional backends
func newApp() (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	a := &app{cfg: cfg, log: log}

	if cfg.MetricsEnabled {
		a.metrics = metrics.NewCollector("redev", nil)
	}

	// 3. Redis (선택)
	a.redis, err = redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, memoization disabled")
		a.redis = redis.Disabled()
	}

	// 4. PostgreSQL (선택)
	a.db, err = database.New(cfg)
	switch {
	case errors.Is(err, database.ErrNotConfigured):
		log.Debug("DATABASE_URL not set, run history disabled")
	case err != nil:
		a.close()
		return nil, fmt.Errorf("connect to database: %w", err)
	default:
		log.Info("Connected to database")
	}

	return a, nil
}

// close releases connections (nil-safe)
func (a *app) close() {
	if a.geoCache != nil {
		a.geoCache.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}

// runStore nil이면 실행 이력 저장 안 함
func (a *app) runStore() store.RunStore {
	if a.db == nil {
		return nil
	}
	return store.NewRepository(a.db.Pool)
}

func (a *app) analysisService() *analysis.Service {
	return analysis.NewService(
		analysis.OptionsFromConfig(a.cfg),
		redis.NewCache(a.redis, "redev"),
		a.metrics,
		a.log,
	)
}

func (a *app) presets() (*scenario.PresetSet, error) {
	set, err := scenario.LoadPresets(a.cfg.Data.PresetsYAML)
	if err != nil {
		return nil, fmt.Errorf("load presets: %w", err)
	}
	return set, nil
}

// geocodeService 캐시 열고 카카오 클라이언트 연결 (키가 없으면 캐시 전용)
func (a *app) geocodeService(ctx context.Context) (*geocode.Service, error) {
	cache, err := geocode.OpenCache(ctx, a.cfg.Geocode.SQLitePath, a.cfg.Geocode.LRUSize)
	if err != nil {
		return nil, fmt.Errorf("open geocode cache: %w", err)
	}
	a.geoCache = cache

	var geocoder geocode.Geocoder = geocode.NoKeyGeocoder{}
	client, err := geocode.NewKakaoClient(a.cfg, a.log)
	switch {
	case errors.Is(err, geocode.ErrMissingAPIKey):
		a.log.Warn("KAKAO_REST_API_KEY not set, geocoding served from cache only")
	case err != nil:
		return nil, err
	default:
		limiter := redis.NewRateLimiter(a.redis, "ratelimit")
		geocoder = client.WithSharedLimit(limiter, int(a.cfg.Kakao.QPS))
	}

	return geocode.NewService(geocoder, cache, a.log, a.metrics, a.cfg.Geocode.Concurrency), nil
}
