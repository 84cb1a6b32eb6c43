package jobs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/wonny/redev/backend/internal/geocode"
	"github.com/wonny/redev/backend/internal/projects"
	"github.com/wonny/redev/backend/internal/scheduler"
	"github.com/wonny/redev/backend/pkg/logger"
)

// DefaultMissRetryAfter 이 기간이 지난 미조회 결과는 삭제 후 재조회 대상
const DefaultMissRetryAfter = 7 * 24 * time.Hour

// =============================================================================
// Backfill
// =============================================================================

// GeocodeBackfillJob 좌표 CSV에 없는 단지 주소를 지오코딩해 추가
type GeocodeBackfillJob struct {
	service     *geocode.Service
	projectsCSV string
	coordsCSV   string
	logger      *logger.Logger
}

// NewGeocodeBackfillJob creates a new geocode backfill job
func NewGeocodeBackfillJob(svc *geocode.Service, projectsCSV, coordsCSV string, log *logger.Logger) *GeocodeBackfillJob {
	return &GeocodeBackfillJob{
		service:     svc,
		projectsCSV: projectsCSV,
		coordsCSV:   coordsCSV,
		logger:      log,
	}
}

// Name returns the job name
func (j *GeocodeBackfillJob) Name() string {
	return "geocode_backfill"
}

// Schedule returns the cron schedule (daily at 3 AM)
func (j *GeocodeBackfillJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run geocodes projects missing from the coordinates CSV
// Output: pending, cached, fetched, missed, added
func (j *GeocodeBackfillJob) Run(ctx context.Context) (scheduler.Output, error) {
	list, err := projects.LoadProjectsCSV(j.projectsCSV)
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}

	coords, err := projects.LoadCoordsCSV(j.coordsCSV)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load coordinates: %w", err)
	}

	pending := Pending(list, coords)
	if len(pending) == 0 {
		j.logger.Debug("No projects to geocode")
		return scheduler.Output{"pending": 0}, nil
	}

	addresses := make([]string, len(pending))
	for i, p := range pending {
		addresses[i] = geocode.BuildFullAddress(p.Gu, p.Address)
	}

	batch, err := j.service.GeocodeBatch(ctx, addresses)
	if err != nil {
		return nil, fmt.Errorf("geocode batch: %w", err)
	}

	added := 0
	for i, p := range pending {
		r, err := j.service.Lookup(ctx, addresses[i])
		if err != nil || !r.Found {
			continue
		}
		coords = append(coords, projects.CoordRecord{
			ID:          p.ID,
			Name:        p.Name,
			Gu:          p.Gu,
			Address:     p.Address,
			FullAddress: addresses[i],
			Lat:         r.Lat,
			Lon:         r.Lon,
		})
		added++
	}

	if added > 0 {
		if err := writeCoords(j.coordsCSV, coords); err != nil {
			return nil, err
		}
	}

	out := scheduler.Output{
		"pending": len(pending),
		"cached":  batch.Cached,
		"fetched": batch.Fetched,
		"missed":  batch.Missed,
		"added":   added,
	}
	j.logger.WithFields(out).Info("Geocode backfill completed")

	return out, nil
}

// Pending 주소가 있고 유효 좌표가 없는 단지
func Pending(list []projects.Project, coords []projects.CoordRecord) []projects.Project {
	type key struct{ name, gu string }
	have := make(map[key]bool, len(coords))
	for _, c := range coords {
		if c.Valid() {
			have[key{c.Name, c.Gu}] = true
		}
	}

	out := make([]projects.Project, 0)
	for _, p := range list {
		if p.Address == "" || !projects.IsDistrict(p.Gu) || have[key{p.Name, p.Gu}] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// writeCoords 임시 파일에 쓰고 rename (읽는 쪽이 반쯤 쓴 파일을 보지 않도록)
func writeCoords(path string, coords []projects.CoordRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create coords dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".coords-*.csv")
	if err != nil {
		return fmt.Errorf("create temp coords: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := projects.WriteCoordsCSV(tmp, coords); err != nil {
		tmp.Close()
		return fmt.Errorf("write coords: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// =============================================================================
// Cleanup
// =============================================================================

// GeocodeCacheCleanupJob 메모리 LRU 비우기 + 오래된 미조회 결과 삭제
type GeocodeCacheCleanupJob struct {
	cache      *geocode.Cache
	retryAfter time.Duration
	logger     *logger.Logger
}

// NewGeocodeCacheCleanupJob creates a new geocode cache cleanup job
func NewGeocodeCacheCleanupJob(cache *geocode.Cache, retryAfter time.Duration, log *logger.Logger) *GeocodeCacheCleanupJob {
	if retryAfter <= 0 {
		retryAfter = DefaultMissRetryAfter
	}
	return &GeocodeCacheCleanupJob{
		cache:      cache,
		retryAfter: retryAfter,
		logger:     log,
	}
}

// Name returns the job name
func (j *GeocodeCacheCleanupJob) Name() string {
	return "geocode_cache_cleanup"
}

// Schedule returns the cron schedule (every 30 minutes)
func (j *GeocodeCacheCleanupJob) Schedule() string {
	return "0 */30 * * * *"
}

// Run executes the cache cleanup
// Output: purged (메모리 LRU), deleted (SQLite 미조회 결과)
func (j *GeocodeCacheCleanupJob) Run(ctx context.Context) (scheduler.Output, error) {
	purged := j.cache.PurgeMemory()

	deleted, err := j.cache.DeleteMisses(ctx, time.Now().Add(-j.retryAfter))
	if err != nil {
		return nil, fmt.Errorf("delete stale misses: %w", err)
	}

	out := scheduler.Output{"purged": purged, "deleted": deleted}
	if purged > 0 || deleted > 0 {
		j.logger.WithFields(out).Info("Geocode cache cleanup completed")
	}

	return out, nil
}
