package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/redev/backend/internal/scheduler"
	"github.com/wonny/redev/backend/internal/traffic"
	"github.com/wonny/redev/backend/pkg/logger"
)

// Forgetter drops memoized data derived from the speed CSV
type Forgetter interface {
	Forget()
}

// SpeedCacheRefreshJob 원본 속도 보고서가 바뀌면 정규화 CSV 재생성
// ⭐ SSOT: 속도 CSV 캐시 갱신 스케줄은 이 Job에서만
type SpeedCacheRefreshJob struct {
	src    string
	dst    string
	opts   traffic.EnsureOptions
	memo   Forgetter // nil 허용
	logger *logger.Logger
}

// NewSpeedCacheRefreshJob creates a new speed cache refresh job
func NewSpeedCacheRefreshJob(src, dst string, opts traffic.NormalizeOptions, memo Forgetter, log *logger.Logger) *SpeedCacheRefreshJob {
	return &SpeedCacheRefreshJob{
		src:    src,
		dst:    dst,
		opts:   traffic.EnsureOptions{NormalizeOptions: opts},
		memo:   memo,
		logger: log,
	}
}

// Name returns the job name
func (j *SpeedCacheRefreshJob) Name() string {
	return "speed_cache_refresh"
}

// Schedule returns the cron schedule (hourly)
func (j *SpeedCacheRefreshJob) Schedule() string {
	return "0 0 * * * *" // Every hour (with seconds)
}

// Run regenerates the speed CSV when the source is newer
// Output: regenerated, 재생성 시 records/links (정규화 행 수, 링크 수)
func (j *SpeedCacheRefreshJob) Run(ctx context.Context) (scheduler.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	regenerated, err := traffic.EnsureSpeedCSV(j.src, j.dst, j.opts)
	if err != nil {
		return nil, fmt.Errorf("ensure speed csv: %w", err)
	}

	out := scheduler.Output{"regenerated": regenerated}
	if !regenerated {
		j.logger.Debug("Speed CSV up to date")
		return out, nil
	}

	if j.memo != nil {
		j.memo.Forget()
	}
	if table, err := traffic.LoadSpeedCSV(j.dst); err == nil {
		out["records"] = len(table)
		out["links"] = len(table.Links())
	}
	j.logger.WithFields(map[string]interface{}{
		"src": j.src,
		"dst": j.dst,
	}).Info("Speed CSV regenerated")

	return out, nil
}
