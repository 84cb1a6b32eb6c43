package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/redev/backend/internal/scheduler"
	"github.com/wonny/redev/backend/internal/scheduler/jobs"
	"github.com/wonny/redev/backend/internal/traffic"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행 (완료까지 대기)

Example:
  go run ./cmd/redev scheduler start
  go run ./cmd/redev scheduler list
  go run ./cmd/redev scheduler run speed_cache_refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- speed_cache_refresh: 매시간 (속도 보고서가 바뀌면 정규화 CSV 재생성)
- geocode_backfill: 매일 오전 3시 (좌표 없는 단지 지오코딩)
- geocode_cache_cleanup: 30분마다 (LRU 비우기, 오래된 미조회 결과 삭제)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	PrintHeader("Redev Scheduler")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	// Initialize dependencies
	sched, err := initScheduler(a, nil)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// Start scheduler
	sched.Start()

	PrintSuccess("Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	PrintList(sched.GetAllJobs())
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := initScheduler(a, nil)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	stats := sched.GetJobStats()
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	widths := []int{24, 16, 6, 40}
	PrintTableHeader([]string{"JOB", "SCHEDULE", "RUNS", "LAST OUTPUT"}, widths)
	for _, name := range names {
		st := stats[name]
		PrintTableRow([]string{name, st.Schedule, fmt.Sprintf("%d", st.TotalRuns), st.LastOutput.String()}, widths)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := initScheduler(a, nil)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := sched.RunJobSync(ctx, jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if !result.Success {
		PrintError(fmt.Sprintf("Job %s failed after %s: %s", jobName, result.Duration.Round(time.Millisecond), result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}

	PrintSuccess(fmt.Sprintf("Job %s completed in %s (attempts: %d)", jobName, result.Duration.Round(time.Millisecond), result.Attempts))
	PrintKeyValue("Output", result.Output.String(), 8)
	return nil
}

// initScheduler registers all jobs. memo는 속도 CSV 재생성 시 비울 메모 (nil 허용)
func initScheduler(a *app, memo jobs.Forgetter) (*scheduler.Scheduler, error) {
	geo, err := a.geocodeService(context.Background())
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(a.log,
		scheduler.WithRetry(2, 30*time.Second),
		scheduler.WithMetrics(a.metrics),
	)

	normalize := traffic.NormalizeOptions{Prefer: a.cfg.Traffic.LinkIDPrefer}

	// Register jobs
	for _, job := range []scheduler.Job{
		jobs.NewSpeedCacheRefreshJob(a.cfg.Data.TrafficXLSX, a.cfg.Data.TrafficCSV, normalize, memo, a.log),
		jobs.NewGeocodeBackfillJob(geo, a.cfg.Data.ProjectsCSV, a.cfg.Data.CoordsCSV, a.log),
		jobs.NewGeocodeCacheCleanupJob(geo.Cache(), jobs.DefaultMissRetryAfter, a.log),
	} {
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}

	return sched, nil
}
