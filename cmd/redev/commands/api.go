package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/redev/backend/internal/api"
	"github.com/wonny/redev/backend/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                    - Health check
  GET  /metrics                   - Prometheus metrics
  GET  /api/scenario/presets      - 프리셋 목록
  POST /api/scenario/kpis         - 단일 시나리오 KPI
  POST /api/scenario/compare      - A/B/C 시나리오 비교 + 체크리스트
  POST /api/scenario/tornado      - NPV 민감도
  POST /api/scenario/montecarlo   - NPV 분포
  GET  /api/scenario/runs/{id}    - 실행 이력 (DATABASE_URL 필요)
  POST /api/traffic/trend         - 혼잡 추세 + 재건축 후 곡선 + 최소 증편률
  POST /api/traffic/cfi           - 혼잡빈도강도
  POST /api/traffic/mitigation    - 완화안 직접 계산
  GET  /api/projects?gu=          - 자치구 정비사업 목록
  GET  /ws/scenario               - 입력 변경 시 KPI 재계산 (websocket)

Example:
  go run ./cmd/redev api
  go run ./cmd/redev api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "같은 프로세스에서 스케줄러 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	log := a.log
	log.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
		"env":  a.cfg.Env,
	}).Info("Initializing API server")

	presets, err := a.presets()
	if err != nil {
		return err
	}

	svc := a.analysisService()

	// 속도 CSV가 재생성되면 메모를 바로 비움
	if apiWithScheduler {
		sched, err := initScheduler(a, svc)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// Create handlers
	h := api.Handlers{
		Scenario: handlers.NewScenarioHandler(presets, a.runStore(), log),
		Traffic:  handlers.NewTrafficHandler(svc, log),
		Projects: handlers.NewProjectsHandler(a.cfg.Data.ProjectsCSV, a.cfg.Data.CoordsCSV, log),
		Live:     handlers.NewLiveHandler(a.metrics, log),
	}

	// Create router and server
	router := api.NewRouter(h, a.metrics, nil, log)
	server := api.New(a.cfg, log, router)

	// Serve until Ctrl+C, then graceful shutdown (API_SHUTDOWN_TIMEOUT)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	PrintSuccess(fmt.Sprintf("Server running on http://localhost:%s", a.cfg.Port))
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return err
	}

	log.Info("Server stopped")
	return nil
}
