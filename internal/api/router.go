package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/redev/backend/internal/api/handlers"
	"github.com/wonny/redev/backend/pkg/logger"
	"github.com/wonny/redev/backend/pkg/metrics"
)

// Handlers 라우터에 연결할 핸들러 묶음
type Handlers struct {
	Scenario *handlers.ScenarioHandler
	Traffic  *handlers.TrafficHandler
	Projects *handlers.ProjectsHandler
	Live     *handlers.LiveHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
// m이 nil이면 metrics 미들웨어와 /metrics 없음
func NewRouter(h Handlers, m *metrics.Collector, gatherer prometheus.Gatherer, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	if m != nil {
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Scenario endpoints
	api.HandleFunc("/scenario/presets", h.Scenario.GetPresets).Methods("GET")
	api.HandleFunc("/scenario/kpis", h.Scenario.CalcKPIs).Methods("POST")
	api.HandleFunc("/scenario/compare", h.Scenario.Compare).Methods("POST")
	api.HandleFunc("/scenario/tornado", h.Scenario.Tornado).Methods("POST")
	api.HandleFunc("/scenario/montecarlo", h.Scenario.MonteCarlo).Methods("POST")
	api.HandleFunc("/scenario/runs/{id}", h.Scenario.GetRun).Methods("GET")

	// Traffic endpoints
	api.HandleFunc("/traffic/trend", h.Traffic.Trend).Methods("POST")
	api.HandleFunc("/traffic/cfi", h.Traffic.CFI).Methods("POST")
	api.HandleFunc("/traffic/mitigation", h.Traffic.Mitigation).Methods("POST")

	// Project endpoints
	api.HandleFunc("/projects", h.Projects.GetProjects).Methods("GET")

	// Live scenario
	r.HandleFunc("/ws/scenario", h.Live.ServeScenario).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))
	if m != nil {
		r.Use(metricsMiddleware(m))
	}

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "redev-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			// Call next handler
			next.ServeHTTP(rec, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// metricsMiddleware records request counts and durations per route template
func metricsMiddleware(m *metrics.Collector) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			endpoint := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tpl, err := route.GetPathTemplate(); err == nil {
					endpoint = tpl
				}
			}

			timer := m.NewTimer(m.APIRequestDuration.WithLabelValues(endpoint))
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			timer.ObserveDuration()
			m.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(rec.status))
			if rec.status >= http.StatusBadRequest {
				m.RecordAPIError(http.StatusText(rec.status), endpoint)
			}
		})
	}
}

// statusRecorder 응답 상태 코드 기록 (websocket 업그레이드를 위해 Hijack 전달)
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}
