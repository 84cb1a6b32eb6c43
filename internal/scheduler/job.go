package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// maxHistory 작업별 보관 실행 기록 수
const maxHistory = 100

// Job 데이터 갱신 작업 (속도 CSV 정규화, 지오코딩 backfill, 캐시 정리)
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	// Run 한 번 실행하고 처리 결과 요약을 반환 (실패 시 Output은 무시)
	Run(ctx context.Context) (Output, error)

	// Schedule cron 표현식 (초 포함 6필드)
	// 예: "0 0 * * * *" 매시 정각, "0 0 3 * * *" 매일 03:00
	Schedule() string
}

// Output 작업별 처리 결과 요약
// 예: {"regenerated": true}, {"fetched": 12, "missed": 3}
type Output map[string]interface{}

// String key=value를 key 순으로 나열 (비어 있으면 "-")
func (o Output) String() string {
	if len(o) == 0 {
		return "-"
	}

	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, o[k])
	}
	return strings.Join(parts, " ")
}

// JobResult 한 번의 실행 결과 (재시도 포함)
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Output    Output        `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory 최근 실행 기록 (최대 maxHistory개)
type JobHistory struct {
	Results []JobResult
}

// AddResult appends a result, dropping the oldest beyond maxHistory
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > maxHistory {
		h.Results = h.Results[len(h.Results)-maxHistory:]
	}
}

// GetLatestResults returns the latest N results
func (h *JobHistory) GetLatestResults(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n == 0 {
		return []JobResult{}
	}
	return h.Results[len(h.Results)-n:]
}

// LastOutput 마지막 성공 실행의 결과 요약 (없으면 nil)
func (h *JobHistory) LastOutput() Output {
	for i := len(h.Results) - 1; i >= 0; i-- {
		if h.Results[i].Success {
			return h.Results[i].Output
		}
	}
	return nil
}

// GetFailedResults returns all failed results
func (h *JobHistory) GetFailedResults() []JobResult {
	failed := make([]JobResult, 0)
	for _, result := range h.Results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// GetSuccessRate returns the success rate (0.0 - 1.0)
func (h *JobHistory) GetSuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}

	successCount := 0
	for _, result := range h.Results {
		if result.Success {
			successCount++
		}
	}
	return float64(successCount) / float64(len(h.Results))
}
