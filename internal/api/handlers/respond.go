package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/wonny/redev/backend/internal/analysis"
	"github.com/wonny/redev/backend/internal/congestion"
	"github.com/wonny/redev/backend/internal/scenario"
	"github.com/wonny/redev/backend/internal/store"
)

// maxBodyBytes 요청 본문 상한
const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// decodeBody 빈 본문은 기본값 요청으로 간주
func decodeBody(r *http.Request, dest interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dest)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// statusFor 도메인 에러 → HTTP 상태
func statusFor(err error) int {
	switch {
	case errors.Is(err, scenario.ErrInvalidInput),
		errors.Is(err, congestion.ErrInvalidInput),
		errors.Is(err, analysis.ErrInvalidSelection):
		return http.StatusBadRequest
	case errors.Is(err, scenario.ErrPresetNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, analysis.ErrNoData):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondErr 4xx는 에러 메시지 그대로, 5xx는 일반 메시지
func respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		respondError(w, status, "Internal server error")
		return
	}
	respondError(w, status, err.Error())
}
