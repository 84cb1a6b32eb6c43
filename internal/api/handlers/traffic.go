package handlers

import (
	"net/http"

	"github.com/wonny/redev/backend/internal/analysis"
	"github.com/wonny/redev/backend/internal/mitigation"
	"github.com/wonny/redev/backend/pkg/logger"
)

// TrafficHandler handles traffic analysis endpoints
type TrafficHandler struct {
	analysis *analysis.Service
	logger   *logger.Logger
}

// NewTrafficHandler creates a new traffic handler
func NewTrafficHandler(svc *analysis.Service, log *logger.Logger) *TrafficHandler {
	return &TrafficHandler{
		analysis: svc,
		logger:   log,
	}
}

// MitigationRequest 완화안 직접 계산 요청
type MitigationRequest struct {
	After       []float64 `json:"after"`
	Base        []float64 `json:"base"`
	ExtraMargin float64   `json:"extra_margin"`
}

// Trend returns the congestion trend, post-redevelopment curve and bus plan
// POST /api/traffic/trend
func (h *TrafficHandler) Trend(w http.ResponseWriter, r *http.Request) {
	var req analysis.TrendRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.analysis.Trend(r.Context(), req)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.logger.WithError(err).WithField("gu", req.Selection.Gu).Error("Trend analysis failed")
		}
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// CFI returns the congestion frequency-intensity for a selection
// POST /api/traffic/cfi
func (h *TrafficHandler) CFI(w http.ResponseWriter, r *http.Request) {
	var req analysis.CFIRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.analysis.CFI(r.Context(), req)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.logger.WithError(err).WithField("gu", req.Selection.Gu).Error("CFI analysis failed")
		}
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Mitigation solves the minimum bus increase for given curves
// POST /api/traffic/mitigation
func (h *TrafficHandler) Mitigation(w http.ResponseWriter, r *http.Request) {
	var req MitigationRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.After) == 0 || len(req.After) != len(req.Base) {
		respondError(w, http.StatusBadRequest, "after and base must be non-empty and of equal length")
		return
	}

	respondJSON(w, http.StatusOK, mitigation.Solve(req.After, req.Base, req.ExtraMargin))
}
