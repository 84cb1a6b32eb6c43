package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wonny/redev/backend/internal/scenario"
	"github.com/wonny/redev/backend/internal/store"
	"github.com/wonny/redev/backend/pkg/logger"
)

// ScenarioHandler handles scenario API endpoints
// ⭐ SSOT: 시나리오 API 핸들러는 이 구조체에서만
type ScenarioHandler struct {
	presets *scenario.PresetSet
	runs    store.RunStore // nil이면 이력 저장 안 함
	logger  *logger.Logger
}

// NewScenarioHandler creates a new scenario handler
func NewScenarioHandler(presets *scenario.PresetSet, runs store.RunStore, log *logger.Logger) *ScenarioHandler {
	return &ScenarioHandler{
		presets: presets,
		runs:    runs,
		logger:  log,
	}
}

// ScenarioRequest 시나리오 요청
// Preset으로 기본값을 채우고 Input/Common/Variants가 있으면 덮어씀
type ScenarioRequest struct {
	Preset   string             `json:"preset"`
	Input    *scenario.Input    `json:"input,omitempty"`
	Common   *scenario.Common   `json:"common,omitempty"`
	Variants []scenario.Variant `json:"variants,omitempty"`
	Pct      float64            `json:"pct,omitempty"`
	MC       json.RawMessage    `json:"mc,omitempty"` // 일부 필드만 보내면 나머지는 기본값
}

// KPIResponse 단일 시나리오 결과
type KPIResponse struct {
	Input   scenario.Input  `json:"input"`
	Result  scenario.Result `json:"result"`
	Rounded scenario.Result `json:"rounded"`
	RunID   *uuid.UUID      `json:"run_id,omitempty"`
}

// CompareResponse 시나리오 비교 결과
type CompareResponse struct {
	Comparison scenario.Comparison `json:"comparison"`
	Checklist  []string            `json:"checklist"`
	RunID      *uuid.UUID          `json:"run_id,omitempty"`
}

// TornadoResponse 민감도 결과
type TornadoResponse struct {
	Tornado scenario.TornadoResult `json:"tornado"`
	RunID   *uuid.UUID             `json:"run_id,omitempty"`
}

// MonteCarloResponse Monte Carlo 결과
type MonteCarloResponse struct {
	MonteCarlo *scenario.MCResult `json:"montecarlo"`
	RunID      *uuid.UUID         `json:"run_id,omitempty"`
}

// preset 요청 프리셋 (비어 있으면 base)
func (h *ScenarioHandler) preset(name string) (scenario.Preset, error) {
	if name == "" {
		name = "base"
	}
	return h.presets.Get(name)
}

// input 단일 시나리오 입력 결정
func (h *ScenarioHandler) input(req ScenarioRequest) (scenario.Input, error) {
	if req.Input != nil {
		return *req.Input, nil
	}
	p, err := h.preset(req.Preset)
	if err != nil {
		return scenario.Input{}, err
	}
	return p.BaseInput(), nil
}

// save 이력 저장 (실패해도 응답은 정상 반환)
func (h *ScenarioHandler) save(ctx context.Context, kind, preset string, input, result interface{}) *uuid.UUID {
	if h.runs == nil {
		return nil
	}
	run, err := store.NewRun(kind, preset, input, result)
	if err == nil {
		err = h.runs.SaveRun(ctx, run)
	}
	if err != nil {
		h.logger.WithError(err).WithField("kind", kind).Warn("Failed to save scenario run")
		return nil
	}
	return &run.ID
}

// GetPresets returns the preset catalogue
// GET /api/scenario/presets
func (h *ScenarioHandler) GetPresets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.presets)
}

// CalcKPIs computes a single scenario
// POST /api/scenario/kpis
func (h *ScenarioHandler) CalcKPIs(w http.ResponseWriter, r *http.Request) {
	var req ScenarioRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in, err := h.input(req)
	if err != nil {
		respondErr(w, err)
		return
	}
	if err := in.Validate(); err != nil {
		respondErr(w, err)
		return
	}

	result := scenario.CalcKPIs(in)
	respondJSON(w, http.StatusOK, KPIResponse{
		Input:   in,
		Result:  result,
		Rounded: result.Rounded(),
		RunID:   h.save(r.Context(), store.KindKPIs, req.Preset, in, result),
	})
}

// Compare computes A/B/C scenarios sharing common inputs
// POST /api/scenario/compare
func (h *ScenarioHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req ScenarioRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	common, variants := scenario.Common{}, req.Variants
	if req.Common == nil || len(variants) == 0 {
		p, err := h.preset(req.Preset)
		if err != nil {
			respondErr(w, err)
			return
		}
		common = p.Common
		if len(variants) == 0 {
			variants = p.Variants
		}
	}
	if req.Common != nil {
		common = *req.Common
	}

	cmp, err := scenario.Compare(r.Context(), common, variants)
	if err != nil {
		respondErr(w, err)
		return
	}

	checklist := scenario.Checklist(cmp)
	respondJSON(w, http.StatusOK, CompareResponse{
		Comparison: cmp,
		Checklist:  checklist,
		RunID:      h.save(r.Context(), store.KindCompare, req.Preset, req, cmp),
	})
}

// Tornado computes the ±pct sensitivity of NPV
// POST /api/scenario/tornado
func (h *ScenarioHandler) Tornado(w http.ResponseWriter, r *http.Request) {
	var req ScenarioRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in, err := h.input(req)
	if err != nil {
		respondErr(w, err)
		return
	}

	common, base := in.Split("base")
	result, err := scenario.Tornado(common, base, req.Pct)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, TornadoResponse{
		Tornado: result,
		RunID:   h.save(r.Context(), store.KindTornado, req.Preset, in, result),
	})
}

// MonteCarlo samples NPV under price/cost uncertainty
// POST /api/scenario/montecarlo
func (h *ScenarioHandler) MonteCarlo(w http.ResponseWriter, r *http.Request) {
	var req ScenarioRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in, err := h.input(req)
	if err != nil {
		respondErr(w, err)
		return
	}

	cfg := scenario.DefaultMCConfig()
	if len(req.MC) > 0 {
		if err := json.Unmarshal(req.MC, &cfg); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid mc config")
			return
		}
	}

	common, base := in.Split("base")
	result, err := scenario.MonteCarlo(r.Context(), common, base, cfg)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, MonteCarloResponse{
		MonteCarlo: result,
		RunID: h.save(r.Context(), store.KindMonteCarlo, req.Preset, struct {
			Input  scenario.Input    `json:"input"`
			Config scenario.MCConfig `json:"config"`
		}{in, result.Config}, result),
	})
}

// GetRun returns a stored scenario run
// GET /api/scenario/runs/{id}
func (h *ScenarioHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "run history is disabled (DATABASE_URL not set)")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	run, err := h.runs.GetRun(r.Context(), id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.logger.WithError(err).Error("Failed to get scenario run")
		}
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, run)
}
