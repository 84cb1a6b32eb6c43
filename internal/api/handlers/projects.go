package handlers

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/wonny/redev/backend/internal/projects"
	"github.com/wonny/redev/backend/internal/traffic"
	"github.com/wonny/redev/backend/pkg/logger"
)

// ProjectsHandler handles redevelopment project endpoints
type ProjectsHandler struct {
	projectsCSV string
	coordsCSV   string
	logger      *logger.Logger
}

// NewProjectsHandler creates a new projects handler
func NewProjectsHandler(projectsCSV, coordsCSV string, log *logger.Logger) *ProjectsHandler {
	return &ProjectsHandler{
		projectsCSV: projectsCSV,
		coordsCSV:   coordsCSV,
		logger:      log,
	}
}

// ProjectsResponse 자치구 단지 목록
type ProjectsResponse struct {
	Gu     string          `json:"gu"`
	Center traffic.Coord   `json:"center"`
	Count  int             `json:"count"`
	Sites  []projects.Site `json:"sites"`
}

// GetProjects lists projects of a district with coordinates
// GET /api/projects?gu=
func (h *ProjectsHandler) GetProjects(w http.ResponseWriter, r *http.Request) {
	gu := r.URL.Query().Get("gu")
	if !projects.IsDistrict(gu) {
		respondError(w, http.StatusBadRequest, "gu must be one of the 25 Seoul districts")
		return
	}

	list, err := projects.LoadProjectsCSV(h.projectsCSV)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			respondError(w, http.StatusServiceUnavailable, "project data not available")
			return
		}
		h.logger.WithError(err).Error("Failed to load projects")
		respondError(w, http.StatusInternalServerError, "failed to load projects")
		return
	}

	// 좌표 파일이 없으면 전부 구 중심 보정 좌표
	coords, err := projects.LoadCoordsCSV(h.coordsCSV)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		h.logger.WithError(err).Warn("Failed to load coordinates")
	}

	sites := projects.MergeCoordinates(list, coords, gu)
	center, ok := projects.Center(sites)
	if !ok {
		center, _ = projects.GuCenter(gu)
	}

	respondJSON(w, http.StatusOK, ProjectsResponse{
		Gu:     gu,
		Center: center,
		Count:  len(sites),
		Sites:  sites,
	})
}
