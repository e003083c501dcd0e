package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type ScoreResponse struct {
	ExternalID string              `json:"externalId"`
	ModelName  string              `json:"modelName"`
	Days       int                 `json:"days"`
	Items      []RiskAssessmentDTO `json:"items"`
}

func (s *Server) ListModels(w http.ResponseWriter, r *http.Request) {
	active := s.Engine.Model()
	items := []RiskModelDTO{}
	listed := false
	for _, m := range s.Registry.Models() {
		if m.Name == active.Name {
			listed = true
		}
		items = append(items, toRiskModelDTO(m, m.Name == active.Name))
	}
	if !listed {
		// threshold variants live outside the registry
		items = append(items, toRiskModelDTO(active, true))
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// PreviewRisk scores a posted record without touching storage.
func (s *Server) PreviewRisk(w http.ResponseWriter, r *http.Request) {
	var req DailyMetricDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	record, err := req.toRecord()
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid date")
		return
	}
	engine, err := s.engineFor(strings.TrimSpace(r.URL.Query().Get("model")))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, engine.Score(record))
}

func (s *Server) DailyMetrics(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "externalId")
	user, err := s.Store.FindUser(r.Context(), externalID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	records, err := s.Store.FetchDailyMetrics(r.Context(), user.ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	items := make([]DailyMetricDTO, 0, len(records))
	for _, record := range records {
		items = append(items, toDailyMetricDTO(record))
	}
	WriteJSON(w, http.StatusOK, DailyMetricsResponse{ExternalID: externalID, Items: items})
}

func (s *Server) RiskAssessments(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "externalId")
	engine, err := s.engineFor(strings.TrimSpace(r.URL.Query().Get("model")))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	user, err := s.Store.FindUser(r.Context(), externalID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	modelName := engine.Model().Name
	items, err := s.Store.FetchRiskAssessments(r.Context(), user.ID, modelName)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, RiskAssessmentsResponse{
		ExternalID: externalID,
		ModelName:  modelName,
		Items:      toRiskAssessmentDTOs(items),
	})
}

// ScoreUser re-scores all stored days of a user and pushes the results to
// the risk feed.
func (s *Server) ScoreUser(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "externalId")
	engine, err := s.engineFor(strings.TrimSpace(r.URL.Query().Get("model")))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	report, err := s.Scoring.ScoreUserWith(r.Context(), externalID, engine)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, ScoreResponse{
		ExternalID: externalID,
		ModelName:  report.ModelName,
		Days:       len(report.Assessments),
		Items:      toRiskAssessmentDTOs(report.Assessments),
	})
}
