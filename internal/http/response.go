package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"wellness-backend-go/internal/services"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Message: message})
}

// writeServiceError maps a ServiceError onto its status and anything else
// onto a logged 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var serr services.ServiceError
	if errors.As(err, &serr) {
		WriteError(w, serr.Status, serr.Message)
		return
	}
	s.Logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	WriteError(w, http.StatusInternalServerError, "Internal server error")
}
