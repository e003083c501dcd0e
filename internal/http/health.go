package httpapi

import (
	"net/http"

	"wellness-backend-go/internal/services"
)

type HealthResponse struct {
	Status      string                `json:"status"`
	ActiveModel string                `json:"activeModel"`
	FeedClients int                   `json:"feedClients"`
	Process     services.ProcessStats `json:"process"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "ok",
		ActiveModel: s.Engine.Model().Name,
		Process:     services.CaptureProcessStats(),
	}
	if s.Feed != nil {
		resp.FeedClients = s.Feed.Clients()
	}
	WriteJSON(w, http.StatusOK, resp)
}
