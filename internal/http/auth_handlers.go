package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"wellness-backend-go/internal/services"
)

const adminSubject = "admin"

type TokenRequest struct {
	APIKey string `json:"apiKey"`
}

type TokenResponse struct {
	AccessToken string   `json:"accessToken"`
	ExpiresAt   int64    `json:"expiresAt"`
	Subject     string   `json:"subject"`
	Roles       []string `json:"roles"`
}

// IssueToken exchanges the admin API key for an ADMIN access token.
func (s *Server) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if !s.Tokens.VerifyAPIKey(req.APIKey) {
		WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	s.writeToken(w, adminSubject, []string{services.RoleAdmin})
}

// IssueUserToken lets an admin mint a token scoped to one user's read paths.
func (s *Server) IssueUserToken(w http.ResponseWriter, r *http.Request) {
	externalID := strings.TrimSpace(chi.URLParam(r, "externalId"))
	if _, err := s.Store.FindUser(r.Context(), externalID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeToken(w, externalID, []string{services.RoleUser})
}

func (s *Server) writeToken(w http.ResponseWriter, subject string, roles []string) {
	access, exp, err := s.Tokens.CreateAccessToken(subject, roles)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: access,
		ExpiresAt:   exp,
		Subject:     subject,
		Roles:       roles,
	})
}
