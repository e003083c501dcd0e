package httpapi

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"wellness-backend-go/internal/services"
)

// RiskSocket streams freshly scored assessments to admins. Browsers cannot
// set headers on websocket requests, so the token comes in the query.
func (s *Server) RiskSocket(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("token")
	if query == "" {
		WriteError(w, http.StatusUnauthorized, "Authentication failed")
		return
	}
	_, roles, ok := verifyAccessToken(s.Tokens, query)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Authentication failed")
		return
	}
	if !hasRole(roles, services.RoleAdmin) {
		WriteError(w, http.StatusForbidden, "Not allowed")
		return
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	s.Feed.Add(conn)
	defer func() {
		s.Feed.Remove(conn)
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
