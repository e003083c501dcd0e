package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"wellness-backend-go/internal/services"
)

type contextKey string

const (
	ctxSubject contextKey = "subject"
	ctxRoles   contextKey = "roles"
)

func WithAuth(tokenService services.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				WriteError(w, http.StatusUnauthorized, "Authentication failed")
				return
			}
			tokenStr := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			subject, roles, ok := verifyAccessToken(tokenService, tokenStr)
			if !ok {
				WriteError(w, http.StatusUnauthorized, "Authentication failed")
				return
			}
			ctx := context.WithValue(r.Context(), ctxSubject, subject)
			ctx = context.WithValue(ctx, ctxRoles, roles)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func verifyAccessToken(tokenService services.TokenService, tokenStr string) (string, []string, bool) {
	token, claims, err := tokenService.ParseToken(tokenStr)
	if err != nil || !token.Valid {
		return "", nil, false
	}
	if claims["typ"] != "access" {
		return "", nil, false
	}
	subject, _ := claims["sub"].(string)
	return subject, services.ClaimRoles(claims), true
}

func CurrentSubject(r *http.Request) string {
	if value, ok := r.Context().Value(ctxSubject).(string); ok {
		return value
	}
	return ""
}

func CurrentRoles(r *http.Request) []string {
	if value, ok := r.Context().Value(ctxRoles).([]string); ok {
		return value
	}
	return nil
}

func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hasRole(CurrentRoles(r), role) {
				next.ServeHTTP(w, r)
				return
			}
			WriteError(w, http.StatusForbidden, "Not allowed")
		})
	}
}

// RequireSubjectOrRole lets a request through when the token subject equals
// the URL parameter param, or when the caller holds role.
func RequireSubjectOrRole(param, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := CurrentSubject(r)
			if hasRole(CurrentRoles(r), role) || (subject != "" && subject == chi.URLParam(r, param)) {
				next.ServeHTTP(w, r)
				return
			}
			WriteError(w, http.StatusForbidden, "Not allowed")
		})
	}
}

func hasRole(roles []string, role string) bool {
	role = strings.ToUpper(role)
	for _, r := range roles {
		if strings.ToUpper(r) == role {
			return true
		}
	}
	return false
}
