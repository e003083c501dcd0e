package services

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

type TokenService struct {
	Secret    []byte
	Issuer    string
	AccessTTL time.Duration
	// APIKeyHash is the bcrypt hash of the admin API key.
	APIKeyHash string
}

// HashAPIKey produces the bcrypt hash stored in ADMIN_API_KEY_HASH.
func (t TokenService) HashAPIKey(raw string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (t TokenService) VerifyAPIKey(raw string) bool {
	if t.APIKeyHash == "" || strings.TrimSpace(raw) == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(t.APIKeyHash), []byte(raw)) == nil
}

// CreateAccessToken signs an HS256 token. subject is the external id of a
// user, or "admin" for tokens issued against the API key.
func (t TokenService) CreateAccessToken(subject string, roles []string) (string, int64, error) {
	now := time.Now().UTC()
	exp := now.Add(t.AccessTTL)
	claims := jwt.MapClaims{
		"iss":   t.Issuer,
		"sub":   subject,
		"typ":   "access",
		"roles": roles,
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.Secret)
	return signed, exp.Unix(), err
}

func (t TokenService) ParseToken(tokenStr string) (*jwt.Token, jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.Secret, nil
	}, jwt.WithIssuer(t.Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return token, claims, err
}

// ClaimRoles extracts the roles claim of a parsed token.
func ClaimRoles(claims jwt.MapClaims) []string {
	roles := []string{}
	if rawRoles, ok := claims["roles"].([]interface{}); ok {
		for _, r := range rawRoles {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
	}
	return roles
}
