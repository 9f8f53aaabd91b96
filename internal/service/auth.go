// Package service holds the admin authentication service: a shared admin
// token exchanged for short-lived JWT bearer tokens.
package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAuthDisabled       = errors.New("admin authentication is not configured")
)

// AdminPrincipal identifies an authenticated admin session.
type AdminPrincipal struct {
	Subject string
}

// AuthService exchanges the configured admin token for JWTs and validates
// them on admin endpoints.
type AuthService struct {
	adminToken []byte
	jwtSecret  []byte
	jwtTTL     time.Duration
}

// NewAuthService creates an AuthService. An empty adminToken disables
// admin login entirely.
func NewAuthService(adminToken, jwtSecret string, jwtTTL time.Duration) *AuthService {
	if jwtTTL == 0 {
		jwtTTL = 12 * time.Hour
	}
	return &AuthService{
		adminToken: []byte(adminToken),
		jwtSecret:  []byte(jwtSecret),
		jwtTTL:     jwtTTL,
	}
}

// Enabled reports whether an admin token is configured.
func (s *AuthService) Enabled() bool { return len(s.adminToken) > 0 }

// Login exchanges the shared admin token for a signed JWT. The comparison
// is constant time over token hashes.
func (s *AuthService) Login(token string) (string, error) {
	if !s.Enabled() {
		return "", ErrAuthDisabled
	}

	want := sha256.Sum256(s.adminToken)
	got := sha256.Sum256([]byte(token))
	if subtle.ConstantTimeCompare(want[:], got[:]) != 1 {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtTTL)),
			Issuer:    "askdb",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// ValidateJWT verifies a bearer token and returns the admin identity.
func (s *AuthService) ValidateJWT(tokenStr string) (*AdminPrincipal, error) {
	claims := &jwtClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}

	return &AdminPrincipal{Subject: claims.Subject}, nil
}

type jwtClaims struct {
	jwt.RegisteredClaims
}
