package devidentity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"enclave/internal/domain"
)

const tokenIssuer = "enclave-devidentity"

type ctxKey int

const userIDKey ctxKey = iota

// issueTokens mints a session and refresh token for id.
func (s *Server) issueTokens(id domain.UserID) (domain.AccountTokens, error) {
	now := s.opts.Now()
	session := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   id.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.TokenTTL)),
		ID:        uuid.NewString(),
	})
	signed, err := session.SignedString(s.opts.SigningKey)
	if err != nil {
		return domain.AccountTokens{}, fmt.Errorf("sign session token: %w", err)
	}
	return domain.AccountTokens{
		SessionToken: signed,
		RefreshToken: uuid.NewString(),
		UserID:       id,
	}, nil
}

// parseToken validates a session token and returns its subject.
func (s *Server) parseToken(raw string) (domain.UserID, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.opts.SigningKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.opts.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return domain.UserID(claims.Subject), nil
}

// bearerUser returns the authenticated user, or false when the request has
// no valid bearer token.
func (s *Server) bearerUser(r *http.Request) (domain.UserID, bool) {
	h := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || raw == "" {
		return "", false
	}
	id, err := s.parseToken(raw)
	if err != nil {
		return "", false
	}
	s.mu.Lock()
	_, exists := s.accounts[id]
	s.mu.Unlock()
	return id, exists
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.bearerUser(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, domain.KindUnauthorized.String(), "invalid or expired session")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, id)))
	})
}

func userFrom(ctx context.Context) domain.UserID {
	id, _ := ctx.Value(userIDKey).(domain.UserID)
	return id
}
