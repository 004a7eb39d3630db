package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"enclave/internal/crypto"
	"enclave/internal/domain"
	"enclave/internal/logging"
)

// ErrNotRegistered is returned by Status when nothing is held for the server.
var ErrNotRegistered = errors.New("session: no account registered on this server")

// Status describes the local session for one server.
type Status struct {
	Profile          domain.AccountProfile
	HasTokens        bool
	TokenFingerprint string
	// ExpiresAt is zero when the token carries no readable expiry.
	ExpiresAt time.Time
	Expired   bool
}

// Service reads and clears the local session.
type Service struct {
	tokens    domain.TokenStore
	accounts  domain.AccountStore
	serverURL string
	log       *logging.Logger
	now       func() time.Time
}

// New returns a session service for serverURL.
func New(tokens domain.TokenStore, accounts domain.AccountStore, serverURL string, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Service{
		tokens:    tokens,
		accounts:  accounts,
		serverURL: serverURL,
		log:       log.WithComponent("session"),
		now:       time.Now,
	}
}

// Status returns the profile and token state for the configured server.
func (s *Service) Status() (Status, error) {
	profile, hasProfile, err := s.accounts.LoadAccountProfile(s.serverURL)
	if err != nil {
		return Status{}, fmt.Errorf("session: load profile: %w", err)
	}
	tokens, hasTokens, err := s.tokens.LoadTokens()
	if err != nil {
		return Status{}, fmt.Errorf("session: load tokens: %w", err)
	}
	if !hasProfile && !hasTokens {
		return Status{}, ErrNotRegistered
	}

	st := Status{Profile: profile, HasTokens: hasTokens}
	if !hasTokens {
		return st, nil
	}
	if profile.UserID == "" {
		st.Profile.UserID = tokens.UserID
	}
	st.TokenFingerprint = crypto.FingerprintString(tokens.SessionToken)
	if exp, ok := expiry(tokens.SessionToken); ok {
		st.ExpiresAt = exp
		st.Expired = !s.now().Before(exp)
	}
	return st, nil
}

// Logout clears the tokens and forgets the profile.
func (s *Service) Logout() error {
	if err := s.tokens.ClearTokens(); err != nil {
		return fmt.Errorf("session: clear tokens: %w", err)
	}
	if err := s.accounts.DeleteAccountProfile(s.serverURL); err != nil {
		return fmt.Errorf("session: delete profile: %w", err)
	}
	s.log.Info("logged out", "server", s.serverURL)
	return nil
}

// expiry reads the exp claim of a JWT without verifying it.
func expiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
