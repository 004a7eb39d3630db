package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"enclave/internal/domain"
	"enclave/internal/logging"
	"enclave/internal/wizard"
)

var (
	// ErrAlreadyRegistered is returned when a profile for the server exists.
	ErrAlreadyRegistered = errors.New("registration: an account is already registered on this server, log out first")
	// ErrIncomplete is returned when tokens from an abandoned registration
	// are still held. Start with Discard to throw them away.
	ErrIncomplete = errors.New("registration: an unfinished registration holds the session tokens")
)

// Service starts registration sessions.
type Service struct {
	gateway   domain.IdentityGateway
	tokens    domain.TokenStore
	accounts  domain.AccountStore
	serverURL string
	policy    wizard.Policy
	log       *logging.Logger
	now       func() time.Time
}

// New returns a registration service for the identity service at serverURL.
func New(
	gw domain.IdentityGateway,
	tokens domain.TokenStore,
	accounts domain.AccountStore,
	serverURL string,
	policy wizard.Policy,
	log *logging.Logger,
) *Service {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Service{
		gateway:   gw,
		tokens:    tokens,
		accounts:  accounts,
		serverURL: serverURL,
		policy:    policy,
		log:       log.WithComponent("registration"),
		now:       time.Now,
	}
}

// StartOptions tune Start.
type StartOptions struct {
	// Discard drops tokens left behind by an unfinished registration.
	Discard bool
	// OnComplete runs after the account was finished and saved.
	OnComplete func(domain.AccountProfile)
}

// Start checks local state and returns a fresh wizard session.
func (s *Service) Start(opts StartOptions) (*wizard.Controller, error) {
	if _, ok, err := s.accounts.LoadAccountProfile(s.serverURL); err != nil {
		return nil, fmt.Errorf("registration: load profile: %w", err)
	} else if ok {
		return nil, ErrAlreadyRegistered
	}

	if _, held, err := s.tokens.LoadTokens(); err != nil {
		return nil, fmt.Errorf("registration: load tokens: %w", err)
	} else if held {
		if !opts.Discard {
			return nil, ErrIncomplete
		}
		s.log.Warn("discarding tokens of an unfinished registration")
		if err := s.tokens.ClearTokens(); err != nil {
			return nil, fmt.Errorf("registration: clear tokens: %w", err)
		}
	}

	reg := wizard.DefaultRegistry()
	ctrl, err := wizard.NewController(wizard.Options{
		Registry:  reg,
		Validator: wizard.NewValidator(s.gateway, s.policy),
		Effects:   wizard.NewCoordinator(s.gateway, s.tokens, reg, s.log),
		Logger:    s.log,
		Hooks: wizard.Hooks{
			OnTerminal: func(ctx context.Context, c wizard.Completion) error {
				profile, err := s.finish(ctx, c)
				if err != nil {
					return err
				}
				if opts.OnComplete != nil {
					opts.OnComplete(profile)
				}
				return nil
			},
			OnAbort: s.abort,
		},
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("registration started", "session_id", ctrl.Snapshot().SessionID, "server", s.serverURL)
	return ctrl, nil
}

// Cities lists the city directory for the front-ends.
func (s *Service) Cities(ctx context.Context) ([]domain.City, error) {
	return s.gateway.ListCities(ctx)
}

// finish persists the city and saves the local profile.
func (s *Service) finish(ctx context.Context, c wizard.Completion) (domain.AccountProfile, error) {
	answer := func(f domain.FieldName) string { return strings.TrimSpace(c.Answers[f]) }
	city := answer(wizard.FieldCityID)
	if err := s.gateway.UpdateAccountFields(ctx, map[string]string{wizard.FieldCityID.String(): city}); err != nil {
		return domain.AccountProfile{}, fmt.Errorf("registration: save city: %w", err)
	}

	email := answer(wizard.FieldVerifiedEmail)
	if email == "" {
		email = answer(wizard.FieldEmail)
	}
	userID := c.Tokens.UserID
	if userID == "" {
		userID = domain.UserID(answer(wizard.FieldUserID))
	}

	profile := domain.AccountProfile{
		ServerURL:  s.serverURL,
		UserID:     userID,
		Username:   domain.Username(answer(wizard.FieldUsername)),
		Email:      email,
		Phone:      answer(wizard.FieldPhone),
		CityID:     city,
		CreatedUTC: s.now().UTC().Unix(),
	}
	if err := s.accounts.SaveAccountProfile(profile); err != nil {
		return domain.AccountProfile{}, fmt.Errorf("registration: save profile: %w", err)
	}
	s.log.Info("account registered", "user_id", profile.UserID.String(), "username", profile.Username.String())
	return profile, nil
}

// abort forgets the rejected session so a new registration can start.
func (s *Service) abort(cause error) {
	s.log.Warn("registration aborted", "error", cause)
	if err := s.tokens.ClearTokens(); err != nil {
		s.log.Error("clear tokens after abort", "error", err)
	}
}
