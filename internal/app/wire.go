package app

import (
	"fmt"

	"enclave/internal/domain"
	"enclave/internal/gateway"
	"enclave/internal/logging"
	"enclave/internal/services/registration"
	"enclave/internal/services/session"
	"enclave/internal/store"
	"enclave/internal/wizard"
)

// Wire bundles all stores, services and clients for the CLI.
type Wire struct {
	ServerURL    string
	Log          *logging.Logger
	Tokens       domain.TokenStore
	Accounts     *store.AccountFileStore
	Gateway      domain.IdentityGateway
	Registration *registration.Service
	Session      *session.Service
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) (*Wire, error) {
	s := cfg.Settings
	if s == nil {
		return nil, fmt.Errorf("app: no settings")
	}

	log, err := logging.NewLogger(s.Logging.Dir, s.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("app: logger: %w", err)
	}

	if err := store.EnsureHome(s.Storage.Home); err != nil {
		log.Close()
		return nil, fmt.Errorf("app: home: %w", err)
	}

	// Without a configured passphrase the token file is sealed with the
	// per-install device id.
	pass := s.Storage.Passphrase
	if pass == "" {
		if pass, err = store.DeviceID(s.Storage.Home); err != nil {
			log.Close()
			return nil, fmt.Errorf("app: device id: %w", err)
		}
	}

	tokens := store.NewTokenFileStore(s.Storage.Home, pass)
	accounts := store.NewAccountFileStore(s.Storage.Home)

	gw := gateway.NewHTTP(s.Gateway.BaseURL, s.Gateway.Timeout(), tokens, log)
	if cfg.HTTP != nil {
		gw.HTTP = cfg.HTTP
	}

	policy := wizard.Policy{
		CodeLength:        s.Wizard.CodeLength,
		MinPasswordLength: s.Wizard.MinPasswordLength,
	}

	return &Wire{
		ServerURL:    s.Gateway.BaseURL,
		Log:          log,
		Tokens:       tokens,
		Accounts:     accounts,
		Gateway:      gw,
		Registration: registration.New(gw, tokens, accounts, s.Gateway.BaseURL, policy, log),
		Session:      session.New(tokens, accounts, s.Gateway.BaseURL, log),
	}, nil
}

// Close releases the log file.
func (w *Wire) Close() error {
	return w.Log.Close()
}
