package interfaces

import domaintypes "enclave/internal/domain/types"

// TokenStore is the secure storage for session credentials.
type TokenStore interface {
	SaveTokens(tokens domaintypes.AccountTokens) error
	LoadTokens() (domaintypes.AccountTokens, bool, error)
	ClearTokens() error
}

// AccountStore persists per-server account profiles.
type AccountStore interface {
	SaveAccountProfile(profile domaintypes.AccountProfile) error
	LoadAccountProfile(serverURL string) (domaintypes.AccountProfile, bool, error)
	DeleteAccountProfile(serverURL string) error
}
