package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"enclave/internal/domain"
)

const (
	tokensFile    = "tokens.json.enc"
	tokensPurpose = "account-tokens"
)

// TokenFileStore keeps the session credentials sealed on disk. Tokens are
// write-once: a second SaveTokens fails until ClearTokens is called.
type TokenFileStore struct {
	dir        string
	passphrase string
	kdf        kdfParams

	mu     sync.Mutex
	cached *domain.AccountTokens
}

// NewTokenFileStore returns a TokenFileStore rooted at dir, sealing with a
// key derived from passphrase.
func NewTokenFileStore(dir, passphrase string) *TokenFileStore {
	return &TokenFileStore{dir: dir, passphrase: passphrase, kdf: defaultKDF()}
}

// SaveTokens seals and writes tokens.
func (s *TokenFileStore) SaveTokens(tokens domain.AccountTokens) error {
	if tokens.Empty() {
		return fmt.Errorf("store: refusing to save empty tokens")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok, err := s.loadLocked()
	if err != nil {
		return err
	}
	if ok && !current.Empty() {
		return ErrTokensAlreadySet
	}

	raw, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	sealed, err := seal(s.passphrase, tokensPurpose, raw, s.kdf)
	if err != nil {
		return fmt.Errorf("store: seal tokens: %w", err)
	}
	if err := writeFile(s.path(), sealed, 0o600); err != nil {
		return fmt.Errorf("store: write tokens: %w", err)
	}
	s.cached = &tokens
	return nil
}

// LoadTokens returns the stored tokens, or false when none are held.
func (s *TokenFileStore) LoadTokens() (domain.AccountTokens, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// ClearTokens removes the stored tokens.
func (s *TokenFileStore) ClearTokens() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := removeFile(s.path()); err != nil {
		return fmt.Errorf("store: remove tokens: %w", err)
	}
	s.cached = nil
	return nil
}

func (s *TokenFileStore) loadLocked() (domain.AccountTokens, bool, error) {
	if s.cached != nil {
		return *s.cached, true, nil
	}
	b, err := readFile(s.path())
	if err != nil {
		return domain.AccountTokens{}, false, fmt.Errorf("store: read tokens: %w", err)
	}
	if b == nil {
		return domain.AccountTokens{}, false, nil
	}
	raw, err := open(s.passphrase, tokensPurpose, b)
	if err != nil {
		return domain.AccountTokens{}, false, err
	}
	var tokens domain.AccountTokens
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return domain.AccountTokens{}, false, fmt.Errorf("store: decode tokens: %w", err)
	}
	s.cached = &tokens
	return tokens, true, nil
}

func (s *TokenFileStore) path() string { return filepath.Join(s.dir, tokensFile) }

// Compile-time assertion that TokenFileStore implements domain.TokenStore.
var _ domain.TokenStore = (*TokenFileStore)(nil)
