package store

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"enclave/internal/domain"
)

const accountsFile = "accounts.json"

// AccountFileStore persists per-server account profiles to disk.
type AccountFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewAccountFileStore returns an AccountFileStore rooted at dir.
func NewAccountFileStore(dir string) *AccountFileStore {
	return &AccountFileStore{dir: dir}
}

// SaveAccountProfile stores or replaces the profile for its server.
func (s *AccountFileStore) SaveAccountProfile(profile domain.AccountProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.readLocked()
	if err != nil {
		return err
	}
	profiles[accountKey(profile.ServerURL)] = profile
	return writeJSON(s.path(), profiles, 0o600)
}

// LoadAccountProfile retrieves the profile registered on serverURL.
func (s *AccountFileStore) LoadAccountProfile(serverURL string) (domain.AccountProfile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.readLocked()
	if err != nil {
		return domain.AccountProfile{}, false, err
	}
	profile, ok := profiles[accountKey(serverURL)]
	return profile, ok, nil
}

// DeleteAccountProfile forgets the profile for serverURL.
func (s *AccountFileStore) DeleteAccountProfile(serverURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.readLocked()
	if err != nil {
		return err
	}
	key := accountKey(serverURL)
	if _, ok := profiles[key]; !ok {
		return nil
	}
	delete(profiles, key)
	return writeJSON(s.path(), profiles, 0o600)
}

// ListAccountProfiles returns every stored profile ordered by server.
func (s *AccountFileStore) ListAccountProfiles() ([]domain.AccountProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	out := make([]domain.AccountProfile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ServerURL < out[j].ServerURL })
	return out, nil
}

func (s *AccountFileStore) readLocked() (map[string]domain.AccountProfile, error) {
	profiles := make(map[string]domain.AccountProfile)
	if _, err := readJSON(s.path(), &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (s *AccountFileStore) path() string { return filepath.Join(s.dir, accountsFile) }

// accountKey normalises the server URL so trailing slashes do not split
// profiles.
func accountKey(serverURL string) string {
	return strings.TrimRight(strings.TrimSpace(serverURL), "/")
}

// Compile-time assertion that AccountFileStore implements domain.AccountStore.
var _ domain.AccountStore = (*AccountFileStore)(nil)
