package store

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrTokensAlreadySet is returned when tokens are saved while a previous
	// set is still held. ClearTokens first.
	ErrTokensAlreadySet = errors.New("store: tokens already set")
	// ErrWrongPassphrase is returned when the passphrase is incorrect or the
	// ciphertext has been modified.
	ErrWrongPassphrase = errors.New("store: wrong passphrase or corrupted file")
)

// EnsureHome creates the storage directory with owner-only permissions.
func EnsureHome(dir string) error {
	if dir == "" {
		return fmt.Errorf("store: empty home directory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("store: create home: %w", err)
	}
	return nil
}
