package store

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const deviceFile = "device_id"

// DeviceID returns the per-install identifier stored in dir, creating it on
// first use. It is the default token store passphrase.
func DeviceID(dir string) (string, error) {
	path := filepath.Join(dir, deviceFile)
	b, err := readFile(path)
	if err != nil {
		return "", fmt.Errorf("store: read device id: %w", err)
	}
	if b != nil {
		id := strings.TrimSpace(string(b))
		if _, err := uuid.Parse(id); err != nil {
			return "", fmt.Errorf("store: malformed device id in %s: %w", path, err)
		}
		return id, nil
	}

	id := uuid.NewString()
	if err := writeFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("store: write device id: %w", err)
	}
	return id, nil
}
