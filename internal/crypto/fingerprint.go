package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns a short hex fingerprint of a credential, safe to show
// and log in place of the credential itself.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(secret []byte) string {
	sum := sha256.Sum256(secret)
	return hex.EncodeToString(sum[:10])
}

// FingerprintString is Fingerprint for string credentials. Empty input
// yields an empty fingerprint.
func FingerprintString(secret string) string {
	if secret == "" {
		return ""
	}
	return Fingerprint([]byte(secret))
}
