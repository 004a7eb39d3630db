// Package crypto exposes the small helpers enclave needs around credentials.
//
// Contents
//
//   - Short fingerprints of tokens for display and logging (Fingerprint)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//
// Sealing of files at rest lives in internal/store.
package crypto
