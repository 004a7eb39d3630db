// Package store provides file-based persistence for enclave's local state.
//
// It contains concrete implementations of the domain storage interfaces.
// All methods are concurrency-safe via internal locking, and every write
// goes through a temp file and rename. Files live under the configured
// storage home.
//
// The package includes:
//   - Session credentials, sealed with scrypt and XChaCha20-Poly1305 (TokenFileStore)
//   - Per-server account profiles as plain JSON (AccountFileStore)
//   - The per-install device id used as the default sealing passphrase (DeviceID)
package store
