package store

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// envelopeVersion is the on-disk format of sealed files.
const envelopeVersion = 2

// envelope is the JSON structure of a sealed file. Purpose is bound in as
// associated data so a sealed file cannot be swapped for another kind.
type envelope struct {
	V       int    `json:"v"`
	Purpose string `json:"purpose"`
	Salt    []byte `json:"salt"`
	N       int    `json:"scrypt_N"`
	R       int    `json:"scrypt_r"`
	P       int    `json:"scrypt_p"`
	Nonce   []byte `json:"nonce"`
	Cipher  []byte `json:"cipher"`
}

// kdfParams are the scrypt cost parameters.
type kdfParams struct{ N, R, P int }

func defaultKDF() kdfParams { return kdfParams{N: 1 << 15, R: 8, P: 1} }

// seal encrypts raw under a key derived from passphrase.
func seal(passphrase, purpose string, raw []byte, kdf kdfParams) ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	aead, err := deriveAEAD(passphrase, salt, kdf)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	env := envelope{
		V:       envelopeVersion,
		Purpose: purpose,
		Salt:    salt,
		N:       kdf.N,
		R:       kdf.R,
		P:       kdf.P,
		Nonce:   nonce,
	}
	env.Cipher = aead.Seal(nil, nonce, raw, associatedData(env))
	return json.Marshal(env)
}

// open decrypts a sealed file written for purpose.
func open(passphrase, purpose string, b []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("store: decode envelope: %w", err)
	}
	if env.V != envelopeVersion {
		return nil, fmt.Errorf("store: unsupported envelope version %d", env.V)
	}
	if env.Purpose != purpose {
		return nil, ErrWrongPassphrase
	}

	aead, err := deriveAEAD(passphrase, env.Salt, kdfParams{N: env.N, R: env.R, P: env.P})
	if err != nil {
		return nil, err
	}
	if len(env.Nonce) != aead.NonceSize() {
		return nil, ErrWrongPassphrase
	}
	pt, err := aead.Open(nil, env.Nonce, env.Cipher, associatedData(env))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}

func deriveAEAD(passphrase string, salt []byte, kdf kdfParams) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, kdf.N, kdf.R, kdf.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	return chacha20poly1305.NewX(key)
}

func associatedData(env envelope) []byte {
	return []byte(fmt.Sprintf("enclave/v%d/%s", env.V, env.Purpose))
}
