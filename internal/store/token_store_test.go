package store_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"enclave/internal/domain"
	"enclave/internal/store"
)

var testTokens = domain.AccountTokens{SessionToken: "sess", RefreshToken: "ref", UserID: "user-1"}

func TestTokens_SaveLoad_OK(t *testing.T) {
	home := t.TempDir()

	var ts domain.TokenStore = store.NewTokenFileStore(home, "pass")
	if _, ok, err := ts.LoadTokens(); err != nil || ok {
		t.Fatalf("fresh store: ok=%v err=%v", ok, err)
	}
	if err := ts.SaveTokens(testTokens); err != nil {
		t.Fatalf("save tokens: %v", err)
	}

	// A second store reads from disk rather than the cache.
	got, ok, err := store.NewTokenFileStore(home, "pass").LoadTokens()
	if err != nil || !ok {
		t.Fatalf("load tokens: ok=%v err=%v", ok, err)
	}
	if got != testTokens {
		t.Fatalf("mismatch after load: %+v", got)
	}

	raw, err := os.ReadFile(filepath.Join(home, "tokens.json.enc"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if bytes.Contains(raw, []byte("sess")) || bytes.Contains(raw, []byte("user-1")) {
		t.Fatal("tokens stored in clear")
	}
}

func TestTokens_WriteOnce(t *testing.T) {
	ts := store.NewTokenFileStore(t.TempDir(), "pass")
	if err := ts.SaveTokens(testTokens); err != nil {
		t.Fatalf("save tokens: %v", err)
	}
	if err := ts.SaveTokens(testTokens); !errors.Is(err, store.ErrTokensAlreadySet) {
		t.Fatalf("second save: %v", err)
	}
	if err := ts.ClearTokens(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := ts.LoadTokens(); ok {
		t.Fatal("tokens present after clear")
	}
	if err := ts.SaveTokens(testTokens); err != nil {
		t.Fatalf("save after clear: %v", err)
	}
}

func TestTokens_WrongPassphrase_Fails(t *testing.T) {
	home := t.TempDir()
	if err := store.NewTokenFileStore(home, "correct").SaveTokens(testTokens); err != nil {
		t.Fatalf("save tokens: %v", err)
	}
	_, _, err := store.NewTokenFileStore(home, "wrong").LoadTokens()
	if !errors.Is(err, store.ErrWrongPassphrase) {
		t.Fatalf("err = %v, want wrong passphrase", err)
	}
}

func TestTokens_ClearMissingIsNoop(t *testing.T) {
	if err := store.NewTokenFileStore(t.TempDir(), "pass").ClearTokens(); err != nil {
		t.Fatalf("clear: %v", err)
	}
}
