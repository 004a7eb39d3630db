package store_test

import (
	"testing"

	"enclave/internal/domain"
	"enclave/internal/store"
)

func TestAccount_SaveLoadDelete(t *testing.T) {
	home := t.TempDir()
	var as domain.AccountStore = store.NewAccountFileStore(home)

	p := domain.AccountProfile{
		ServerURL: "http://localhost:8080/",
		UserID:    "user-1",
		Username:  "ivan",
		Email:     "u@example.com",
		CityID:    "syd",
	}
	if err := as.SaveAccountProfile(p); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := as.LoadAccountProfile("http://localhost:8080")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.Username != "ivan" || got.CityID != "syd" {
		t.Fatalf("mismatch: %+v", got)
	}

	if _, ok, _ := as.LoadAccountProfile("http://other"); ok {
		t.Fatal("profile found for another server")
	}

	if err := as.DeleteAccountProfile("http://localhost:8080"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := as.LoadAccountProfile("http://localhost:8080"); ok {
		t.Fatal("profile present after delete")
	}
}

func TestAccount_List_Sorted(t *testing.T) {
	s := store.NewAccountFileStore(t.TempDir())
	for _, url := range []string{"http://b", "http://a"} {
		if err := s.SaveAccountProfile(domain.AccountProfile{ServerURL: url}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	got, err := s.ListAccountProfiles()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ServerURL != "http://a" {
		t.Fatalf("list = %+v", got)
	}
}

func TestDeviceID_Stable(t *testing.T) {
	home := t.TempDir()
	first, err := store.DeviceID(home)
	if err != nil {
		t.Fatalf("device id: %v", err)
	}
	second, err := store.DeviceID(home)
	if err != nil {
		t.Fatalf("device id again: %v", err)
	}
	if first == "" || first != second {
		t.Fatalf("ids differ: %q vs %q", first, second)
	}
}
