package registration_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"enclave/internal/devidentity"
	"enclave/internal/domain"
	"enclave/internal/gateway"
	"enclave/internal/services/registration"
	"enclave/internal/store"
	"enclave/internal/wizard"
)

type fixture struct {
	srv      *devidentity.Server
	url      string
	tokens   *store.TokenFileStore
	accounts *store.AccountFileStore
	svc      *registration.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv, err := devidentity.New(devidentity.Options{
		ActivationCodes: []string{"ABC123", "DEF456"},
		CodeGenerator:   func() string { return "123456" },
	})
	if err != nil {
		t.Fatalf("devidentity: %v", err)
	}
	hs := httptest.NewServer(srv.Router())
	t.Cleanup(hs.Close)

	home := t.TempDir()
	f := &fixture{
		srv:      srv,
		url:      hs.URL,
		tokens:   store.NewTokenFileStore(home, "pass"),
		accounts: store.NewAccountFileStore(home),
	}
	gw := gateway.NewHTTP(hs.URL, 5*time.Second, f.tokens, nil)
	f.svc = registration.New(gw, f.tokens, f.accounts, hs.URL, wizard.DefaultPolicy(), nil)
	return f
}

func run(t *testing.T, ctrl *wizard.Controller, code string) {
	t.Helper()
	values := []struct {
		f domain.FieldName
		v string
	}{
		{wizard.FieldActivationCode, code},
		{wizard.FieldUsername, "ivan"},
		{wizard.FieldPassword, "Strong1A"},
		{wizard.FieldPhone, "+61400000000"},
		{wizard.FieldEmail, "u@example.com"},
		{wizard.FieldEmailCode, "123456"},
		{wizard.FieldCityID, "per"},
	}
	for _, x := range values {
		if err := ctrl.UpdateField(x.f, x.v); err != nil {
			t.Fatalf("update %s: %v", x.f, err)
		}
		if out, err := ctrl.Advance(context.Background()); err != nil || !out.Advanced {
			t.Fatalf("advance %s: out=%+v err=%v", out.Step, out, err)
		}
	}
}

func TestRegister_SavesProfileAndCity(t *testing.T) {
	f := newFixture(t)

	var got domain.AccountProfile
	ctrl, err := f.svc.Start(registration.StartOptions{OnComplete: func(p domain.AccountProfile) { got = p }})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	run(t, ctrl, "ABC123")

	if got.Username != "ivan" || got.CityID != "per" || got.Email != "u@example.com" {
		t.Fatalf("profile = %+v", got)
	}
	saved, ok, err := f.accounts.LoadAccountProfile(f.url)
	if err != nil || !ok || saved.UserID != got.UserID {
		t.Fatalf("saved profile: %+v ok=%v err=%v", saved, ok, err)
	}
	acct, ok := f.srv.Lookup(got.UserID)
	if !ok || acct.CityID != "per" {
		t.Fatalf("server account = %+v", acct)
	}

	if _, err := f.svc.Start(registration.StartOptions{}); !errors.Is(err, registration.ErrAlreadyRegistered) {
		t.Fatalf("second start: %v", err)
	}
}

func TestStart_UnfinishedTokens(t *testing.T) {
	f := newFixture(t)
	if err := f.tokens.SaveTokens(domain.AccountTokens{SessionToken: "stale"}); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Start(registration.StartOptions{}); !errors.Is(err, registration.ErrIncomplete) {
		t.Fatalf("start: %v", err)
	}
	ctrl, err := f.svc.Start(registration.StartOptions{Discard: true})
	if err != nil {
		t.Fatalf("start with discard: %v", err)
	}
	if _, ok, _ := f.tokens.LoadTokens(); ok {
		t.Fatal("stale tokens kept")
	}
	run(t, ctrl, "DEF456")
}
