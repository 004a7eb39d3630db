package prompt_test

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"enclave/internal/devidentity"
	"enclave/internal/gateway"
	"enclave/internal/prompt"
	"enclave/internal/services/registration"
	"enclave/internal/store"
	"enclave/internal/wizard"
)

type fixture struct {
	url      string
	accounts *store.AccountFileStore
	svc      *registration.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv, err := devidentity.New(devidentity.Options{
		ActivationCodes: []string{"ABC123"},
		CodeGenerator:   func() string { return "123456" },
	})
	if err != nil {
		t.Fatalf("devidentity: %v", err)
	}
	hs := httptest.NewServer(srv.Router())
	t.Cleanup(hs.Close)

	home := t.TempDir()
	tokens := store.NewTokenFileStore(home, "pass")
	f := &fixture{url: hs.URL, accounts: store.NewAccountFileStore(home)}
	gw := gateway.NewHTTP(hs.URL, 5*time.Second, tokens, nil)
	f.svc = registration.New(gw, tokens, f.accounts, hs.URL, wizard.DefaultPolicy(), nil)
	return f
}

func (f *fixture) run(t *testing.T, lines ...string) (*wizard.Controller, string, error) {
	t.Helper()
	ctrl, err := f.svc.Start(registration.StartOptions{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	var out bytes.Buffer
	p := prompt.New(strings.NewReader(strings.Join(lines, "\n")+"\n"), &out)
	err = p.Run(context.Background(), ctrl, f.svc.Cities)
	return ctrl, out.String(), err
}

func TestRun_EndToEnd(t *testing.T) {
	f := newFixture(t)
	_, out, err := f.run(t,
		"ABC123",
		"ivan",
		"weak",
		"Strong1A",
		"+61400000000",
		"u@example.com",
		"000000",
		"123456",
		":back",
		"123456",
		"2",
	)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}

	for _, want := range []string{"password must be at least", "unchanged, already saved", "Melbourne", "Registration complete"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	p, ok, err := f.accounts.LoadAccountProfile(f.url)
	if err != nil || !ok {
		t.Fatalf("profile: ok=%v err=%v", ok, err)
	}
	if p.CityID != "mel" || p.Email != "u@example.com" || p.Username != "ivan" {
		t.Fatalf("unexpected profile %+v", p)
	}
}

func TestRun_Quit(t *testing.T) {
	f := newFixture(t)
	ctrl, _, err := f.run(t, "ABC123", ":quit")
	if !errors.Is(err, wizard.ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if !ctrl.Closed() {
		t.Fatal("session left open")
	}
}

func TestRun_EndOfInputCancels(t *testing.T) {
	f := newFixture(t)
	ctrl, _, err := f.run(t, "ABC123", "ivan")
	if !errors.Is(err, wizard.ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if ctrl.Current().ID != wizard.StepPassword || !ctrl.Closed() {
		t.Fatalf("step=%s closed=%v", ctrl.Current().ID, ctrl.Closed())
	}
}

func TestRun_BackAtFirstStep(t *testing.T) {
	f := newFixture(t)
	_, out, _ := f.run(t, ":back", ":quit")
	if !strings.Contains(out, "already at the first step") {
		t.Fatalf("missing notice:\n%s", out)
	}
}

func TestRun_ResendCode(t *testing.T) {
	f := newFixture(t)
	_, out, err := f.run(t,
		"ABC123",
		":resend",
		"ivan",
		"Strong1A",
		"+61400000000",
		"u@example.com",
		":resend",
		"123456",
		"1",
	)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	for _, want := range []string{"no code to resend", "a new code was sent to u@example.com", "Registration complete"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
