package tui

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"enclave/internal/devidentity"
	"enclave/internal/gateway"
	"enclave/internal/services/registration"
	"enclave/internal/store"
	"enclave/internal/wizard"
)

type fixture struct {
	accounts *store.AccountFileStore
	url      string
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
	f := &fixture{accounts: store.NewAccountFileStore(home), url: hs.URL}
	gw := gateway.NewHTTP(hs.URL, 5*time.Second, tokens, nil)
	f.svc = registration.New(gw, tokens, f.accounts, hs.URL, wizard.DefaultPolicy(), nil)
	return f
}

func (f *fixture) model(t *testing.T) (Model, *wizard.Controller) {
	t.Helper()
	ctrl, err := f.svc.Start(registration.StartOptions{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	m := NewModel(context.Background(), ctrl, f.svc.Cities, DarkTheme)
	return settle(m, m.Init()), ctrl
}

// settle runs cmd and feeds back the messages that carry wizard results.
// Timer-driven messages are dropped.
func settle(m Model, cmd tea.Cmd) Model {
	for _, msg := range collect(cmd) {
		switch msg.(type) {
		case advanceResultMsg, resendResultMsg, citiesMsg:
			next, more := m.Update(msg)
			m = settle(next.(Model), more)
		}
	}
	return m
}

func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		out = append(out, collect(c)...)
	}
	return out
}

func press(m Model, key tea.KeyMsg) Model {
	next, cmd := m.Update(key)
	return settle(next.(Model), cmd)
}

func typeText(m Model, s string) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return next.(Model)
}

func answer(m Model, s string) Model {
	return press(typeText(m, s), tea.KeyMsg{Type: tea.KeyEnter})
}

func TestModel_CompletesRegistration(t *testing.T) {
	f := newFixture(t)
	m, ctrl := f.model(t)

	for _, s := range []string{"ABC123", "ivan", "Strong1A", "+61400000000", "u@example.com", "123456"} {
		m = answer(m, s)
		if m.fieldErr != "" || m.stepErr != "" {
			t.Fatalf("answer %q: field=%q step=%q", s, m.fieldErr, m.stepErr)
		}
	}
	if got := ctrl.Current().ID; got != wizard.StepCity {
		t.Fatalf("expected city step, got %s", got)
	}
	if len(m.cityList) == 0 {
		t.Fatal("cities not loaded")
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyDown})
	want := m.cityList[1].ID
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})

	if !m.Done() || m.Err() != nil {
		t.Fatalf("expected done, err=%v", m.Err())
	}
	p, ok, err := f.accounts.LoadAccountProfile(f.url)
	if err != nil || !ok {
		t.Fatalf("profile: ok=%v err=%v", ok, err)
	}
	if p.CityID != want || p.Username != "ivan" {
		t.Fatalf("unexpected profile %+v", p)
	}
}

func TestModel_FieldErrorKeepsStep(t *testing.T) {
	f := newFixture(t)
	m, ctrl := f.model(t)
	m = answer(m, "ABC123")
	m = answer(m, "ivan")

	m = answer(m, "weak")
	if ctrl.Current().ID != wizard.StepPassword {
		t.Fatalf("moved past weak password to %s", ctrl.Current().ID)
	}
	if m.fieldErr == "" || !strings.Contains(m.View(), m.fieldErr) {
		t.Fatalf("field error not shown: %q", m.fieldErr)
	}
	if strings.Contains(m.View(), "weak") {
		t.Fatal("password echoed in view")
	}
}

func TestModel_BackPrefillsAnswer(t *testing.T) {
	f := newFixture(t)
	m, ctrl := f.model(t)
	m = answer(m, "ABC123")
	m = answer(m, "ivan")

	m = press(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if ctrl.Current().ID != wizard.StepUsername {
		t.Fatalf("expected username step, got %s", ctrl.Current().ID)
	}
	if got := m.input.Value(); got != "ivan" {
		t.Fatalf("input not prefilled: %q", got)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if ctrl.Current().ID != wizard.StepPassword || m.notice == "" {
		t.Fatalf("re-advance: step=%s notice=%q", ctrl.Current().ID, m.notice)
	}
}

func TestModel_EscClosesSession(t *testing.T) {
	f := newFixture(t)
	m, ctrl := f.model(t)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)
	if !m.Canceled() || !ctrl.Closed() {
		t.Fatal("esc did not close the session")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("esc did not quit")
	}
}

func TestModel_IgnoresKeysWhileBusy(t *testing.T) {
	f := newFixture(t)
	m, ctrl := f.model(t)
	m = typeText(m, "ABC123")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if !m.busy {
		t.Fatal("expected busy after submit")
	}
	m = typeText(m, "x")
	if got := ctrl.Answers()[wizard.FieldActivationCode]; got != "ABC123" {
		t.Fatalf("answer changed while busy: %q", got)
	}
	if m.input.Value() != "ABC123" {
		t.Fatalf("input changed while busy: %q", m.input.Value())
	}
}

func TestModel_ResendCode(t *testing.T) {
	f := newFixture(t)
	m, ctrl := f.model(t)

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if m.busy || m.stepErr != "" || m.notice != "" {
		t.Fatalf("ctrl+r outside the code step: busy=%v step=%q notice=%q", m.busy, m.stepErr, m.notice)
	}

	for _, s := range []string{"ABC123", "ivan", "Strong1A", "+61400000000", "u@example.com"} {
		m = answer(m, s)
	}
	if got := ctrl.Current().ID; got != wizard.StepEmailCode {
		t.Fatalf("expected email code step, got %s", got)
	}
	if !strings.Contains(m.View(), "ctrl+r") {
		t.Fatal("resend hint missing")
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if m.busy || m.stepErr != "" {
		t.Fatalf("resend: busy=%v step=%q", m.busy, m.stepErr)
	}
	if !strings.Contains(m.notice, "u@example.com") {
		t.Fatalf("notice = %q", m.notice)
	}
	if ctrl.Current().ID != wizard.StepEmailCode {
		t.Fatalf("resend moved to %s", ctrl.Current().ID)
	}

	m = answer(m, "123456")
	if got := ctrl.Current().ID; got != wizard.StepCity {
		t.Fatalf("expected city step after resent code, got %s (step=%q)", got, m.stepErr)
	}
}

func TestDetectTheme(t *testing.T) {
	t.Setenv(ThemeEnv, "")
	t.Setenv("COLORFGBG", "0;15")
	if got := DetectTheme("").Name; got != "light" {
		t.Fatalf("COLORFGBG light: got %s", got)
	}
	if got := DetectTheme("dark").Name; got != "dark" {
		t.Fatalf("explicit: got %s", got)
	}
	t.Setenv(ThemeEnv, "dark")
	if got := DetectTheme("").Name; got != "dark" {
		t.Fatalf("env: got %s", got)
	}
}
