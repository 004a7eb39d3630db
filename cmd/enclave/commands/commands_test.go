package commands

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"enclave/internal/devidentity"
)

type cli struct {
	url  string
	home string
}

func newCLI(t *testing.T) *cli {
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
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return &cli{url: hs.URL, home: t.TempDir()}
}

func (c *cli) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	cfgFile, wire = "", nil

	root := newRootCmd()
	var out bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--home", c.home, "--server", c.url, "--log-level", "ERROR"}, args...))
	err := execute(context.Background(), root)
	return out.String(), err
}

func TestCLI_RegisterWhoamiLogout(t *testing.T) {
	c := newCLI(t)

	answers := strings.Join([]string{"ABC123", "ivan", "Strong1A", "+61400000000", "u@example.com", "123456", "1"}, "\n") + "\n"
	out, err := c.run(t, answers, "register", "--plain")
	if err != nil {
		t.Fatalf("register: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Registered ivan") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	out, err = c.run(t, "", "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	for _, want := range []string{"Username:  ivan", "City:      syd", "Expires:"} {
		if !strings.Contains(out, want) {
			t.Errorf("whoami missing %q:\n%s", want, out)
		}
	}

	if _, err := c.run(t, "", "register", "--plain"); err == nil {
		t.Fatal("second registration accepted")
	}

	if _, err := c.run(t, "", "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	out, _ = c.run(t, "", "whoami")
	if !strings.Contains(out, "Not registered") {
		t.Fatalf("whoami after logout:\n%s", out)
	}
}

func TestCLI_Cities(t *testing.T) {
	c := newCLI(t)
	out, err := c.run(t, "", "cities")
	if err != nil {
		t.Fatalf("cities: %v", err)
	}
	if !strings.Contains(out, "Sydney") || !strings.Contains(out, "mel") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestCLI_UnfinishedRegistrationNeedsDiscard(t *testing.T) {
	c := newCLI(t)
	if _, err := c.run(t, "ABC123\n:quit\n", "register", "--plain"); err == nil {
		t.Fatal("expected cancellation error")
	}

	_, err := c.run(t, "", "register", "--plain")
	if err == nil || !strings.Contains(err.Error(), "--discard") {
		t.Fatalf("expected discard hint, got %v", err)
	}

	out, err := c.run(t, ":quit\n", "register", "--plain", "--discard")
	if err == nil || !strings.Contains(out, "Activation code") {
		t.Fatalf("discard run: err=%v\n%s", err, out)
	}
}

func TestCLI_FailedCommandReleasesWiring(t *testing.T) {
	c := newCLI(t)
	c.url = "http://127.0.0.1:1"
	logs := t.TempDir()

	if _, err := c.run(t, "", "--log-dir", logs, "cities"); err == nil {
		t.Fatal("expected an error from an unreachable server")
	}
	if wire != nil {
		t.Fatal("wiring left open after a failed command")
	}
}
