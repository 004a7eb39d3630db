package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"enclave/internal/crypto"
	"enclave/internal/domain"
	"enclave/internal/wizard"
)

// Commands understood at any step.
const (
	cmdBack   = ":back"
	cmdQuit   = ":quit"
	cmdResend = ":resend"
)

var stepPrompt = map[wizard.StepID]string{
	wizard.StepActivationCode: "Activation code",
	wizard.StepUsername:       "Username",
	wizard.StepPassword:       "Password",
	wizard.StepPhone:          "Phone number",
	wizard.StepEmail:          "Email address",
	wizard.StepEmailCode:      "Code sent to your email",
	wizard.StepCity:           "City (number or id)",
}

// Prompter reads answers line by line from in and writes prompts to out.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	// fd is the terminal descriptor of in, or -1.
	fd int
}

// New returns a Prompter over in and out.
func New(in io.Reader, out io.Writer) *Prompter {
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &Prompter{in: bufio.NewReader(in), out: out, fd: fd}
}

// IsTerminal reports whether both f's are terminals.
func IsTerminal(files ...*os.File) bool {
	for _, f := range files {
		if f == nil || !term.IsTerminal(int(f.Fd())) {
			return false
		}
	}
	return true
}

// Run drives ctrl until it completes. It returns wizard.ErrCanceled when the user
// quits, and the session error when the session was aborted.
func (p *Prompter) Run(ctx context.Context, ctrl *wizard.Controller, cities wizard.CityLister) error {
	reg := ctrl.Registry()
	var list []domain.City

	for {
		def := ctrl.Current()
		p.printf("\n[%d/%d] %s\n", ctrl.Pointer()+1, len(reg), def.Title)

		if def.ID == wizard.StepCity && list == nil {
			var err error
			if list, err = cities(ctx); err != nil {
				p.printf("  ! could not load cities: %s\n", domain.UserMessage(err))
			}
			for i, c := range list {
				p.printf("  %d) %s\n", i+1, c.Name)
			}
		}

		line, err := p.read(def)
		if err != nil {
			ctrl.Close()
			if errors.Is(err, io.EOF) {
				return wizard.ErrCanceled
			}
			return err
		}

		switch line {
		case cmdQuit:
			ctrl.Close()
			return wizard.ErrCanceled
		case cmdBack:
			if !ctrl.GoBack() {
				p.printf("  already at the first step\n")
			}
			continue
		case cmdResend:
			switch err := ctrl.ResendCode(ctx); {
			case errors.Is(err, wizard.ErrSessionClosed):
				p.printf("  ✗ %s\n", domain.UserMessage(err))
				return err
			case err != nil:
				p.printf("  ! %s\n", wizard.Describe(err))
			default:
				p.printf("  a new code was sent to %s\n", ctrl.Answers()[wizard.FieldEmail])
			}
			continue
		}

		if def.ID == wizard.StepCity {
			line = pickCity(list, line)
		}
		if len(def.RequiredFields) > 0 && !ctrl.Terminal() {
			if err := ctrl.UpdateField(def.RequiredFields[0], line); err != nil {
				return err
			}
		}

		out, err := ctrl.Advance(ctx)
		switch {
		case err != nil && errors.Is(err, wizard.ErrSessionClosed):
			p.printf("  ✗ %s\n", domain.UserMessage(err))
			return err
		case err != nil:
			p.printf("  ! %s\n", wizard.Describe(err))
		case !out.Validation.IsValid():
			for _, f := range out.Validation.Fields() {
				p.printf("  ✗ %s\n", out.Validation.FieldErrors[f].Message)
			}
		case out.Terminal:
			p.printf("\n✓ Registration complete\n")
			return nil
		case out.Skipped:
			p.printf("  unchanged, already saved\n")
		}
	}
}

// read returns one trimmed answer for def. Passwords bypass echo on a terminal.
func (p *Prompter) read(def wizard.StepDefinition) (string, error) {
	p.printf("%s: ", stepPrompt[def.ID])
	if def.ID == wizard.StepPassword && p.fd >= 0 {
		b, err := term.ReadPassword(p.fd)
		p.printf("\n")
		if err != nil {
			return "", fmt.Errorf("prompt: read password: %w", err)
		}
		s := string(b)
		crypto.Wipe(b)
		return s, nil
	}

	line, err := p.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *Prompter) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// pickCity maps a 1-based menu number to a city id. Anything else is taken
// as an id.
func pickCity(list []domain.City, line string) string {
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(list) {
		return list[n-1].ID
	}
	return line
}
