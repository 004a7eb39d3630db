package wizard_test

import (
	"context"
	"sync"

	"enclave/internal/domain"
)

// fakeGateway is an in-memory identity service that counts calls.
type fakeGateway struct {
	mu sync.Mutex

	validActivation string
	takenUsernames  map[string]bool
	takenEmails     map[string]bool
	goodCode        string
	cities          []domain.City

	// Errors injected per operation, consumed once.
	sendErr   error
	updateErr error
	checkErr  error
	verifyErr error

	// When block is set BootstrapAccount signals entered and waits on block.
	block   chan struct{}
	entered chan struct{}

	bootstraps int
	updates    []map[string]string
	sends      []string
	verifies   []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		validActivation: "ABC123",
		takenUsernames:  map[string]bool{"taken": true},
		takenEmails:     map[string]bool{"used@example.com": true},
		goodCode:        "123456",
		cities:          []domain.City{{ID: "syd", Name: "Sydney"}, {ID: "mel", Name: "Melbourne"}},
	}
}

func (g *fakeGateway) BootstrapAccount(ctx context.Context, code string) (domain.AccountTokens, error) {
	if g.block != nil {
		g.entered <- struct{}{}
		select {
		case <-g.block:
		case <-ctx.Done():
			return domain.AccountTokens{}, ctx.Err()
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bootstraps++
	if code != g.validActivation {
		return domain.AccountTokens{}, domain.NewServiceError(domain.KindInvalidCode, "bootstrap", "")
	}
	return domain.AccountTokens{SessionToken: "sess", RefreshToken: "ref", UserID: "user-1"}, nil
}

func (g *fakeGateway) CheckUsernameAvailable(_ context.Context, u domain.Username) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.checkErr; err != nil {
		g.checkErr = nil
		return false, err
	}
	return !g.takenUsernames[u.String()], nil
}

func (g *fakeGateway) CheckEmailAvailable(_ context.Context, email string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.takenEmails[email] {
		return domain.NewServiceError(domain.KindAlreadyUsed, "check_email", "")
	}
	return nil
}

func (g *fakeGateway) UpdateAccountFields(_ context.Context, fields map[string]string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.updateErr; err != nil {
		g.updateErr = nil
		return err
	}
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	g.updates = append(g.updates, cp)
	return nil
}

func (g *fakeGateway) SendEmailVerificationCode(_ context.Context, email string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.sendErr; err != nil {
		g.sendErr = nil
		return err
	}
	g.sends = append(g.sends, email)
	return nil
}

func (g *fakeGateway) VerifyEmailCode(_ context.Context, email, code string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifies = append(g.verifies, email+"/"+code)
	if err := g.verifyErr; err != nil {
		g.verifyErr = nil
		return "", err
	}
	if code != g.goodCode {
		return "", domain.NewServiceError(domain.KindInvalidCode, "verify_email_code", "")
	}
	return email, nil
}

func (g *fakeGateway) ListCities(context.Context) ([]domain.City, error) {
	return g.cities, nil
}

func (g *fakeGateway) sendCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sends)
}

func (g *fakeGateway) updateCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.updates)
}

func (g *fakeGateway) verifyCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.verifies)
}

func (g *fakeGateway) bootstrapCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bootstraps
}

// memTokens is a TokenStore kept in memory.
type memTokens struct {
	mu     sync.Mutex
	tokens domain.AccountTokens
	saves  int
}

func (m *memTokens) SaveTokens(t domain.AccountTokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = t
	m.saves++
	return nil
}

func (m *memTokens) LoadTokens() (domain.AccountTokens, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens, !m.tokens.Empty(), nil
}

func (m *memTokens) ClearTokens() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = domain.AccountTokens{}
	return nil
}
