package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"enclave/internal/domain"
	"enclave/internal/logging"
)

// Operation names reported in *domain.ServiceError.Op.
const (
	OpBootstrap       = "bootstrap_account"
	OpCheckUsername   = "check_username"
	OpCheckEmail      = "check_email"
	OpUpdateAccount   = "update_account"
	OpSendEmailCode   = "send_email_code"
	OpVerifyEmailCode = "verify_email_code"
	OpListCities      = "list_cities"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// TokenSource supplies the bearer token. domain.TokenStore satisfies it.
type TokenSource interface {
	LoadTokens() (domain.AccountTokens, bool, error)
}

// HTTP is the identity service client.
type HTTP struct {
	Base   string
	HTTP   *http.Client
	tokens TokenSource
	log    *logging.Logger
}

// NewHTTP returns a client for the service at base. tokens may be nil for
// unauthenticated use.
func NewHTTP(base string, timeout time.Duration, tokens TokenSource, log *logging.Logger) *HTTP {
	if log == nil {
		log = logging.NopLogger()
	}
	return &HTTP{
		Base:   strings.TrimRight(base, "/"),
		HTTP:   &http.Client{Timeout: timeout},
		tokens: tokens,
		log:    log.WithComponent("gateway"),
	}
}

type bootstrapRequest struct {
	ActivationCode string `json:"activationCode"`
}

// BootstrapAccount creates the account bound to an activation code.
func (c *HTTP) BootstrapAccount(ctx context.Context, activationCode string) (domain.AccountTokens, error) {
	var out domain.AccountTokens
	err := c.do(ctx, OpBootstrap, http.MethodPost, "/v1/accounts/bootstrap",
		bootstrapRequest{ActivationCode: activationCode}, &out)
	if err != nil {
		return domain.AccountTokens{}, err
	}
	if out.Empty() {
		return domain.AccountTokens{}, &domain.ServiceError{Kind: domain.KindUnknown, Op: OpBootstrap, Message: "no session token in response"}
	}
	return out, nil
}

type availability struct {
	Available bool `json:"available"`
}

// CheckUsernameAvailable reports whether username can be registered.
func (c *HTTP) CheckUsernameAvailable(ctx context.Context, username domain.Username) (bool, error) {
	var out availability
	path := "/v1/usernames/" + url.PathEscape(username.String()) + "/availability"
	if err := c.do(ctx, OpCheckUsername, http.MethodGet, path, nil, &out); err != nil {
		return false, err
	}
	return out.Available, nil
}

type emailRequest struct {
	Email string `json:"email"`
}

// CheckEmailAvailable returns a KindAlreadyUsed error when email is taken.
func (c *HTTP) CheckEmailAvailable(ctx context.Context, email string) error {
	return c.do(ctx, OpCheckEmail, http.MethodPost, "/v1/emails/availability", emailRequest{Email: email}, nil)
}

// UpdateAccountFields patches the authenticated account.
func (c *HTTP) UpdateAccountFields(ctx context.Context, fields map[string]string) error {
	return c.do(ctx, OpUpdateAccount, http.MethodPatch, "/v1/accounts/me", fields, nil)
}

// SendEmailVerificationCode asks the service to mail a code to email.
func (c *HTTP) SendEmailVerificationCode(ctx context.Context, email string) error {
	return c.do(ctx, OpSendEmailCode, http.MethodPost, "/v1/emails/verification", emailRequest{Email: email}, nil)
}

type confirmRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifyEmailCode confirms code for email and returns the verified address.
func (c *HTTP) VerifyEmailCode(ctx context.Context, email, code string) (string, error) {
	var out emailRequest
	err := c.do(ctx, OpVerifyEmailCode, http.MethodPost, "/v1/emails/verification/confirm",
		confirmRequest{Email: email, Code: code}, &out)
	if err != nil {
		return "", err
	}
	return out.Email, nil
}

// ListCities returns the city directory.
func (c *HTTP) ListCities(ctx context.Context) ([]domain.City, error) {
	var out []domain.City
	if err := c.do(ctx, OpListCities, http.MethodGet, "/v1/cities", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTP) do(ctx context.Context, op, method, path string, in, out any) error {
	var body *bytes.Buffer
	if in != nil {
		body = new(bytes.Buffer)
		if err := json.NewEncoder(body).Encode(in); err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.Base+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.Base+path, nil)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.authorize(req); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.log.Debug("request failed", "op", op, "request_id", reqID, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("request", "op", op, "method", method, "path", path, "status", resp.StatusCode,
		"request_id", reqID, "duration", time.Since(start).String())

	if resp.StatusCode/100 != 2 {
		return decodeError(op, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *HTTP) authorize(req *http.Request) error {
	if c.tokens == nil {
		return nil
	}
	tokens, ok, err := c.tokens.LoadTokens()
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}
	if ok && !tokens.Empty() {
		req.Header.Set("Authorization", "Bearer "+tokens.SessionToken)
	}
	return nil
}

// Compile-time assertion that HTTP implements domain.IdentityGateway.
var _ domain.IdentityGateway = (*HTTP)(nil)
