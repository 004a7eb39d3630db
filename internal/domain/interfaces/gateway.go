package interfaces

import (
	"context"

	domaintypes "enclave/internal/domain/types"
)

// IdentityGateway is how the client talks to the remote identity service.
// Failures are reported as *domain.ServiceError where the service gave a
// classifiable answer.
type IdentityGateway interface {
	BootstrapAccount(ctx context.Context, activationCode string) (domaintypes.AccountTokens, error)
	CheckUsernameAvailable(ctx context.Context, username domaintypes.Username) (bool, error)
	CheckEmailAvailable(ctx context.Context, email string) error
	UpdateAccountFields(ctx context.Context, fields map[string]string) error
	SendEmailVerificationCode(ctx context.Context, email string) error
	VerifyEmailCode(ctx context.Context, email, code string) (string, error)
	ListCities(ctx context.Context) ([]domaintypes.City, error)
}
