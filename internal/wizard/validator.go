package wizard

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"enclave/internal/domain"
)

// StepValidator checks the answers owned by one step.
//
// Field problems come back in the outcome. A non-nil error means the check
// itself could not be completed (network, rate limit, rejected session) and
// is scoped to the step as a whole.
type StepValidator interface {
	Validate(ctx context.Context, step StepID, answers domain.Answers) (ValidationOutcome, error)
}

// Policy holds the tunable parts of local validation.
type Policy struct {
	CodeLength        int
	MinPasswordLength int
}

// DefaultPolicy returns the policy the identity service enforces.
func DefaultPolicy() Policy {
	return Policy{CodeLength: 6, MinPasswordLength: 8}
}

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// RE2 has no lookahead, so the password policy is one pattern per class.
	passwordLower = regexp.MustCompile(`[a-z]`)
	passwordUpper = regexp.MustCompile(`[A-Z]`)
	passwordDigit = regexp.MustCompile(`[0-9]`)
)

type checkFunc func(ctx context.Context, answers domain.Answers) (ValidationOutcome, error)

// Validator is the StepValidator backed by the identity service.
type Validator struct {
	gateway domain.IdentityGateway
	policy  Policy
	checks  map[StepID]checkFunc
}

// NewValidator returns a Validator using gw for remote checks. Zero policy
// values take their defaults.
func NewValidator(gw domain.IdentityGateway, policy Policy) *Validator {
	def := DefaultPolicy()
	if policy.CodeLength <= 0 {
		policy.CodeLength = def.CodeLength
	}
	if policy.MinPasswordLength <= 0 {
		policy.MinPasswordLength = def.MinPasswordLength
	}

	v := &Validator{gateway: gw, policy: policy}
	v.checks = map[StepID]checkFunc{
		StepActivationCode: v.activationCode,
		StepUsername:       v.username,
		StepPassword:       v.password,
		StepPhone:          v.phone,
		StepEmail:          v.email,
		StepEmailCode:      v.emailCode,
		StepCity:           v.city,
	}
	return v
}

// Validate implements StepValidator.
func (v *Validator) Validate(ctx context.Context, step StepID, answers domain.Answers) (ValidationOutcome, error) {
	check, ok := v.checks[step]
	if !ok {
		return ValidationOutcome{}, fmt.Errorf("wizard: no validator for step %q", step)
	}
	return check(ctx, answers)
}

// The activation code is checked remotely by the bootstrap call itself; a
// separate availability check would spend the code.
func (v *Validator) activationCode(_ context.Context, answers domain.Answers) (ValidationOutcome, error) {
	if fieldValue(answers, FieldActivationCode) == "" {
		return Invalid(FieldActivationCode, domain.KindRequired, ""), nil
	}
	return Valid(), nil
}

func (v *Validator) username(ctx context.Context, answers domain.Answers) (ValidationOutcome, error) {
	name := fieldValue(answers, FieldUsername)
	if name == "" {
		return Invalid(FieldUsername, domain.KindRequired, ""), nil
	}
	available, err := v.gateway.CheckUsernameAvailable(ctx, domain.Username(name))
	if err != nil {
		return ValidationOutcome{}, fmt.Errorf("check username: %w", err)
	}
	if !available {
		return Invalid(FieldUsername, domain.KindAlreadyUsed, "this username is already taken"), nil
	}
	return Valid(), nil
}

func (v *Validator) password(_ context.Context, answers domain.Answers) (ValidationOutcome, error) {
	pw := fieldValue(answers, FieldPassword)
	if pw == "" {
		return Invalid(FieldPassword, domain.KindRequired, ""), nil
	}
	if !v.strongPassword(pw) {
		return Invalid(FieldPassword, domain.KindWeakPassword,
			fmt.Sprintf("password must be at least %d characters and include upper case, lower case and a digit",
				v.policy.MinPasswordLength)), nil
	}
	return Valid(), nil
}

func (v *Validator) strongPassword(pw string) bool {
	return utf8.RuneCountInString(pw) >= v.policy.MinPasswordLength &&
		passwordLower.MatchString(pw) &&
		passwordUpper.MatchString(pw) &&
		passwordDigit.MatchString(pw)
}

// Uniqueness of the phone number is enforced by the account update.
func (v *Validator) phone(_ context.Context, answers domain.Answers) (ValidationOutcome, error) {
	if fieldValue(answers, FieldPhone) == "" {
		return Invalid(FieldPhone, domain.KindRequired, ""), nil
	}
	return Valid(), nil
}

func (v *Validator) email(ctx context.Context, answers domain.Answers) (ValidationOutcome, error) {
	addr := fieldValue(answers, FieldEmail)
	if addr == "" {
		return Invalid(FieldEmail, domain.KindRequired, ""), nil
	}
	if !emailPattern.MatchString(addr) {
		return Invalid(FieldEmail, domain.KindInvalidFormat, "enter an address like name@example.com"), nil
	}
	if err := v.gateway.CheckEmailAvailable(ctx, addr); err != nil {
		if domain.KindOf(err) == domain.KindAlreadyUsed {
			return Invalid(FieldEmail, domain.KindAlreadyUsed, "this email is already registered"), nil
		}
		return ValidationOutcome{}, fmt.Errorf("check email: %w", err)
	}
	return Valid(), nil
}

// The code is verified remotely by the step's side effect, against the
// address the code was sent to.
func (v *Validator) emailCode(_ context.Context, answers domain.Answers) (ValidationOutcome, error) {
	code := fieldValue(answers, FieldEmailCode)
	if code == "" {
		return Invalid(FieldEmailCode, domain.KindRequired, ""), nil
	}
	if utf8.RuneCountInString(code) != v.policy.CodeLength {
		return Invalid(FieldEmailCode, domain.KindInvalidFormat,
			fmt.Sprintf("the code has %d characters", v.policy.CodeLength)), nil
	}
	return Valid(), nil
}

func (v *Validator) city(ctx context.Context, answers domain.Answers) (ValidationOutcome, error) {
	id := fieldValue(answers, FieldCityID)
	if id == "" {
		return Invalid(FieldCityID, domain.KindRequired, "choose a city"), nil
	}
	cities, err := v.gateway.ListCities(ctx)
	if err != nil {
		return ValidationOutcome{}, fmt.Errorf("list cities: %w", err)
	}
	for _, c := range cities {
		if c.ID == id {
			return Valid(), nil
		}
	}
	return Invalid(FieldCityID, domain.KindInvalidFormat, "choose a city from the list"), nil
}

// Compile-time assertion that Validator implements StepValidator.
var _ StepValidator = (*Validator)(nil)
