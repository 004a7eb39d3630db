package wizard

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"enclave/internal/domain"
)

// StepID identifies a wizard step.
type StepID string

// String returns the string form of the step id.
func (id StepID) String() string { return string(id) }

// Steps, in registration order.
const (
	StepActivationCode StepID = "activation_code"
	StepUsername       StepID = "username"
	StepPassword       StepID = "password"
	StepPhone          StepID = "phone"
	StepEmail          StepID = "email"
	StepEmailCode      StepID = "email_code"
	StepCity           StepID = "city"
)

// Fields collected by the wizard, plus the ones patched in by side effects.
const (
	FieldActivationCode domain.FieldName = "activationCode"
	FieldUsername       domain.FieldName = "username"
	FieldPassword       domain.FieldName = "password"
	FieldPhone          domain.FieldName = "phone"
	FieldEmail          domain.FieldName = "email"
	FieldEmailCode      domain.FieldName = "emailCode"
	FieldCityID         domain.FieldName = "cityId"

	FieldUserID        domain.FieldName = "userId"
	FieldVerifiedEmail domain.FieldName = "verifiedEmail"
)

// StepDefinition describes one step. It is plain data.
type StepDefinition struct {
	ID    StepID
	Order int
	Title string

	// RequiredFields are the fields the step collects.
	RequiredFields []domain.FieldName
	// KeyFields are the inputs the side effect is keyed on. A completion is
	// valid only while these values are unchanged.
	KeyFields []domain.FieldName
	// HasSideEffect is false for pure-local steps.
	HasSideEffect bool
}

// Owns reports whether the step collects field f.
func (d StepDefinition) Owns(f domain.FieldName) bool {
	return containsField(d.RequiredFields, f)
}

// KeyedOn reports whether the step's completion depends on field f.
func (d StepDefinition) KeyedOn(f domain.FieldName) bool {
	return containsField(d.KeyFields, f)
}

// Fingerprint hashes the normalised values of the step's key fields.
// Secrets never leave this function in clear.
func (d StepDefinition) Fingerprint(answers domain.Answers) string {
	h := sha256.New()
	for _, f := range d.KeyFields {
		h.Write([]byte(f))
		h.Write([]byte{0})
		h.Write([]byte(fieldValue(answers, f)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Registry is the ordered step catalogue.
type Registry []StepDefinition

// DefaultRegistry returns the registration steps in contract order.
func DefaultRegistry() Registry {
	return Registry{
		{
			ID:             StepActivationCode,
			Order:          0,
			Title:          "Activation code",
			RequiredFields: []domain.FieldName{FieldActivationCode},
			HasSideEffect:  true,
		},
		{
			ID:             StepUsername,
			Order:          1,
			Title:          "Username",
			RequiredFields: []domain.FieldName{FieldUsername},
			KeyFields:      []domain.FieldName{FieldUsername},
			HasSideEffect:  true,
		},
		{
			ID:             StepPassword,
			Order:          2,
			Title:          "Password",
			RequiredFields: []domain.FieldName{FieldPassword},
			KeyFields:      []domain.FieldName{FieldPassword},
			HasSideEffect:  true,
		},
		{
			ID:             StepPhone,
			Order:          3,
			Title:          "Phone",
			RequiredFields: []domain.FieldName{FieldPhone},
			KeyFields:      []domain.FieldName{FieldPhone},
			HasSideEffect:  true,
		},
		{
			ID:             StepEmail,
			Order:          4,
			Title:          "Email",
			RequiredFields: []domain.FieldName{FieldEmail},
			KeyFields:      []domain.FieldName{FieldEmail},
			HasSideEffect:  true,
		},
		{
			ID:             StepEmailCode,
			Order:          5,
			Title:          "Email verification",
			RequiredFields: []domain.FieldName{FieldEmailCode},
			// A verified address stays verified whatever the code field holds.
			KeyFields:      []domain.FieldName{FieldEmail},
			HasSideEffect:  true,
		},
		{
			ID:             StepCity,
			Order:          6,
			Title:          "City",
			RequiredFields: []domain.FieldName{FieldCityID},
			KeyFields:      []domain.FieldName{FieldCityID},
		},
	}
}

// Index returns the position of id, or -1.
func (r Registry) Index(id StepID) int {
	for i, d := range r {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// Step returns the definition for id.
func (r Registry) Step(id StepID) (StepDefinition, bool) {
	if i := r.Index(id); i >= 0 {
		return r[i], true
	}
	return StepDefinition{}, false
}

// Check verifies the catalogue is usable: non-empty, unique ids, strictly
// increasing order.
func (r Registry) Check() error {
	if len(r) == 0 {
		return fmt.Errorf("wizard: empty step registry")
	}
	seen := make(map[StepID]bool, len(r))
	for i, d := range r {
		if seen[d.ID] {
			return fmt.Errorf("wizard: duplicate step %q", d.ID)
		}
		seen[d.ID] = true
		if i > 0 && d.Order <= r[i-1].Order {
			return fmt.Errorf("wizard: step %q out of order", d.ID)
		}
	}
	return nil
}

// fieldValue returns the normalised value of f. Passwords are kept verbatim;
// everything else is trimmed.
func fieldValue(answers domain.Answers, f domain.FieldName) string {
	v := answers[f]
	if f == FieldPassword {
		return v
	}
	return strings.TrimSpace(v)
}

func containsField(fields []domain.FieldName, f domain.FieldName) bool {
	for _, x := range fields {
		if x == f {
			return true
		}
	}
	return false
}
