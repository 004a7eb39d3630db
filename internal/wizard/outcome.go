package wizard

import (
	"sort"

	"enclave/internal/domain"
)

// FieldError is a single field-scoped validation failure.
type FieldError struct {
	Kind    domain.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

// ValidationOutcome is the result of validating one step. It is valid when
// it carries no field errors.
type ValidationOutcome struct {
	FieldErrors map[domain.FieldName]FieldError `json:"field_errors,omitempty"`
}

// Valid returns a passing outcome.
func Valid() ValidationOutcome { return ValidationOutcome{} }

// Invalid returns an outcome with one field error. An empty message falls back
// to the kind's default text.
func Invalid(field domain.FieldName, kind domain.ErrorKind, message string) ValidationOutcome {
	var o ValidationOutcome
	o.Add(field, kind, message)
	return o
}

// Add records a field error, keeping the first error seen per field.
func (o *ValidationOutcome) Add(field domain.FieldName, kind domain.ErrorKind, message string) {
	if o.FieldErrors == nil {
		o.FieldErrors = make(map[domain.FieldName]FieldError)
	}
	if _, exists := o.FieldErrors[field]; exists {
		return
	}
	if message == "" {
		message = kind.DefaultMessage()
	}
	o.FieldErrors[field] = FieldError{Kind: kind, Message: message}
}

// IsValid reports whether no field failed.
func (o ValidationOutcome) IsValid() bool { return len(o.FieldErrors) == 0 }

// Fields returns the failing field names in stable order.
func (o ValidationOutcome) Fields() []domain.FieldName {
	out := make([]domain.FieldName, 0, len(o.FieldErrors))
	for f := range o.FieldErrors {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SideEffectResult is the result of running a step's side effect. Err set
// means failure; otherwise Patch is merged into the answers.
type SideEffectResult struct {
	Patch  domain.Answers
	Tokens *domain.AccountTokens
	// Skipped is set when the coordinator found the effect already done for
	// the submitted values and made no call.
	Skipped bool
	Err     error
}

// OK reports success.
func (r SideEffectResult) OK() bool { return r.Err == nil }

func failure(err error) SideEffectResult { return SideEffectResult{Err: err} }
