package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a failure the wizard knows how to present.
//
// Required, InvalidFormat and WeakPassword are local validation kinds and are
// always scoped to a single field. The remaining kinds come from the identity
// service and are scoped to the step that made the call.
type ErrorKind int

const (
	// KindUnknown is any failure that could not be classified.
	KindUnknown ErrorKind = iota
	// KindRequired means a required field was left empty.
	KindRequired
	// KindInvalidFormat means a field value is syntactically wrong.
	KindInvalidFormat
	// KindWeakPassword means a password failed the strength policy.
	KindWeakPassword
	// KindAlreadyUsed means a username or email is taken.
	KindAlreadyUsed
	// KindInvalidCode means an activation or verification code was rejected.
	KindInvalidCode
	// KindRateLimited means the identity service refused further attempts for now.
	KindRateLimited
	// KindUnauthorized means the session token was rejected.
	KindUnauthorized
)

// String returns the wire/log name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindRequired:
		return "required"
	case KindInvalidFormat:
		return "invalid_format"
	case KindWeakPassword:
		return "weak_password"
	case KindAlreadyUsed:
		return "already_used"
	case KindInvalidCode:
		return "invalid_code"
	case KindRateLimited:
		return "rate_limited"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// ParseErrorKind maps a wire name back to its kind. Unrecognised names map to
// KindUnknown.
func ParseErrorKind(s string) ErrorKind {
	for k := KindRequired; k <= KindUnauthorized; k++ {
		if k.String() == s {
			return k
		}
	}
	return KindUnknown
}

// IsValidation reports whether the kind is a local, field-scoped kind.
func (k ErrorKind) IsValidation() bool {
	return k == KindRequired || k == KindInvalidFormat || k == KindWeakPassword
}

// DefaultMessage is the user-visible text for a kind when no better message
// is available.
func (k ErrorKind) DefaultMessage() string {
	switch k {
	case KindRequired:
		return "this field is required"
	case KindInvalidFormat:
		return "the value is not in the expected format"
	case KindWeakPassword:
		return "password must be at least 8 characters and include upper case, lower case and a digit"
	case KindAlreadyUsed:
		return "this value is already in use"
	case KindInvalidCode:
		return "the code is invalid or has already been used"
	case KindRateLimited:
		return "too many attempts"
	case KindUnauthorized:
		return "your session has expired, please start again"
	default:
		return "something went wrong, please try again"
	}
}

// ServiceError is a classified failure returned by the identity service.
type ServiceError struct {
	Kind    ErrorKind
	Op      string // gateway operation, e.g. "send_email_code"
	Status  int    // HTTP status, 0 when not applicable
	Message string // server-supplied message, surfaced verbatim when set
	Err     error
}

// NewServiceError returns a ServiceError for op with the given kind and message.
func NewServiceError(kind ErrorKind, op, message string) *ServiceError {
	return &ServiceError{Kind: kind, Op: op, Message: message}
}

// Error implements error.
func (e *ServiceError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ServiceError) Unwrap() error { return e.Err }

// Is matches another *ServiceError of the same kind, so callers can write
// errors.Is(err, domain.ErrRateLimited).
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrAlreadyUsed  = &ServiceError{Kind: KindAlreadyUsed}
	ErrInvalidCode  = &ServiceError{Kind: KindInvalidCode}
	ErrRateLimited  = &ServiceError{Kind: KindRateLimited}
	ErrUnauthorized = &ServiceError{Kind: KindUnauthorized}
)

// KindOf classifies err. Errors that are not *ServiceError are KindUnknown.
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsFatal reports whether err ends the registration session.
func IsFatal(err error) bool {
	return KindOf(err) == KindUnauthorized
}

// IsCanceled reports whether err came from a cancelled or expired context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// UserMessage returns the text to show for err. Rate-limit messages from the
// service are passed through verbatim; unclassified errors get a generic text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *ServiceError
	if !errors.As(err, &se) {
		return KindUnknown.DefaultMessage()
	}
	if se.Message != "" && se.Kind != KindUnknown {
		return se.Message
	}
	return se.Kind.DefaultMessage()
}
