package wizard

import (
	"context"
	"errors"
	"strings"

	"enclave/internal/domain"
)

// ErrCanceled is returned by the front-ends when the user quits.
var ErrCanceled = errors.New("registration cancelled")

// CityLister loads the city directory for the city step.
type CityLister func(ctx context.Context) ([]domain.City, error)

// Describe turns a step-scoped Advance or ResendCode error into a line for
// the user.
func Describe(err error) string {
	var inc *IncompleteError
	switch {
	case errors.As(err, &inc):
		names := make([]string, 0, len(inc.Steps))
		for _, s := range inc.Steps {
			names = append(names, s.String())
		}
		return "go back and finish: " + strings.Join(names, ", ")
	case errors.Is(err, ErrInputChanged):
		return "the answer changed while it was being checked, submit again"
	case errors.Is(err, ErrAdvanceInFlight):
		return "still working on the previous answer"
	case errors.Is(err, ErrResendUnavailable):
		return "there is no code to resend here"
	}
	return domain.UserMessage(err)
}
