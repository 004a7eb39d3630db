package wizard_test

import (
	"errors"
	"strings"
	"testing"

	"enclave/internal/domain"
	"enclave/internal/wizard"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"incomplete", &wizard.IncompleteError{Steps: []wizard.StepID{wizard.StepUsername}}, "username"},
		{"input changed", wizard.ErrInputChanged, "submit again"},
		{"resend unavailable", wizard.ErrResendUnavailable, "no code to resend"},
		{"rate limited", domain.NewServiceError(domain.KindRateLimited, "send", "too many attempts"), "too many attempts"},
		{"unknown", errors.New("boom"), domain.KindUnknown.DefaultMessage()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wizard.Describe(tt.err); !strings.Contains(got, tt.want) {
				t.Fatalf("Describe = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}
