package tui

import (
	"enclave/internal/domain"
	"enclave/internal/wizard"
)

// advanceResultMsg carries the result of one Controller.Advance.
type advanceResultMsg struct {
	outcome wizard.Outcome
	err     error
}

// citiesMsg carries the city directory for the city step.
type citiesMsg struct {
	cities []domain.City
	err    error
}

// resendResultMsg carries the result of one Controller.ResendCode.
type resendResultMsg struct {
	err error
}
