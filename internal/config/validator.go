package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // config key, e.g. "gateway.base_url"
	Value   any
	Message string
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels returns the accepted logging.level values
func ValidLogLevels() []string {
	return []string{"DEBUG", "INFO", "WARN", "ERROR"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	u, err := url.Parse(c.Gateway.BaseURL)
	if c.Gateway.BaseURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field: "gateway.base_url", Value: c.Gateway.BaseURL,
			Message: "must be an absolute http(s) URL",
		})
	}
	if c.Gateway.TimeoutSeconds < 1 || c.Gateway.TimeoutSeconds > 300 {
		errs = append(errs, ValidationError{
			Field: "gateway.timeout_seconds", Value: c.Gateway.TimeoutSeconds,
			Message: "must be between 1 and 300",
		})
	}
	if strings.TrimSpace(c.Storage.Home) == "" {
		errs = append(errs, ValidationError{
			Field: "storage.home", Value: c.Storage.Home,
			Message: "must not be empty",
		})
	}
	if !slices.Contains(ValidLogLevels(), strings.ToUpper(c.Logging.Level)) {
		errs = append(errs, ValidationError{
			Field: "logging.level", Value: c.Logging.Level,
			Message: fmt.Sprintf("must be one of %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Wizard.CodeLength < 4 || c.Wizard.CodeLength > 12 {
		errs = append(errs, ValidationError{
			Field: "wizard.code_length", Value: c.Wizard.CodeLength,
			Message: "must be between 4 and 12",
		})
	}
	if c.Wizard.MinPasswordLength < 8 {
		errs = append(errs, ValidationError{
			Field: "wizard.min_password_length", Value: c.Wizard.MinPasswordLength,
			Message: "must be at least 8",
		})
	}
	return errs
}
