package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Gateway.TimeoutSeconds != 15 {
		t.Errorf("Gateway.TimeoutSeconds = %d, want 15", cfg.Gateway.TimeoutSeconds)
	}
	if cfg.Wizard.CodeLength != 6 {
		t.Errorf("Wizard.CodeLength = %d, want 6", cfg.Wizard.CodeLength)
	}
	if cfg.Wizard.MinPasswordLength != 8 {
		t.Errorf("Wizard.MinPasswordLength = %d, want 8", cfg.Wizard.MinPasswordLength)
	}
	if cfg.UI.Plain {
		t.Error("UI.Plain should be false by default")
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("defaults do not validate: %v", ValidationErrors(errs))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"relative url", func(c *Config) { c.Gateway.BaseURL = "localhost:8080" }, "gateway.base_url"},
		{"zero timeout", func(c *Config) { c.Gateway.TimeoutSeconds = 0 }, "gateway.timeout_seconds"},
		{"empty home", func(c *Config) { c.Storage.Home = " " }, "storage.home"},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"short code", func(c *Config) { c.Wizard.CodeLength = 2 }, "wizard.code_length"},
		{"short password", func(c *Config) { c.Wizard.MinPasswordLength = 6 }, "wizard.min_password_length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if len(errs) != 1 || errs[0].Field != tt.field {
				t.Fatalf("Validate() = %v, want one error on %s", errs, tt.field)
			}
		})
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	yaml := "gateway:\n  base_url: http://identity.test\nwizard:\n  code_length: 8\n"
	if err := os.WriteFile(file, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENCLAVE_LOGGING_LEVEL", "DEBUG")

	if err := Init(file); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Gateway.BaseURL != "http://identity.test" {
		t.Errorf("Gateway.BaseURL = %q", cfg.Gateway.BaseURL)
	}
	if cfg.Wizard.CodeLength != 8 {
		t.Errorf("Wizard.CodeLength = %d, want 8", cfg.Wizard.CodeLength)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Logging.Level = %q, want DEBUG", cfg.Logging.Level)
	}
	if cfg.Gateway.TimeoutSeconds != 15 {
		t.Errorf("Gateway.TimeoutSeconds = %d, want default 15", cfg.Gateway.TimeoutSeconds)
	}
}

func TestLoad_InvalidReturnsValidationErrors(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ENCLAVE_GATEWAY_TIMEOUT_SECONDS", "0")

	if err := Init(""); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	_, err := Load()
	if _, ok := err.(ValidationErrors); !ok {
		t.Fatalf("Load() error = %T %v, want ValidationErrors", err, err)
	}
}

func TestConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := ConfigDir(); got != filepath.Join("/tmp/xdg", "enclave") {
		t.Errorf("ConfigDir() = %q", got)
	}
}
