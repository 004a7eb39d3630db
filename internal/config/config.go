package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// ENCLAVE_GATEWAY_BASE_URL for gateway.base_url.
const EnvPrefix = "ENCLAVE"

// Config represents the complete enclave configuration
type Config struct {
	Gateway GatewayConfig `mapstructure:"gateway"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Wizard  WizardConfig  `mapstructure:"wizard"`
	UI      UIConfig      `mapstructure:"ui"`
}

// GatewayConfig locates the identity service
type GatewayConfig struct {
	// BaseURL of the identity service, e.g. http://127.0.0.1:8080
	BaseURL string `mapstructure:"base_url"`
	// TimeoutSeconds bounds every request (default: 15)
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// Timeout returns TimeoutSeconds as a duration.
func (g GatewayConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// StorageConfig controls where local state lives
type StorageConfig struct {
	// Home is the directory for tokens and account profiles (default: ~/.enclave)
	Home string `mapstructure:"home"`
	// Passphrase seals the token file. Empty means use the per-install device id.
	Passphrase string `mapstructure:"passphrase"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR (default: INFO)
	Level string `mapstructure:"level"`
	// Dir receives enclave.log. Empty means log to stderr.
	Dir string `mapstructure:"dir"`
}

// WizardConfig tunes local validation
type WizardConfig struct {
	// CodeLength is the number of characters in an email verification code (default: 6)
	CodeLength int `mapstructure:"code_length"`
	// MinPasswordLength is the minimum password length (default: 8)
	MinPasswordLength int `mapstructure:"min_password_length"`
}

// UIConfig selects the front-end
type UIConfig struct {
	// Plain uses line prompts instead of the full-screen wizard
	Plain bool `mapstructure:"plain"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			BaseURL:        "http://127.0.0.1:8080",
			TimeoutSeconds: 15,
		},
		Storage: StorageConfig{
			Home: DefaultHome(),
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
		Wizard: WizardConfig{
			CodeLength:        6,
			MinPasswordLength: 8,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("gateway.base_url", defaults.Gateway.BaseURL)
	viper.SetDefault("gateway.timeout_seconds", defaults.Gateway.TimeoutSeconds)

	viper.SetDefault("storage.home", defaults.Storage.Home)
	viper.SetDefault("storage.passphrase", defaults.Storage.Passphrase)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	viper.SetDefault("wizard.code_length", defaults.Wizard.CodeLength)
	viper.SetDefault("wizard.min_password_length", defaults.Wizard.MinPasswordLength)

	viper.SetDefault("ui.plain", defaults.UI.Plain)
}

// Init prepares the global viper instance: defaults, config file search
// path and environment overrides. cfgFile overrides the search.
func Init(cfgFile string) error {
	SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// Load unmarshals and validates the current viper state
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Storage.Home = expandHome(cfg.Storage.Home)
	cfg.Logging.Dir = expandHome(cfg.Logging.Dir)

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "enclave")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".enclave"
	}
	return filepath.Join(home, ".config", "enclave")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultHome returns ~/.enclave
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".enclave"
	}
	return filepath.Join(home, ".enclave")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}
