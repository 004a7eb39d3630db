// Package config loads enclave's settings through viper.
//
// Values come, in increasing precedence, from built-in defaults, the YAML
// file at $XDG_CONFIG_HOME/enclave/config.yaml, ENCLAVE_* environment
// variables, and command-line flags bound by the CLI.
package config
