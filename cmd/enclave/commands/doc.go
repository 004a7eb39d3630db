// Package commands defines the enclave CLI and wires dependencies for subcommands.
//
// Commands
//
//   - register   Create an account with the registration wizard
//   - whoami     Show the account and session held for the server
//   - logout     Forget the session and local profile
//   - cities     List the cities the identity service offers
//
// # Implementation
//
// The root command loads configuration (file, ENCLAVE_* environment, flags)
// and builds the dependency graph (logger, stores, gateway, services) before
// any subcommand runs.
package commands
