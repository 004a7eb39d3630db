// Package main runs the in-memory identity service used by enclave during
// development and tests.
//
// Usage
//
//	identity-dev [--addr :8080] [--activation-code CODE]... [--log-level INFO]
//
// Every flag can also be set through the environment with the
// ENCLAVE_DEV_ prefix, e.g. ENCLAVE_DEV_ADDR=:9090.
//
// Verification codes are not mailed. They appear in the access log as
// "verification code issued" entries.
//
// This server is intended for local use only. All state is held in memory
// and lost on exit.
package main
