// Package app wires application dependencies for the CLI.
//
// It builds the logger, stores, identity gateway and services from a loaded
// config.Config and exposes them through the Wire struct for commands to use.
package app
