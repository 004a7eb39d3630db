// Package registration runs account registration on top of the wizard.
//
// It refuses to start while a completed registration for the same server is
// on record, builds a wizard.Controller wired to the identity gateway and
// the token store, and finishes the account when the wizard reaches its
// terminal state: the chosen city is written to the identity service and
// the local account profile is saved.
package registration
