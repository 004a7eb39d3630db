// Package tui is the interactive terminal front-end of the registration
// wizard. It renders the current step of a wizard.Controller and drives
// Advance, GoBack and UpdateField from key presses.
package tui
