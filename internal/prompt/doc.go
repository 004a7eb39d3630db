// Package prompt is the line-mode front-end of the registration wizard, for
// terminals without cursor control and for scripted input.
//
// Each step reads one line. ":back" returns to the previous step and ":quit"
// abandons the session. On the email code step ":resend" asks for a fresh
// code. Passwords are read without echo when the input is a
// terminal.
package prompt
