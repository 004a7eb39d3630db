// Package wizard implements the account registration wizard as a state
// machine independent of any front-end.
//
// A run walks a fixed, ordered list of steps:
//
//	activation code → username → password → phone → email → email code → city
//
// Each step owns a set of fields, is checked by a StepValidator, and may carry
// a side effect executed by a SideEffectRunner against the identity service.
// The Controller owns the pointer into the step list, the collected answers
// and the set of completed steps.
//
// # Idempotency
//
// A step is completed for the values of its key fields at the time its side
// effect succeeded (recorded as a fingerprint). Navigating back and forward
// over an unchanged completed step never repeats its side effect. Editing a
// key field drops the completion of every step keyed on it and clears the
// coordinator's dispatch marker, so the next advance performs the effect for
// the new value. Bootstrapping the account happens at most once per session.
//
// # Concurrency
//
// Advance is serialised: a second call while one is in flight returns
// ErrAdvanceInFlight. Close marks the session dead; results of calls still in
// flight are discarded.
package wizard
