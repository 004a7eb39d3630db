package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"enclave/internal/domain"
	"enclave/internal/logging"
)

var (
	// ErrAdvanceInFlight is returned when Advance is called while a previous
	// call has not resolved.
	ErrAdvanceInFlight = errors.New("wizard: advance already in progress")
	// ErrSessionClosed is returned once the session was closed, aborted or
	// handed off.
	ErrSessionClosed = errors.New("wizard: session closed")
	// ErrTerminal is returned by Advance after the last step succeeded.
	ErrTerminal = errors.New("wizard: registration already complete")
	// ErrInputChanged is returned when the step's key fields were edited while
	// its submission was in flight. The step stays current.
	ErrInputChanged = errors.New("wizard: input changed while submitting")
	// ErrResendUnavailable is returned by ResendCode away from an unverified
	// email-code step, or after the address was edited.
	ErrResendUnavailable = errors.New("wizard: no verification code to resend")
	// ErrStepsIncomplete is matched by *IncompleteError.
	ErrStepsIncomplete = errors.New("wizard: earlier steps need to be completed again")
)

// IncompleteError lists earlier steps whose completion was dropped by an edit.
type IncompleteError struct {
	Steps []StepID
}

func (e *IncompleteError) Error() string {
	names := make([]string, len(e.Steps))
	for i, s := range e.Steps {
		names[i] = s.String()
	}
	return fmt.Sprintf("%s: %s", ErrStepsIncomplete, strings.Join(names, ", "))
}

// Is matches ErrStepsIncomplete.
func (e *IncompleteError) Is(target error) bool { return target == ErrStepsIncomplete }

// Completion is handed to the terminal hook.
type Completion struct {
	SessionID string
	Answers   domain.Answers
	Tokens    domain.AccountTokens
}

// Hooks are the caller's callbacks. Both are optional.
type Hooks struct {
	// OnTerminal runs synchronously inside the Advance that completed the
	// last step. Its error is returned from that Advance, and the next
	// Advance runs it again. The session closes once it succeeds.
	OnTerminal func(ctx context.Context, c Completion) error
	// OnAbort runs once when the session is discarded because the identity
	// service rejected it.
	OnAbort func(err error)
}

// Outcome describes what one Advance did.
type Outcome struct {
	Step       StepID
	Validation ValidationOutcome
	Advanced   bool
	// Skipped is set when the step's side effect was not run because the step
	// was already completed for the submitted values.
	Skipped  bool
	Terminal bool
}

// Options configures a Controller.
type Options struct {
	Registry  Registry
	Validator StepValidator
	Effects   SideEffectRunner
	Hooks     Hooks
	Logger    *logging.Logger
	// SessionID defaults to a random UUID.
	SessionID string
}

// session is the mutable wizard state, guarded by Controller.mu.
type session struct {
	id        string
	pointer   int
	answers   domain.Answers
	completed map[StepID]string // step -> key fingerprint at completion
	tokens    *domain.AccountTokens
	terminal  bool
}

// Controller is the registration state machine.
type Controller struct {
	registry  Registry
	validator StepValidator
	effects   SideEffectRunner
	hooks     Hooks
	log       *logging.Logger

	advancing atomic.Bool
	closed    atomic.Bool
	abortOnce sync.Once

	mu    sync.Mutex
	state session
}

// NewController starts a fresh session at the first step.
func NewController(opts Options) (*Controller, error) {
	if err := opts.Registry.Check(); err != nil {
		return nil, err
	}
	if opts.Validator == nil || opts.Effects == nil {
		return nil, fmt.Errorf("wizard: validator and side-effect runner are required")
	}
	id := opts.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	log := opts.Logger
	if log == nil {
		log = logging.NopLogger()
	}

	return &Controller{
		registry:  opts.Registry,
		validator: opts.Validator,
		effects:   opts.Effects,
		hooks:     opts.Hooks,
		log:       log.WithSession(id),
		state: session{
			id:        id,
			answers:   make(domain.Answers),
			completed: make(map[StepID]string),
		},
	}, nil
}

// Advance validates the current step, runs its side effect if it has not
// run for the current values, and moves to the next step.
//
// Invalid input is reported in Outcome.Validation with a nil error and leaves
// the session untouched. Service failures are returned as errors, also
// without touching the session.
func (c *Controller) Advance(ctx context.Context) (Outcome, error) {
	if c.closed.Load() {
		if c.Terminal() {
			return Outcome{Terminal: true}, ErrTerminal
		}
		return Outcome{}, ErrSessionClosed
	}
	if !c.advancing.CompareAndSwap(false, true) {
		return Outcome{}, ErrAdvanceInFlight
	}
	defer c.advancing.Store(false)

	c.mu.Lock()
	if c.state.terminal {
		// The terminal hook failed last time; run it again.
		completion := c.completionLocked()
		last := c.registry[len(c.registry)-1].ID
		c.mu.Unlock()
		return Outcome{Step: last, Terminal: true}, c.finish(ctx, c.log.WithStep(last.String()), completion)
	}
	idx := c.state.pointer
	def := c.registry[idx]
	answers := c.state.answers.Clone()
	fp := def.Fingerprint(answers)
	done := c.doneLocked(def)
	missing := c.missingBeforeLocked(idx)
	c.mu.Unlock()

	out := Outcome{Step: def.ID}
	log := c.log.WithStep(def.ID.String())

	if len(missing) > 0 {
		log.Debug("advance blocked by edited earlier steps", "steps", missing)
		return out, &IncompleteError{Steps: missing}
	}

	validation, err := c.validator.Validate(ctx, def.ID, answers)
	if c.closed.Load() {
		return out, ErrSessionClosed
	}
	if err != nil {
		return out, c.fail(log, "validate", err)
	}
	out.Validation = validation
	if !validation.IsValid() {
		log.Debug("validation failed", "fields", validation.Fields())
		return out, nil
	}

	var result SideEffectResult
	switch {
	case !def.HasSideEffect:
	case done:
		out.Skipped = true
	default:
		result = c.effects.Run(ctx, def.ID, answers)
		if c.closed.Load() {
			return out, ErrSessionClosed
		}
		if result.Err != nil {
			return out, c.fail(log, "side_effect", result.Err)
		}
		out.Skipped = result.Skipped
	}

	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return out, ErrSessionClosed
	}
	if result.Tokens != nil && c.state.tokens == nil {
		tokens := *result.Tokens
		c.state.tokens = &tokens
	}
	if def.Fingerprint(c.state.answers) != fp {
		// The completion holds for the submitted values; the edit is not done.
		c.state.completed[def.ID] = fp
		c.mu.Unlock()
		log.Debug("key fields edited during submission")
		return out, ErrInputChanged
	}
	for k, v := range result.Patch {
		c.state.answers[k] = v
	}
	c.state.completed[def.ID] = fp

	out.Advanced = true
	var completion Completion
	if idx == len(c.registry)-1 {
		c.state.terminal = true
		out.Terminal = true
		completion = c.completionLocked()
	} else {
		c.state.pointer = idx + 1
	}
	c.mu.Unlock()

	if !out.Terminal {
		log.Debug("step completed", "next", c.registry[idx+1].ID.String())
		return out, nil
	}

	log.Info("all steps completed")
	return out, c.finish(ctx, log, completion)
}

// finish runs the terminal hook and closes the session once it succeeds.
func (c *Controller) finish(ctx context.Context, log *logging.Logger, completion Completion) error {
	if c.hooks.OnTerminal != nil {
		if err := c.hooks.OnTerminal(ctx, completion); err != nil {
			log.Error("terminal hook failed", "error", err)
			return err
		}
	}
	c.closed.Store(true)
	return nil
}

// GoBack moves to the previous step. It never reverses side effects and
// keeps completions. It is refused on the first step, while an advance is in
// flight, and once the session is closed.
func (c *Controller) GoBack() bool {
	if c.closed.Load() || c.advancing.Load() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.terminal || c.state.pointer == 0 {
		return false
	}
	c.state.pointer--
	c.log.Debug("moved back", "step", c.registry[c.state.pointer].ID.String())
	return true
}

// ResendCode sends a fresh verification code to the address the current one
// went to. It is available on the email-code step until the address is
// verified, and shares the in-flight guard with Advance. A failed send keeps
// the outstanding code.
func (c *Controller) ResendCode(ctx context.Context) error {
	if c.closed.Load() {
		if c.Terminal() {
			return ErrTerminal
		}
		return ErrSessionClosed
	}
	if !c.advancing.CompareAndSwap(false, true) {
		return ErrAdvanceInFlight
	}
	defer c.advancing.Store(false)

	c.mu.Lock()
	if c.state.terminal {
		c.mu.Unlock()
		return ErrTerminal
	}
	cur := c.registry[c.state.pointer]
	emailDef, ok := c.registry.Step(StepEmail)
	if !ok || cur.ID != StepEmailCode || c.doneLocked(cur) || !c.doneLocked(emailDef) {
		c.mu.Unlock()
		return ErrResendUnavailable
	}
	answers := c.state.answers.Clone()
	fp := emailDef.Fingerprint(answers)
	c.mu.Unlock()

	log := c.log.WithStep(StepEmail.String())
	res := c.effects.Rerun(ctx, StepEmail, answers)
	if c.closed.Load() {
		return ErrSessionClosed
	}
	if res.Err != nil {
		return c.fail(log, "resend", res.Err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if emailDef.Fingerprint(c.state.answers) != fp {
		return ErrInputChanged
	}
	c.state.completed[StepEmail] = fp
	log.Info("verification code resent")
	return nil
}

// UpdateField stores value under name. Steps keyed on name lose their
// completion if the value no longer matches, and their dispatch markers are
// cleared so the next advance performs the side effect again.
func (c *Controller) UpdateField(name domain.FieldName, value string) error {
	if c.closed.Load() {
		return ErrSessionClosed
	}

	c.mu.Lock()
	if c.state.terminal {
		c.mu.Unlock()
		return ErrTerminal
	}
	c.state.answers[name] = value
	var keyed []StepID
	for _, def := range c.registry {
		if !def.KeyedOn(name) {
			continue
		}
		keyed = append(keyed, def.ID)
		if fp, ok := c.state.completed[def.ID]; ok && fp != def.Fingerprint(c.state.answers) {
			delete(c.state.completed, def.ID)
			c.log.Debug("completion dropped after edit", "step", def.ID.String(), "field", name.String())
		}
	}
	answers := c.state.answers.Clone()
	c.mu.Unlock()

	for _, id := range keyed {
		c.effects.Invalidate(id, answers)
	}
	return nil
}

// Close ends the session. Results of calls still in flight are discarded.
func (c *Controller) Close() {
	if c.closed.CompareAndSwap(false, true) {
		c.log.Debug("session closed")
	}
}

// Closed reports whether the session was closed, aborted or completed.
func (c *Controller) Closed() bool { return c.closed.Load() }

// Current returns the definition of the current step.
func (c *Controller) Current() StepDefinition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry[c.state.pointer]
}

// Pointer returns the index of the current step.
func (c *Controller) Pointer() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.pointer
}

// Terminal reports whether the last step succeeded.
func (c *Controller) Terminal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.terminal
}

// Answers returns a copy of the collected answers.
func (c *Controller) Answers() domain.Answers {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.answers.Clone()
}

// Completed reports whether step is completed for the current values.
func (c *Controller) Completed(step StepID) bool {
	def, ok := c.registry.Step(step)
	if !ok {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doneLocked(def)
}

// Registry returns the step catalogue the controller runs.
func (c *Controller) Registry() Registry { return c.registry }

// Snapshot is a serialisable view of the session. Answers are omitted.
type Snapshot struct {
	SessionID string   `json:"session_id"`
	Pointer   int      `json:"pointer"`
	Step      StepID   `json:"step"`
	Completed []StepID `json:"completed"`
	Fields    []string `json:"fields"`
	HasTokens bool     `json:"has_tokens"`
	Terminal  bool     `json:"terminal"`
	Closed    bool     `json:"closed"`
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		SessionID: c.state.id,
		Pointer:   c.state.pointer,
		Step:      c.registry[c.state.pointer].ID,
		HasTokens: c.state.tokens != nil,
		Terminal:  c.state.terminal,
		Closed:    c.closed.Load(),
	}
	for _, def := range c.registry {
		if c.doneLocked(def) {
			snap.Completed = append(snap.Completed, def.ID)
		}
	}
	for _, def := range c.registry {
		for _, f := range def.RequiredFields {
			if _, ok := c.state.answers[f]; ok {
				snap.Fields = append(snap.Fields, f.String())
			}
		}
	}
	return snap
}

func (c *Controller) doneLocked(def StepDefinition) bool {
	fp, ok := c.state.completed[def.ID]
	return ok && fp == def.Fingerprint(c.state.answers)
}

func (c *Controller) missingBeforeLocked(idx int) []StepID {
	var missing []StepID
	for _, def := range c.registry[:idx] {
		if !c.doneLocked(def) {
			missing = append(missing, def.ID)
		}
	}
	return missing
}

func (c *Controller) completionLocked() Completion {
	comp := Completion{SessionID: c.state.id, Answers: c.state.answers.Clone()}
	if c.state.tokens != nil {
		comp.Tokens = *c.state.tokens
	}
	return comp
}

// fail logs err and, for a rejected session, discards the session.
func (c *Controller) fail(log *logging.Logger, phase string, err error) error {
	kind := domain.KindOf(err)
	switch {
	case domain.IsFatal(err):
		log.Error("session rejected, discarding registration", "phase", phase, "error", err)
		c.abort(err)
		return fmt.Errorf("%w: %w", ErrSessionClosed, err)
	case kind == domain.KindUnknown && !domain.IsCanceled(err):
		log.Error("step failed", "phase", phase, "error", err)
	default:
		log.Warn("step failed", "phase", phase, "kind", kind.String(), "error", err)
	}
	return err
}

func (c *Controller) abort(err error) {
	c.closed.Store(true)
	c.abortOnce.Do(func() {
		if c.hooks.OnAbort != nil {
			c.hooks.OnAbort(err)
		}
	})
}
