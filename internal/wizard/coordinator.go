package wizard

import (
	"context"
	"fmt"
	"sync"

	"enclave/internal/domain"
	"enclave/internal/logging"
)

// SideEffectRunner executes the remote mutation attached to a step.
type SideEffectRunner interface {
	// Run performs the side effect of step for answers.
	Run(ctx context.Context, step StepID, answers domain.Answers) SideEffectResult
	// Rerun performs the side effect again even though it is recorded as
	// done for answers. Markers are only replaced on success.
	Rerun(ctx context.Context, step StepID, answers domain.Answers) SideEffectResult
	// Invalidate drops the dispatch marker of step unless it still matches
	// answers.
	Invalidate(step StepID, answers domain.Answers)
}

// Operation names for errors raised by the coordinator itself.
const (
	opVerifyCode  = "verify_email_code"
	opStoreTokens = "store_tokens"
)

// Coordinator runs step side effects against the identity service at most
// once per value of the step's key fields.
type Coordinator struct {
	gateway  domain.IdentityGateway
	tokens   domain.TokenStore
	registry Registry
	log      *logging.Logger

	mu sync.Mutex
	// markers holds, per step, the key-field fingerprint the effect last
	// succeeded for.
	markers map[StepID]string
	// dispatchedTo is the address the outstanding verification code was
	// sent to. Empty when no code is outstanding.
	dispatchedTo string
	tokensSet    bool
}

// NewCoordinator returns a Coordinator for registry. tokens receives the
// credentials issued by the bootstrap call.
func NewCoordinator(gw domain.IdentityGateway, tokens domain.TokenStore, registry Registry, log *logging.Logger) *Coordinator {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Coordinator{
		gateway:  gw,
		tokens:   tokens,
		registry: registry,
		log:      log.WithComponent("coordinator"),
		markers:  make(map[StepID]string),
	}
}

// Run implements SideEffectRunner.
func (c *Coordinator) Run(ctx context.Context, step StepID, answers domain.Answers) SideEffectResult {
	return c.run(ctx, step, answers, false)
}

// Rerun implements SideEffectRunner. Only the email dispatch can be repeated;
// bootstrap and verification spend single-use codes.
func (c *Coordinator) Rerun(ctx context.Context, step StepID, answers domain.Answers) SideEffectResult {
	if step != StepEmail {
		return failure(fmt.Errorf("wizard: side effect of step %q cannot be repeated", step))
	}
	return c.run(ctx, step, answers, true)
}

func (c *Coordinator) run(ctx context.Context, step StepID, answers domain.Answers, force bool) SideEffectResult {
	def, ok := c.registry.Step(step)
	if !ok {
		return failure(fmt.Errorf("wizard: unknown step %q", step))
	}
	if !def.HasSideEffect {
		return SideEffectResult{}
	}

	fp := def.Fingerprint(answers)
	c.mu.Lock()
	m, marked := c.markers[step]
	c.mu.Unlock()
	if marked && m == fp && !force {
		c.log.WithStep(string(step)).Debug("side effect already done for these values")
		return SideEffectResult{Skipped: true}
	}

	var res SideEffectResult
	switch step {
	case StepActivationCode:
		res = c.bootstrap(ctx, answers)
	case StepUsername, StepPassword, StepPhone:
		res = c.update(ctx, def, answers)
	case StepEmail:
		res = c.sendCode(ctx, answers)
	case StepEmailCode:
		res = c.verifyCode(ctx, answers)
	default:
		return failure(fmt.Errorf("wizard: no side effect for step %q", step))
	}

	if res.OK() {
		c.mu.Lock()
		c.markers[step] = fp
		c.mu.Unlock()
		c.log.WithStep(string(step)).Info("side effect completed")
	}
	return res
}

// Invalidate implements SideEffectRunner.
func (c *Coordinator) Invalidate(step StepID, answers domain.Answers) {
	def, ok := c.registry.Step(step)
	if !ok || len(def.KeyFields) == 0 {
		return
	}
	fp := def.Fingerprint(answers)

	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.markers[step]; ok && m != fp {
		delete(c.markers, step)
		c.log.WithStep(string(step)).Debug("dispatch marker cleared after edit")
	}
	if step == StepEmail && c.dispatchedTo != fieldValue(answers, FieldEmail) {
		c.dispatchedTo = ""
	}
}

// Dispatched reports whether the side effect of step is recorded as done for
// its current key values.
func (c *Coordinator) Dispatched(step StepID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.markers[step]
	return ok
}

// DispatchedTo returns the address the outstanding verification code was sent to.
func (c *Coordinator) DispatchedTo() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dispatchedTo, c.dispatchedTo != ""
}

func (c *Coordinator) bootstrap(ctx context.Context, answers domain.Answers) SideEffectResult {
	c.mu.Lock()
	already := c.tokensSet
	c.mu.Unlock()
	if already {
		return SideEffectResult{Skipped: true}
	}

	tokens, err := c.gateway.BootstrapAccount(ctx, fieldValue(answers, FieldActivationCode))
	if err != nil {
		return failure(err)
	}
	if err := c.tokens.SaveTokens(tokens); err != nil {
		return failure(&domain.ServiceError{Kind: domain.KindUnknown, Op: opStoreTokens, Err: err})
	}

	c.mu.Lock()
	c.tokensSet = true
	c.mu.Unlock()

	return SideEffectResult{
		Patch:  domain.Answers{FieldUserID: tokens.UserID.String()},
		Tokens: &tokens,
	}
}

func (c *Coordinator) update(ctx context.Context, def StepDefinition, answers domain.Answers) SideEffectResult {
	fields := make(map[string]string, len(def.KeyFields))
	for _, f := range def.KeyFields {
		fields[f.String()] = fieldValue(answers, f)
	}
	if err := c.gateway.UpdateAccountFields(ctx, fields); err != nil {
		return failure(err)
	}
	return SideEffectResult{}
}

func (c *Coordinator) sendCode(ctx context.Context, answers domain.Answers) SideEffectResult {
	addr := fieldValue(answers, FieldEmail)
	if err := c.gateway.SendEmailVerificationCode(ctx, addr); err != nil {
		return failure(err)
	}
	c.mu.Lock()
	c.dispatchedTo = addr
	c.mu.Unlock()
	return SideEffectResult{}
}

func (c *Coordinator) verifyCode(ctx context.Context, answers domain.Answers) SideEffectResult {
	addr := fieldValue(answers, FieldEmail)

	c.mu.Lock()
	sentTo := c.dispatchedTo
	c.mu.Unlock()
	if sentTo == "" || sentTo != addr {
		return failure(domain.NewServiceError(domain.KindInvalidCode, opVerifyCode,
			"no verification code has been sent to this address, go back to the email step"))
	}

	verified, err := c.gateway.VerifyEmailCode(ctx, sentTo, fieldValue(answers, FieldEmailCode))
	if err != nil {
		return failure(err)
	}
	if verified == "" {
		verified = sentTo
	}
	return SideEffectResult{Patch: domain.Answers{FieldVerifiedEmail: verified}}
}

// Compile-time assertion that Coordinator implements SideEffectRunner.
var _ SideEffectRunner = (*Coordinator)(nil)
