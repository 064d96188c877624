package auth

import (
	"context"
	"fmt"

	"github.com/emberbase/auth/metrics"
	"github.com/emberbase/auth/provider"
)

// SendPrompt pushes the out-of-band challenge of a pending sign-in factor,
// e.g. an OTP code. The continuation is unchanged; the caller keeps using
// the same state token.
func (e *Engine) SendPrompt(ctx context.Context, componentID, stateToken string) error {
	if err := e.checkRate(ctx, "send", e.config.RateLimit.SendMax, e.config.RateLimit.SendPeriod); err != nil {
		return err
	}

	state, err := e.tokens.ParseAuthenticationState(stateToken)
	if err != nil {
		return err
	}

	res, err := e.resolveAuthentication(ctx, state)
	if err != nil {
		return err
	}
	if res.done || !stepOffers(res, componentID) {
		return fmt.Errorf("%w: component %q is not a pending step", ErrInvalidState, componentID)
	}

	p, _ := e.registry.Get(componentID)
	sender, ok := p.(provider.Sender)
	if !ok {
		return fmt.Errorf("%w: component %q has nothing to send", ErrInvalidState, componentID)
	}
	if state.IdentityID == "" {
		return fmt.Errorf("%w: no identity pinned yet", ErrInvalidState)
	}

	if err := sender.SendSignInPrompt(ctx, state.IdentityID); err != nil {
		e.emitAudit(ctx, auditEventPromptSent, FlowAuthentication, false, state.IdentityID, "", componentID, err)
		return fmt.Errorf("%w: %v", ErrSendPrompt, err)
	}

	e.metricInc(metrics.MetricPromptSent)
	e.emitAudit(ctx, auditEventPromptSent, FlowAuthentication, true, state.IdentityID, "", componentID, nil)
	return nil
}
