package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/emberbase/auth/identity"
	"github.com/emberbase/auth/internal/codes"
	"github.com/emberbase/auth/metrics"
	"github.com/emberbase/auth/provider"
	"github.com/emberbase/auth/token"
)

// SendValidationCode pushes a confirmation code for the component the
// sign-up ceremony is currently validating.
func (e *Engine) SendValidationCode(ctx context.Context, stateToken string) error {
	if err := e.checkRate(ctx, "send", e.config.RateLimit.SendMax, e.config.RateLimit.SendPeriod); err != nil {
		return err
	}

	state, err := e.tokens.ParseRegistrationState(stateToken)
	if err != nil {
		return err
	}
	pending, validator, err := e.pendingValidation(state)
	if err != nil {
		return err
	}

	sendErr := validator.SendValidationPrompt(ctx, provider.ValidationRequest{
		IdentityID: state.IdentityID,
		Component:  *pending,
		Channels:   state.Channels,
	})
	if sendErr != nil {
		e.emitAudit(ctx, auditEventValidationSent, FlowRegistration, false, state.IdentityID, "", pending.ComponentID, sendErr)
		return fmt.Errorf("%w: %v", ErrSendValidationCode, sendErr)
	}

	e.metricInc(metrics.MetricValidationSent)
	e.emitAudit(ctx, auditEventValidationSent, FlowRegistration, true, state.IdentityID, "", pending.ComponentID, nil)
	return nil
}

// SubmitValidationCode answers the pending validation. On acceptance the
// component is confirmed and the sign-up ceremony advances past it.
func (e *Engine) SubmitValidationCode(ctx context.Context, value any, stateToken string) (*NextStep, error) {
	if err := e.checkRate(ctx, "submit", e.config.RateLimit.SubmitMax, e.config.RateLimit.SubmitPeriod); err != nil {
		return nil, err
	}

	state, err := e.tokens.ParseRegistrationState(stateToken)
	if err != nil {
		return nil, err
	}
	pending, validator, err := e.pendingValidation(state)
	if err != nil {
		return nil, err
	}

	verifyErr := validator.VerifyValidationPrompt(ctx, provider.ValidationRequest{
		IdentityID: state.IdentityID,
		Component:  *pending,
		Channels:   state.Channels,
		Value:      value,
	})
	if verifyErr != nil {
		if errors.Is(verifyErr, codes.ErrCodeBackend) {
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, verifyErr)
		}
		e.metricInc(metrics.MetricValidationRejected)
		e.emitAudit(ctx, auditEventValidationResult, FlowRegistration, false, state.IdentityID, "", pending.ComponentID, verifyErr)
		return nil, fmt.Errorf("%w: %v", ErrSubmitValidationCodeRejected, verifyErr)
	}

	confirmComponent(&state, pending.ComponentID)
	e.metricInc(metrics.MetricValidationAccepted)
	e.emitAudit(ctx, auditEventValidationResult, FlowRegistration, true, state.IdentityID, "", pending.ComponentID, nil)

	return e.continueRegistration(ctx, state)
}

// pendingValidation finds the unconfirmed component the ceremony is stalled
// on. There is at most one: setup only proceeds past a validating factor
// once it is confirmed.
func (e *Engine) pendingValidation(state token.RegistrationState) (*identity.Component, provider.Validator, error) {
	res, err := e.resolveRegistration(state, e.registrationPath(state))
	if err != nil {
		return nil, nil, err
	}
	for _, comp := range res.next {
		pending := unconfirmedComponent(state, comp.ID)
		if pending == nil {
			continue
		}
		p, _ := e.registry.Get(comp.ID)
		validator, ok := p.(provider.Validator)
		if !ok {
			continue
		}
		return pending, validator, nil
	}
	return nil, nil, fmt.Errorf("%w: no validation pending", ErrInvalidState)
}

// confirmComponent marks the component established, and with it every
// channel carrying its identification: a code delivered over the channel
// proves the address reachable.
func confirmComponent(state *token.RegistrationState, componentID string) {
	var identification string
	for i := range state.Components {
		if state.Components[i].ComponentID == componentID {
			state.Components[i].Confirmed = true
			identification = state.Components[i].Identification
		}
	}
	if identification == "" {
		return
	}
	for i := range state.Channels {
		if state.Channels[i].Confirmed {
			continue
		}
		for _, value := range state.Channels[i].Data {
			if s, ok := value.(string); ok && s == identification {
				state.Channels[i].Confirmed = true
				break
			}
		}
	}
}
