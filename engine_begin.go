package auth

import (
	"context"
	"fmt"

	"github.com/emberbase/auth/metrics"
	"github.com/emberbase/auth/token"
)

// Begin starts a fresh ceremony for the given flow and returns its first
// step. Scopes are captured once here and carried through the continuation
// into the final tokens.
func (e *Engine) Begin(ctx context.Context, flow Flow, scopes []string) (*NextStep, error) {
	switch flow {
	case FlowAuthentication:
		return e.beginAuthentication(ctx, scopes)
	case FlowRegistration:
		return e.beginRegistration(ctx, scopes)
	default:
		return nil, fmt.Errorf("%w: unknown flow %q", ErrInvalidState, flow)
	}
}

func (e *Engine) beginAuthentication(ctx context.Context, scopes []string) (*NextStep, error) {
	state := token.AuthenticationState{Scopes: scopes}

	res, err := e.resolveAuthentication(ctx, state)
	if err != nil {
		return nil, err
	}
	if res.done {
		// A sign-in ceremony that completes before any factor ran would
		// issue tokens for nobody.
		return nil, fmt.Errorf("%w: ceremony completes without an identity", ErrInvalidState)
	}

	state.Path = res.path
	stateToken, err := e.tokens.CreateAuthenticationState(state)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metricInc(metrics.MetricCeremonyBegun)
	e.emitAudit(ctx, auditEventCeremonyBegun, FlowAuthentication, true, "", "", "", nil)
	return e.authenticationStep(ctx, res, stateToken)
}

func (e *Engine) beginRegistration(ctx context.Context, scopes []string) (*NextStep, error) {
	state := token.NewRegistrationState(scopes)

	res, err := e.resolveRegistration(state, nil)
	if err != nil {
		return nil, err
	}
	if res.done {
		return nil, fmt.Errorf("%w: ceremony completes without a component", ErrInvalidState)
	}

	stateToken, err := e.tokens.CreateRegistrationState(state)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metricInc(metrics.MetricCeremonyBegun)
	e.emitAudit(ctx, auditEventCeremonyBegun, FlowRegistration, true, state.IdentityID, "", "", nil)
	return e.registrationStep(ctx, res, state, stateToken)
}
