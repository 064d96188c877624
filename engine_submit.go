package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emberbase/auth/ceremony"
	"github.com/emberbase/auth/identity"
	"github.com/emberbase/auth/metrics"
	"github.com/emberbase/auth/provider"
	"github.com/emberbase/auth/storage"
	"github.com/emberbase/auth/token"
)

// SubmitPrompt answers the pending prompt of either flow with the user's
// value. On acceptance the ceremony advances past the component; when the
// last component is satisfied it completes and the token triple is issued.
func (e *Engine) SubmitPrompt(ctx context.Context, componentID string, value any, stateToken string) (*NextStep, error) {
	started := time.Now()
	defer func() {
		e.metrics.Observe(metrics.MetricSubmitLatency, time.Since(started))
	}()

	if err := e.checkRate(ctx, "submit", e.config.RateLimit.SubmitMax, e.config.RateLimit.SubmitPeriod); err != nil {
		return nil, err
	}

	if authState, err := e.tokens.ParseAuthenticationState(stateToken); err == nil {
		return e.submitSignInPrompt(ctx, componentID, value, authState)
	}
	regState, err := e.tokens.ParseRegistrationState(stateToken)
	if err != nil {
		return nil, err
	}
	return e.submitSetupPrompt(ctx, componentID, value, regState)
}

func (e *Engine) submitSignInPrompt(ctx context.Context, componentID string, value any, state token.AuthenticationState) (*NextStep, error) {
	res, err := e.resolveAuthentication(ctx, state)
	if err != nil {
		return nil, err
	}
	if res.done || !stepOffers(res, componentID) {
		return nil, fmt.Errorf("%w: component %q is not a pending step", ErrInvalidState, componentID)
	}

	p, _ := e.registry.Get(componentID)
	record, err := e.component(ctx, state.IdentityID, componentID)
	if err != nil {
		return nil, err
	}
	verification, err := p.VerifySignInPrompt(ctx, provider.VerifyRequest{
		Value:      value,
		IdentityID: state.IdentityID,
		Component:  record,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if !verification.Accepted {
		e.metricInc(metrics.MetricPromptRejected)
		e.emitAudit(ctx, auditEventPromptSubmitted, FlowAuthentication, false, state.IdentityID, "", componentID, ErrSubmitPromptRejected)
		return nil, ErrSubmitPromptRejected
	}
	if verification.IdentityID != "" {
		if state.IdentityID != "" && state.IdentityID != verification.IdentityID {
			// A second identifying factor may confirm the pinned identity
			// but never swap it mid-ceremony.
			return nil, fmt.Errorf("%w: factor resolved a different identity", ErrForbidden)
		}
		state.IdentityID = verification.IdentityID
	}

	e.metricInc(metrics.MetricPromptAccepted)
	e.emitAudit(ctx, auditEventPromptSubmitted, FlowAuthentication, true, state.IdentityID, "", componentID, nil)

	state.Path = append(res.path, componentID)
	next, err := e.resolveAuthentication(ctx, state)
	if err != nil {
		return nil, err
	}
	if next.done {
		if state.IdentityID == "" {
			return nil, fmt.Errorf("%w: ceremony completed without an identity", ErrInvalidState)
		}
		tokens, err := e.issueSession(ctx, FlowAuthentication, state.IdentityID, state.Scopes)
		if err != nil {
			return nil, err
		}
		return &NextStep{Done: true, Tokens: tokens}, nil
	}

	state.Path = next.path
	nextToken, err := e.tokens.CreateAuthenticationState(state)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return e.authenticationStep(ctx, next, nextToken)
}

func (e *Engine) submitSetupPrompt(ctx context.Context, componentID string, value any, state token.RegistrationState) (*NextStep, error) {
	res, err := e.resolveRegistration(state, e.registrationPath(state))
	if err != nil {
		return nil, err
	}
	if res.done || !stepOffers(res, componentID) {
		return nil, fmt.Errorf("%w: component %q is not a pending step", ErrInvalidState, componentID)
	}

	p, _ := e.registry.Get(componentID)
	setup, err := p.SetupComponent(ctx, state.IdentityID, value)
	if err != nil {
		if errors.Is(err, provider.ErrSetupRejected) {
			e.metricInc(metrics.MetricPromptRejected)
			e.emitAudit(ctx, auditEventPromptSubmitted, FlowRegistration, false, state.IdentityID, "", componentID, err)
			return nil, fmt.Errorf("%w: %v", ErrSubmitPromptRejected, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	mergeSetup(&state, setup)

	e.metricInc(metrics.MetricPromptAccepted)
	e.emitAudit(ctx, auditEventPromptSubmitted, FlowRegistration, true, state.IdentityID, "", componentID, nil)

	return e.continueRegistration(ctx, state)
}

// continueRegistration re-resolves a mutated sign-up state: either the next
// setup (or validation) step, or persistence of the accumulated identity
// graph and session issuance.
func (e *Engine) continueRegistration(ctx context.Context, state token.RegistrationState) (*NextStep, error) {
	res, err := e.resolveRegistration(state, e.registrationPath(state))
	if err != nil {
		return nil, err
	}
	if res.done {
		return e.completeRegistration(ctx, state)
	}

	nextToken, err := e.tokens.CreateRegistrationState(state)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return e.registrationStep(ctx, res, state, nextToken)
}

func (e *Engine) completeRegistration(ctx context.Context, state token.RegistrationState) (*NextStep, error) {
	record := identity.Identity{
		ID:        state.IdentityID,
		Meta:      identificationMeta(state.Components),
		CreatedAt: time.Now().UTC(),
	}
	for i := range state.Components {
		state.Components[i].IdentityID = state.IdentityID
	}
	for i := range state.Channels {
		state.Channels[i].IdentityID = state.IdentityID
	}

	if err := e.repo.CreateGraph(ctx, record, state.Components, state.Channels); err != nil {
		if errors.Is(err, storage.ErrVersionConflict) {
			// Someone registered the same identification first.
			return nil, fmt.Errorf("%w: identification already in use", ErrSubmitPromptRejected)
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	e.metricInc(metrics.MetricIdentityCreated)

	tokens, err := e.issueSession(ctx, FlowRegistration, state.IdentityID, state.Scopes)
	if err != nil {
		return nil, err
	}
	return &NextStep{Done: true, Tokens: tokens}, nil
}

// registrationPath derives the ceremony progress from the state itself: the
// confirmed components that are leaves of the sign-up tree, in setup order.
// The continuation carries no separate path, so it can never disagree with
// the components it lists.
func (e *Engine) registrationPath(state token.RegistrationState) []string {
	leaves := make(map[string]bool)
	for _, id := range ceremony.Leaves(e.config.Ceremony.Registration) {
		leaves[id] = true
	}
	var path []string
	for _, comp := range state.Components {
		if comp.Confirmed && leaves[comp.ComponentID] {
			path = append(path, comp.ComponentID)
		}
	}
	return path
}

// mergeSetup folds a factor's setup result into the state, replacing any
// earlier setup of the same component or channel so a corrected value wins.
func mergeSetup(state *token.RegistrationState, setup provider.Setup) {
	components := append([]identity.Component{setup.Component}, setup.Components...)
	for _, comp := range components {
		replaced := false
		for i := range state.Components {
			if state.Components[i].ComponentID == comp.ComponentID {
				state.Components[i] = comp
				replaced = true
				break
			}
		}
		if !replaced {
			state.Components = append(state.Components, comp)
		}
	}
	for _, channel := range setup.Channels {
		replaced := false
		for i := range state.Channels {
			if state.Channels[i].ChannelID == channel.ChannelID {
				state.Channels[i] = channel
				replaced = true
				break
			}
		}
		if !replaced {
			state.Channels = append(state.Channels, channel)
		}
	}
}

// identificationMeta seeds the identity metadata with every identification
// collected during sign-up, keyed by the component that owns it.
func identificationMeta(components []identity.Component) map[string]any {
	meta := make(map[string]any)
	for _, comp := range components {
		if comp.Identification != "" {
			meta[comp.ComponentID] = comp.Identification
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
