package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/emberbase/auth/ceremony"
	"github.com/emberbase/auth/identity"
	"github.com/emberbase/auth/metrics"
	"github.com/emberbase/auth/provider"
	"github.com/emberbase/auth/token"
)

// resolved is the engine-internal outcome of resolving a ceremony against
// progress: either terminal, or the component ids the caller may satisfy
// next, with the path as advanced past any skipped factors.
type resolved struct {
	done bool
	next []ceremony.Component
	path []string
}

func (e *Engine) tree(flow Flow) (ceremony.Ceremony, error) {
	switch flow {
	case FlowAuthentication:
		if e.config.Ceremony.SignIn == nil {
			return nil, fmt.Errorf("%w: no sign-in ceremony configured", ErrInvalidState)
		}
		return e.config.Ceremony.SignIn, nil
	case FlowRegistration:
		if e.config.Ceremony.Registration == nil {
			return nil, fmt.Errorf("%w: no registration ceremony configured", ErrInvalidState)
		}
		return e.config.Ceremony.Registration, nil
	default:
		return nil, fmt.Errorf("%w: unknown flow %q", ErrInvalidState, flow)
	}
}

// resolveAuthentication walks Locate with skip resolution: a factor whose
// provider reports itself already satisfied for the pinned identity is
// consumed without a prompt and the walk continues behind it. The loop is
// bounded by the number of distinct component ids in the tree; exceeding
// the bound means the skip hooks disagree with the ceremony structure and
// is an invalid state, never a silent default.
func (e *Engine) resolveAuthentication(ctx context.Context, state token.AuthenticationState) (resolved, error) {
	tree, err := e.tree(FlowAuthentication)
	if err != nil {
		return resolved{}, err
	}

	path := append([]string(nil), state.Path...)
	bound := len(ceremony.Leaves(tree))

	for i := 0; i <= bound; i++ {
		step, err := ceremony.Locate(tree, path)
		if err != nil {
			if errors.Is(err, ceremony.ErrPathMismatch) {
				return resolved{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
			}
			return resolved{}, err
		}
		if step.Done {
			return resolved{done: true, path: path}, nil
		}

		kept := make([]ceremony.Component, 0, len(step.Next))
		var skipped []ceremony.Component
		for _, comp := range step.Next {
			p, ok := e.registry.Get(comp.ID)
			if !ok {
				return resolved{}, fmt.Errorf("%w: %s", ErrUnknownComponent, comp.ID)
			}
			skipper, ok := p.(provider.Skipper)
			if !ok {
				kept = append(kept, comp)
				continue
			}
			record, err := e.component(ctx, state.IdentityID, comp.ID)
			if err != nil {
				return resolved{}, err
			}
			skip, err := skipper.SkipSignInPrompt(ctx, record)
			if err != nil {
				return resolved{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
			}
			if skip {
				skipped = append(skipped, comp)
				continue
			}
			kept = append(kept, comp)
		}

		if len(kept) == 0 && len(skipped) > 0 {
			// Every branch is satisfied: consume one and look behind it.
			path = append(path, skipped[0].ID)
			e.metricInc(metrics.MetricPromptSkipped)
			continue
		}
		if len(skipped) > 0 {
			e.metricInc(metrics.MetricPromptSkipped)
		}
		return resolved{next: kept, path: path}, nil
	}

	return resolved{}, fmt.Errorf("%w: skip resolution exceeded ceremony size", ErrInvalidState)
}

// resolveRegistration runs Locate without skip logic: every declared factor
// must be explicitly set up.
func (e *Engine) resolveRegistration(state token.RegistrationState, path []string) (resolved, error) {
	tree, err := e.tree(FlowRegistration)
	if err != nil {
		return resolved{}, err
	}

	step, err := ceremony.Locate(tree, path)
	if err != nil {
		if errors.Is(err, ceremony.ErrPathMismatch) {
			return resolved{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		return resolved{}, err
	}
	if step.Done {
		return resolved{done: true, path: path}, nil
	}
	for _, comp := range step.Next {
		if _, ok := e.registry.Get(comp.ID); !ok {
			return resolved{}, fmt.Errorf("%w: %s", ErrUnknownComponent, comp.ID)
		}
	}
	return resolved{next: step.Next, path: path}, nil
}

// authenticationStep renders a resolved step as sign-in prompts.
func (e *Engine) authenticationStep(ctx context.Context, res resolved, stateToken string) (*NextStep, error) {
	prompts := make([]provider.Prompt, 0, len(res.next))
	for _, comp := range res.next {
		p, _ := e.registry.Get(comp.ID)
		prompt, err := p.SignInPrompt(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		prompts = append(prompts, prompt)
	}
	return stepFromPrompts(prompts, stateToken), nil
}

// registrationStep renders a resolved step as setup prompts, or as the
// validation prompt of a pending unconfirmed component. A candidate that is
// already set up but unconfirmed holds the ceremony until validated.
func (e *Engine) registrationStep(ctx context.Context, res resolved, state token.RegistrationState, stateToken string) (*NextStep, error) {
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
		prompt, err := validator.ValidationPrompt(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return &NextStep{Prompt: &prompt, Validating: true, State: stateToken}, nil
	}

	prompts := make([]provider.Prompt, 0, len(res.next))
	for _, comp := range res.next {
		p, _ := e.registry.Get(comp.ID)
		prompt, err := p.SetupPrompt(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		prompts = append(prompts, prompt)
	}
	return stepFromPrompts(prompts, stateToken), nil
}

func stepFromPrompts(prompts []provider.Prompt, stateToken string) *NextStep {
	step := &NextStep{State: stateToken}
	if len(prompts) == 1 {
		step.Prompt = &prompts[0]
		return step
	}
	step.Choice = prompts
	return step
}

// stepOffers reports whether a resolved step includes the component.
func stepOffers(res resolved, componentID string) bool {
	for _, comp := range res.next {
		if comp.ID == componentID {
			return true
		}
	}
	return false
}

func unconfirmedComponent(state token.RegistrationState, componentID string) *identity.Component {
	for i := range state.Components {
		if state.Components[i].ComponentID == componentID && !state.Components[i].Confirmed {
			return &state.Components[i]
		}
	}
	return nil
}
