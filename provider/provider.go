// Package provider defines the capability interface every authentication
// factor implements, and the registry the resolver looks factors up in.
//
// The required surface covers sign-in verification and registration-time
// setup. Everything optional — skip detection, out-of-band sends, the
// validation sub-flow for unconfirmed components — lives on separate
// capability interfaces discovered by type assertion, never by probing for
// method presence dynamically.
package provider

import (
	"context"
	"errors"
	"sort"

	"github.com/emberbase/auth/identity"
)

// ErrSetupRejected is returned by SetupComponent when the submitted value
// fails the factor's own validation (weak password, declined policy, ...).
var ErrSetupRejected = errors.New("component setup rejected")

// Prompt is the wire description of a single ceremony step.
type Prompt struct {
	ID       string         `json:"id"`
	Kind     string         `json:"prompt"`
	Options  map[string]any `json:"options,omitempty"`
	Sendable bool           `json:"sendable"`
}

// Verification is the outcome of verifying a submitted sign-in value.
type Verification struct {
	Accepted bool
	// IdentityID is set only by identifying factors that resolved the
	// submitted value to an identity.
	IdentityID string
}

// Reject marks the submission as failed.
func Reject() Verification { return Verification{} }

// Accept confirms the factor for the identity already pinned in state.
func Accept() Verification { return Verification{Accepted: true} }

// AcceptAs confirms the factor and names the identity it resolved to.
func AcceptAs(identityID string) Verification {
	return Verification{Accepted: true, IdentityID: identityID}
}

// VerifyRequest carries a submitted sign-in value with its identity context.
// Component is the stored factor record, nil while no identity is pinned.
type VerifyRequest struct {
	Value      any
	IdentityID string
	Component  *identity.Component
}

// Setup is what configuring a factor at registration produces: the primary
// component plus any auxiliary components and delivery channels (email setup
// also creates the email channel).
type Setup struct {
	Component  identity.Component
	Components []identity.Component
	Channels   []identity.Channel
}

// Provider is the required capability surface of an authentication factor.
type Provider interface {
	ID() string

	SignInPrompt(ctx context.Context) (Prompt, error)
	VerifySignInPrompt(ctx context.Context, req VerifyRequest) (Verification, error)

	SetupPrompt(ctx context.Context) (Prompt, error)
	SetupComponent(ctx context.Context, identityID string, value any) (Setup, error)
}

// Skipper is implemented by factors that can already be satisfied, e.g. a
// policy the identity accepted in a previous ceremony.
type Skipper interface {
	SkipSignInPrompt(ctx context.Context, component *identity.Component) (bool, error)
}

// Sender is implemented by factors that push an out-of-band challenge
// during sign-in (OTP codes).
type Sender interface {
	SendSignInPrompt(ctx context.Context, identityID string) error
}

// ValidationRequest addresses the validation sub-flow of one newly set-up,
// unconfirmed component.
type ValidationRequest struct {
	IdentityID string
	Component  identity.Component
	Channels   []identity.Channel
	Value      any
}

// Validator is implemented by factors whose setup requires a confirmation
// sub-ceremony before the component counts as established.
type Validator interface {
	ValidationPrompt(ctx context.Context) (Prompt, error)
	SendValidationPrompt(ctx context.Context, req ValidationRequest) error
	VerifyValidationPrompt(ctx context.Context, req ValidationRequest) error
}

// Registry is an explicitly constructed provider lookup. There is no
// package-level default; callers build one and pass it around.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry indexes the given providers by id.
func NewRegistry(providers ...Provider) *Registry {
	index := make(map[string]Provider, len(providers))
	for _, p := range providers {
		index[p.ID()] = p
	}
	return &Registry{providers: index}
}

// Get returns the provider registered under id.
func (r *Registry) Get(id string) (Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// IDs returns the registered component ids, sorted.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.providers))
	for id := range r.providers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
