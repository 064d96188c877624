// Package passwordfactor implements the password authentication factor:
// an argon2id-hashed secret stored in the identity component's data.
package passwordfactor

import (
	"context"
	"errors"
	"fmt"

	"github.com/emberbase/auth/identity"
	"github.com/emberbase/auth/password"
	"github.com/emberbase/auth/provider"
)

// DefaultID is the component id the factor registers under.
const DefaultID = "password"

const hashDataKey = "hash"

// Provider verifies and configures password components.
type Provider struct {
	id     string
	hasher *password.Hasher
}

// New creates the password factor. An empty id defaults to [DefaultID].
func New(id string, hasher *password.Hasher) *Provider {
	if id == "" {
		id = DefaultID
	}
	return &Provider{id: id, hasher: hasher}
}

// ID returns the component id.
func (p *Provider) ID() string { return p.id }

// SignInPrompt describes the password challenge.
func (p *Provider) SignInPrompt(context.Context) (provider.Prompt, error) {
	return provider.Prompt{ID: p.id, Kind: "password"}, nil
}

// VerifySignInPrompt compares the submitted secret against the stored hash.
// Without a pinned identity component there is nothing to compare against.
func (p *Provider) VerifySignInPrompt(_ context.Context, req provider.VerifyRequest) (provider.Verification, error) {
	secret, ok := req.Value.(string)
	if !ok || req.Component == nil {
		return provider.Reject(), nil
	}
	encoded, ok := req.Component.Data[hashDataKey].(string)
	if !ok {
		return provider.Reject(), errors.New("password component without stored hash")
	}

	match, err := p.hasher.Verify(secret, encoded)
	if err != nil {
		return provider.Reject(), err
	}
	if !match {
		return provider.Reject(), nil
	}
	return provider.Accept(), nil
}

// SetupPrompt describes the password configuration step.
func (p *Provider) SetupPrompt(context.Context) (provider.Prompt, error) {
	return provider.Prompt{ID: p.id, Kind: "password"}, nil
}

// SetupComponent hashes the submitted secret into a confirmed component.
func (p *Provider) SetupComponent(_ context.Context, _ string, value any) (provider.Setup, error) {
	secret, ok := value.(string)
	if !ok {
		return provider.Setup{}, provider.ErrSetupRejected
	}
	encoded, err := p.hasher.Hash(secret)
	if err != nil {
		return provider.Setup{}, fmt.Errorf("%w: %v", provider.ErrSetupRejected, err)
	}
	return provider.Setup{
		Component: identity.Component{
			ComponentID: p.id,
			Confirmed:   true,
			Data:        map[string]any{hashDataKey: encoded},
		},
	}, nil
}
