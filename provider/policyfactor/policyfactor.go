// Package policyfactor implements a terms-acceptance factor. The accepted
// revision is recorded in the component data; a sign-in skips the step while
// the stored revision still matches the current one.
package policyfactor

import (
	"context"
	"errors"

	"github.com/emberbase/auth/identity"
	"github.com/emberbase/auth/provider"
	"github.com/emberbase/auth/storage"
)

// DefaultID is the component id the factor registers under.
const DefaultID = "policy"

const acceptedRevisionKey = "accepted_revision"

// Config names the policy revision users must accept.
type Config struct {
	ID          string
	Revision    string
	DocumentURL string
}

func (c Config) withDefaults() Config {
	if c.ID == "" {
		c.ID = DefaultID
	}
	return c
}

// Provider presents and records policy acceptance.
type Provider struct {
	config Config
	repo   *identity.Repository
}

// New creates the policy factor.
func New(cfg Config, repo *identity.Repository) *Provider {
	return &Provider{config: cfg.withDefaults(), repo: repo}
}

// ID returns the component id.
func (p *Provider) ID() string { return p.config.ID }

func (p *Provider) prompt() provider.Prompt {
	return provider.Prompt{
		ID:   p.config.ID,
		Kind: "agreement",
		Options: map[string]any{
			"revision":     p.config.Revision,
			"document_url": p.config.DocumentURL,
		},
	}
}

// SignInPrompt presents the current policy revision.
func (p *Provider) SignInPrompt(context.Context) (provider.Prompt, error) {
	return p.prompt(), nil
}

// VerifySignInPrompt accepts a submission naming the current revision and
// records it on the stored component, so the next ceremony skips the step.
func (p *Provider) VerifySignInPrompt(ctx context.Context, req provider.VerifyRequest) (provider.Verification, error) {
	revision, ok := req.Value.(string)
	if !ok || revision != p.config.Revision {
		return provider.Reject(), nil
	}

	if req.IdentityID != "" && req.Component != nil {
		err := p.repo.SaveComponentData(ctx, req.IdentityID, p.config.ID, map[string]any{
			acceptedRevisionKey: revision,
		})
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return provider.Reject(), err
		}
	}
	return provider.Accept(), nil
}

// SkipSignInPrompt reports whether the stored component already records the
// current revision.
func (p *Provider) SkipSignInPrompt(_ context.Context, component *identity.Component) (bool, error) {
	if component == nil {
		return false, nil
	}
	accepted, _ := component.Data[acceptedRevisionKey].(string)
	return accepted == p.config.Revision, nil
}

// SetupPrompt presents the policy to accept during registration.
func (p *Provider) SetupPrompt(context.Context) (provider.Prompt, error) {
	return p.prompt(), nil
}

// SetupComponent records acceptance of the current revision. Anything but
// the current revision is a rejection.
func (p *Provider) SetupComponent(_ context.Context, _ string, value any) (provider.Setup, error) {
	revision, ok := value.(string)
	if !ok || revision != p.config.Revision {
		return provider.Setup{}, provider.ErrSetupRejected
	}
	return provider.Setup{
		Component: identity.Component{
			ComponentID: p.config.ID,
			Confirmed:   true,
			Data:        map[string]any{acceptedRevisionKey: revision},
		},
	}, nil
}
