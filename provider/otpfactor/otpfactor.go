// Package otpfactor implements a sendable one-time-code factor. The code is
// pushed over one of the identity's delivery channels and consumed on
// verification; nothing identity-resolving happens here, so the factor can
// only appear after an identifying step.
package otpfactor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emberbase/auth/identity"
	"github.com/emberbase/auth/internal/codes"
	"github.com/emberbase/auth/notification"
	"github.com/emberbase/auth/provider"
)

// DefaultID is the component id the factor registers under.
const DefaultID = "otp"

// Config tunes code shape and delivery.
type Config struct {
	ID          string
	ChannelID   string
	Digits      int
	TTL         time.Duration
	MaxAttempts int
}

func (c Config) withDefaults() Config {
	if c.ID == "" {
		c.ID = DefaultID
	}
	if c.ChannelID == "" {
		c.ChannelID = "email"
	}
	if c.Digits == 0 {
		c.Digits = 6
	}
	if c.TTL == 0 {
		c.TTL = 5 * time.Minute
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	return c
}

// Provider sends and verifies one-time sign-in codes.
type Provider struct {
	config   Config
	repo     *identity.Repository
	codes    *codes.Store
	notifier notification.Notifier
}

// New creates the one-time-code factor.
func New(cfg Config, repo *identity.Repository, codeStore *codes.Store, notifier notification.Notifier) *Provider {
	return &Provider{
		config:   cfg.withDefaults(),
		repo:     repo,
		codes:    codeStore,
		notifier: notifier,
	}
}

// ID returns the component id.
func (p *Provider) ID() string { return p.config.ID }

// SignInPrompt describes the code challenge.
func (p *Provider) SignInPrompt(context.Context) (provider.Prompt, error) {
	return provider.Prompt{
		ID:       p.config.ID,
		Kind:     "otp",
		Options:  map[string]any{"digits": p.config.Digits},
		Sendable: true,
	}, nil
}

// SendSignInPrompt pushes a fresh code over the identity's configured
// delivery channel.
func (p *Provider) SendSignInPrompt(ctx context.Context, identityID string) error {
	if identityID == "" {
		return errors.New("one-time code requires a pinned identity")
	}
	channel, err := p.repo.Channel(ctx, identityID, p.config.ChannelID)
	if err != nil {
		return err
	}

	code, err := p.codes.Issue(ctx, p.codeKey(identityID), p.config.Digits, p.config.TTL)
	if err != nil {
		return err
	}
	return p.notifier.Notify(ctx, channel, notification.Message{
		Subject: "Your sign-in code",
		Text:    fmt.Sprintf("Your sign-in code is %s", code),
	})
}

// VerifySignInPrompt consumes the outstanding code for the pinned identity.
func (p *Provider) VerifySignInPrompt(ctx context.Context, req provider.VerifyRequest) (provider.Verification, error) {
	code, ok := req.Value.(string)
	if !ok || req.IdentityID == "" {
		return provider.Reject(), nil
	}

	err := p.codes.Verify(ctx, p.codeKey(req.IdentityID), code, p.config.MaxAttempts)
	switch {
	case err == nil:
		return provider.Accept(), nil
	case errors.Is(err, codes.ErrCodeMismatch),
		errors.Is(err, codes.ErrCodeNotFound),
		errors.Is(err, codes.ErrCodeExpired),
		errors.Is(err, codes.ErrCodeAttemptsExceeded):
		return provider.Reject(), nil
	default:
		return provider.Reject(), err
	}
}

// SetupPrompt describes enabling the factor.
func (p *Provider) SetupPrompt(context.Context) (provider.Prompt, error) {
	return provider.Prompt{ID: p.config.ID, Kind: "otp"}, nil
}

// SetupComponent enables the factor for the identity. The code itself is
// never stored; only the fact that the factor is active.
func (p *Provider) SetupComponent(context.Context, string, any) (provider.Setup, error) {
	return provider.Setup{
		Component: identity.Component{
			ComponentID: p.config.ID,
			Confirmed:   true,
		},
	}, nil
}

func (p *Provider) codeKey(identityID string) string {
	return "signin:" + p.config.ID + ":" + identityID
}
