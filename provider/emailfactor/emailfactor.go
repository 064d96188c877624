// Package emailfactor implements the email authentication factor. It is an
// identifying factor: at sign-in the submitted address resolves to the
// owning identity. Setup creates an unconfirmed email component plus the
// email delivery channel, confirmed through the validation sub-flow.
package emailfactor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emberbase/auth/identity"
	"github.com/emberbase/auth/internal/codes"
	"github.com/emberbase/auth/notification"
	"github.com/emberbase/auth/provider"
	"github.com/emberbase/auth/storage"
)

// DefaultID is the component id the factor registers under.
const DefaultID = "email"

// Config tunes the validation sub-flow.
type Config struct {
	ID          string
	ChannelID   string
	CodeDigits  int
	CodeTTL     time.Duration
	MaxAttempts int
}

func (c Config) withDefaults() Config {
	if c.ID == "" {
		c.ID = DefaultID
	}
	if c.ChannelID == "" {
		c.ChannelID = c.ID
	}
	if c.CodeDigits == 0 {
		c.CodeDigits = 8
	}
	if c.CodeTTL == 0 {
		c.CodeTTL = 15 * time.Minute
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	return c
}

// Provider resolves, configures, and validates email components.
type Provider struct {
	config   Config
	repo     *identity.Repository
	codes    *codes.Store
	notifier notification.Notifier
}

// New creates the email factor.
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

// SignInPrompt asks for the address.
func (p *Provider) SignInPrompt(context.Context) (provider.Prompt, error) {
	return provider.Prompt{ID: p.config.ID, Kind: "email"}, nil
}

// VerifySignInPrompt resolves the submitted address through the
// identification index. An unknown address is a plain reject so the
// response does not reveal which addresses are registered.
func (p *Provider) VerifySignInPrompt(ctx context.Context, req provider.VerifyRequest) (provider.Verification, error) {
	address, ok := req.Value.(string)
	if !ok || !validAddress(address) {
		return provider.Reject(), nil
	}

	identityID, err := p.repo.ByIdentification(ctx, p.config.ID, address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return provider.Reject(), nil
		}
		return provider.Reject(), err
	}
	return provider.AcceptAs(identityID), nil
}

// SetupPrompt asks for the address to register.
func (p *Provider) SetupPrompt(context.Context) (provider.Prompt, error) {
	return provider.Prompt{ID: p.config.ID, Kind: "email"}, nil
}

// SetupComponent creates the unconfirmed email component and its delivery
// channel. The component stays unconfirmed until the validation sub-flow
// succeeds.
func (p *Provider) SetupComponent(_ context.Context, _ string, value any) (provider.Setup, error) {
	address, ok := value.(string)
	if !ok || !validAddress(address) {
		return provider.Setup{}, provider.ErrSetupRejected
	}
	address = strings.TrimSpace(address)

	return provider.Setup{
		Component: identity.Component{
			ComponentID:    p.config.ID,
			Identification: address,
			Confirmed:      false,
		},
		Channels: []identity.Channel{{
			ChannelID: p.config.ChannelID,
			Confirmed: false,
			Data:      map[string]any{"address": address},
		}},
	}, nil
}

// ValidationPrompt describes the confirmation code challenge.
func (p *Provider) ValidationPrompt(context.Context) (provider.Prompt, error) {
	return provider.Prompt{
		ID:       p.config.ID,
		Kind:     "otp",
		Options:  map[string]any{"digits": p.config.CodeDigits},
		Sendable: true,
	}, nil
}

// SendValidationPrompt issues a fresh code and pushes it over the email
// channel created at setup.
func (p *Provider) SendValidationPrompt(ctx context.Context, req provider.ValidationRequest) error {
	channel, ok := channelByID(req.Channels, p.config.ChannelID)
	if !ok {
		return errors.New("email validation without email channel")
	}
	channel.IdentityID = req.IdentityID

	code, err := p.codes.Issue(ctx, p.codeKey(req.IdentityID), p.config.CodeDigits, p.config.CodeTTL)
	if err != nil {
		return err
	}
	return p.notifier.Notify(ctx, channel, notification.Message{
		Subject: "Confirm your email address",
		Text:    fmt.Sprintf("Your confirmation code is %s", code),
	})
}

// VerifyValidationPrompt consumes the outstanding code.
func (p *Provider) VerifyValidationPrompt(ctx context.Context, req provider.ValidationRequest) error {
	code, ok := req.Value.(string)
	if !ok {
		return codes.ErrCodeMismatch
	}
	return p.codes.Verify(ctx, p.codeKey(req.IdentityID), code, p.config.MaxAttempts)
}

func (p *Provider) codeKey(identityID string) string {
	return "validation:" + p.config.ID + ":" + identityID
}

func channelByID(channels []identity.Channel, channelID string) (identity.Channel, bool) {
	for _, channel := range channels {
		if channel.ChannelID == channelID {
			return channel, true
		}
	}
	return identity.Channel{}, false
}

func validAddress(address string) bool {
	address = strings.TrimSpace(address)
	at := strings.Index(address, "@")
	return at > 0 && at < len(address)-1 && !strings.ContainsAny(address, " \t\n")
}
