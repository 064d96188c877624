// Package authenticatorfactor implements a TOTP authenticator-app factor
// (RFC 6238). Setup generates the shared secret; the provisioning URI is
// pushed over one of the identity's delivery channels, and the component is
// confirmed by the first valid code.
package authenticatorfactor

import (
	"context"
	"errors"
	"time"

	"github.com/emberbase/auth/identity"
	"github.com/emberbase/auth/notification"
	"github.com/emberbase/auth/provider"
)

// DefaultID is the component id the factor registers under.
const DefaultID = "authenticator"

const secretDataKey = "secret"

// ErrCodeRejected is returned when a validation code does not match.
var ErrCodeRejected = errors.New("authenticator code rejected")

// Config tunes code shape and the provisioning URI.
type Config struct {
	ID        string
	ChannelID string
	Issuer    string
	Digits    int
	Period    int
	Skew      int
	Algorithm string
}

func (c Config) withDefaults() Config {
	if c.ID == "" {
		c.ID = DefaultID
	}
	if c.ChannelID == "" {
		c.ChannelID = "email"
	}
	if c.Issuer == "" {
		c.Issuer = "emberbase"
	}
	if c.Digits == 0 {
		c.Digits = 6
	}
	if c.Period == 0 {
		c.Period = 30
	}
	if c.Algorithm == "" {
		c.Algorithm = "SHA1"
	}
	return c
}

// Provider verifies authenticator-app codes.
type Provider struct {
	config   Config
	notifier notification.Notifier
	now      func() time.Time
}

// New creates the authenticator factor.
func New(cfg Config, notifier notification.Notifier) *Provider {
	return &Provider{
		config:   cfg.withDefaults(),
		notifier: notifier,
		now:      time.Now,
	}
}

// ID returns the component id.
func (p *Provider) ID() string { return p.config.ID }

func (p *Provider) prompt() provider.Prompt {
	return provider.Prompt{
		ID:      p.config.ID,
		Kind:    "totp",
		Options: map[string]any{"digits": p.config.Digits},
	}
}

// SignInPrompt asks for the current code.
func (p *Provider) SignInPrompt(context.Context) (provider.Prompt, error) {
	return p.prompt(), nil
}

// VerifySignInPrompt checks the code against the stored secret. A missing
// component is a plain reject; the factor never identifies anyone.
func (p *Provider) VerifySignInPrompt(_ context.Context, req provider.VerifyRequest) (provider.Verification, error) {
	code, ok := req.Value.(string)
	if !ok || req.Component == nil {
		return provider.Reject(), nil
	}
	secret, _ := req.Component.Data[secretDataKey].(string)
	if secret == "" {
		return provider.Reject(), nil
	}

	match, err := verifyCode(p.config, secret, code, p.now())
	if err != nil {
		return provider.Reject(), err
	}
	if !match {
		return provider.Reject(), nil
	}
	return provider.Accept(), nil
}

// SetupPrompt announces the enrollment step. The secret only exists after
// SetupComponent runs.
func (p *Provider) SetupPrompt(context.Context) (provider.Prompt, error) {
	return provider.Prompt{ID: p.config.ID, Kind: "totp_enroll"}, nil
}

// SetupComponent generates the shared secret. The component stays
// unconfirmed until the first valid code proves the authenticator holds it.
func (p *Provider) SetupComponent(_ context.Context, _ string, _ any) (provider.Setup, error) {
	secret, err := generateSecret()
	if err != nil {
		return provider.Setup{}, err
	}
	return provider.Setup{
		Component: identity.Component{
			ComponentID: p.config.ID,
			Confirmed:   false,
			Data:        map[string]any{secretDataKey: secret},
		},
	}, nil
}

// ValidationPrompt asks for the first code of the enrolled authenticator.
func (p *Provider) ValidationPrompt(context.Context) (provider.Prompt, error) {
	prompt := p.prompt()
	prompt.Sendable = true
	return prompt, nil
}

// SendValidationPrompt pushes the provisioning URI over the delivery
// channel so the user can enroll the secret.
func (p *Provider) SendValidationPrompt(ctx context.Context, req provider.ValidationRequest) error {
	secret, _ := req.Component.Data[secretDataKey].(string)
	if secret == "" {
		return errors.New("authenticator validation without secret")
	}

	var channel identity.Channel
	found := false
	for _, c := range req.Channels {
		if c.ChannelID == p.config.ChannelID {
			channel = c
			found = true
			break
		}
	}
	if !found {
		return errors.New("authenticator validation without delivery channel")
	}
	channel.IdentityID = req.IdentityID

	account, _ := channel.Data["address"].(string)
	if account == "" {
		account = req.IdentityID
	}
	return p.notifier.Notify(ctx, channel, notification.Message{
		Subject: "Enroll your authenticator",
		Text:    provisionURI(p.config, secret, account),
	})
}

// VerifyValidationPrompt consumes the first code.
func (p *Provider) VerifyValidationPrompt(_ context.Context, req provider.ValidationRequest) error {
	code, ok := req.Value.(string)
	if !ok {
		return ErrCodeRejected
	}
	secret, _ := req.Component.Data[secretDataKey].(string)
	if secret == "" {
		return errors.New("authenticator validation without secret")
	}

	match, err := verifyCode(p.config, secret, code, p.now())
	if err != nil {
		return err
	}
	if !match {
		return ErrCodeRejected
	}
	return nil
}
