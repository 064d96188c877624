package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/emberbase/auth/identity"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidState is returned when a continuation token is malformed,
// expired, tampered with, or presented for the wrong flow.
var ErrInvalidState = errors.New("invalid continuation state")

const stateVersion = 1

// AuthenticationState is the progress of a sign-in ceremony. IdentityID is
// empty until an identifying factor pins one.
type AuthenticationState struct {
	IdentityID string
	Path       []string
	Scopes     []string
}

// RegistrationState is the progress of a sign-up ceremony: the provisional
// identity id plus every component and channel set up so far. Records are
// only persisted once the ceremony completes.
type RegistrationState struct {
	IdentityID string
	Components []identity.Component
	Channels   []identity.Channel
	Scopes     []string
}

type authStateClaims struct {
	Use        string   `json:"use"`
	Version    int      `json:"ver"`
	IdentityID string   `json:"identity_id,omitempty"`
	Path       []string `json:"path,omitempty"`
	Scopes     []string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

type regStateClaims struct {
	Use        string               `json:"use"`
	Version    int                  `json:"ver"`
	Components []identity.Component `json:"components,omitempty"`
	Channels   []identity.Channel   `json:"channels,omitempty"`
	Scopes     []string             `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// CreateAuthenticationState signs the sign-in progress for the next
// request.
func (m *Manager) CreateAuthenticationState(state AuthenticationState) (string, error) {
	return m.sign(authStateClaims{
		Use:              useAuthState,
		Version:          stateVersion,
		IdentityID:       state.IdentityID,
		Path:             state.Path,
		Scopes:           state.Scopes,
		RegisteredClaims: m.registered(state.IdentityID, time.Now(), m.config.StateTTL),
	})
}

// ParseAuthenticationState verifies and decodes a sign-in continuation.
func (m *Manager) ParseAuthenticationState(tokenStr string) (AuthenticationState, error) {
	var claims authStateClaims
	if err := m.parse(tokenStr, &claims); err != nil {
		return AuthenticationState{}, errInvalidState(err)
	}
	if claims.Use != useAuthState || claims.Version != stateVersion {
		return AuthenticationState{}, ErrInvalidState
	}
	return AuthenticationState{
		IdentityID: claims.IdentityID,
		Path:       claims.Path,
		Scopes:     claims.Scopes,
	}, nil
}

// NewRegistrationState allocates a provisional identity id for a fresh
// sign-up ceremony.
func NewRegistrationState(scopes []string) RegistrationState {
	return RegistrationState{
		IdentityID: uuid.NewString(),
		Scopes:     scopes,
	}
}

// CreateRegistrationState signs the sign-up progress for the next request.
func (m *Manager) CreateRegistrationState(state RegistrationState) (string, error) {
	return m.sign(regStateClaims{
		Use:              useRegState,
		Version:          stateVersion,
		Components:       state.Components,
		Channels:         state.Channels,
		Scopes:           state.Scopes,
		RegisteredClaims: m.registered(state.IdentityID, time.Now(), m.config.StateTTL),
	})
}

// ParseRegistrationState verifies and decodes a sign-up continuation.
func (m *Manager) ParseRegistrationState(tokenStr string) (RegistrationState, error) {
	var claims regStateClaims
	if err := m.parse(tokenStr, &claims); err != nil {
		return RegistrationState{}, errInvalidState(err)
	}
	if claims.Use != useRegState || claims.Version != stateVersion || claims.Subject == "" {
		return RegistrationState{}, ErrInvalidState
	}
	return RegistrationState{
		IdentityID: claims.Subject,
		Components: claims.Components,
		Channels:   claims.Channels,
		Scopes:     claims.Scopes,
	}, nil
}

func errInvalidState(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidState, err)
}
