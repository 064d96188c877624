package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/emberbase/auth/identity"
)

func newTestManager(t *testing.T, mutate func(*Config)) *Manager {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("ed25519.GenerateKey failed: %v", err)
	}

	cfg := Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "emberbase-test",
		AccessTTL:     5 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		StateTTL:      10 * time.Minute,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	manager, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return manager
}

func TestAccessTokenRoundTrip(t *testing.T) {
	manager := newTestManager(t, nil)
	authorizedAt := time.Now().Add(-time.Minute).Truncate(time.Second)

	tokenStr, err := manager.CreateAccess("u1", "s1", []string{"email"}, authorizedAt)
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}

	claims, err := manager.ParseAccess(tokenStr)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if claims.Subject != "u1" || claims.SessionID != "s1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.AuthorizedAt != authorizedAt.Unix() {
		t.Fatalf("expected authorized_at %d, got %d", authorizedAt.Unix(), claims.AuthorizedAt)
	}
	if len(claims.Scope) != 1 || claims.Scope[0] != "email" {
		t.Fatalf("unexpected scope: %v", claims.Scope)
	}
}

func TestRefreshTokenPinnedToAuthorizationTime(t *testing.T) {
	manager := newTestManager(t, nil)
	authorizedAt := time.Now().Add(-time.Hour).Truncate(time.Second)

	tokenStr, err := manager.CreateRefresh("u1", "s1", nil, authorizedAt)
	if err != nil {
		t.Fatalf("CreateRefresh failed: %v", err)
	}

	claims, err := manager.ParseRefresh(tokenStr)
	if err != nil {
		t.Fatalf("ParseRefresh failed: %v", err)
	}
	if !claims.IssuedAt.Time.Equal(authorizedAt) {
		t.Fatalf("expected iat pinned to %v, got %v", authorizedAt, claims.IssuedAt.Time)
	}
	wantExpiry := authorizedAt.Add(24 * time.Hour)
	if !claims.ExpiresAt.Time.Equal(wantExpiry) {
		t.Fatalf("expected exp %v, got %v", wantExpiry, claims.ExpiresAt.Time)
	}
}

func TestEveryMintCarriesFreshID(t *testing.T) {
	manager := newTestManager(t, nil)
	authorizedAt := time.Now().Truncate(time.Second)

	first, err := manager.CreateRefresh("u1", "s1", nil, authorizedAt)
	if err != nil {
		t.Fatalf("CreateRefresh failed: %v", err)
	}
	second, err := manager.CreateRefresh("u1", "s1", nil, authorizedAt)
	if err != nil {
		t.Fatalf("CreateRefresh failed: %v", err)
	}
	if first == second {
		t.Fatal("identical refresh tokens from two mints")
	}

	claims, err := manager.ParseRefresh(first)
	if err != nil {
		t.Fatalf("ParseRefresh failed: %v", err)
	}
	if claims.ID == "" {
		t.Fatal("refresh token missing jti")
	}

	firstAccess, err := manager.CreateAccess("u1", "s1", nil, authorizedAt)
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	secondAccess, err := manager.CreateAccess("u1", "s1", nil, authorizedAt)
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	if firstAccess == secondAccess {
		t.Fatal("identical access tokens from two mints")
	}
}

func TestTokenUseIsEnforced(t *testing.T) {
	manager := newTestManager(t, nil)

	access, err := manager.CreateAccess("u1", "s1", nil, time.Now())
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	if _, err := manager.ParseRefresh(access); err == nil {
		t.Fatal("expected access token to fail refresh parsing")
	}

	refresh, err := manager.CreateRefresh("u1", "s1", nil, time.Now())
	if err != nil {
		t.Fatalf("CreateRefresh failed: %v", err)
	}
	if _, err := manager.ParseAccess(refresh); err == nil {
		t.Fatal("expected refresh token to fail access parsing")
	}
}

func TestAuthenticationStateRoundTrip(t *testing.T) {
	manager := newTestManager(t, nil)

	state := AuthenticationState{
		IdentityID: "u1",
		Path:       []string{"email", "password"},
		Scopes:     []string{"email", "display_name"},
	}
	tokenStr, err := manager.CreateAuthenticationState(state)
	if err != nil {
		t.Fatalf("CreateAuthenticationState failed: %v", err)
	}

	decoded, err := manager.ParseAuthenticationState(tokenStr)
	if err != nil {
		t.Fatalf("ParseAuthenticationState failed: %v", err)
	}
	if decoded.IdentityID != "u1" || len(decoded.Path) != 2 || decoded.Path[1] != "password" {
		t.Fatalf("unexpected state: %+v", decoded)
	}
}

func TestRegistrationStateRoundTrip(t *testing.T) {
	manager := newTestManager(t, nil)

	state := NewRegistrationState([]string{"email"})
	state.Components = []identity.Component{
		{ComponentID: "email", Identification: "alice@example.com", Confirmed: true},
	}
	state.Channels = []identity.Channel{
		{ChannelID: "email", Confirmed: true, Data: map[string]any{"address": "alice@example.com"}},
	}

	tokenStr, err := manager.CreateRegistrationState(state)
	if err != nil {
		t.Fatalf("CreateRegistrationState failed: %v", err)
	}

	decoded, err := manager.ParseRegistrationState(tokenStr)
	if err != nil {
		t.Fatalf("ParseRegistrationState failed: %v", err)
	}
	if decoded.IdentityID != state.IdentityID {
		t.Fatalf("expected provisional id %q, got %q", state.IdentityID, decoded.IdentityID)
	}
	if len(decoded.Components) != 1 || !decoded.Components[0].Confirmed {
		t.Fatalf("unexpected components: %+v", decoded.Components)
	}
}

func TestStateRejectsWrongFlow(t *testing.T) {
	manager := newTestManager(t, nil)

	authState, err := manager.CreateAuthenticationState(AuthenticationState{Path: []string{"email"}})
	if err != nil {
		t.Fatalf("CreateAuthenticationState failed: %v", err)
	}
	if _, err := manager.ParseRegistrationState(authState); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for wrong flow, got %v", err)
	}
}

func TestStateRejectsTampering(t *testing.T) {
	manager := newTestManager(t, nil)

	tokenStr, err := manager.CreateAuthenticationState(AuthenticationState{IdentityID: "u1"})
	if err != nil {
		t.Fatalf("CreateAuthenticationState failed: %v", err)
	}

	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", tokenStr)
	}
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	if _, err := manager.ParseAuthenticationState(tampered); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for tampered token, got %v", err)
	}
}

func TestStateRejectsExpired(t *testing.T) {
	short := newTestManager(t, func(cfg *Config) {
		cfg.StateTTL = time.Nanosecond
	})

	tokenStr, err := short.CreateAuthenticationState(AuthenticationState{IdentityID: "u1"})
	if err != nil {
		t.Fatalf("CreateAuthenticationState failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, err := short.ParseAuthenticationState(tokenStr); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for expired state, got %v", err)
	}
}

func TestIDTokenProjectsOnlyProvidedClaims(t *testing.T) {
	manager := newTestManager(t, nil)

	tokenStr, err := manager.CreateID("u1", "s1", map[string]any{"email": "alice@example.com"})
	if err != nil {
		t.Fatalf("CreateID failed: %v", err)
	}
	// Three dot-separated segments, payload carries only the projection.
	if strings.Count(tokenStr, ".") != 2 {
		t.Fatalf("unexpected token shape: %q", tokenStr)
	}
}

func TestHS256Manager(t *testing.T) {
	manager, err := NewManager(Config{
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
		AccessTTL:     time.Minute,
		StateTTL:      time.Minute,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	tokenStr, err := manager.CreateAccess("u1", "s1", nil, time.Now())
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	if _, err := manager.ParseAccess(tokenStr); err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
}
