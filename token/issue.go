package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrWrongUse is returned when a token verifies but was minted for a
// different purpose than it is presented for.
var ErrWrongUse = errors.New("token minted for a different use")

// AccessClaims bind an access token to its session.
type AccessClaims struct {
	Use          string   `json:"use"`
	Scope        []string `json:"scope,omitempty"`
	AuthorizedAt int64    `json:"authorized_at"`
	SessionID    string   `json:"sid"`
	jwt.RegisteredClaims
}

// RefreshClaims bind a refresh token to its session. IssuedAt stays pinned
// to the original authorization time across refreshes so the absolute
// session lifetime never silently extends.
type RefreshClaims struct {
	Use       string   `json:"use"`
	Scope     []string `json:"scope,omitempty"`
	SessionID string   `json:"sid"`
	jwt.RegisteredClaims
}

func (m *Manager) registered(subject string, issuedAt time.Time, ttl time.Duration) jwt.RegisteredClaims {
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		Issuer:    m.config.Issuer,
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}
	return claims
}

// CreateAccess mints a short-lived access token for the session.
func (m *Manager) CreateAccess(identityID, sessionID string, scope []string, authorizedAt time.Time) (string, error) {
	return m.sign(AccessClaims{
		Use:              useAccess,
		Scope:            scope,
		AuthorizedAt:     authorizedAt.Unix(),
		SessionID:        sessionID,
		RegisteredClaims: m.registered(identityID, time.Now(), m.config.AccessTTL),
	})
}

// ParseAccess verifies an access token.
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	var claims AccessClaims
	if err := m.parse(tokenStr, &claims); err != nil {
		return nil, err
	}
	if claims.Use != useAccess {
		return nil, ErrWrongUse
	}
	return &claims, nil
}

// CreateID mints an id token whose custom claims are exactly the projected
// profile fields the ceremony's scopes allow. The caller owns the
// projection; this never receives the full identity record.
func (m *Manager) CreateID(identityID, sessionID string, profile map[string]any) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"use": useID,
		"jti": uuid.NewString(),
		"sub": identityID,
		"sid": sessionID,
		"iat": jwt.NewNumericDate(now),
		"exp": jwt.NewNumericDate(now.Add(m.config.IDTTL)),
	}
	if m.config.Issuer != "" {
		claims["iss"] = m.config.Issuer
	}
	if m.config.Audience != "" {
		claims["aud"] = m.config.Audience
	}
	for name, value := range profile {
		if _, reserved := claims[name]; reserved {
			continue
		}
		claims[name] = value
	}
	return m.sign(claims)
}

// CreateRefresh mints a refresh token whose expiry is anchored at
// authorizedAt, not at mint time. Each mint carries a fresh jti, so a
// refreshed token never equals the one it replaces.
func (m *Manager) CreateRefresh(identityID, sessionID string, scope []string, authorizedAt time.Time) (string, error) {
	if !m.RefreshEnabled() {
		return "", errors.New("refresh tokens disabled")
	}
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   identityID,
		IssuedAt:  jwt.NewNumericDate(authorizedAt),
		ExpiresAt: jwt.NewNumericDate(authorizedAt.Add(m.config.RefreshTTL)),
		Issuer:    m.config.Issuer,
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}
	return m.sign(RefreshClaims{
		Use:              useRefresh,
		Scope:            scope,
		SessionID:        sessionID,
		RegisteredClaims: claims,
	})
}

// ParseRefresh verifies a refresh token.
func (m *Manager) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := m.parse(tokenStr, &claims); err != nil {
		return nil, err
	}
	if claims.Use != useRefresh {
		return nil, ErrWrongUse
	}
	return &claims, nil
}
