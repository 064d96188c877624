package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emberbase/auth/session"
)

// Introspection is the verified context behind an access token.
type Introspection struct {
	IdentityID   string
	SessionID    string
	Scope        []string
	AuthorizedAt time.Time
}

// Introspect verifies an access token and checks its session is still
// live. Resource servers use this to honor revocation before the token
// expires on its own.
func (e *Engine) Introspect(ctx context.Context, accessToken string) (*Introspection, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccessToken, err)
	}

	rec, err := e.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, fmt.Errorf("%w: session revoked or expired", ErrAccessToken)
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if rec.IdentityID != claims.Subject {
		return nil, fmt.Errorf("%w: session does not belong to subject", ErrAccessToken)
	}

	return &Introspection{
		IdentityID:   rec.IdentityID,
		SessionID:    rec.SessionID,
		Scope:        claims.Scope,
		AuthorizedAt: time.Unix(claims.AuthorizedAt, 0).UTC(),
	}, nil
}
