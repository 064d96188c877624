package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/emberbase/auth/events"
	"github.com/emberbase/auth/metrics"
	"github.com/emberbase/auth/session"
)

// RefreshToken exchanges a refresh token for a fresh triple. The new tokens
// stay pinned to the original authorization time, so the absolute session
// lifetime never extends; a revoked session refuses refresh immediately.
func (e *Engine) RefreshToken(ctx context.Context, refreshToken string) (*Tokens, error) {
	if err := e.checkRate(ctx, "refresh", e.config.RateLimit.RefreshMax, e.config.RateLimit.RefreshPeriod); err != nil {
		return nil, err
	}

	claims, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(metrics.MetricRefreshFailure)
		return nil, fmt.Errorf("%w: %v", ErrRefreshToken, err)
	}

	rec, err := e.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			e.metricInc(metrics.MetricRefreshFailure)
			e.emitAudit(ctx, auditEventTokenRefreshed, FlowAuthentication, false, claims.Subject, claims.SessionID, "", err)
			return nil, fmt.Errorf("%w: session revoked or expired", ErrRefreshToken)
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if rec.IdentityID != claims.Subject {
		e.metricInc(metrics.MetricRefreshFailure)
		return nil, fmt.Errorf("%w: session does not belong to subject", ErrRefreshToken)
	}

	tokens, err := e.mintTokens(ctx, rec.IdentityID, rec.SessionID, rec.Scope, rec.IssuedAt)
	if err != nil {
		return nil, err
	}

	e.metricInc(metrics.MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventTokenRefreshed, FlowAuthentication, true, rec.IdentityID, rec.SessionID, "", nil)
	return tokens, nil
}

// SignOut revokes the session behind an access token. Signing out an
// already-revoked session is not an error.
func (e *Engine) SignOut(ctx context.Context, accessToken string) error {
	claims, err := e.tokens.ParseAccess(accessToken)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	existed, err := e.sessions.Delete(ctx, claims.Subject, claims.SessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if existed && e.publisher != nil {
		_ = e.publisher.SessionRevoked(ctx, events.SessionEvent{
			SessionID:  claims.SessionID,
			IdentityID: claims.Subject,
		})
	}

	e.metricInc(metrics.MetricSignOut)
	e.emitAudit(ctx, auditEventSignedOut, FlowAuthentication, true, claims.Subject, claims.SessionID, "", nil)
	return nil
}
