package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emberbase/auth/audit"
	"github.com/emberbase/auth/events"
	"github.com/emberbase/auth/identity"
	"github.com/emberbase/auth/internal/rate"
	"github.com/emberbase/auth/metrics"
	"github.com/emberbase/auth/provider"
	"github.com/emberbase/auth/session"
	"github.com/emberbase/auth/storage"
	"github.com/emberbase/auth/token"
	"github.com/google/uuid"
)

// Engine runs the ceremony protocol. It is stateless between calls: every
// operation reads its full context from the signed continuation token and
// the collaborators, so any number of requests may run concurrently.
type Engine struct {
	config    Config
	registry  *provider.Registry
	repo      *identity.Repository
	sessions  *session.Store
	tokens    *token.Manager
	limiter   *rate.Limiter
	audit     *audit.Dispatcher
	metrics   *metrics.Metrics
	publisher events.Publisher
}

// Close drains the audit dispatcher. Safe on nil engines.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports audit events lost to dispatcher backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the current counter and histogram values.
func (e *Engine) MetricsSnapshot() metrics.Snapshot {
	if e == nil {
		return metrics.Snapshot{
			Counters:   map[metrics.ID]uint64{},
			Histograms: map[metrics.ID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id metrics.ID) {
	e.metrics.Inc(id)
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, flow Flow, success bool, identityID, sessionID, componentID string, cause error) {
	if e.audit == nil {
		return
	}
	event := audit.Event{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		Flow:       string(flow),
		Component:  componentID,
		IdentityID: identityID,
		SessionID:  sessionID,
		Success:    success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	e.audit.Emit(ctx, event)
}

const (
	auditEventCeremonyBegun     = "ceremony_begun"
	auditEventPromptSubmitted   = "prompt_submitted"
	auditEventPromptSent        = "prompt_sent"
	auditEventValidationSent    = "validation_sent"
	auditEventValidationResult  = "validation_submitted"
	auditEventCeremonyCompleted = "ceremony_completed"
	auditEventTokenRefreshed    = "token_refreshed"
	auditEventSignedOut         = "signed_out"
)

// checkRate consumes one slot of the named fixed window, keyed by the
// caller's remote address. It runs before the continuation state is parsed.
func (e *Engine) checkRate(ctx context.Context, op string, max int, period time.Duration) error {
	if e.limiter == nil || max <= 0 {
		return nil
	}
	subject := remoteAddrFromContext(ctx)
	if subject == "" {
		subject = "anonymous"
	}
	allowed, err := e.limiter.Allow(ctx, op+":"+subject, max, period)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if !allowed {
		e.metricInc(metrics.MetricRateLimitHit)
		return ErrRateLimited
	}
	return nil
}

// component looks up the stored factor record, mapping not-found to nil so
// skip hooks can distinguish "never configured".
func (e *Engine) component(ctx context.Context, identityID, componentID string) (*identity.Component, error) {
	if identityID == "" {
		return nil, nil
	}
	record, err := e.repo.Component(ctx, identityID, componentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return &record, nil
}

// issueSession persists a session record and mints the token triple. The
// session TTL matches the longest-lived token so revocation authority and
// token lifetime expire together.
func (e *Engine) issueSession(ctx context.Context, flow Flow, identityID string, scopes []string) (*Tokens, error) {
	sessionID := uuid.NewString()
	authorizedAt := time.Now().UTC().Truncate(time.Second)

	rec := session.Record{
		SessionID:  sessionID,
		IdentityID: identityID,
		Scope:      scopes,
		IssuedAt:   authorizedAt,
	}
	if err := e.sessions.Create(ctx, rec, e.tokens.SessionTTL()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	e.metricInc(metrics.MetricSessionCreated)

	tokens, err := e.mintTokens(ctx, identityID, sessionID, scopes, authorizedAt)
	if err != nil {
		return nil, err
	}

	if e.publisher != nil {
		// Fire and forget: a lost event never fails the sign-in.
		_ = e.publisher.SessionCreated(ctx, events.SessionEvent{
			SessionID:  sessionID,
			IdentityID: identityID,
			Flow:       string(flow),
		})
	}
	e.emitAudit(ctx, auditEventCeremonyCompleted, flow, true, identityID, sessionID, "", nil)
	e.metricInc(metrics.MetricCeremonyCompleted)

	return tokens, nil
}

func (e *Engine) mintTokens(ctx context.Context, identityID, sessionID string, scopes []string, authorizedAt time.Time) (*Tokens, error) {
	access, err := e.tokens.CreateAccess(identityID, sessionID, scopes, authorizedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	profile, err := e.profileClaims(ctx, identityID, scopes)
	if err != nil {
		return nil, err
	}
	idToken, err := e.tokens.CreateID(identityID, sessionID, profile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	tokens := &Tokens{AccessToken: access, IDToken: idToken}
	if e.tokens.RefreshEnabled() {
		refresh, err := e.tokens.CreateRefresh(identityID, sessionID, scopes, authorizedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		tokens.RefreshToken = refresh
	}
	return tokens, nil
}

// profileClaims projects identity metadata through the requested scopes.
// Only fields named by a scope ever reach the id token.
func (e *Engine) profileClaims(ctx context.Context, identityID string, scopes []string) (map[string]any, error) {
	if len(scopes) == 0 {
		return nil, nil
	}
	record, err := e.repo.Get(ctx, identityID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	profile := make(map[string]any, len(scopes))
	for _, scope := range scopes {
		if value, ok := record.Meta[scope]; ok {
			profile[scope] = value
		}
	}
	if len(profile) == 0 {
		return nil, nil
	}
	return profile, nil
}
