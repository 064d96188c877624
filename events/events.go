// Package events publishes session lifecycle notifications so other
// services can react to sign-ins and revocations. Publishing is the
// explicit fire-and-forget hook of the core: failures are reported to the
// caller but never fail the operation that triggered them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// Topic carries every session lifecycle event.
const Topic = "auth.sessions"

const (
	KindSessionCreated = "session_created"
	KindSessionRevoked = "session_revoked"
)

// SessionEvent is the published payload.
type SessionEvent struct {
	Kind       string    `json:"kind"`
	SessionID  string    `json:"session_id"`
	IdentityID string    `json:"identity_id"`
	Flow       string    `json:"flow,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher publishes session lifecycle events.
type Publisher interface {
	SessionCreated(ctx context.Context, event SessionEvent) error
	SessionRevoked(ctx context.Context, event SessionEvent) error
}

// WatermillPublisher implements [Publisher] on a watermill message
// publisher.
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher publishes to [Topic] on the given backend.
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     Topic,
	}
}

func (p *WatermillPublisher) SessionCreated(ctx context.Context, event SessionEvent) error {
	event.Kind = KindSessionCreated
	return p.publish(ctx, event)
}

func (p *WatermillPublisher) SessionRevoked(ctx context.Context, event SessionEvent) error {
	event.Kind = KindSessionRevoked
	return p.publish(ctx, event)
}

func (p *WatermillPublisher) publish(_ context.Context, event SessionEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal session event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish session event: %w", err)
	}
	return nil
}
