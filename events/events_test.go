package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

func TestPublishesSessionLifecycle(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx := context.Background()
	messages, err := pubSub.Subscribe(ctx, Topic)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	publisher := NewWatermillPublisher(pubSub)
	if err := publisher.SessionCreated(ctx, SessionEvent{
		SessionID:  "s-1",
		IdentityID: "u-1",
		Flow:       "sign_in",
	}); err != nil {
		t.Fatalf("SessionCreated failed: %v", err)
	}
	if err := publisher.SessionRevoked(ctx, SessionEvent{
		SessionID:  "s-1",
		IdentityID: "u-1",
	}); err != nil {
		t.Fatalf("SessionRevoked failed: %v", err)
	}

	first := <-messages
	first.Ack()
	var created SessionEvent
	if err := json.Unmarshal(first.Payload, &created); err != nil {
		t.Fatalf("decode created event: %v", err)
	}
	if created.Kind != KindSessionCreated || created.SessionID != "s-1" {
		t.Fatalf("unexpected created event: %+v", created)
	}
	if created.OccurredAt.IsZero() {
		t.Fatal("expected occurred_at to be stamped")
	}

	second := <-messages
	second.Ack()
	var revoked SessionEvent
	if err := json.Unmarshal(second.Payload, &revoked); err != nil {
		t.Fatalf("decode revoked event: %v", err)
	}
	if revoked.Kind != KindSessionRevoked {
		t.Fatalf("unexpected revoked event: %+v", revoked)
	}
}
