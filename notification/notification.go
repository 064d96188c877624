// Package notification defines the delivery collaborator providers use to
// push validation and one-time codes, plus the implementations bundled for
// tests and the dev server.
package notification

import (
	"context"
	"log/slog"
	"sync"

	"github.com/emberbase/auth/identity"
)

// Message is a transport-agnostic notification payload.
type Message struct {
	Subject string
	Text    string
}

// Notifier delivers a message over an identity channel. Implementations map
// the channel's data (address, device token, ...) onto a concrete transport.
type Notifier interface {
	Notify(ctx context.Context, channel identity.Channel, msg Message) error
}

// Delivery is one recorded send, kept by [Memory] for assertions.
type Delivery struct {
	IdentityID string
	ChannelID  string
	Address    string
	Message    Message
}

// Memory records deliveries instead of sending them. Used in tests.
type Memory struct {
	mu         sync.Mutex
	deliveries []Delivery
}

// NewMemory creates an empty recording notifier.
func NewMemory() *Memory {
	return &Memory{}
}

// Notify records the delivery.
func (m *Memory) Notify(_ context.Context, channel identity.Channel, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	address, _ := channel.Data["address"].(string)
	m.deliveries = append(m.deliveries, Delivery{
		IdentityID: channel.IdentityID,
		ChannelID:  channel.ChannelID,
		Address:    address,
		Message:    msg,
	})
	return nil
}

// Deliveries returns a copy of everything recorded so far.
func (m *Memory) Deliveries() []Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Delivery, len(m.deliveries))
	copy(out, m.deliveries)
	return out
}

// Last returns the most recent delivery, if any.
func (m *Memory) Last() (Delivery, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.deliveries) == 0 {
		return Delivery{}, false
	}
	return m.deliveries[len(m.deliveries)-1], true
}

// Log writes deliveries to a slog logger. The dev server uses it in place
// of a real email/SMS transport.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a logging notifier.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Notify logs the delivery instead of sending it.
func (l *Log) Notify(_ context.Context, channel identity.Channel, msg Message) error {
	l.logger.Info("notification delivered",
		"identity_id", channel.IdentityID,
		"channel_id", channel.ChannelID,
		"subject", msg.Subject,
	)
	return nil
}
