// Package identity holds the identity, identity-component, and
// identity-channel records and the typed repository that maps them onto the
// document storage collaborator.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/emberbase/auth/storage"
)

// Identity is the root account record. Meta holds the profile fields the id
// token projects through the requested scopes.
type Identity struct {
	ID        string         `json:"id"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Component is one configured authentication factor of an identity.
// Identification is set for identifying factors (the email address, the
// OAuth subject) and indexed for sign-in lookup.
type Component struct {
	IdentityID     string         `json:"identity_id"`
	ComponentID    string         `json:"component_id"`
	Identification string         `json:"identification,omitempty"`
	Confirmed      bool           `json:"confirmed"`
	Data           map[string]any `json:"data,omitempty"`
}

// Channel is a confirmed-or-pending delivery address for out-of-band
// notifications, e.g. the mailbox validation codes are pushed to.
type Channel struct {
	IdentityID string         `json:"identity_id"`
	ChannelID  string         `json:"channel_id"`
	Confirmed  bool           `json:"confirmed"`
	Data       map[string]any `json:"data,omitempty"`
}

// Repository reads and writes identity records through a [storage.Store].
// All multi-record writes go through a single atomic commit.
type Repository struct {
	store storage.Store
}

// NewRepository wraps the given store.
func NewRepository(store storage.Store) *Repository {
	return &Repository{store: store}
}

func identityKey(id string) []string {
	return []string{"identities", id}
}

func componentKey(identityID, componentID string) []string {
	return []string{"identities", identityID, "components", componentID}
}

func channelKey(identityID, channelID string) []string {
	return []string{"identities", identityID, "channels", channelID}
}

func identificationKey(componentID, identification string) []string {
	return []string{"identifications", componentID, normalizeIdentification(identification)}
}

func normalizeIdentification(identification string) string {
	return strings.ToLower(strings.TrimSpace(identification))
}

// Get returns the identity record.
func (r *Repository) Get(ctx context.Context, id string) (Identity, error) {
	var identity Identity
	if err := r.get(ctx, identityKey(id), &identity); err != nil {
		return Identity{}, err
	}
	return identity, nil
}

// Component returns one configured factor of an identity.
func (r *Repository) Component(ctx context.Context, identityID, componentID string) (Component, error) {
	var component Component
	if err := r.get(ctx, componentKey(identityID, componentID), &component); err != nil {
		return Component{}, err
	}
	return component, nil
}

// Components lists every configured factor of an identity.
func (r *Repository) Components(ctx context.Context, identityID string) ([]Component, error) {
	docs, err := r.store.List(ctx, []string{"identities", identityID, "components"})
	if err != nil {
		return nil, err
	}
	out := make([]Component, 0, len(docs))
	for _, doc := range docs {
		var component Component
		if err := json.Unmarshal(doc.Data, &component); err != nil {
			return nil, fmt.Errorf("%w: corrupt component record", storage.ErrUnavailable)
		}
		out = append(out, component)
	}
	return out, nil
}

// Channel returns one delivery channel of an identity.
func (r *Repository) Channel(ctx context.Context, identityID, channelID string) (Channel, error) {
	var channel Channel
	if err := r.get(ctx, channelKey(identityID, channelID), &channel); err != nil {
		return Channel{}, err
	}
	return channel, nil
}

// ByIdentification resolves an identifying value (e.g. an email address) to
// the owning identity id via the identification index.
func (r *Repository) ByIdentification(ctx context.Context, componentID, identification string) (string, error) {
	var ref struct {
		IdentityID string `json:"identity_id"`
	}
	if err := r.get(ctx, identificationKey(componentID, identification), &ref); err != nil {
		return "", err
	}
	return ref.IdentityID, nil
}

// CreateGraph atomically creates a new identity with its components and
// channels. The commit asserts that neither the identity nor any claimed
// identification exists yet, so a concurrent registration of the same
// address surfaces as [storage.ErrVersionConflict].
func (r *Repository) CreateGraph(ctx context.Context, identity Identity, components []Component, channels []Channel) error {
	checks := []storage.Check{{Key: identityKey(identity.ID)}}
	ops := make([]storage.Op, 0, 1+len(components)*2+len(channels))

	identityData, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	ops = append(ops, storage.Set(identityKey(identity.ID), identityData))

	for _, component := range components {
		component.IdentityID = identity.ID
		data, err := json.Marshal(component)
		if err != nil {
			return err
		}
		ops = append(ops, storage.Set(componentKey(identity.ID, component.ComponentID), data))

		if component.Identification != "" {
			key := identificationKey(component.ComponentID, component.Identification)
			checks = append(checks, storage.Check{Key: key})
			ref, err := json.Marshal(struct {
				IdentityID string `json:"identity_id"`
			}{IdentityID: identity.ID})
			if err != nil {
				return err
			}
			ops = append(ops, storage.Set(key, ref))
		}
	}

	for _, channel := range channels {
		channel.IdentityID = identity.ID
		data, err := json.Marshal(channel)
		if err != nil {
			return err
		}
		ops = append(ops, storage.Set(channelKey(identity.ID, channel.ChannelID), data))
	}

	return r.store.Commit(ctx, checks, ops)
}

// ConfirmComponent flips the confirmed flag of a stored factor under a
// version check.
func (r *Repository) ConfirmComponent(ctx context.Context, identityID, componentID string) error {
	key := componentKey(identityID, componentID)
	doc, err := r.store.Get(ctx, key)
	if err != nil {
		return err
	}
	var component Component
	if err := json.Unmarshal(doc.Data, &component); err != nil {
		return fmt.Errorf("%w: corrupt component record", storage.ErrUnavailable)
	}
	component.Confirmed = true
	data, err := json.Marshal(component)
	if err != nil {
		return err
	}
	return r.store.Commit(ctx,
		[]storage.Check{{Key: key, Version: doc.Version}},
		[]storage.Op{storage.Set(key, data)},
	)
}

// SaveComponentData replaces the data map of a stored factor under a version
// check, e.g. recording acceptance of a new policy revision.
func (r *Repository) SaveComponentData(ctx context.Context, identityID, componentID string, data map[string]any) error {
	key := componentKey(identityID, componentID)
	doc, err := r.store.Get(ctx, key)
	if err != nil {
		return err
	}
	var component Component
	if err := json.Unmarshal(doc.Data, &component); err != nil {
		return fmt.Errorf("%w: corrupt component record", storage.ErrUnavailable)
	}
	component.Data = data
	encoded, err := json.Marshal(component)
	if err != nil {
		return err
	}
	return r.store.Commit(ctx,
		[]storage.Check{{Key: key, Version: doc.Version}},
		[]storage.Op{storage.Set(key, encoded)},
	)
}

func (r *Repository) get(ctx context.Context, key []string, out any) error {
	doc, err := r.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(doc.Data, out); err != nil {
		return fmt.Errorf("%w: corrupt record at %v", storage.ErrUnavailable, key)
	}
	return nil
}
