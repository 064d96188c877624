package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a session record does not exist or has
// expired.
var ErrNotFound = errors.New("session not found")

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Record is the persisted state of one completed ceremony.
//
// Record instances are written once and treated as immutable; revocation
// deletes the record instead of mutating it.
type Record struct {
	SessionID  string    `json:"session_id"`
	IdentityID string    `json:"identity_id"`
	Scope      []string  `json:"scope,omitempty"`
	IssuedAt   time.Time `json:"issued_at"`
}

// Store persists session records in Redis under "<prefix>:s:<session id>"
// with a per-identity index at "<prefix>:i:<identity id>".
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore wires a session store onto an existing Redis client. The prefix
// namespaces keys so multiple deployments can share one Redis.
func NewStore(rdb redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "eb"
	}
	return &Store{redis: rdb, prefix: prefix}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":s:" + sessionID
}

func (s *Store) indexKey(identityID string) string {
	return s.prefix + ":i:" + identityID
}

// Create writes the record with the given lifetime and adds it to the
// identity index. The index carries the same TTL so it cannot outlive its
// newest member.
func (s *Store) Create(ctx context.Context, rec Record, ttl time.Duration) error {
	if rec.SessionID == "" || rec.IdentityID == "" {
		return errors.New("session record requires session and identity ids")
	}
	if ttl <= 0 {
		return errors.New("session ttl must be positive")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, s.key(rec.SessionID), data, ttl)
	pipe.SAdd(ctx, s.indexKey(rec.IdentityID), rec.SessionID)
	pipe.Expire(ctx, s.indexKey(rec.IdentityID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get fetches a live record. A missing key means the session was revoked
// or ran out its TTL; both map to [ErrNotFound].
func (s *Store) Get(ctx context.Context, sessionID string) (Record, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode session record: %w", err)
	}
	return rec, nil
}

// Delete removes a record and reports whether it existed. Deleting an
// absent record is not an error, so sign-out stays idempotent.
func (s *Store) Delete(ctx context.Context, identityID, sessionID string) (bool, error) {
	pipe := s.redis.TxPipeline()
	del := pipe.Del(ctx, s.key(sessionID))
	pipe.SRem(ctx, s.indexKey(identityID), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return del.Val() > 0, nil
}

// IdentitySessions lists the live session ids of one identity. Ids whose
// record has expired are pruned from the index as they are discovered.
func (s *Store) IdentitySessions(ctx context.Context, identityID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.indexKey(identityID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	live := make([]string, 0, len(ids))
	for _, id := range ids {
		exists, err := s.redis.Exists(ctx, s.key(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if exists == 0 {
			s.redis.SRem(ctx, s.indexKey(identityID), id)
			continue
		}
		live = append(live, id)
	}
	return live, nil
}

// RevokeAll deletes every live session of one identity and returns how
// many records were removed.
func (s *Store) RevokeAll(ctx context.Context, identityID string) (int, error) {
	ids, err := s.redis.SMembers(ctx, s.indexKey(identityID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	removed := 0
	for _, id := range ids {
		n, err := s.redis.Del(ctx, s.key(id)).Result()
		if err != nil {
			return removed, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		removed += int(n)
	}
	if err := s.redis.Del(ctx, s.indexKey(identityID)).Err(); err != nil {
		return removed, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return removed, nil
}
