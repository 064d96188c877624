// Package codes stores outstanding one-time and validation codes in Redis:
// SHA-256 hash of the code, a TTL, and a bounded attempt counter updated
// under an optimistic transaction.
package codes

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCodeNotFound         = errors.New("code not found")
	ErrCodeMismatch         = errors.New("code mismatch")
	ErrCodeExpired          = errors.New("code expired")
	ErrCodeAttemptsExceeded = errors.New("code attempts exceeded")
	ErrCodeBackend          = errors.New("code store backend unavailable")
)

type record struct {
	Hash      []byte `json:"h"`
	ExpiresAt int64  `json:"e"`
	Attempts  uint16 `json:"a"`
}

// Store keeps one outstanding code per key. Issuing a new code replaces the
// previous one.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a code [Store]. An empty prefix defaults to "otc".
func New(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "otc"
	}
	return &Store{redis: redisClient, prefix: prefix}
}

func (s *Store) key(key string) string {
	return s.prefix + ":" + key
}

// Issue generates a numeric code of the given length, stores its hash under
// key for ttl, and returns the plaintext for delivery.
func (s *Store) Issue(ctx context.Context, key string, digits int, ttl time.Duration) (string, error) {
	code, err := generateNumeric(digits)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256([]byte(code))
	encoded, err := json.Marshal(record{
		Hash:      hash[:],
		ExpiresAt: time.Now().Add(ttl).Unix(),
	})
	if err != nil {
		return "", err
	}
	if err := s.redis.Set(ctx, s.key(key), encoded, ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCodeBackend, err)
	}
	return code, nil
}

// Verify consumes the code stored under key. A correct code deletes the
// record; a wrong one increments the attempt counter, deleting the record
// once maxAttempts is reached.
func (s *Store) Verify(ctx context.Context, key, code string, maxAttempts int) error {
	const maxRetries = 4
	full := s.key(key)
	provided := sha256.Sum256([]byte(strings.TrimSpace(code)))

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, full).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return ErrCodeNotFound
				}
				return fmt.Errorf("%w: %v", ErrCodeBackend, err)
			}

			var rec record
			if err := json.Unmarshal(data, &rec); err != nil {
				return ErrCodeNotFound
			}
			if time.Now().Unix() > rec.ExpiresAt {
				_, _ = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, full)
					return nil
				})
				return ErrCodeExpired
			}

			if subtle.ConstantTimeCompare(rec.Hash, provided[:]) == 1 {
				_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, full)
					return nil
				})
				return err
			}

			rec.Attempts++
			if maxAttempts > 0 && int(rec.Attempts) >= maxAttempts {
				_, _ = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, full)
					return nil
				})
				return ErrCodeAttemptsExceeded
			}

			ttl := time.Until(time.Unix(rec.ExpiresAt, 0))
			if ttl <= 0 {
				_, _ = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, full)
					return nil
				})
				return ErrCodeExpired
			}
			updated, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, full, updated, ttl)
				return nil
			})
			if err != nil {
				return err
			}
			return ErrCodeMismatch
		}, full)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrCodeMismatch
}

// Delete drops any outstanding code under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCodeBackend, err)
	}
	return nil
}

func generateNumeric(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid code digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
