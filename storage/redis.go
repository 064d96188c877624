package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis is a [Store] backed by a Redis keyspace. Commit runs as an
// optimistic WATCH/MULTI transaction retried a bounded number of times.
type Redis struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedis creates a Redis-backed store. An empty prefix defaults to "doc".
func NewRedis(redisClient redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "doc"
	}
	return &Redis{redis: redisClient, prefix: prefix}
}

type redisDocument struct {
	Version string          `json:"v"`
	Data    json.RawMessage `json:"d"`
}

func (s *Redis) key(key []string) string {
	return s.prefix + ":" + joinKey(key)
}

// Get returns the document at key.
func (s *Redis) Get(ctx context.Context, key []string) (Document, error) {
	data, err := s.redis.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return decodeRedisDocument(key, data)
}

// List scans every document whose key starts with prefix.
func (s *Redis) List(ctx context.Context, prefix []string) ([]Document, error) {
	pattern := s.key(prefix) + keySeparator + "*"

	var out []Document
	iter := s.redis.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		data, err := s.redis.Get(ctx, full).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		doc, err := decodeRedisDocument(splitKey(strings.TrimPrefix(full, s.prefix+":")), data)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, nil
}

// Commit watches every involved key, re-reads the checks, and applies the
// ops in a MULTI block. A concurrent write aborts the EXEC and the commit is
// retried before reporting a conflict.
func (s *Redis) Commit(ctx context.Context, checks []Check, ops []Op) error {
	const maxRetries = 4

	watched := make([]string, 0, len(checks)+len(ops))
	for _, check := range checks {
		watched = append(watched, s.key(check.Key))
	}
	for _, op := range ops {
		watched = append(watched, s.key(op.Key))
	}

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			for _, check := range checks {
				data, err := tx.Get(ctx, s.key(check.Key)).Bytes()
				if err != nil && !errors.Is(err, redis.Nil) {
					return fmt.Errorf("%w: %v", ErrUnavailable, err)
				}
				if check.Version == "" {
					if err == nil {
						return ErrVersionConflict
					}
					continue
				}
				if errors.Is(err, redis.Nil) {
					return ErrVersionConflict
				}
				var doc redisDocument
				if decodeErr := json.Unmarshal(data, &doc); decodeErr != nil {
					return ErrVersionConflict
				}
				if doc.Version != check.Version {
					return ErrVersionConflict
				}
			}

			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, op := range ops {
					if op.Delete {
						pipe.Del(ctx, s.key(op.Key))
						continue
					}
					encoded, err := json.Marshal(redisDocument{
						Version: uuid.NewString(),
						Data:    op.Data,
					})
					if err != nil {
						return err
					}
					pipe.Set(ctx, s.key(op.Key), encoded, 0)
				}
				return nil
			})
			return err
		}, watched...)

		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ErrVersionConflict
}

func decodeRedisDocument(key []string, data []byte) (Document, error) {
	var doc redisDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: corrupt document", ErrUnavailable)
	}
	return Document{Key: key, Data: doc.Data, Version: doc.Version}, nil
}
