package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"redis":  NewRedis(rdb, "doc"),
	}
}

func TestStoreGetSetDelete(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := []string{"identities", "u1"}

			if _, err := store.Get(ctx, key); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			if err := store.Commit(ctx, nil, []Op{Set(key, []byte(`{"a":1}`))}); err != nil {
				t.Fatalf("Commit failed: %v", err)
			}

			doc, err := store.Get(ctx, key)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if string(doc.Data) != `{"a":1}` || doc.Version == "" {
				t.Fatalf("unexpected document: %+v", doc)
			}

			if err := store.Commit(ctx, nil, []Op{Delete(key)}); err != nil {
				t.Fatalf("delete Commit failed: %v", err)
			}
			if _, err := store.Get(ctx, key); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestStoreCommitChecks(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := []string{"identities", "u1"}

			// Must-not-exist check passes on an empty store.
			if err := store.Commit(ctx, []Check{{Key: key}}, []Op{Set(key, []byte(`1`))}); err != nil {
				t.Fatalf("Commit failed: %v", err)
			}
			// And conflicts once the document exists.
			if err := store.Commit(ctx, []Check{{Key: key}}, []Op{Set(key, []byte(`2`))}); !errors.Is(err, ErrVersionConflict) {
				t.Fatalf("expected ErrVersionConflict, got %v", err)
			}

			doc, err := store.Get(ctx, key)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}

			if err := store.Commit(ctx, []Check{{Key: key, Version: doc.Version}}, []Op{Set(key, []byte(`2`))}); err != nil {
				t.Fatalf("versioned Commit failed: %v", err)
			}
			// The old version token no longer matches.
			if err := store.Commit(ctx, []Check{{Key: key, Version: doc.Version}}, []Op{Set(key, []byte(`3`))}); !errors.Is(err, ErrVersionConflict) {
				t.Fatalf("expected ErrVersionConflict on stale version, got %v", err)
			}
		})
	}
}

func TestStoreListPrefix(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ops := []Op{
				Set([]string{"identities", "u1", "components", "password"}, []byte(`1`)),
				Set([]string{"identities", "u1", "components", "email"}, []byte(`2`)),
				Set([]string{"identities", "u2", "components", "password"}, []byte(`3`)),
			}
			if err := store.Commit(ctx, nil, ops); err != nil {
				t.Fatalf("Commit failed: %v", err)
			}

			docs, err := store.List(ctx, []string{"identities", "u1", "components"})
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(docs) != 2 {
				t.Fatalf("expected 2 documents, got %d", len(docs))
			}
			for _, doc := range docs {
				if doc.Key[1] != "u1" {
					t.Fatalf("unexpected key in listing: %v", doc.Key)
				}
			}
		})
	}
}
