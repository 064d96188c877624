package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStoreTest(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewStore(rdb, "eb"), mr
}

func testRecord(sessionID string) Record {
	return Record{
		SessionID:  sessionID,
		IdentityID: "u-1",
		Scope:      []string{"email"},
		IssuedAt:   time.Now().Truncate(time.Second).UTC(),
	}
}

func TestCreateAndGetRecord(t *testing.T) {
	store, _ := newStoreTest(t)
	ctx := context.Background()
	rec := testRecord("s-1")

	if err := store.Create(ctx, rec, time.Hour); err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := store.Get(ctx, "s-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.IdentityID != rec.IdentityID || !got.IssuedAt.Equal(rec.IssuedAt) {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, rec)
	}
	if len(got.Scope) != 1 || got.Scope[0] != "email" {
		t.Fatalf("unexpected scope: %v", got.Scope)
	}
}

func TestGetMissingRecord(t *testing.T) {
	store, _ := newStoreTest(t)

	_, err := store.Get(context.Background(), "absent")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordExpiresWithTTL(t *testing.T) {
	store, mr := newStoreTest(t)
	ctx := context.Background()

	if err := store.Create(ctx, testRecord("s-1"), time.Minute); err != nil {
		t.Fatalf("create session: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "s-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after TTL, got %v", err)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	store, _ := newStoreTest(t)
	ctx := context.Background()
	rec := testRecord("s-1")

	if err := store.Create(ctx, rec, time.Hour); err != nil {
		t.Fatalf("create session: %v", err)
	}

	existed, err := store.Delete(ctx, rec.IdentityID, rec.SessionID)
	if err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if !existed {
		t.Fatal("expected first delete to report existence")
	}

	existed, err = store.Delete(ctx, rec.IdentityID, rec.SessionID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if existed {
		t.Fatal("expected second delete to report absence")
	}

	if _, err := store.Get(ctx, rec.SessionID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestIdentitySessionsPrunesExpired(t *testing.T) {
	store, mr := newStoreTest(t)
	ctx := context.Background()

	if err := store.Create(ctx, testRecord("s-1"), time.Hour); err != nil {
		t.Fatalf("create s-1: %v", err)
	}
	if err := store.Create(ctx, testRecord("s-2"), time.Hour); err != nil {
		t.Fatalf("create s-2: %v", err)
	}
	// Simulate s-2 expiring while the index entry lingers.
	mr.Del("eb:s:s-2")

	live, err := store.IdentitySessions(ctx, "u-1")
	if err != nil {
		t.Fatalf("identity sessions: %v", err)
	}
	if len(live) != 1 || live[0] != "s-1" {
		t.Fatalf("expected [s-1], got %v", live)
	}
}

func TestRevokeAll(t *testing.T) {
	store, _ := newStoreTest(t)
	ctx := context.Background()

	if err := store.Create(ctx, testRecord("s-1"), time.Hour); err != nil {
		t.Fatalf("create s-1: %v", err)
	}
	if err := store.Create(ctx, testRecord("s-2"), time.Hour); err != nil {
		t.Fatalf("create s-2: %v", err)
	}

	removed, err := store.RevokeAll(ctx, "u-1")
	if err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if _, err := store.Get(ctx, "s-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected s-1 revoked, got %v", err)
	}
}
