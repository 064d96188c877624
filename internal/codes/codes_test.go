package codes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return New(rdb, "otc"), mr
}

func TestIssueAndVerify(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	code, err := store.Issue(ctx, "validation:email:u1", 8, time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if len(code) != 8 {
		t.Fatalf("expected 8-digit code, got %q", code)
	}

	if err := store.Verify(ctx, "validation:email:u1", code, 5); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	// Consumed on success.
	if err := store.Verify(ctx, "validation:email:u1", code, 5); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound after consumption, got %v", err)
	}
}

func TestVerifyWrongCodeCountsAttempts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	code, err := store.Issue(ctx, "k", 6, time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if err := store.Verify(ctx, "k", "000000", 3); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch, got %v", err)
	}
	if err := store.Verify(ctx, "k", "000000", 3); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch, got %v", err)
	}
	if err := store.Verify(ctx, "k", "000000", 3); !errors.Is(err, ErrCodeAttemptsExceeded) {
		t.Fatalf("expected ErrCodeAttemptsExceeded, got %v", err)
	}
	// Record deleted once attempts are exhausted; even the right code fails.
	if err := store.Verify(ctx, "k", code, 3); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound, got %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	code, err := store.Issue(ctx, "k", 6, time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if err := store.Verify(ctx, "k", code, 3); !errors.Is(err, ErrCodeNotFound) && !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected expired or missing code, got %v", err)
	}
}

func TestIssueReplacesOutstandingCode(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.Issue(ctx, "k", 6, time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	second, err := store.Issue(ctx, "k", 6, time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if first != second {
		if err := store.Verify(ctx, "k", first, 5); err == nil {
			t.Fatal("expected the first code to be superseded")
		}
	}
	if err := store.Verify(ctx, "k", second, 5); err != nil {
		t.Fatalf("Verify of the latest code failed: %v", err)
	}
}
