package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/emberbase/auth/ceremony"
	"github.com/emberbase/auth/identity"
	"github.com/emberbase/auth/internal/codes"
	"github.com/emberbase/auth/notification"
	"github.com/emberbase/auth/provider"
	"github.com/emberbase/auth/provider/emailfactor"
	"github.com/emberbase/auth/storage"
	"github.com/emberbase/auth/token"
	"github.com/redis/go-redis/v9"
)

func testBuilder(t *testing.T) *Builder {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := storage.NewMemory()
	repo := identity.NewRepository(store)
	registry := provider.NewRegistry(
		emailfactor.New(emailfactor.Config{}, repo, codes.New(client, "eb"), notification.NewMemory()),
	)

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("ed25519.GenerateKey failed: %v", err)
	}

	cfg := Config{
		Token: token.Config{
			SigningMethod: token.MethodEd25519,
			PrivateKey:    priv,
			PublicKey:     pub,
			AccessTTL:     time.Minute,
			StateTTL:      time.Minute,
		},
	}
	cfg.Ceremony.SignIn = ceremony.C("email")

	return New().
		WithConfig(cfg).
		WithRedis(client).
		WithStorage(store).
		WithRegistry(registry)
}

func TestBuildRejectsUnregisteredComponent(t *testing.T) {
	b := testBuilder(t)
	b.config.Ceremony.SignIn = ceremony.Seq(ceremony.C("email"), ceremony.C("webauthn"))

	if _, err := b.Build(); !errors.Is(err, ErrUnknownComponent) {
		t.Fatalf("expected ErrUnknownComponent, got %v", err)
	}
}

func TestBuildRequiresCollaborators(t *testing.T) {
	b := testBuilder(t)
	b.redis = nil
	if _, err := b.Build(); err == nil {
		t.Fatal("expected error without redis client")
	}

	b = testBuilder(t)
	b.registry = nil
	if _, err := b.Build(); err == nil {
		t.Fatal("expected error without registry")
	}
}

func TestBuildIsOneShot(t *testing.T) {
	b := testBuilder(t)

	if _, err := b.Build(); err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("expected error on second Build")
	}
}