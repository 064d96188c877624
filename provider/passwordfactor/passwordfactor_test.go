package passwordfactor

import (
	"context"
	"errors"
	"testing"

	"github.com/emberbase/auth/password"
	"github.com/emberbase/auth/provider"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()

	hasher, err := password.New(password.DefaultConfig())
	if err != nil {
		t.Fatalf("password.New failed: %v", err)
	}
	return New("", hasher)
}

func TestSetupThenVerify(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	setup, err := p.SetupComponent(ctx, "id-1", "correct horse battery")
	if err != nil {
		t.Fatalf("SetupComponent failed: %v", err)
	}
	if !setup.Component.Confirmed {
		t.Fatal("password component must be confirmed at setup")
	}
	if setup.Component.ComponentID != DefaultID {
		t.Fatalf("component id = %q, want %q", setup.Component.ComponentID, DefaultID)
	}
	if _, ok := setup.Component.Data[hashDataKey].(string); !ok {
		t.Fatal("setup stored no hash")
	}

	verification, err := p.VerifySignInPrompt(ctx, provider.VerifyRequest{
		Value:     "correct horse battery",
		Component: &setup.Component,
	})
	if err != nil {
		t.Fatalf("VerifySignInPrompt failed: %v", err)
	}
	if !verification.Accepted {
		t.Fatal("correct password rejected")
	}

	verification, err = p.VerifySignInPrompt(ctx, provider.VerifyRequest{
		Value:     "wrong",
		Component: &setup.Component,
	})
	if err != nil {
		t.Fatalf("VerifySignInPrompt failed: %v", err)
	}
	if verification.Accepted {
		t.Fatal("wrong password accepted")
	}
}

func TestVerifyWithoutComponentRejects(t *testing.T) {
	p := newTestProvider(t)

	verification, err := p.VerifySignInPrompt(context.Background(), provider.VerifyRequest{Value: "secret"})
	if err != nil {
		t.Fatalf("VerifySignInPrompt failed: %v", err)
	}
	if verification.Accepted {
		t.Fatal("verification without component accepted")
	}
}

func TestSetupRejectsNonString(t *testing.T) {
	p := newTestProvider(t)

	if _, err := p.SetupComponent(context.Background(), "id-1", 42); !errors.Is(err, provider.ErrSetupRejected) {
		t.Fatalf("expected ErrSetupRejected, got %v", err)
	}
}
