package auth

import (
	"testing"
	"time"

	"github.com/emberbase/auth/ceremony"
)

func TestNormalizeConfigFillsDefaults(t *testing.T) {
	cfg := normalizeConfig(Config{
		Ceremony: CeremonyConfig{
			SignIn: ceremony.Seq(ceremony.Seq(ceremony.C("email")), ceremony.C("password")),
		},
	})

	if cfg.Token.AccessTTL <= 0 || cfg.Token.StateTTL <= 0 {
		t.Fatalf("token TTL defaults not applied: %+v", cfg.Token)
	}
	if cfg.RateLimit.SubmitPeriod <= 0 || cfg.RateLimit.SendPeriod <= 0 || cfg.RateLimit.RefreshPeriod <= 0 {
		t.Fatalf("rate window defaults not applied: %+v", cfg.RateLimit)
	}
	if cfg.RateLimit.RedisPrefix == "" || cfg.Session.RedisPrefix == "" {
		t.Fatalf("key prefix defaults not applied: %+v", cfg)
	}

	// Nested sequences collapse during normalization.
	want := ceremony.Seq(ceremony.C("email"), ceremony.C("password"))
	if !ceremony.Equal(cfg.Ceremony.SignIn, want) {
		t.Fatalf("sign-in ceremony not normalized: %+v", cfg.Ceremony.SignIn)
	}
}

func TestValidateRequiresACeremony(t *testing.T) {
	cfg := normalizeConfig(Config{})
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error without any ceremony")
	}
}

func TestValidateRejectsNegativeRateBudget(t *testing.T) {
	cfg := normalizeConfig(Config{
		Ceremony: CeremonyConfig{SignIn: ceremony.C("email")},
	})
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.SubmitMax = -1
	cfg.RateLimit.SubmitPeriod = time.Minute

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for negative budget")
	}
}
