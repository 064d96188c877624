package auth

import (
	"errors"
	"time"

	"github.com/emberbase/auth/audit"
	"github.com/emberbase/auth/ceremony"
	"github.com/emberbase/auth/metrics"
	"github.com/emberbase/auth/token"
)

// Config collects every tunable of the protocol engine. Zero values are
// filled in by defaults where a safe default exists; key material and
// ceremonies must be supplied.
type Config struct {
	Token     token.Config
	Ceremony  CeremonyConfig
	RateLimit RateLimitConfig
	Session   SessionConfig
	Audit     audit.Config
	Metrics   metrics.Config
}

/*
====================================
CEREMONY CONFIG
====================================
*/

// CeremonyConfig holds the two ceremony trees the engine runs. Both are
// normalized at build time; their leaves must all have registered
// providers.
type CeremonyConfig struct {
	SignIn       ceremony.Ceremony
	Registration ceremony.Ceremony
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig configures the fixed-window counters. A max of zero
// disables the window for that operation.
type RateLimitConfig struct {
	Enabled bool

	SubmitMax    int
	SubmitPeriod time.Duration

	SendMax    int
	SendPeriod time.Duration

	RefreshMax    int
	RefreshPeriod time.Duration

	RedisPrefix string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig namespaces the session records in Redis.
type SessionConfig struct {
	RedisPrefix string
}

func defaultConfig() Config {
	return Config{
		Token: token.Config{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 30 * 24 * time.Hour,
			StateTTL:   10 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			SubmitMax:     10,
			SubmitPeriod:  time.Minute,
			SendMax:       5,
			SendPeriod:    5 * time.Minute,
			RefreshMax:    30,
			RefreshPeriod: time.Minute,
			RedisPrefix:   "eb",
		},
		Session: SessionConfig{
			RedisPrefix: "eb",
		},
		Audit: audit.Config{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

func normalizeConfig(cfg Config) Config {
	def := defaultConfig()

	if cfg.Token.AccessTTL <= 0 {
		cfg.Token.AccessTTL = def.Token.AccessTTL
	}
	if cfg.Token.StateTTL <= 0 {
		cfg.Token.StateTTL = def.Token.StateTTL
	}
	if cfg.RateLimit.SubmitPeriod <= 0 {
		cfg.RateLimit.SubmitPeriod = def.RateLimit.SubmitPeriod
	}
	if cfg.RateLimit.SendPeriod <= 0 {
		cfg.RateLimit.SendPeriod = def.RateLimit.SendPeriod
	}
	if cfg.RateLimit.RefreshPeriod <= 0 {
		cfg.RateLimit.RefreshPeriod = def.RateLimit.RefreshPeriod
	}
	if cfg.RateLimit.RedisPrefix == "" {
		cfg.RateLimit.RedisPrefix = def.RateLimit.RedisPrefix
	}
	if cfg.Session.RedisPrefix == "" {
		cfg.Session.RedisPrefix = def.Session.RedisPrefix
	}
	if cfg.Audit.BufferSize <= 0 {
		cfg.Audit.BufferSize = def.Audit.BufferSize
	}

	if cfg.Ceremony.SignIn != nil {
		cfg.Ceremony.SignIn = ceremony.Normalize(cfg.Ceremony.SignIn)
	}
	if cfg.Ceremony.Registration != nil {
		cfg.Ceremony.Registration = ceremony.Normalize(cfg.Ceremony.Registration)
	}

	return cfg
}

// Validate rejects configurations the engine cannot run. Token key
// material is validated separately by the token manager.
func (c *Config) Validate() error {
	if c.Ceremony.SignIn == nil && c.Ceremony.Registration == nil {
		return errors.New("at least one ceremony must be configured")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.SubmitMax < 0 || c.RateLimit.SendMax < 0 || c.RateLimit.RefreshMax < 0 {
			return errors.New("rate limit maximums must not be negative")
		}
	}
	return nil
}
