package auth

import (
	"errors"
	"fmt"

	"github.com/emberbase/auth/audit"
	"github.com/emberbase/auth/ceremony"
	"github.com/emberbase/auth/events"
	"github.com/emberbase/auth/identity"
	"github.com/emberbase/auth/internal/rate"
	"github.com/emberbase/auth/metrics"
	"github.com/emberbase/auth/provider"
	"github.com/emberbase/auth/session"
	"github.com/emberbase/auth/storage"
	"github.com/emberbase/auth/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine] from its collaborators. Construction is
// allocation-only; no I/O happens until the first Engine method call.
type Builder struct {
	config Config

	redis     redis.UniversalClient
	store     storage.Store
	registry  *provider.Registry
	auditSink audit.Sink
	publisher events.Publisher

	built bool
}

// New starts a builder with default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis supplies the client backing sessions and rate windows.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStorage supplies the document store backing identity records.
func (b *Builder) WithStorage(store storage.Store) *Builder {
	b.store = store
	return b
}

// WithRegistry supplies the provider registry the ceremonies resolve
// against.
func (b *Builder) WithRegistry(registry *provider.Registry) *Builder {
	b.registry = registry
	return b
}

// WithAuditSink enables audit dispatch into the given sink.
func (b *Builder) WithAuditSink(sink audit.Sink) *Builder {
	b.auditSink = sink
	return b
}

// WithPublisher enables session lifecycle events. Publish failures never
// fail the triggering operation.
func (b *Builder) WithPublisher(publisher events.Publisher) *Builder {
	b.publisher = publisher
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, checks every ceremony leaf against the
// registry, and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := normalizeConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if b.store == nil {
		return nil, errors.New("storage is required")
	}
	if b.registry == nil {
		return nil, errors.New("provider registry is required")
	}

	for _, tree := range []ceremony.Ceremony{cfg.Ceremony.SignIn, cfg.Ceremony.Registration} {
		if tree == nil {
			continue
		}
		for _, id := range ceremony.Leaves(tree) {
			if _, ok := b.registry.Get(id); !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, id)
			}
		}
	}

	manager, err := token.NewManager(cfg.Token)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.RateLimit.Enabled {
		limiter = rate.New(b.redis, cfg.RateLimit.RedisPrefix)
	}

	engine := &Engine{
		config:    cfg,
		registry:  b.registry,
		repo:      identity.NewRepository(b.store),
		sessions:  session.NewStore(b.redis, cfg.Session.RedisPrefix),
		tokens:    manager,
		limiter:   limiter,
		audit:     audit.NewDispatcher(cfg.Audit, b.auditSink),
		metrics:   metrics.New(cfg.Metrics),
		publisher: b.publisher,
	}

	b.built = true
	return engine, nil
}
