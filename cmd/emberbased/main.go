// Command emberbased serves the ceremony engine over HTTP: an email plus
// password-or-OTP sign-in ceremony and an email, password, policy sign-up
// ceremony, backed by Redis.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/caarlos0/env/v11"
	"github.com/emberbase/auth"
	"github.com/emberbase/auth/audit"
	"github.com/emberbase/auth/ceremony"
	"github.com/emberbase/auth/events"
	"github.com/emberbase/auth/identity"
	"github.com/emberbase/auth/internal/codes"
	promexport "github.com/emberbase/auth/metrics/export/prometheus"
	"github.com/emberbase/auth/notification"
	"github.com/emberbase/auth/password"
	"github.com/emberbase/auth/provider"
	"github.com/emberbase/auth/provider/emailfactor"
	"github.com/emberbase/auth/provider/otpfactor"
	"github.com/emberbase/auth/provider/passwordfactor"
	"github.com/emberbase/auth/provider/policyfactor"
	"github.com/emberbase/auth/storage"
	"github.com/emberbase/auth/token"
	transport "github.com/emberbase/auth/transport/http"
	"github.com/redis/go-redis/v9"
)

type envConfig struct {
	Addr        string `env:"ADDR" envDefault:":9000"`
	MetricsAddr string `env:"METRICS_ADDR"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	KeyPrefix   string `env:"REDIS_KEY_PREFIX" envDefault:"eb"`

	TokenIssuer    string `env:"TOKEN_ISSUER" envDefault:"emberbase"`
	PrivateKeyFile string `env:"TOKEN_PRIVATE_KEY_FILE"`
	PublicKeyFile  string `env:"TOKEN_PUBLIC_KEY_FILE"`

	PolicyRevision string `env:"POLICY_REVISION" envDefault:"2026-01"`
	PolicyURL      string `env:"POLICY_URL"`

	EventsEnabled bool `env:"EVENTS_ENABLED" envDefault:"true"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		logger.Error("parse environment", slog.Any("error", err))
		os.Exit(1)
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("parse redis url", slog.Any("error", err))
		os.Exit(1)
	}
	redisClient := redis.NewClient(opts)

	privateKey, publicKey, err := loadKeys(cfg, logger)
	if err != nil {
		logger.Error("load signing keys", slog.Any("error", err))
		os.Exit(1)
	}

	store := storage.NewRedis(redisClient, cfg.KeyPrefix)
	repo := identity.NewRepository(store)
	codeStore := codes.New(redisClient, cfg.KeyPrefix)
	notifier := notification.NewLog(logger)

	hasher, err := password.New(password.DefaultConfig())
	if err != nil {
		logger.Error("configure password hasher", slog.Any("error", err))
		os.Exit(1)
	}

	registry := provider.NewRegistry(
		emailfactor.New(emailfactor.Config{}, repo, codeStore, notifier),
		passwordfactor.New("", hasher),
		otpfactor.New(otpfactor.Config{}, repo, codeStore, notifier),
		policyfactor.New(policyfactor.Config{
			Revision:    cfg.PolicyRevision,
			DocumentURL: cfg.PolicyURL,
		}, repo),
	)

	engineConfig := auth.Config{
		Token: token.Config{
			SigningMethod: token.MethodEd25519,
			PrivateKey:    privateKey,
			PublicKey:     publicKey,
			Issuer:        cfg.TokenIssuer,
			AccessTTL:     15 * time.Minute,
			IDTTL:         15 * time.Minute,
			RefreshTTL:    30 * 24 * time.Hour,
			StateTTL:      10 * time.Minute,
		},
	}
	engineConfig.Ceremony.SignIn = ceremony.Seq(
		ceremony.C("email"),
		ceremony.OneOf(ceremony.C("password"), ceremony.C("otp")),
		ceremony.C("policy"),
	)
	engineConfig.Ceremony.Registration = ceremony.Seq(
		ceremony.C("email"), ceremony.C("password"), ceremony.C("policy"),
	)
	engineConfig.RateLimit.Enabled = true
	engineConfig.Audit.Enabled = true
	engineConfig.Audit.DropIfFull = true
	engineConfig.Metrics.Enabled = true
	engineConfig.Metrics.EnableLatencyHistograms = true

	builder := auth.New().
		WithConfig(engineConfig).
		WithRedis(redisClient).
		WithStorage(store).
		WithRegistry(registry).
		WithAuditSink(audit.NewJSONWriterSink(os.Stdout))

	if cfg.EventsEnabled {
		wmPublisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			watermill.NewSlogLogger(logger),
		)
		if err != nil {
			logger.Error("create event publisher", slog.Any("error", err))
			os.Exit(1)
		}
		builder = builder.WithPublisher(events.NewWatermillPublisher(wmPublisher))
	}

	engine, err := builder.Build()
	if err != nil {
		logger.Error("build engine", slog.Any("error", err))
		os.Exit(1)
	}
	defer engine.Close()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, engine, logger)
	}

	router := transport.SetupRouter(engine, logger)
	logger.Info("listening", slog.String("addr", cfg.Addr))
	if err := router.Run(cfg.Addr); err != nil {
		logger.Error("serve", slog.Any("error", err))
		os.Exit(1)
	}
}

// loadKeys reads the ed25519 pair from disk, or generates an ephemeral pair
// so a development instance runs without provisioning. Ephemeral keys
// invalidate every outstanding token on restart.
func loadKeys(cfg envConfig, logger *slog.Logger) (ed25519.PrivateKey, ed25519.PublicKey, error) {
	if cfg.PrivateKeyFile != "" {
		private, err := os.ReadFile(cfg.PrivateKeyFile)
		if err != nil {
			return nil, nil, err
		}
		public, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, nil, err
		}
		return private, public, nil
	}

	logger.Warn("no signing key configured, generating an ephemeral pair")
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return private, public, nil
}

func serveMetrics(addr string, engine *auth.Engine, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promexport.NewExporter(engine).Handler())

	logger.Info("metrics listening", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("serve metrics", slog.Any("error", err))
	}
}
