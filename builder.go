package tglink

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/tglink/initdata"
	internalaudit "github.com/MrEthical07/tglink/internal/audit"
	"github.com/MrEthical07/tglink/internal/limiters"
	"github.com/MrEthical07/tglink/internal/stores"
	"github.com/MrEthical07/tglink/jwt"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Builder defines a public type used by tglink APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	db     *gorm.DB

	linkStore LinkStore
	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The byte slices are copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client used by the redis storage backend and by
// the throttles.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDatabase sets the gorm handle used by the sql storage backend. When it
// is not set, Build opens Storage.DatabaseURL itself.
func (b *Builder) WithDatabase(db *gorm.DB) *Builder {
	b.db = db
	return b
}

// WithLinkStore overrides the storage backend entirely.
func (b *Builder) WithLinkStore(store LinkStore) *Builder {
	b.linkStore = store
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used for expiry checks and credential
// timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and assembles an immutable Engine. A
// Builder can be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if (cfg.Security.EnableVerifyThrottle || cfg.Security.EnableRedeemThrottle) && b.redis == nil {
		return nil, configError("Security throttles require redis client")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("system", "tglink")

	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- VERIFIER --------
	verifier, err := initdata.NewVerifier(cfg.Bot.Token)
	if err != nil {
		return nil, configError(err.Error())
	}

	// -------- SESSION SIGNER --------
	var jwtManager *jwt.Manager
	if len(cfg.Session.PrivateKey) > 0 {
		jwtManager, err = jwt.NewManager(jwt.Config{
			TTL:           cfg.Session.TTL,
			SigningMethod: jwt.SigningMethod(cfg.Session.SigningMethod),
			PrivateKey:    cfg.Session.PrivateKey,
			PublicKey:     cfg.Session.PublicKey,
			KeyID:         cfg.Session.KeyID,
			Issuer:        cfg.Session.Issuer,
			Audience:      cfg.Session.Audience,
			Role:          cfg.Session.Role,
		})
		if err != nil {
			return nil, configError(err.Error())
		}
	} else {
		logger.Warn("no session signing secret configured, session issuing disabled")
	}

	// -------- LINK STORE --------
	var ownedDB *gorm.DB
	store := b.linkStore
	if store == nil {
		switch cfg.Storage.Backend {
		case StorageRedis:
			if b.redis == nil {
				return nil, configError("redis storage backend requires redis client")
			}
			store = stores.NewRedisLinkStore(b.redis, cfg.Storage.RedisPrefix, cfg.Storage.UsedCodeRetention)
		case StorageSQL:
			db := b.db
			if db == nil {
				if cfg.Storage.DatabaseURL == "" {
					return nil, configError("sql storage backend requires a database")
				}
				db, err = OpenDatabase(cfg.Storage.DatabaseURL, 0, logger)
				if err != nil {
					return nil, err
				}
				ownedDB = db
			}
			sqlStore := stores.NewSQLLinkStore(db)
			if cfg.Storage.AutoMigrate {
				if err := sqlStore.Migrate(context.Background()); err != nil {
					closeDB(ownedDB)
					return nil, err
				}
			}
			store = sqlStore
		}
	}

	// -------- THROTTLES --------
	var verifyLimiter *limiters.VerifyLimiter
	if cfg.Security.EnableVerifyThrottle {
		verifyLimiter = limiters.NewVerifyLimiter(b.redis, limiters.VerifyConfig{
			MaxFailures: cfg.Security.MaxVerifyFailures,
			Cooldown:    cfg.Security.VerifyCooldown,
		})
	}
	var redeemLimiter *limiters.RedeemLimiter
	if cfg.Security.EnableRedeemThrottle {
		redeemLimiter = limiters.NewRedeemLimiter(b.redis, limiters.RedeemConfig{
			MaxFailures: cfg.Security.MaxRedeemFailures,
			Cooldown:    cfg.Security.RedeemCooldown,
		})
	}

	sink := b.auditSink
	if sink == nil {
		sink = NoOpSink{}
	}

	engine := &Engine{
		config:        cfg,
		verifier:      verifier,
		store:         store,
		verifyLimiter: verifyLimiter,
		redeemLimiter: redeemLimiter,
		jwtManager:    jwtManager,
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
			Now:        now,
		}, sink),
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger,
		now:     now,
		ownedDB: ownedDB,
	}
	engine.initFlowDeps()

	b.built = true
	return engine, nil
}

func closeDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqldb, err := db.DB(); err == nil {
		_ = sqldb.Close()
	}
}
