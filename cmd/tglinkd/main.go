package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	tglink "github.com/MrEthical07/tglink"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "tglinkd",
		Usage:   "mini-app identity linking and session service",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			EnvVars: []string{"TGLINK_LOG_LEVEL", "GO_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "bot-token",
			Usage:   "bot token the host platform signs launch payloads with",
			EnvVars: []string{"TELEGRAM_BOT_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "jwt-secret",
			Usage:   "HS256 secret for issued session credentials",
			EnvVars: []string{"SUPABASE_JWT_SECRET", "TGLINK_JWT_SECRET"},
		},
		&cli.StringFlag{
			Name:    "jwt-issuer",
			Usage:   "optional iss claim for issued session credentials",
			EnvVars: []string{"TGLINK_JWT_ISSUER"},
		},
		&cli.DurationFlag{
			Name:    "session-ttl",
			Usage:   "lifetime of issued session credentials",
			Value:   30 * 24 * time.Hour,
			EnvVars: []string{"TGLINK_SESSION_TTL"},
		},
		&cli.StringFlag{
			Name:    "storage",
			Usage:   "link storage backend: redis or sql",
			Value:   tglink.StorageRedis,
			EnvVars: []string{"TGLINK_STORAGE"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL: redis://<user>:<pass>@<hostname>:6379/<db>",
			Value:   "redis://localhost:6379/0",
			EnvVars: []string{"TGLINK_REDIS_URL", "REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "database connection string for the sql backend (postgres or sqlite)",
			Value:   "sqlite://data/tglink/tglink.sqlite",
			EnvVars: []string{"TGLINK_DATABASE_URL", "DATABASE_URL"},
		},
		&cli.DurationFlag{
			Name:    "link-code-ttl",
			Usage:   "how long a generated link code stays redeemable",
			Value:   10 * time.Minute,
			EnvVars: []string{"TGLINK_LINK_CODE_TTL"},
		},
		&cli.IntFlag{
			Name:    "link-code-length",
			Usage:   "number of characters in generated link codes",
			Value:   8,
			EnvVars: []string{"TGLINK_LINK_CODE_LENGTH"},
		},
		&cli.BoolFlag{
			Name:    "verify-throttle",
			Usage:   "throttle clients that keep sending invalid payloads (needs redis)",
			EnvVars: []string{"TGLINK_VERIFY_THROTTLE"},
		},
		&cli.BoolFlag{
			Name:    "redeem-throttle",
			Usage:   "throttle identities that keep guessing link codes (needs redis)",
			EnvVars: []string{"TGLINK_REDEEM_THROTTLE"},
		},
		&cli.BoolFlag{
			Name:    "audit-log",
			Usage:   "write audit events to the structured log",
			EnvVars: []string{"TGLINK_AUDIT_LOG"},
		},
	}

	app.Commands = []*cli.Command{
		serveCmd,
		linkCodeCmd,
		signInitDataCmd,
		reportCmd,
		loadtestCmd,
	}

	return app.Run(args)
}

func configLogger(cctx *cli.Context, writer io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cctx.String("log-level")) {
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "info":
		level = slog.LevelInfo
	case "debug":
		level = slog.LevelDebug
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

func configFromFlags(cctx *cli.Context) tglink.Config {
	cfg := tglink.DefaultConfig()
	cfg.Bot.Token = cctx.String("bot-token")
	if secret := cctx.String("jwt-secret"); secret != "" {
		cfg.Session.PrivateKey = []byte(secret)
	}
	cfg.Session.Issuer = cctx.String("jwt-issuer")
	cfg.Session.TTL = cctx.Duration("session-ttl")
	cfg.Storage.Backend = cctx.String("storage")
	cfg.Storage.DatabaseURL = cctx.String("database-url")
	cfg.LinkCode.TTL = cctx.Duration("link-code-ttl")
	cfg.LinkCode.Length = cctx.Int("link-code-length")
	cfg.Security.EnableVerifyThrottle = cctx.Bool("verify-throttle")
	cfg.Security.EnableRedeemThrottle = cctx.Bool("redeem-throttle")
	cfg.Audit.Enabled = cctx.Bool("audit-log")
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

// buildEngine assembles an Engine from the global flags. The returned
// cleanup closes the engine and any redis client opened for it.
func buildEngine(cctx *cli.Context, logger *slog.Logger) (*tglink.Engine, func(), error) {
	cfg := configFromFlags(cctx)
	if err := cfg.Validate(); err != nil {
		return nil, func() {}, err
	}

	b := tglink.New().WithConfig(cfg).WithLogger(logger)

	var rdb *redis.Client
	if cfg.Storage.Backend == tglink.StorageRedis || cfg.Security.EnableVerifyThrottle || cfg.Security.EnableRedeemThrottle {
		opts, err := redis.ParseURL(cctx.String("redis-url"))
		if err != nil {
			return nil, func() {}, fmt.Errorf("%w: parsing redis URL: %v", tglink.ErrConfiguration, err)
		}
		rdb = redis.NewClient(opts)
		b.WithRedis(rdb)
	}
	if cfg.Audit.Enabled {
		b.WithAuditSink(tglink.NewSlogSink(logger.With("component", "audit")))
	}

	engine, err := b.Build()
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, func() {}, err
	}

	return engine, func() {
		engine.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
	}, nil
}
