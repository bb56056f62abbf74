package tglink

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/tglink/internal"
)

// Config defines a public type used by tglink APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Bot      BotConfig
	Session  SessionConfig
	Storage  StorageConfig
	LinkCode LinkCodeConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
BOT CONFIG
====================================
*/

// BotConfig holds the secret the host platform signs payloads with.
type BotConfig struct {
	Token string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by tglink APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	TTL           time.Duration
	SigningMethod string // "hs256" (default), "ed25519" optional
	PrivateKey    []byte
	PublicKey     []byte
	KeyID         string
	Issuer        string
	Audience      string
	Role          string
}

/*
====================================
STORAGE CONFIG
====================================
*/

const (
	StorageRedis = "redis"
	StorageSQL   = "sql"
)

// StorageConfig selects where link codes and identity links live.
type StorageConfig struct {
	Backend           string // "redis" or "sql"
	RedisPrefix       string
	UsedCodeRetention time.Duration
	DatabaseURL       string
	AutoMigrate       bool
}

// LinkCodeConfig controls codes produced by Engine.IssueLinkCode.
type LinkCodeConfig struct {
	TTL    time.Duration
	Length int
}

// AuditConfig defines a public type used by tglink APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by tglink APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds the optional throttles. Both need a Redis client.
type SecurityConfig struct {
	EnableVerifyThrottle bool
	MaxVerifyFailures    int
	VerifyCooldown       time.Duration
	EnableRedeemThrottle bool
	MaxRedeemFailures    int
	RedeemCooldown       time.Duration
}

// DefaultConfig returns the configuration used when no overrides are given.
// Bot.Token and Session.PrivateKey have no default and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			TTL:           30 * 24 * time.Hour,
			SigningMethod: "hs256",
			Audience:      "authenticated",
			Role:          "authenticated",
		},
		Storage: StorageConfig{
			Backend:           StorageRedis,
			RedisPrefix:       "tgl",
			UsedCodeRetention: 24 * time.Hour,
			AutoMigrate:       true,
		},
		LinkCode: LinkCodeConfig{
			TTL:    10 * time.Minute,
			Length: 8,
		},
		Security: SecurityConfig{
			MaxVerifyFailures: 20,
			VerifyCooldown:    5 * time.Minute,
			MaxRedeemFailures: 5,
			RedeemCooldown:    15 * time.Minute,
		},
		Audit: AuditConfig{
			BufferSize: 1024,
			DropIfFull: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.PrivateKey = cloneBytes(cfg.Session.PrivateKey)
	out.Session.PublicKey = cloneBytes(cfg.Session.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration once at startup. Every error wraps
// ErrConfiguration.
func (c *Config) Validate() error {
	// Bot
	if strings.TrimSpace(c.Bot.Token) == "" {
		return configError("Bot Token is required")
	}

	// Session
	if c.Session.TTL <= 0 {
		return configError("Session TTL must be > 0")
	}
	// An empty PrivateKey disables session issuing only; link redemption
	// never signs anything.
	switch c.Session.SigningMethod {
	case "hs256":
	case "ed25519":
		if len(c.Session.PrivateKey) > 0 && len(c.Session.PublicKey) == 0 {
			return configError("ed25519 requires Session PublicKey")
		}
	default:
		return configError("unsupported Session SigningMethod")
	}
	if strings.TrimSpace(c.Session.Audience) == "" {
		return configError("Session Audience is required")
	}
	if strings.TrimSpace(c.Session.Role) == "" {
		return configError("Session Role is required")
	}

	// Storage
	switch c.Storage.Backend {
	case StorageRedis:
		if c.Storage.RedisPrefix == "" {
			return configError("Storage RedisPrefix is required for the redis backend")
		}
		if c.Storage.UsedCodeRetention < 0 {
			return configError("Storage UsedCodeRetention must be >= 0")
		}
	case StorageSQL:
	default:
		return configError("Storage Backend must be 'redis' or 'sql'")
	}

	// Link codes
	if c.LinkCode.TTL <= 0 {
		return configError("LinkCode TTL must be > 0")
	}
	if c.LinkCode.Length < internal.MinLinkCodeLength || c.LinkCode.Length > internal.MaxLinkCodeLength {
		return configError(fmt.Sprintf("LinkCode Length must be between %d and %d",
			internal.MinLinkCodeLength, internal.MaxLinkCodeLength))
	}

	// Security
	if c.Security.EnableVerifyThrottle {
		if c.Security.MaxVerifyFailures <= 0 {
			return configError("Security MaxVerifyFailures must be > 0")
		}
		if c.Security.VerifyCooldown <= 0 {
			return configError("Security VerifyCooldown must be > 0")
		}
	}
	if c.Security.EnableRedeemThrottle {
		if c.Security.MaxRedeemFailures <= 0 {
			return configError("Security MaxRedeemFailures must be > 0")
		}
		if c.Security.RedeemCooldown <= 0 {
			return configError("Security RedeemCooldown must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return configError("Audit BufferSize must be > 0")
	}

	return nil
}

func configError(msg string) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, msg)
}
