package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/tglink/internal/rate"
	"github.com/redis/go-redis/v9"
)

const (
	defaultVerifyMaxFailures = 20
	defaultVerifyCooldown    = 5 * time.Minute
)

var (
	ErrVerifyRateLimited = errors.New("verify rate limited")
	ErrVerifyUnavailable = errors.New("verify limiter unavailable")
)

// VerifyConfig holds the per-IP budget for failed payload verifications.
type VerifyConfig struct {
	MaxFailures int
	Cooldown    time.Duration
}

// VerifyLimiter counts failed payload verifications per client IP.
type VerifyLimiter struct {
	counter *rate.Limiter
}

// NewVerifyLimiter creates a verify limiter. Zero-value fields in cfg fall back
// to defaults (20 failures / 5m).
func NewVerifyLimiter(redisClient redis.UniversalClient, cfg VerifyConfig) *VerifyLimiter {
	max := cfg.MaxFailures
	if max <= 0 {
		max = defaultVerifyMaxFailures
	}
	cd := cfg.Cooldown
	if cd <= 0 {
		cd = defaultVerifyCooldown
	}
	return &VerifyLimiter{counter: rate.New(redisClient, rate.Config{
		Prefix:      "tvi:",
		MaxAttempts: max,
		Window:      cd,
	})}
}

// Check rejects an IP that has used up its failure budget. Requests without an
// IP are never throttled.
func (l *VerifyLimiter) Check(ctx context.Context, ip string) error {
	if l == nil || ip == "" {
		return nil
	}
	return mapRateError(l.counter.Check(ctx, ip), ErrVerifyRateLimited, ErrVerifyUnavailable)
}

// RecordFailure counts one failed verification for ip.
func (l *VerifyLimiter) RecordFailure(ctx context.Context, ip string) error {
	if l == nil || ip == "" {
		return nil
	}
	return mapRateError(l.counter.Increment(ctx, ip), ErrVerifyRateLimited, ErrVerifyUnavailable)
}

func mapRateError(err error, limited, unavailable error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		return limited
	default:
		return fmt.Errorf("%w: %v", unavailable, err)
	}
}
