package limiters

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/tglink/internal/rate"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedeemMaxFailures = 5
	defaultRedeemCooldown    = 15 * time.Minute
)

var (
	ErrRedeemRateLimited = errors.New("link redeem rate limited")
	ErrRedeemUnavailable = errors.New("link redeem limiter unavailable")
)

// RedeemConfig holds the per-identity budget for rejected link codes.
type RedeemConfig struct {
	MaxFailures int
	Cooldown    time.Duration
}

// RedeemLimiter bounds code guessing: each verified external identity gets a
// small budget of rejected link codes per window. A successful redeem clears it.
type RedeemLimiter struct {
	counter *rate.Limiter
}

func NewRedeemLimiter(redisClient redis.UniversalClient, cfg RedeemConfig) *RedeemLimiter {
	max := cfg.MaxFailures
	if max <= 0 {
		max = defaultRedeemMaxFailures
	}
	cd := cfg.Cooldown
	if cd <= 0 {
		cd = defaultRedeemCooldown
	}
	return &RedeemLimiter{counter: rate.New(redisClient, rate.Config{
		Prefix:      "tlr:",
		MaxAttempts: max,
		Window:      cd,
	})}
}

func (l *RedeemLimiter) Check(ctx context.Context, externalUserID string) error {
	if l == nil || externalUserID == "" {
		return nil
	}
	return mapRateError(l.counter.Check(ctx, externalUserID), ErrRedeemRateLimited, ErrRedeemUnavailable)
}

func (l *RedeemLimiter) RecordFailure(ctx context.Context, externalUserID string) error {
	if l == nil || externalUserID == "" {
		return nil
	}
	return mapRateError(l.counter.Increment(ctx, externalUserID), ErrRedeemRateLimited, ErrRedeemUnavailable)
}

func (l *RedeemLimiter) Reset(ctx context.Context, externalUserID string) error {
	if l == nil || externalUserID == "" {
		return nil
	}
	return mapRateError(l.counter.Reset(ctx, externalUserID), ErrRedeemRateLimited, ErrRedeemUnavailable)
}
