package tglink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/MrEthical07/tglink/initdata"
	"github.com/MrEthical07/tglink/internal"
	internalaudit "github.com/MrEthical07/tglink/internal/audit"
	"github.com/MrEthical07/tglink/internal/flows"
	"github.com/MrEthical07/tglink/internal/limiters"
	"github.com/MrEthical07/tglink/internal/stores"
	"github.com/MrEthical07/tglink/jwt"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Engine verifies mini-app payloads, redeems link codes and issues session
// credentials.
//
// Engine instances are immutable after Build and safe for concurrent use.
type Engine struct {
	config        Config
	verifier      *initdata.Verifier
	store         LinkStore
	verifyLimiter *limiters.VerifyLimiter
	redeemLimiter *limiters.RedeemLimiter
	jwtManager    *jwt.Manager
	audit         *internalaudit.Dispatcher
	metrics       *Metrics
	logger        *slog.Logger
	now           func() time.Time
	ownedDB       *gorm.DB
	flows         flows.Deps
}

// Close flushes pending audit events and closes a database opened by Build.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	closeDB(e.ownedDB)
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) initFlowDeps() {
	isRateLimited := func(err error) bool {
		return errors.Is(err, limiters.ErrVerifyRateLimited) || errors.Is(err, limiters.ErrRedeemRateLimited)
	}
	warn := func(msg string, args ...any) {
		e.metricInc(MetricThrottleBackendError)
		e.logger.Warn(msg, args...)
		e.emitAudit(context.Background(), auditEventThrottleBackendError, false, "", "", nil, func() map[string]string {
			return map[string]string{"message": msg}
		})
	}

	e.flows.Verify = flows.VerifyDeps{
		Verify:        e.verifier.Verify,
		IsRateLimited: isRateLimited,
		Warn:          warn,
	}
	if e.verifyLimiter != nil {
		e.flows.Verify.Throttle = e.verifyLimiter
	}

	e.flows.RedeemLink = flows.RedeemLinkDeps{
		Store:         e.store,
		IsRateLimited: isRateLimited,
		Normalize:     internal.NormalizeLinkCode,
		Now:           e.now,
		Warn:          warn,
	}
	if e.redeemLimiter != nil {
		e.flows.RedeemLink.Throttle = e.redeemLimiter
	}

	e.flows.IssueSession = flows.IssueSessionDeps{
		Lookup:      e.store,
		Now:         e.now,
		LinkMissing: stores.ErrIdentityLinkMissing,
	}
	if e.jwtManager != nil {
		e.flows.IssueSession.Sign = e.jwtManager.CreateSession
	}

	e.flows.IssueLinkCode = flows.IssueLinkCodeDeps{
		ValidateBackendUserID: func(id string) error {
			if _, err := uuid.Parse(id); err != nil {
				return fmt.Errorf("%w: %v", ErrBackendUserInvalid, err)
			}
			return nil
		},
		NewCode: internal.NewLinkCode,
		Length:  e.config.LinkCode.Length,
		TTL:     e.config.LinkCode.TTL,
		Store:   e.store,
		Now:     e.now,
	}
}

// VerifyInitData authenticates a raw payload and returns the identity it
// asserts. Failures wrap ErrNotAuthenticated together with the initdata cause,
// or are ErrVerifyRateLimited when the client IP is over its budget.
func (e *Engine) VerifyInitData(ctx context.Context, raw string) (*Claim, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}

	res := flows.RunVerify(ctx, raw, ClientIPFromContext(ctx), e.flows.Verify)

	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}

	switch res.Failure {
	case flows.VerifyFailureRateLimited:
		e.metricInc(MetricVerifyRateLimited)
		e.emitRateLimit(ctx, "verify", "", ErrVerifyRateLimited)
		return nil, ErrVerifyRateLimited
	case flows.VerifyFailureNotAuthenticated:
		e.metricInc(MetricVerifyFailure)
		err := fmt.Errorf("%w: %w", ErrNotAuthenticated, res.Err)
		e.emitAudit(ctx, auditEventVerifyFailed, false, "", "", err, nil)
		return nil, err
	}

	e.metricInc(MetricVerifySuccess)
	return res.Claim, nil
}

// ExternalUserID renders a claim id the way it is stored in identity links.
func ExternalUserID(claim *Claim) string {
	if claim == nil {
		return ""
	}
	return strconv.FormatInt(claim.ID, 10)
}

// SecurityReport summarizes the configured security posture.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	return buildSecurityReport(e.config, e.verifyLimiter != nil || e.redeemLimiter != nil, e.jwtManager != nil)
}
