package flows

import (
	"context"

	"github.com/MrEthical07/tglink/initdata"
)

// VerifyFailureKind classifies payload verification failures for root-level mapping.
type VerifyFailureKind int

const (
	VerifyFailureNone VerifyFailureKind = iota
	VerifyFailureRateLimited
	VerifyFailureNotAuthenticated
)

// VerifyResult carries either the verified claim or failure metadata.
type VerifyResult struct {
	Failure VerifyFailureKind
	Err     error
	Claim   *initdata.Claim
}

type VerifyThrottle interface {
	Check(ctx context.Context, ip string) error
	RecordFailure(ctx context.Context, ip string) error
}

// VerifyDeps captures payload verification dependencies. Throttle may be nil.
type VerifyDeps struct {
	Verify        func(raw string) (*initdata.Claim, error)
	Throttle      VerifyThrottle
	IsRateLimited func(error) bool
	Warn          func(string, ...any)
}

// RunVerify authenticates a raw payload. Throttle backend failures never block
// a request; only an explicit rate-limit answer does.
func RunVerify(ctx context.Context, raw, ip string, deps VerifyDeps) VerifyResult {
	if deps.Throttle != nil {
		if err := deps.Throttle.Check(ctx, ip); err != nil {
			if deps.IsRateLimited != nil && deps.IsRateLimited(err) {
				return VerifyResult{Failure: VerifyFailureRateLimited, Err: err}
			}
			warn(deps.Warn, "tglink: verify throttle check failed", "error", err)
		}
	}

	claim, err := deps.Verify(raw)
	if err != nil {
		if deps.Throttle != nil {
			if tErr := deps.Throttle.RecordFailure(ctx, ip); tErr != nil &&
				(deps.IsRateLimited == nil || !deps.IsRateLimited(tErr)) {
				warn(deps.Warn, "tglink: verify throttle record failed", "error", tErr)
			}
		}
		return VerifyResult{Failure: VerifyFailureNotAuthenticated, Err: err}
	}

	return VerifyResult{Failure: VerifyFailureNone, Claim: claim}
}

func warn(fn func(string, ...any), msg string, args ...any) {
	if fn != nil {
		fn(msg, args...)
	}
}
