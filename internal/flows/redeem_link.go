package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/tglink/internal/stores"
)

// RedeemLinkFailureKind classifies link redemption failures for root-level mapping.
type RedeemLinkFailureKind int

const (
	RedeemLinkFailureNone RedeemLinkFailureKind = iota
	RedeemLinkFailureEmptyCode
	RedeemLinkFailureRateLimited
	RedeemLinkFailureRejected
	RedeemLinkFailureBackend
)

// RedeemLinkResult carries either the established link or failure metadata.
type RedeemLinkResult struct {
	Failure        RedeemLinkFailureKind
	Err            error
	ExternalUserID string
	BackendUserID  string
}

type LinkRedeemer interface {
	RedeemLinkCode(ctx context.Context, code, externalUserID string, now time.Time) (string, error)
}

type RedeemThrottle interface {
	Check(ctx context.Context, externalUserID string) error
	RecordFailure(ctx context.Context, externalUserID string) error
	Reset(ctx context.Context, externalUserID string) error
}

// RedeemLinkDeps captures link redemption dependencies. Throttle may be nil.
type RedeemLinkDeps struct {
	Store         LinkRedeemer
	Throttle      RedeemThrottle
	IsRateLimited func(error) bool
	Normalize     func(string) string
	Now           func() time.Time
	Warn          func(string, ...any)
}

// RunRedeemLink exchanges code for an identity link on behalf of an already
// verified external identity. An empty code never reaches the store.
func RunRedeemLink(ctx context.Context, externalUserID, code string, deps RedeemLinkDeps) RedeemLinkResult {
	if deps.Normalize != nil {
		code = deps.Normalize(code)
	}
	if code == "" {
		return RedeemLinkResult{
			Failure:        RedeemLinkFailureEmptyCode,
			Err:            stores.ErrLinkCodeNotFound,
			ExternalUserID: externalUserID,
		}
	}

	if deps.Throttle != nil {
		if err := deps.Throttle.Check(ctx, externalUserID); err != nil {
			if deps.IsRateLimited != nil && deps.IsRateLimited(err) {
				return RedeemLinkResult{
					Failure:        RedeemLinkFailureRateLimited,
					Err:            err,
					ExternalUserID: externalUserID,
				}
			}
			warn(deps.Warn, "tglink: redeem throttle check failed", "error", err)
		}
	}

	backendUserID, err := deps.Store.RedeemLinkCode(ctx, code, externalUserID, deps.Now())
	if err != nil {
		if stores.IsRejection(err) {
			if deps.Throttle != nil {
				if tErr := deps.Throttle.RecordFailure(ctx, externalUserID); tErr != nil &&
					(deps.IsRateLimited == nil || !deps.IsRateLimited(tErr)) {
					warn(deps.Warn, "tglink: redeem throttle record failed", "error", tErr)
				}
			}
			return RedeemLinkResult{
				Failure:        RedeemLinkFailureRejected,
				Err:            err,
				ExternalUserID: externalUserID,
			}
		}
		return RedeemLinkResult{
			Failure:        RedeemLinkFailureBackend,
			Err:            err,
			ExternalUserID: externalUserID,
		}
	}

	if deps.Throttle != nil {
		if err := deps.Throttle.Reset(ctx, externalUserID); err != nil {
			warn(deps.Warn, "tglink: redeem throttle reset failed", "error", err)
		}
	}

	return RedeemLinkResult{
		Failure:        RedeemLinkFailureNone,
		ExternalUserID: externalUserID,
		BackendUserID:  backendUserID,
	}
}
