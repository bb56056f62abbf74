package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/tglink/internal/stores"
)

const maxLinkCodeAttempts = 3

// IssueLinkCodeFailureKind classifies link code issuance failures.
type IssueLinkCodeFailureKind int

const (
	IssueLinkCodeFailureNone IssueLinkCodeFailureKind = iota
	IssueLinkCodeFailureInvalidUser
	IssueLinkCodeFailureGenerate
	IssueLinkCodeFailureStore
)

type IssueLinkCodeResult struct {
	Failure   IssueLinkCodeFailureKind
	Err       error
	Code      string
	ExpiresAt time.Time
}

type LinkCodeSaver interface {
	SaveLinkCode(ctx context.Context, record *stores.LinkCodeRecord) error
}

// IssueLinkCodeDeps captures link code issuance dependencies.
type IssueLinkCodeDeps struct {
	ValidateBackendUserID func(string) error
	NewCode               func(length int) (string, error)
	Length                int
	TTL                   time.Duration
	Store                 LinkCodeSaver
	Now                   func() time.Time
}

// RunIssueLinkCode generates a fresh code for backendUserID and stores it. A
// collision with an existing code is retried with a new code.
func RunIssueLinkCode(ctx context.Context, backendUserID string, deps IssueLinkCodeDeps) IssueLinkCodeResult {
	if err := deps.ValidateBackendUserID(backendUserID); err != nil {
		return IssueLinkCodeResult{Failure: IssueLinkCodeFailureInvalidUser, Err: err}
	}

	expiresAt := deps.Now().Add(deps.TTL)
	var lastErr error
	for i := 0; i < maxLinkCodeAttempts; i++ {
		code, err := deps.NewCode(deps.Length)
		if err != nil {
			return IssueLinkCodeResult{Failure: IssueLinkCodeFailureGenerate, Err: err}
		}

		err = deps.Store.SaveLinkCode(ctx, &stores.LinkCodeRecord{
			Code:          code,
			BackendUserID: backendUserID,
			ExpiresAt:     expiresAt,
		})
		if err == nil {
			return IssueLinkCodeResult{
				Failure:   IssueLinkCodeFailureNone,
				Code:      code,
				ExpiresAt: expiresAt,
			}
		}
		if !errors.Is(err, stores.ErrLinkCodeExists) {
			return IssueLinkCodeResult{Failure: IssueLinkCodeFailureStore, Err: err}
		}
		lastErr = err
	}

	return IssueLinkCodeResult{Failure: IssueLinkCodeFailureStore, Err: lastErr}
}
