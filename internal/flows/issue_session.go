package flows

import (
	"context"
	"errors"
	"time"
)

// IssueSessionFailureKind classifies session issuance outcomes for root-level mapping.
type IssueSessionFailureKind int

const (
	IssueSessionFailureNone IssueSessionFailureKind = iota
	IssueSessionFailureNotLinked
	IssueSessionFailureLookup
	IssueSessionFailureSign
)

// IssueSessionResult carries either the signed credential or failure metadata.
type IssueSessionResult struct {
	Failure        IssueSessionFailureKind
	Err            error
	ExternalUserID string
	BackendUserID  string
	AccessToken    string
	ExpiresAt      time.Time
}

type IdentityLookup interface {
	LookupIdentityLink(ctx context.Context, externalUserID string) (string, error)
}

// IssueSessionDeps captures session issuance dependencies.
type IssueSessionDeps struct {
	Lookup      IdentityLookup
	Sign        func(subject string, now time.Time) (string, time.Time, error)
	Now         func() time.Time
	LinkMissing error
}

// RunIssueSession looks up the identity link and signs a credential for the
// linked backend user. The lookup failure kind is kept separate from
// not-linked so the caller can log it; both produce no credential.
func RunIssueSession(ctx context.Context, externalUserID string, deps IssueSessionDeps) IssueSessionResult {
	backendUserID, err := deps.Lookup.LookupIdentityLink(ctx, externalUserID)
	if err != nil {
		if deps.LinkMissing != nil && errors.Is(err, deps.LinkMissing) {
			return IssueSessionResult{
				Failure:        IssueSessionFailureNotLinked,
				ExternalUserID: externalUserID,
			}
		}
		return IssueSessionResult{
			Failure:        IssueSessionFailureLookup,
			Err:            err,
			ExternalUserID: externalUserID,
		}
	}
	if backendUserID == "" {
		return IssueSessionResult{
			Failure:        IssueSessionFailureNotLinked,
			ExternalUserID: externalUserID,
		}
	}

	token, expiresAt, err := deps.Sign(backendUserID, deps.Now())
	if err != nil {
		return IssueSessionResult{
			Failure:        IssueSessionFailureSign,
			Err:            err,
			ExternalUserID: externalUserID,
			BackendUserID:  backendUserID,
		}
	}

	return IssueSessionResult{
		Failure:        IssueSessionFailureNone,
		ExternalUserID: externalUserID,
		BackendUserID:  backendUserID,
		AccessToken:    token,
		ExpiresAt:      expiresAt,
	}
}
