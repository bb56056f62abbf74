package stores

import (
	"errors"
	"time"
)

var (
	ErrLinkCodeNotFound    = errors.New("link code not found")
	ErrLinkCodeUsed        = errors.New("link code already used")
	ErrLinkCodeExpired     = errors.New("link code expired")
	ErrLinkCodeExists      = errors.New("link code already exists")
	ErrIdentityLinkMissing = errors.New("identity link not found")
	ErrLinkStoreBackend    = errors.New("link store backend unavailable")
)

// LinkCodeRecord is a pending link between a backend account and whichever
// external identity redeems the code first.
type LinkCodeRecord struct {
	Code          string
	BackendUserID string
	ExpiresAt     time.Time
	UsedAt        *time.Time
}

// Redeemable reports whether the code may still be exchanged at now. A code
// expiring exactly at now is already expired.
func (r *LinkCodeRecord) Redeemable(now time.Time) error {
	if r.UsedAt != nil {
		return ErrLinkCodeUsed
	}
	if !now.Before(r.ExpiresAt) {
		return ErrLinkCodeExpired
	}
	return nil
}

// IsRejection reports whether err is an expected business outcome rather than
// a backend fault.
func IsRejection(err error) bool {
	return errors.Is(err, ErrLinkCodeNotFound) ||
		errors.Is(err, ErrLinkCodeUsed) ||
		errors.Is(err, ErrLinkCodeExpired)
}
