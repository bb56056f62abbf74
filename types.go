package tglink

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/MrEthical07/tglink/initdata"
	internalaudit "github.com/MrEthical07/tglink/internal/audit"
	"github.com/MrEthical07/tglink/internal/stores"
)

// Claim is the identity asserted by a verified payload.
type Claim = initdata.Claim

// LinkResult is returned by [Engine.RedeemLinkCode] after the identity link
// has been written.
type LinkResult struct {
	ExternalUserID string
	BackendUserID  string
}

// SessionResult is returned by [Engine.IssueSession]. When Linked is false
// every other field is empty. RefreshToken is always empty: only a single
// bootstrap credential is produced.
type SessionResult struct {
	Linked        bool
	BackendUserID string
	AccessToken   string
	RefreshToken  string
	ExpiresAt     time.Time
}

// LinkCode is a freshly issued linking code.
type LinkCode struct {
	Code          string
	BackendUserID string
	ExpiresAt     time.Time
}

// LinkCodeRecord is the stored form of a linking code.
type LinkCodeRecord = stores.LinkCodeRecord

// LinkStore persists link codes and identity links. RedeemLinkCode must check
// the code, write the identity link and mark the code used as one atomic unit.
//
// Implementations return the store sentinel errors re-exported below so the
// Engine can tell business rejections from backend faults.
type LinkStore interface {
	SaveLinkCode(ctx context.Context, record *LinkCodeRecord) error
	RedeemLinkCode(ctx context.Context, code, externalUserID string, now time.Time) (string, error)
	LookupIdentityLink(ctx context.Context, externalUserID string) (string, error)
}

var (
	// ErrStoreLinkCodeNotFound is returned by a LinkStore for an unknown code.
	ErrStoreLinkCodeNotFound = stores.ErrLinkCodeNotFound
	// ErrStoreLinkCodeUsed is returned by a LinkStore for a redeemed code.
	ErrStoreLinkCodeUsed = stores.ErrLinkCodeUsed
	// ErrStoreLinkCodeExpired is returned by a LinkStore once now >= expires_at.
	ErrStoreLinkCodeExpired = stores.ErrLinkCodeExpired
	// ErrStoreLinkCodeExists is returned by SaveLinkCode on a code collision.
	ErrStoreLinkCodeExists = stores.ErrLinkCodeExists
	// ErrStoreIdentityLinkMissing is returned by LookupIdentityLink when no link exists.
	ErrStoreIdentityLinkMissing = stores.ErrIdentityLinkMissing
)

// AuditEvent is a structured record of a security-relevant operation.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine’s audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink is an [AuditSink] that logs each event through a [slog.Logger].
type SlogSink = internalaudit.SlogSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogSink creates a [SlogSink]. A nil logger uses slog.Default().
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}
