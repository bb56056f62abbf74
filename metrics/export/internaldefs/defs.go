package internaldefs

import (
	tglink "github.com/MrEthical07/tglink"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   tglink.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for exporters.
type HistogramDef struct {
	ID   tglink.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: tglink.MetricVerifySuccess, Name: "tglink_verify_success_total", Help: "Payloads that passed verification."},
	{ID: tglink.MetricVerifyFailure, Name: "tglink_verify_failure_total", Help: "Payloads rejected by verification."},
	{ID: tglink.MetricVerifyRateLimited, Name: "tglink_verify_rate_limited_total", Help: "Requests refused by the verify throttle."},
	{ID: tglink.MetricLinkRedeemed, Name: "tglink_link_redeemed_total", Help: "Link codes exchanged for an identity link."},
	{ID: tglink.MetricLinkRejected, Name: "tglink_link_rejected_total", Help: "Empty, unknown, used or expired link codes."},
	{ID: tglink.MetricLinkRateLimited, Name: "tglink_link_rate_limited_total", Help: "Redemptions refused by the redeem throttle."},
	{ID: tglink.MetricLinkBackendError, Name: "tglink_link_backend_error_total", Help: "Link store failures during redemption."},
	{ID: tglink.MetricLinkCodeIssued, Name: "tglink_link_code_issued_total", Help: "Generated link codes."},
	{ID: tglink.MetricSessionIssued, Name: "tglink_session_issued_total", Help: "Signed session credentials."},
	{ID: tglink.MetricSessionNotLinked, Name: "tglink_session_not_linked_total", Help: "Session requests for unlinked identities."},
	{ID: tglink.MetricSessionLookupError, Name: "tglink_session_lookup_error_total", Help: "Identity lookups that failed and were answered as not linked."},
	{ID: tglink.MetricSessionSignFailure, Name: "tglink_session_sign_failure_total", Help: "Credentials that could not be signed."},
	{ID: tglink.MetricRateLimitHit, Name: "tglink_rate_limit_hit_total", Help: "Throttle checks that denied requests."},
	{ID: tglink.MetricThrottleBackendError, Name: "tglink_throttle_backend_error_total", Help: "Throttle backend failures that were ignored."},
}

// HistogramDefs lists every exported latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: tglink.MetricVerifyLatency, Name: "tglink_verify_latency_seconds", Help: "Payload verification latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's fixed
// latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundValues mirrors HistogramBounds as floats, without +Inf.
var HistogramBoundValues = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix renders HistogramBounds for use inside instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size bucket array. Missing buckets
// are zero.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
