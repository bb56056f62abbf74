package prometheus

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	tglink "github.com/MrEthical07/tglink"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	snapshot tglink.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() tglink.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                    { return f.dropped }

func TestCollectDisabledMetricsOnlyAuditDropped(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: tglink.MetricsSnapshot{
			Counters:   map[tglink.MetricID]uint64{},
			Histograms: map[tglink.MetricID][]uint64{},
		},
	})

	assert.Equal(t, 1, testutil.CollectAndCount(c))
}

func TestCollectCountersAndHistogram(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: tglink.MetricsSnapshot{
			Counters: map[tglink.MetricID]uint64{
				tglink.MetricLinkRedeemed: 7,
			},
			Histograms: map[tglink.MetricID][]uint64{
				tglink.MetricVerifyLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	expected := `
# HELP tglink_audit_dropped_total Dropped audit events due to dispatcher backpressure.
# TYPE tglink_audit_dropped_total counter
tglink_audit_dropped_total 2
# HELP tglink_link_redeemed_total Link codes exchanged for an identity link.
# TYPE tglink_link_redeemed_total counter
tglink_link_redeemed_total 7
# HELP tglink_verify_latency_seconds Payload verification latency.
# TYPE tglink_verify_latency_seconds histogram
tglink_verify_latency_seconds_bucket{le="0.005"} 1
tglink_verify_latency_seconds_bucket{le="0.01"} 3
tglink_verify_latency_seconds_bucket{le="0.025"} 6
tglink_verify_latency_seconds_bucket{le="0.05"} 10
tglink_verify_latency_seconds_bucket{le="0.1"} 15
tglink_verify_latency_seconds_bucket{le="0.25"} 21
tglink_verify_latency_seconds_bucket{le="0.5"} 28
tglink_verify_latency_seconds_bucket{le="+Inf"} 36
tglink_verify_latency_seconds_sum 0
tglink_verify_latency_seconds_count 36
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"tglink_audit_dropped_total",
		"tglink_link_redeemed_total",
		"tglink_verify_latency_seconds",
	)
	require.NoError(t, err)
}

func TestCollectorRegistersPedantically(t *testing.T) {
	reg := prom.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollectorFromSource(fakeSource{
		snapshot: tglink.MetricsSnapshot{
			Counters: map[tglink.MetricID]uint64{tglink.MetricSessionIssued: 1},
		},
	})))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 2)
}

func TestHandlerServesExposition(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: tglink.MetricsSnapshot{
			Counters: map[tglink.MetricID]uint64{tglink.MetricVerifySuccess: 3},
		},
	})

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tglink_verify_success_total 3")
}

func TestCollectorReadsEngine(t *testing.T) {
	var engine *tglink.Engine
	c := NewCollector(engine)

	// A nil engine reports an empty snapshot and no drops.
	assert.Equal(t, 1, testutil.CollectAndCount(c))
}
