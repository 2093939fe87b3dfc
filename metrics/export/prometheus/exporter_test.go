package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/store/memory"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/crypto/bcrypt"
)

type fakeSource struct {
	snapshot authgate.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() authgate.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func TestCollectSkipsCountersWhenDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: authgate.MetricsSnapshot{
			Counters:   map[authgate.MetricID]uint64{},
			Histograms: map[authgate.MetricID][]uint64{},
		},
	})

	if got := testutil.CollectAndCount(exp); got != 1 {
		t.Fatalf("expected only the audit dropped counter, got %d metrics", got)
	}
}

func TestCollectCountersAndDropped(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: authgate.MetricsSnapshot{
			Counters: map[authgate.MetricID]uint64{
				authgate.MetricLoginSuccess: 7,
			},
			Histograms: map[authgate.MetricID][]uint64{},
		},
		dropped: 2,
	})

	expected := `
# HELP authgate_login_success_total Successful password logins.
# TYPE authgate_login_success_total counter
authgate_login_success_total 7
# HELP authgate_audit_dropped_total Audit events dropped because the dispatcher buffer was full.
# TYPE authgate_audit_dropped_total counter
authgate_audit_dropped_total 2
`
	err := testutil.CollectAndCompare(exp, strings.NewReader(expected),
		"authgate_login_success_total", "authgate_audit_dropped_total")
	if err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestCollectHistogramIsCumulative(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: authgate.MetricsSnapshot{
			Counters: map[authgate.MetricID]uint64{authgate.MetricVerifySuccess: 36},
			Histograms: map[authgate.MetricID][]uint64{
				authgate.MetricVerifyLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
	})

	expected := `
# HELP authgate_verify_latency_seconds Access token verification latency.
# TYPE authgate_verify_latency_seconds histogram
authgate_verify_latency_seconds_bucket{le="0.0001"} 1
authgate_verify_latency_seconds_bucket{le="0.00025"} 3
authgate_verify_latency_seconds_bucket{le="0.0005"} 6
authgate_verify_latency_seconds_bucket{le="0.001"} 10
authgate_verify_latency_seconds_bucket{le="0.005"} 15
authgate_verify_latency_seconds_bucket{le="0.025"} 21
authgate_verify_latency_seconds_bucket{le="0.1"} 28
authgate_verify_latency_seconds_bucket{le="+Inf"} 36
authgate_verify_latency_seconds_sum 0
authgate_verify_latency_seconds_count 36
`
	err := testutil.CollectAndCompare(exp, strings.NewReader(expected), "authgate_verify_latency_seconds")
	if err != nil {
		t.Fatalf("unexpected histogram: %v", err)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: authgate.MetricsSnapshot{
			Counters:   map[authgate.MetricID]uint64{authgate.MetricGuestLogin: 4},
			Histograms: map[authgate.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "authgate_guest_login_total 4") {
		t.Fatalf("expected guest login counter, got:\n%s", body)
	}
}

func TestExporterReadsLiveEngine(t *testing.T) {
	cfg := authgate.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-for-exporter-tests")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-for-exporter-tests")
	cfg.Password.BcryptCost = bcrypt.MinCost

	engine, err := authgate.New().WithConfig(cfg).WithUserStore(memory.New()).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	engine.RecordRateLimitHit()
	engine.RecordRateLimitHit()

	expected := `
# HELP authgate_rate_limit_hit_total API requests rejected by the rate limiter.
# TYPE authgate_rate_limit_hit_total counter
authgate_rate_limit_hit_total 2
`
	if err := testutil.CollectAndCompare(NewExporter(engine), strings.NewReader(expected), "authgate_rate_limit_hit_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}
