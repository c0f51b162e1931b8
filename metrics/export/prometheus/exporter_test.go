package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	goSession "github.com/MrEthical07/goSession"
)

type fakeSource struct {
	snapshot goSession.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goSession.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters:   map[goSession.MetricID]uint64{},
			Histograms: map[goSession.MetricID][]uint64{},
		},
		dropped: 0,
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderDeterministicIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{
				goSession.MetricSessionStored: 7,
			},
			Histograms: map[goSession.MetricID][]uint64{
				goSession.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	if !strings.Contains(out, "gosession_session_stored_total 7") {
		t.Fatalf("expected session_stored counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "gosession_validate_latency_seconds_bucket{le=\"0.005\"} 1") {
		t.Fatalf("expected first histogram bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "gosession_validate_latency_seconds_bucket{le=\"+Inf\"} 36") {
		t.Fatalf("expected +Inf cumulative bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "gosession_store_latency_seconds_count 0") {
		t.Fatalf("expected empty store histogram in output, got:\n%s", out)
	}
	if !strings.Contains(out, "gosession_audit_dropped_total 2") {
		t.Fatalf("expected audit dropped counter in output, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters:   map[goSession.MetricID]uint64{goSession.MetricSessionStored: 1},
			Histograms: map[goSession.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRenderFromManager(t *testing.T) {
	cfg := goSession.DefaultConfig()
	cfg.Reaper.Enabled = false
	m, err := goSession.New().WithConfig(cfg).WithMetricsEnabled(true).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer m.Close()

	if err := m.StoreSession(context.Background(), "sid", &goSession.Record{UserID: uuid.New()}); err != nil {
		t.Fatalf("StoreSession failed: %v", err)
	}

	out := NewPrometheusExporter(m).Render()
	if !strings.Contains(out, "gosession_session_stored_fallback_total 1") {
		t.Fatalf("expected fallback write counted, got:\n%s", out)
	}
	if !strings.Contains(out, `gosession_fallback_served_total{tier="memory",op="store"} 1`) {
		t.Fatalf("expected labelled fallback series, got:\n%s", out)
	}
}

func TestRenderLabelledTierSeries(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters:   map[goSession.MetricID]uint64{goSession.MetricTierFailure: 3},
			Histograms: map[goSession.MetricID][]uint64{},
			TierFailures: map[goSession.TierOp]uint64{
				{Tier: "sql", Op: "get"}:      1,
				{Tier: "redis", Op: "delete"}: 2,
			},
			FallbackServed: map[goSession.TierOp]uint64{
				{Tier: "memory", Op: "touch"}: 5,
			},
		},
	})

	out := exp.Render()
	redis := strings.Index(out, `gosession_tier_call_failures_total{tier="redis",op="delete"} 2`)
	sql := strings.Index(out, `gosession_tier_call_failures_total{tier="sql",op="get"} 1`)
	if redis < 0 || sql < 0 || redis > sql {
		t.Fatalf("expected sorted per-tier failure series, got:\n%s", out)
	}
	if !strings.Contains(out, `gosession_fallback_served_total{tier="memory",op="touch"} 5`) {
		t.Fatalf("expected fallback series, got:\n%s", out)
	}
	if strings.Count(out, "# TYPE gosession_tier_call_failures_total counter") != 1 {
		t.Fatalf("expected one TYPE line per family, got:\n%s", out)
	}
}

func TestEscapeLabel(t *testing.T) {
	if got := escapeLabel("a\"b\\c\nd"); got != `a\"b\\c\nd` {
		t.Fatalf("escapeLabel = %q", got)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{
				goSession.MetricSessionStored:      1000,
				goSession.MetricSessionEvicted:     40,
				goSession.MetricSessionLookupHit:   800,
				goSession.MetricSessionLookupMiss:  10,
				goSession.MetricSessionDeleted:     800,
				goSession.MetricSessionInvalidated: 20,
				goSession.MetricTierFailure:        3,
			},
			Histograms: map[goSession.MetricID][]uint64{
				goSession.MetricStoreLatency:    {10, 20, 30, 40, 50, 60, 70, 80},
				goSession.MetricValidateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
		dropped: 0,
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
