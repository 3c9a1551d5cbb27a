package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestMetricsExposition(t *testing.T) {
	m := New()
	m.SmsImported("added")
	m.SmsImported("added")
	m.SmsImported("duplicate")
	m.RechargeRecorded("sms")
	m.PersistFailed()
	m.Exported("csv")
	m.ScanFinished("superseded")
	m.SetSimCards(3)
	m.ObserveHTTP("GET", "GET /api/state", 200, 15*time.Millisecond)
	m.ObserveHTTP("GET", "", 404, time.Millisecond)

	out := scrape(t, m)
	for _, want := range []string{
		`simtracker_sms_imports_total{outcome="added"} 2`,
		`simtracker_sms_imports_total{outcome="duplicate"} 1`,
		`simtracker_recharges_recorded_total{source="sms"} 1`,
		`simtracker_state_persist_failures_total 1`,
		`simtracker_exports_total{format="csv"} 1`,
		`simtracker_scan_tasks_total{result="superseded"} 1`,
		`simtracker_sim_cards 3`,
		`simtracker_http_requests_total{code="200",method="GET",route="GET /api/state"} 1`,
		`simtracker_http_requests_total{code="404",method="GET",route="unmatched"} 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.SmsImported("added")
	m.ObserveHTTP("GET", "/", 200, time.Second)
	m.SetSimCards(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("nil metrics handler status = %d, want 404", rec.Code)
	}
}

func TestTrackRequestGuards(t *testing.T) {
	m := New()
	rejected, suspicious := int64(4), int64(0)
	m.TrackRequestGuards(func() int64 { return rejected }, func() int64 { return suspicious })
	suspicious = 2

	out := scrape(t, m)
	for _, want := range []string{
		`simtracker_http_rate_limited_total 4`,
		`simtracker_http_suspicious_requests_total 2`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("exposition missing %q", want)
		}
	}

	var nilMetrics *Metrics
	nilMetrics.TrackRequestGuards(func() int64 { return 0 }, func() int64 { return 0 })
}
