package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewPipelineMetricsRegistersFamilies(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetricsWithRegistry(reg)
	if m == nil {
		t.Fatal("expected non-nil PipelineMetrics")
	}

	m.ObserveRun("ok", time.Second)
	m.AccountsScheduled.Inc()
	m.AccountsPurged.Inc()
	m.RowsDeleted.WithLabelValues("documents").Add(3)
	m.Errors.Inc()

	expected := map[string]bool{
		"visapath_pipeline_runs_total":               false,
		"visapath_pipeline_run_duration_seconds":     false,
		"visapath_pipeline_accounts_scheduled_total": false,
		"visapath_pipeline_accounts_purged_total":    false,
		"visapath_pipeline_rows_deleted_total":       false,
		"visapath_pipeline_errors_total":             false,
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, family := range families {
		if _, ok := expected[family.GetName()]; ok {
			expected[family.GetName()] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("expected metric %s to be registered", name)
		}
	}
}

func TestPipelineMetricsObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetricsWithRegistry(reg)

	m.ObserveRun("ok", 2*time.Second)
	m.ObserveRun("ok", time.Second)
	m.ObserveRun("skipped", 0)

	if v := counterValue(t, reg, "visapath_pipeline_runs_total", "outcome", "ok"); v != 2 {
		t.Errorf("expected 2 ok runs, got %v", v)
	}
	if v := counterValue(t, reg, "visapath_pipeline_runs_total", "outcome", "skipped"); v != 1 {
		t.Errorf("expected 1 skipped run, got %v", v)
	}
	// Skipped runs do not pollute the duration histogram.
	if n := histogramCount(t, reg, "visapath_pipeline_run_duration_seconds"); n != 2 {
		t.Errorf("expected 2 duration observations, got %d", n)
	}
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetricsWithRegistry(reg)

	m.Observe("GET", "/api/v1/cases/{caseID}", 200, 30*time.Millisecond)
	m.Observe("GET", "/api/v1/cases/{caseID}", 200, 10*time.Millisecond)
	m.Observe("POST", "/api/v1/auth/login", 401, 5*time.Millisecond)

	if v := counterValue(t, reg, "visapath_http_requests_total", "status", "2xx"); v != 2 {
		t.Errorf("expected 2 2xx requests, got %v", v)
	}
	if v := counterValue(t, reg, "visapath_http_requests_total", "status", "4xx"); v != 1 {
		t.Errorf("expected 1 4xx request, got %v", v)
	}
}

func TestBreakerMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBreakerMetricsWithRegistry(reg)

	m.ObserveState("email", 0)
	m.ObserveState("email", 1)
	m.ObserveRejection("email")
	m.ObserveRejection("email")

	if v := gaugeValue(t, reg, "visapath_breaker_state", "operation", "email"); v != 1 {
		t.Errorf("expected state gauge 1, got %v", v)
	}
	if v := counterValue(t, reg, "visapath_breaker_rejections_total", "operation", "email"); v != 2 {
		t.Errorf("expected 2 rejections, got %v", v)
	}
}

func TestStatusLabel(t *testing.T) {
	cases := map[int]string{200: "2xx", 201: "2xx", 302: "3xx", 404: "4xx", 409: "4xx", 500: "5xx", 503: "5xx"}
	for status, want := range cases {
		if got := statusLabel(status); got != want {
			t.Errorf("statusLabel(%d) = %s, want %s", status, got, want)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var pm *PipelineMetrics
	var hm *HTTPMetrics
	var bm *BreakerMetrics
	pm.ObserveRun("ok", time.Second)
	hm.Observe("GET", "/", 200, time.Millisecond)
	bm.ObserveState("email", 0)
	bm.ObserveRejection("email")
}

// counterValue sums counter samples in the family whose given label matches value.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	total := 0.0
	found := false
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			matches := label == ""
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					matches = true
				}
			}
			if matches {
				total += metric.GetCounter().GetValue()
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("metric %s{%s=%q} not found", name, label, value)
	}
	return total
}

// gaugeValue returns the gauge sample in the family whose given label matches value.
func gaugeValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{%s=%q} not found", name, label, value)
	return 0
}

func histogramCount(t *testing.T, reg *prometheus.Registry, name string) uint64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() == name {
			metrics := family.GetMetric()
			if len(metrics) > 0 {
				return metrics[0].GetHistogram().GetSampleCount()
			}
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}
