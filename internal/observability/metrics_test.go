package observability

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Second)
	m.ObserveLLMRequest("openai", "StartRun", "success", time.Second)
	m.ObserveStage("run-assistant", "advanced", time.Second)
	m.IncStatusTransition("Complete")
	m.IncActivityDropped("request")
	m.ObserveSweep("ok", 2)
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil write: %v", err)
	}

	rec := httptest.NewRecorder()
	m.WriteHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 503 {
		t.Fatalf("expected 503 from nil metrics, got %d", rec.Code)
	}
}

func TestMetricsExposition(t *testing.T) {
	m := newMetrics(0.5)
	m.ObserveAPI("POST", "/api/v1/stages/:stage", "500", 100*time.Millisecond)
	m.ObserveLLMRequest("openai", "PollRunStatus", "polling", 250*time.Millisecond)
	m.IncStatusTransition("RunStatus:queued")
	m.IncStatusTransition("RunStatus:completed")
	m.IncActivityDropped("")

	rec := httptest.NewRecorder()
	m.WriteHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`sp_api_requests_total{method="POST",route="/api/v1/stages/:stage",status="500"} 1.000000`,
		"sp_api_requests_error_total 1.000000",
		"sp_api_requests_good_total 1.000000",
		`sp_llm_requests_total{provider="openai",phase="PollRunStatus",outcome="polling"} 1.000000`,
		`sp_llm_request_duration_seconds_bucket{provider="openai",phase="PollRunStatus",le="0.25"} 1`,
		`sp_status_transitions_total{status="RunStatus:*"} 2.000000`,
		`sp_activity_dropped_total{kind="unknown"} 1.000000`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in exposition:\n%s", want, body)
		}
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type=%q", ct)
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"a", "b"}, []string{`x"y`})
	if got != `{a="x\"y",b="unknown"}` {
		t.Fatalf("labelString=%s", got)
	}
	if withLe("", "1") != `{le="1"}` {
		t.Fatalf("withLe empty")
	}
}

func TestInitDisabledReturnsNil(t *testing.T) {
	if m := Init(nil, MetricsConfig{}); m != nil {
		t.Fatalf("disabled metrics must be nil")
	}
}
