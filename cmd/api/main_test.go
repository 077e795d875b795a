package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wolfman30/scam-honeypot/internal/observability/metrics"
)

func TestSetupMetricsExposesHoneypotMetrics(t *testing.T) {
	handler, reg := setupMetrics()
	if handler == nil || reg == nil {
		t.Fatalf("expected non-nil handler and registry")
	}

	m := metrics.NewHoneypotMetrics(reg)
	m.ObserveVerdict("OBVIOUS_SCAM")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "honeypot_prefilter_verdicts_total") {
		t.Fatalf("expected verdict counter to be exported")
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected go runtime collector to be exported")
	}
}
