package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveResult("deposit", "executed")
	m.ObserveResult("deposit", "executed")
	m.ObserveQuote("lifi", "ok")
	m.ObserveSubmission("approve", "error")

	if got := testutil.ToFloat64(m.workflowResults.WithLabelValues("deposit", "executed")); got != 2 {
		t.Fatalf("expected 2 executed deposits, got %v", got)
	}
	if got := testutil.ToFloat64(m.quoteSources.WithLabelValues("lifi", "ok")); got != 1 {
		t.Fatalf("expected 1 lifi quote, got %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `pilot_submissions_total{kind="approve",result="error"} 1`) {
		t.Fatalf("submission counter missing from exposition:\n%s", body)
	}
}
