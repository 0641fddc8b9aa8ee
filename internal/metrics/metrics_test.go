package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsExposure(t *testing.T) {
	IncRequest("ok")
	IncAPIRetry("/client/posts")
	AuthExpirations.Inc()
	IncMutationCommit("like")
	IncMutationReject("comment")
	IncCommandRun("feed")
	IncCommandError("feed")
	ObserveRequestDuration(time.Now().Add(-200 * time.Millisecond))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rec.Code)
	}
	body := rec.Body.String()
	for _, m := range []string{
		"stringshare_requests_total",
		"stringshare_request_duration_seconds",
		"stringshare_api_retries_total",
		"stringshare_auth_expirations_total",
		"stringshare_mutation_commits_total",
		"stringshare_mutation_rejects_total",
		"stringshare_command_runs_total",
		"stringshare_command_errors_total",
	} {
		if !strings.Contains(body, m) {
			t.Fatalf("expected metric %s in body", m)
		}
	}
}
