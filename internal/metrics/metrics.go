package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stringshare_requests_total",
		Help: "Total API requests by outcome class",
	}, []string{"outcome"})
	RequestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stringshare_request_duration_seconds",
		Help:    "API request duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stringshare_api_retries_total",
		Help: "Total API retry attempts",
	}, []string{"endpoint"})
	AuthExpirations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stringshare_auth_expirations_total",
		Help: "Total session clears caused by an authorization failure",
	})
	MutationCommits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stringshare_mutation_commits_total",
		Help: "Total confirmed optimistic mutations by kind",
	}, []string{"kind"})
	MutationRejects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stringshare_mutation_rejects_total",
		Help: "Total mutations rejected before a request was issued",
	}, []string{"kind"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stringshare_command_runs_total",
		Help: "Total CLI command runs",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stringshare_command_errors_total",
		Help: "Total CLI command errors",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(Requests, RequestDuration, APIRetries, AuthExpirations,
		MutationCommits, MutationRejects, CommandRuns, CommandErrors)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// ObserveRequestDuration records one request round trip.
func ObserveRequestDuration(start time.Time) {
	RequestDuration.Observe(time.Since(start).Seconds())
}

// IncRequest increments the request counter for an outcome class
// (ok, auth_expired, server_error, network_error, not_found, client_error).
func IncRequest(outcome string) { Requests.WithLabelValues(outcome).Inc() }

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

func IncMutationCommit(kind string) { MutationCommits.WithLabelValues(kind).Inc() }
func IncMutationReject(kind string) { MutationRejects.WithLabelValues(kind).Inc() }
func IncCommandRun(cmd string)      { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string)    { CommandErrors.WithLabelValues(cmd).Inc() }
