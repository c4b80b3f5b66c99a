package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PairingCodesIssued counts codes handed out to parents.
	PairingCodesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "choreboard_pairing_codes_issued_total",
		Help: "Pairing codes issued to parents.",
	})

	// PairingRedemptions counts redemption attempts by outcome.
	PairingRedemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "choreboard_pairing_redemptions_total",
		Help: "Pairing code redemption attempts by outcome.",
	}, []string{"outcome"})

	// TasksApproved counts approved task submissions.
	TasksApproved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "choreboard_tasks_approved_total",
		Help: "Task submissions approved by parents.",
	})

	// RewardsRedeemed counts successful reward redemptions.
	RewardsRedeemed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "choreboard_rewards_redeemed_total",
		Help: "Rewards redeemed by children.",
	})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "choreboard_http_request_duration_seconds",
		Help:    "HTTP request latency by method and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)

// Redemption outcome labels.
const (
	OutcomeOK              = "ok"
	OutcomeInvalidCode     = "invalid_code"
	OutcomeAlreadyPaired   = "already_paired"
	OutcomeRateLimited     = "rate_limited"
	OutcomeError           = "error"
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument wraps an HTTP handler with request latency recording.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		httpDuration.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	})
}
