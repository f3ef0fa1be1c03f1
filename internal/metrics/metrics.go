package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for gateway requests.
const (
	OutcomeOK         = "ok"
	OutcomeHTTPError  = "http_error"
	OutcomeTransport  = "transport_error"
	OutcomeBadPayload = "bad_payload"
)

var (
	gatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sherpa_gateway_requests_total",
		Help: "Requests sent to the hypothesis service, by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	gatewayDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sherpa_gateway_request_duration_seconds",
		Help:    "Latency of requests to the hypothesis service.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"endpoint"})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sherpa_sessions_active",
		Help: "Conversations currently held by the web server.",
	})
)

// ObserveGateway records one finished gateway request.
func ObserveGateway(endpoint, outcome string, elapsed time.Duration) {
	gatewayRequests.WithLabelValues(endpoint, outcome).Inc()
	gatewayDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func SessionOpened() { sessionsActive.Inc() }

func SessionClosed() { sessionsActive.Dec() }
