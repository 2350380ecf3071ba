package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfq_requests_created_total",
			Help: "Total number of RFQ requests created (by pair).",
		},
		[]string{"pair"},
	)

	QuotesSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfq_quotes_submitted_total",
			Help: "Total number of quotes submitted (by resolver).",
		},
		[]string{"resolver"},
	)

	QuotesAcceptedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfq_quotes_accepted_total",
			Help: "Total number of quotes accepted (by resolver).",
		},
		[]string{"resolver"},
	)

	AcceptConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rfq_accept_conflicts_total",
			Help: "Number of acceptQuote calls rejected because a winner was already chosen.",
		},
	)

	ExpiredSweptTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfq_expired_swept_total",
			Help: "Number of entities transitioned to EXPIRED by the sweeper (by entity).",
		},
		[]string{"entity"},
	)

	// Measures duration of outbound oracle price fetches.
	OracleRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oracle_request_duration_seconds",
			Help:    "Duration of oracle price API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"chain"},
	)

	NATSPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_publish_errors_total",
			Help: "Number of NATS publish failures",
		},
		[]string{"subject"},
	)

	SettlementReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_reports_total",
			Help: "Settlement reports consumed from the broker (by outcome).",
		},
		[]string{"outcome"},
	)
)

// ObserveDuration records the time taken for a function and updates the given histogram.
func ObserveDuration(v any, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()

	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	default:
		// silently ignore counters; they're not meant for duration tracking
	}
}

func IncSwept(entity string, n int) {
	if n > 0 {
		ExpiredSweptTotal.WithLabelValues(entity).Add(float64(n))
	}
}

func StartServer(addr string) {
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		http.ListenAndServe(addr, nil) //nolint:errcheck
	}()
}
