package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the service's Prometheus collectors on a private registry.
type Registry struct {
	reg *prometheus.Registry

	OTPIssued         *prometheus.CounterVec
	OTPVerifications  *prometheus.CounterVec
	WaiverTransitions *prometheus.CounterVec
	RatingTokens      *prometheus.CounterVec
	Notifications     *prometheus.CounterVec
	SweepDuration     prometheus.Histogram
	HTTPRequests      *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		OTPIssued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waiver_otp_issued_total",
				Help: "OTP issuance attempts by result",
			},
			[]string{"result"},
		),
		OTPVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waiver_otp_verifications_total",
				Help: "OTP verification attempts by outcome",
			},
			[]string{"outcome"},
		),
		WaiverTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waiver_transitions_total",
				Help: "Waiver lifecycle transitions by target state",
			},
			[]string{"status"},
		),
		RatingTokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waiver_rating_tokens_total",
				Help: "Rating token events (issued, reused, consumed, rejected)",
			},
			[]string{"event"},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waiver_notifications_total",
				Help: "Outbox deliveries by channel, purpose and result",
			},
			[]string{"channel", "purpose", "result"},
		),
		SweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "waiver_rating_sweep_duration_seconds",
				Help:    "Duration of the rating sweep",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waiver_http_requests_total",
				Help: "HTTP requests by route and status class",
			},
			[]string{"route", "class"},
		),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.OTPIssued,
		r.OTPVerifications,
		r.WaiverTransitions,
		r.RatingTokens,
		r.Notifications,
		r.SweepDuration,
		r.HTTPRequests,
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
