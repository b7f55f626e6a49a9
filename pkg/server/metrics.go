package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Assessment outcomes recorded by Metrics.Outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeBadRequest = "bad_request"
	OutcomeTooLarge   = "too_large"
	OutcomeDecode     = "decode_error"
	OutcomeExtraction = "extraction_error"
	OutcomeScoring    = "scoring_error"
	OutcomeCanceled   = "canceled"
	OutcomeInternal   = "internal_error"
)

// Metrics holds the service's prometheus collectors.
type Metrics struct {
	// Requests counts HTTP requests by route, method and status code.
	Requests *prometheus.CounterVec

	// Duration observes HTTP request latency by route and method.
	Duration *prometheus.HistogramVec

	// Outcomes counts assessment requests by outcome.
	Outcomes *prometheus.CounterVec

	// Labels counts completed assessments by risk label.
	Labels *prometheus.CounterVec

	// Probability observes the AD probability of completed assessments.
	Probability prometheus.Histogram

	// Screening observes decode, extraction and scoring time.
	Screening prometheus.Histogram

	// UploadBytes observes the size of staged uploads.
	UploadBytes prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adscreen_http_requests_total",
				Help: "Total number of HTTP requests processed",
			},
			[]string{"route", "method", "status"},
		),
		Duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adscreen_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method"},
		),
		Outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adscreen_assessments_total",
				Help: "Total number of assessment requests by outcome",
			},
			[]string{"outcome"},
		),
		Labels: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adscreen_risk_labels_total",
				Help: "Total number of completed assessments by risk label",
			},
			[]string{"label"},
		),
		Probability: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "adscreen_ad_probability",
				Help:    "AD-class probability of completed assessments",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),
		Screening: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "adscreen_screening_duration_seconds",
				Help:    "Time spent decoding, extracting and scoring one recording",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		UploadBytes: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "adscreen_upload_bytes",
				Help:    "Size of staged uploads in bytes",
				Buckets: prometheus.ExponentialBuckets(64<<10, 4, 8),
			},
		),
	}
}
