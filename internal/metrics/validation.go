// Package metrics exposes Prometheus collectors for questionnaire validation.
package metrics

import (
	"time"

	"github.com/deppfellow/questionnaire-validator/internal/questionnaire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "qvalidator"

// Result labels.
const (
	ResultValid   = "valid"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// metaSchemaKind groups every meta schema failure under one label, since
// their messages embed document values.
const metaSchemaKind = "meta_schema"

var (
	validationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validations_total",
		Help:      "Questionnaire validations by mode and result",
	}, []string{"mode", "result"}) // result=valid|invalid|error

	validationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "validation_duration_seconds",
		Help:      "Time spent validating a questionnaire",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"mode"})

	validationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_errors_total",
		Help:      "Defects reported in questionnaires, by message",
	}, []string{"message"})

	reportCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "report_cache_requests_total",
		Help:      "Report cache lookups by outcome",
	}, []string{"outcome"}) // outcome=hit|miss

	asyncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "async_runs_total",
		Help:      "Asynchronous validation runs by lifecycle event",
	}, []string{"event"}) // event=enqueued|completed|failed|retried

	rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_rate_limited_total",
		Help:      "Requests rejected by the rate limiter",
	})
)

// ObserveValidation records one validation. A nil report means it errored.
func ObserveValidation(mode string, report *questionnaire.Report, took time.Duration) {
	validationDuration.WithLabelValues(mode).Observe(took.Seconds())

	switch {
	case report == nil:
		validationsTotal.WithLabelValues(mode, ResultError).Inc()
		return
	case report.Valid:
		validationsTotal.WithLabelValues(mode, ResultValid).Inc()
	default:
		validationsTotal.WithLabelValues(mode, ResultInvalid).Inc()
	}

	for _, e := range report.Errors {
		validationErrorsTotal.WithLabelValues(errorKind(e)).Inc()
	}
}

func errorKind(e questionnaire.ValidationError) string {
	if e.Path != "" {
		return metaSchemaKind
	}
	return e.Message
}

func IncCacheHit()  { reportCacheTotal.WithLabelValues("hit").Inc() }
func IncCacheMiss() { reportCacheTotal.WithLabelValues("miss").Inc() }

func IncAsyncRun(event string) { asyncRunsTotal.WithLabelValues(event).Inc() }

func IncRateLimited() { rateLimitedTotal.Inc() }
