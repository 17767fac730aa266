package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeTooLarge = "too_large"
	OutcomeFailed   = "failed"
	OutcomeCached   = "cached"
)

var (
	Conversions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "md2docx_conversions_total",
			Help: "Conversion requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	PandocDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "md2docx_pandoc_duration_seconds",
			Help:    "Wall time of pandoc invocations",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"mode"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "md2docx_cache_hits_total",
			Help: "Conversion results served from the Redis cache",
		},
		[]string{"kind"},
	)
)
