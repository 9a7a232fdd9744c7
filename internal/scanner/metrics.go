package scanner

import (
	"time"

	"github.com/MeKo-Tech/cardscan/internal/preprocess"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tickCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardscan_scanner_ticks_total",
			Help: "Sampler ticks by resulting state",
		},
		[]string{"state"},
	)

	extractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardscan_scanner_extractions_total",
			Help: "Title reads by outcome",
		},
		[]string{"outcome"},
	)

	extractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cardscan_scanner_extraction_duration_seconds",
			Help:    "Time spent walking the preprocessing ladder",
			Buckets: prometheus.DefBuckets,
		},
	)

	recognitionAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardscan_scanner_recognition_attempts_total",
			Help: "Recognizer calls by preprocessing variant and outcome",
		},
		[]string{"variant", "outcome"},
	)

	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardscan_scanner_resolutions_total",
			Help: "Name resolutions by outcome",
		},
		[]string{"outcome"},
	)

	commitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cardscan_scanner_commits_total",
			Help: "Accepted card reads",
		},
	)
)

// ObserveAttempt records a recognizer call. It fits
// recognizer.ExtractorConfig.OnAttempt.
func ObserveAttempt(v preprocess.Variant, _ time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	recognitionAttempts.WithLabelValues(v.String(), outcome).Inc()
}
