// Package metrics exposes Prometheus metrics for the transcription pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TranscribeRequests counts requests by terminal outcome:
	// completed, empty, failed.
	TranscribeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcriber_requests_total",
		Help: "Transcription requests by outcome",
	}, []string{"outcome"})

	// SegmentsEmitted counts segments forwarded to clients, per engine.
	SegmentsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcriber_segments_total",
		Help: "Transcript segments emitted, per engine",
	}, []string{"engine"})

	// TranscribeDuration observes end-to-end pipeline time in seconds.
	TranscribeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "transcriber_request_duration_seconds",
		Help:    "End-to-end transcription request duration",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s .. ~17min
	})

	// NormalizeFailures counts uploads that failed media normalization.
	NormalizeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcriber_normalize_failures_total",
		Help: "Uploads that failed ffmpeg normalization",
	})
)
