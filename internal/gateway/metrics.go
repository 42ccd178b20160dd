package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adventure_ai_requests_total",
			Help: "Total number of requests to the AI backend.",
		},
		[]string{"operation", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adventure_ai_request_duration_seconds",
			Help:    "Histogram of AI request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	aiPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adventure_ai_prompt_tokens",
			Help:    "Histogram of estimated prompt token counts.",
			Buckets: prometheus.LinearBuckets(250, 250, 20),
		},
		[]string{"operation"},
	)
)
