// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UtterancesHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_utterances_handled_total",
			Help: "Total number of utterances handled, by intent and outcome",
		},
		[]string{"intent", "outcome"},
	)

	IntentFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_intent_fallbacks_total",
			Help: "Classifications resolved by the deterministic fallback rules",
		},
		[]string{"reason"},
	)

	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_llm_requests_total",
			Help: "Reasoning service calls, by purpose and status",
		},
		[]string{"purpose", "status"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "assistant_llm_request_duration_seconds",
			Help: "Duration of reasoning service calls in seconds",
		},
		[]string{"purpose"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "assistant_dispatch_duration_seconds",
			Help: "End-to-end utterance handling duration in seconds",
		},
		[]string{"intent"},
	)
)
