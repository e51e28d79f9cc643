package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiCallsLatencyMs,
		aiLimitBlocks,
		extractionDropped,
		extractionResults,
	)
}

var (
	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "AI call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 20000},
		},
		[]string{"provider", "model", "success"},
	)

	aiLimitBlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_concurrency_blocks_total",
			Help: "Calls that gave up waiting for a free AI slot.",
		},
		[]string{"provider"},
	)

	extractionDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "extraction_dropped_elements_total",
			Help: "Extracted elements discarded by validation.",
		},
	)

	extractionResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_results_total",
			Help: "Extraction calls by result.",
		},
		[]string{"result"}, // 'ok', 'empty', 'no_array', 'parse_error', 'ai_error'
	)
)

func ObserveAICall(provider, model string, latencyMs int64, success bool) {
	aiCallsLatencyMs.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func IncAILimitBlock(provider string) {
	aiLimitBlocks.WithLabelValues(norm(provider)).Inc()
}

func AddExtractionDropped(n int) {
	if n > 0 {
		extractionDropped.Add(float64(n))
	}
}

func IncExtraction(result string) {
	extractionResults.WithLabelValues(norm(result)).Inc()
}
