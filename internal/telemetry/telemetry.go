package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus instruments for the qualification pipeline.
type Metrics struct {
	PipelineRuns       prometheus.Counter
	CandidatesScreened prometheus.Counter
	TranscriptsFetched prometheus.Counter
	LLMCalls           *prometheus.CounterVec
	FallbackRuns       prometheus.Counter
	RunDuration        prometheus.Histogram
}

// New registers pipeline metrics on reg. Pass prometheus.DefaultRegisterer
// for the process-wide registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PipelineRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "scout_pipeline_runs_total",
			Help: "Number of qualification pipeline runs started.",
		}),
		CandidatesScreened: factory.NewCounter(prometheus.CounterOpts{
			Name: "scout_candidates_screened_total",
			Help: "Number of candidates processed by transcript acquisition.",
		}),
		TranscriptsFetched: factory.NewCounter(prometheus.CounterOpts{
			Name: "scout_transcripts_fetched_total",
			Help: "Number of transcripts successfully acquired.",
		}),
		LLMCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_llm_calls_total",
			Help: "LLM gateway calls by prompt template and outcome.",
		}, []string{"template", "outcome"}),
		FallbackRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "scout_fallback_runs_total",
			Help: "Pipeline runs that used the heuristic fallback selector.",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scout_pipeline_run_duration_seconds",
			Help:    "Wall-clock duration of full pipeline runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}
