package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks pipeline guardrail activity. Labels carry rule and reason
// IDs only, never content.
type Metrics struct {
	promptsBlocked    *prometheus.CounterVec
	chunksDropped     *prometheus.CounterVec
	redactionFindings *prometheus.CounterVec
	redactionFailures prometheus.Counter
	answers           *prometheus.CounterVec
	documentsIngested prometheus.Counter
	chunksIngested    prometheus.Counter
}

// NewMetrics creates pipeline metrics registered with reg.
// A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		promptsBlocked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "evidenced_prompts_blocked_total",
			Help: "Prompts rejected by the gate, by reason code.",
		}, []string{"reason"}),
		chunksDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "evidenced_chunks_dropped_total",
			Help: "Retrieved chunks dropped by policy, by cause.",
		}, []string{"cause"}),
		redactionFindings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "evidenced_redaction_findings_total",
			Help: "Values redacted from answers, by rule ID.",
		}, []string{"rule"}),
		redactionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "evidenced_redaction_failures_total",
			Help: "Answers replaced wholesale because redaction failed.",
		}),
		answers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "evidenced_answers_total",
			Help: "Answers produced, by outcome.",
		}, []string{"outcome"}),
		documentsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "evidenced_documents_ingested_total",
			Help: "Documents accepted by ingest.",
		}),
		chunksIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "evidenced_chunks_ingested_total",
			Help: "Chunks written to the vector store by ingest.",
		}),
	}
}
