// Package metrics exposes workflow counters on a private Prometheus
// registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	registry         *prometheus.Registry
	workflowResults  *prometheus.CounterVec
	quoteSources     *prometheus.CounterVec
	submissionsTotal *prometheus.CounterVec
}

func New() *Registry {
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pilot_workflow_results_total",
		Help: "Workflow invocations by intent and final status",
	}, []string{"intent", "status"})

	sources := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pilot_quote_source_total",
		Help: "Quote source outcomes",
	}, []string{"source", "result"})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pilot_submissions_total",
		Help: "Transactions handed to the signer by kind and result",
	}, []string{"kind", "result"})

	r := prometheus.NewRegistry()
	r.MustRegister(results, sources, submissions)

	return &Registry{
		registry:         r,
		workflowResults:  results,
		quoteSources:     sources,
		submissionsTotal: submissions,
	}
}

func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Registry) ObserveResult(intent, status string) {
	m.workflowResults.WithLabelValues(intent, status).Inc()
}

func (m *Registry) ObserveQuote(source, result string) {
	m.quoteSources.WithLabelValues(source, result).Inc()
}

func (m *Registry) ObserveSubmission(kind, result string) {
	m.submissionsTotal.WithLabelValues(kind, result).Inc()
}
