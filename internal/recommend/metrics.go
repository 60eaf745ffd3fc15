package recommend

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the orchestrator's Prometheus collectors.
type Metrics struct {
	Requests     *prometheus.CounterVec
	CacheLookups *prometheus.CounterVec
	ModelCalls   *prometheus.CounterVec
	Dropped      *prometheus.CounterVec
	ParserStages *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "azadi",
			Name:      "recommend_requests_total",
			Help:      "Recommendation requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "azadi",
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by kind and result.",
		}, []string{"kind", "result"}),
		ModelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "azadi",
			Name:      "model_calls_total",
			Help:      "Generative model calls by kind, call and outcome.",
		}, []string{"kind", "call", "outcome"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "azadi",
			Name:      "records_dropped_total",
			Help:      "Model records dropped by the verification filter.",
		}, []string{"kind", "reason"}),
		ParserStages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "azadi",
			Name:      "parser_stage_total",
			Help:      "Which parser step recovered records.",
		}, []string{"kind", "stage"}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.CacheLookups, m.ModelCalls, m.Dropped, m.ParserStages)
	}
	return m
}
