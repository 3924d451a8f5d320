package protocol

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts rule set cache activity and header validation outcomes.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	Builds             *prometheus.CounterVec
	Validations        *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bft",
			Subsystem: "ruleset",
			Name:      "cache_hits_total",
			Help:      "Rule set lookups served from the cache",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bft",
			Subsystem: "ruleset",
			Name:      "cache_misses_total",
			Help:      "Rule set lookups for options not seen before",
		}),
		Builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bft",
			Subsystem: "ruleset",
			Name:      "builds_total",
			Help:      "Rule set builds by result",
		}, []string{"result"}),
		Validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bft",
			Subsystem: "header",
			Name:      "validations_total",
			Help:      "Header validations by result",
		}, []string{"result"}),
		ValidationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bft",
			Subsystem: "header",
			Name:      "rule_failures_total",
			Help:      "Header rule violations by rule",
		}, []string{"rule"}),
	}
	if reg != nil {
		reg.MustRegister(m.CacheHits, m.CacheMisses, m.Builds, m.Validations, m.ValidationFailures)
	}
	return m
}

func (m *Metrics) lookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
	} else {
		m.CacheMisses.Inc()
	}
}

func (m *Metrics) built(err error) {
	if m == nil {
		return
	}
	m.Builds.WithLabelValues(resultLabel(err == nil)).Inc()
}

func (m *Metrics) validated(valid bool, failedRules []string) {
	if m == nil {
		return
	}
	m.Validations.WithLabelValues(resultLabel(valid)).Inc()
	for _, r := range failedRules {
		m.ValidationFailures.WithLabelValues(r).Inc()
	}
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
