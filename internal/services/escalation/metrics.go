package escalation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slakit_escalation_cycles_total",
		Help: "Escalation cycles by outcome (completed, skipped, failed).",
	}, []string{"outcome"})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "slakit_escalation_cycle_duration_seconds",
		Help:    "Wall time of one escalation cycle.",
		Buckets: prometheus.DefBuckets,
	})

	rulesFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slakit_escalation_rules_fired_total",
		Help: "Rule firings by rule name.",
	}, []string{"rule"})

	actionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slakit_escalation_action_failures_total",
		Help: "Failed escalation actions by action name.",
	}, []string{"action"})
)
