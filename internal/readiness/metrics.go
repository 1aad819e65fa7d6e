package readiness

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readyrun_readiness_evaluations_total",
		Help: "Readiness evaluations served, by resulting status.",
	}, []string{"status"})

	evaluationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "readyrun_readiness_evaluation_errors_total",
		Help: "Readiness evaluations that failed on malformed log data.",
	})

	degradedReads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "readyrun_readiness_degraded_reads_total",
		Help: "Scoring calls that fell back to an empty log after a store read failure.",
	})
)
