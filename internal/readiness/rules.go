package readiness

import (
	"fmt"

	"github.com/readyrun/readyrun/internal/readiness/stats"
	"github.com/readyrun/readyrun/pkg/training"
)

// Rule is one independent penalty heuristic. Rules are pure: they inspect
// the most recent entry plus today's RHR and either fire once with a
// penalty and warning, or stay silent. Rules are applied in a fixed order
// and their warnings appear in that order.
type Rule struct {
	Name     string
	Evaluate func(last training.LogEntry, m training.Metrics, todayRHR int) (penalty int, warning string, fired bool)
}

// defaultRules returns the evaluation sequence: RHR anomaly, then load
// ratio, then neural recovery. The two branches inside the RHR and ACWR
// rules are mutually exclusive; across rules the penalties stack.
func defaultRules(cfg Config) []Rule {
	return []Rule{
		rhrAnomalyRule(cfg),
		loadRatioRule(cfg),
		neuralRecoveryRule(),
	}
}

// rhrAnomalyRule penalizes a resting HR well above the rolling baseline.
// It only evaluates once the baseline deviation is defined and positive,
// and it is one-sided: an unusually low RHR never fires.
func rhrAnomalyRule(cfg Config) Rule {
	return Rule{
		Name: "rhr_anomaly",
		Evaluate: func(_ training.LogEntry, m training.Metrics, todayRHR int) (int, string, bool) {
			if m.RHRStd == nil || *m.RHRStd <= 0 {
				return 0, "", false
			}
			z := stats.ZScore(float64(todayRHR), m.RHRMean, *m.RHRStd)
			switch {
			case z > cfg.RHRCriticalSigma:
				return 40, fmt.Sprintf("severe RHR anomaly: today's %d bpm is far above your recent baseline", todayRHR), true
			case z > cfg.RHRWarnSigma:
				return 20, fmt.Sprintf("elevated RHR: today's %d bpm is above your recent baseline", todayRHR), true
			}
			return 0, "", false
		},
	}
}

// loadRatioRule penalizes an acute:chronic workload ratio that outruns the
// established training base.
func loadRatioRule(cfg Config) Rule {
	return Rule{
		Name: "load_ratio",
		Evaluate: func(_ training.LogEntry, m training.Metrics, _ int) (int, string, bool) {
			switch {
			case m.ACWR > cfg.ACWRCritical:
				return 30, fmt.Sprintf("high injury risk (ACWR %.2f)", m.ACWR), true
			case m.ACWR > cfg.ACWRWarn:
				return 10, fmt.Sprintf("rapid load increase (ACWR %.2f)", m.ACWR), true
			}
			return 0, "", false
		},
	}
}

// neuralRecoveryRule advises an easy day after an anaerobic session.
func neuralRecoveryRule() Rule {
	return Rule{
		Name: "neural_recovery",
		Evaluate: func(last training.LogEntry, _ training.Metrics, _ int) (int, string, bool) {
			if last.Session != training.SessionAnaerobic {
				return 0, "", false
			}
			return 10, "anaerobic session logged last: CNS recovery favors an easy jog or rest today", true
		},
	}
}
