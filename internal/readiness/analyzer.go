// Package readiness implements the training-readiness analyzer: rolling
// load and RHR statistics over the training log, a fixed sequence of
// penalty rules, and the composite score with its tri-state status.
package readiness

import (
	"errors"
	"fmt"
	"sort"

	"github.com/readyrun/readyrun/internal/readiness/stats"
	"github.com/readyrun/readyrun/pkg/training"
)

// ErrMalformedEntry reports a structurally invalid log entry. The analysis
// fails as a whole rather than skipping or zero-filling the entry, since
// either would corrupt the rolling baselines for every later entry.
var ErrMalformedEntry = errors.New("malformed log entry")

// Recommendations per status, surfaced alongside the score.
const (
	RecommendGreen  = "quality session OK"
	RecommendYellow = "easy jog only"
	RecommendRed    = "full rest"
)

// WarningNoData is the single informational warning for an empty log.
const WarningNoData = "no training data yet: log a few sessions to begin scoring"

// Analyzer computes readiness results. It is stateless apart from its
// thresholds and safe for concurrent use; every call derives everything
// from scratch.
type Analyzer struct {
	cfg   Config
	rules []Rule
}

// NewAnalyzer builds an analyzer with the given thresholds.
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg, rules: defaultRules(cfg)}
}

// Analyze scores today's readiness from the full training log and today's
// resting heart rate. The log may arrive in any order; entries are sorted
// by date before windowing. An empty log scores 100 GREEN with a single
// informational warning.
func (a *Analyzer) Analyze(log []training.LogEntry, todayRHR int) (*training.Result, error) {
	if len(log) == 0 {
		return &training.Result{
			Score:          100,
			Status:         training.StatusGreen,
			Recommendation: RecommendGreen,
			Warnings:       []string{WarningNoData},
			AnnotatedLog:   []training.AnnotatedEntry{},
		}, nil
	}

	annotated, err := a.Annotate(log)
	if err != nil {
		return nil, err
	}

	last := annotated[len(annotated)-1]
	score := 100
	warnings := make([]string, 0, len(a.rules))
	for _, rule := range a.rules {
		if penalty, warning, fired := rule.Evaluate(last.LogEntry, last.Metrics, todayRHR); fired {
			score -= penalty
			warnings = append(warnings, warning)
		}
	}

	status := statusFor(score)
	return &training.Result{
		Score:          score,
		Status:         status,
		Recommendation: recommendationFor(status),
		Warnings:       warnings,
		AnnotatedLog:   annotated,
	}, nil
}

// Annotate validates the log, sorts it by date ascending, and attaches the
// rolling metrics to every entry.
func (a *Analyzer) Annotate(log []training.LogEntry) ([]training.AnnotatedEntry, error) {
	sorted := make([]training.LogEntry, len(log))
	copy(sorted, log)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	for _, e := range sorted {
		if err := validateEntry(e); err != nil {
			return nil, err
		}
	}

	loads := make([]float64, len(sorted))
	rhrs := make([]float64, len(sorted))
	for i, e := range sorted {
		loads[i] = e.DistanceKm * e.PerceivedExertion
		rhrs[i] = float64(e.RestingHR)
	}

	annotated := make([]training.AnnotatedEntry, len(sorted))
	for i, e := range sorted {
		m := training.Metrics{
			Load:        loads[i],
			AcuteLoad:   stats.TrailingMean(loads, i, a.cfg.AcuteWindow),
			ChronicLoad: stats.TrailingMean(loads, i, a.cfg.ChronicWindow),
			RHRMean:     stats.TrailingMean(rhrs, i, a.cfg.RHRWindow),
		}
		// Zero or undefined chronic load means the ratio carries no
		// signal; define it as 0 rather than dividing.
		if m.ChronicLoad > 0 {
			m.ACWR = m.AcuteLoad / m.ChronicLoad
		}
		if std, ok := stats.TrailingSampleStd(rhrs, i, a.cfg.RHRWindow); ok {
			m.RHRStd = &std
		}
		annotated[i] = training.AnnotatedEntry{LogEntry: e, Metrics: m}
	}
	return annotated, nil
}

// Trend derives the date-keyed chart series from the annotated log.
func (a *Analyzer) Trend(log []training.LogEntry) ([]training.TrendPoint, error) {
	annotated, err := a.Annotate(log)
	if err != nil {
		return nil, err
	}
	points := make([]training.TrendPoint, len(annotated))
	for i, e := range annotated {
		points[i] = training.TrendPoint{
			Date:      e.Day(),
			ACWR:      e.Metrics.ACWR,
			RestingHR: e.RestingHR,
			Load:      e.Metrics.Load,
		}
	}
	return points, nil
}

func validateEntry(e training.LogEntry) error {
	switch {
	case e.Date.IsZero():
		return fmt.Errorf("%w: entry has no date", ErrMalformedEntry)
	case e.RestingHR <= 0:
		return fmt.Errorf("%w: entry %s has non-positive resting HR %d", ErrMalformedEntry, e.Day(), e.RestingHR)
	case e.DistanceKm < 0:
		return fmt.Errorf("%w: entry %s has negative distance %.2f", ErrMalformedEntry, e.Day(), e.DistanceKm)
	case e.PerceivedExertion < 0:
		return fmt.Errorf("%w: entry %s has negative RPE %.1f", ErrMalformedEntry, e.Day(), e.PerceivedExertion)
	case !training.ValidSessionTypes[e.Session]:
		return fmt.Errorf("%w: entry %s has unknown session type %q", ErrMalformedEntry, e.Day(), e.Session)
	}
	return nil
}

func statusFor(score int) training.Status {
	switch {
	case score < 50:
		return training.StatusRed
	case score < 80:
		return training.StatusYellow
	default:
		return training.StatusGreen
	}
}

func recommendationFor(status training.Status) string {
	switch status {
	case training.StatusRed:
		return RecommendRed
	case training.StatusYellow:
		return RecommendYellow
	default:
		return RecommendGreen
	}
}
