package readiness

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/readyrun/readyrun/internal/server"
	"github.com/readyrun/readyrun/pkg/plugin"
	"github.com/readyrun/readyrun/pkg/training"
)

// todayRHR validation bounds at the HTTP boundary. The analyzer itself
// accepts any value.
const (
	minTodayRHR = 30
	maxTodayRHR = 100
)

type scoreResponse struct {
	*training.Result
	TodayRHR    int       `json:"today_rhr"`
	Degraded    bool      `json:"degraded,omitempty"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// handleScore serves GET /api/v1/readiness/score?today_rhr=NN.
//
// An unreadable store degrades to the empty-log result with the degraded
// flag set; malformed stored entries fail the call outright so the bad row
// gets fixed instead of silently skewing every baseline.
func (m *Module) handleScore(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("today_rhr")
	if raw == "" {
		server.BadRequest(w, "today_rhr query parameter is required", r.URL.Path)
		return
	}
	todayRHR, err := strconv.Atoi(raw)
	if err != nil || todayRHR < minTodayRHR || todayRHR > maxTodayRHR {
		server.BadRequest(w, "today_rhr must be an integer between 30 and 100", r.URL.Path)
		return
	}

	log, degraded := m.readLog(r.Context())

	result, err := m.analyzer.Analyze(log, todayRHR)
	if err != nil {
		evaluationErrors.Inc()
		if errors.Is(err, ErrMalformedEntry) {
			m.logger.Error("stored log entry is malformed", zap.Error(err))
			server.InternalError(w, err.Error(), r.URL.Path)
			return
		}
		server.InternalError(w, "readiness analysis failed", r.URL.Path)
		return
	}

	evaluationsTotal.WithLabelValues(string(result.Status)).Inc()
	m.bus.PublishAsync(r.Context(), plugin.Event{
		Topic:  TopicEvaluated,
		Source: ModuleName,
		Payload: EvaluatedPayload{
			Score:    result.Score,
			Status:   string(result.Status),
			TodayRHR: todayRHR,
			Warnings: result.Warnings,
		},
	})

	writeJSON(w, http.StatusOK, scoreResponse{
		Result:      result,
		TodayRHR:    todayRHR,
		Degraded:    degraded,
		EvaluatedAt: time.Now().UTC(),
	})
}

// handleTrend serves GET /api/v1/readiness/trend: the date-keyed ACWR, RHR
// and load series for charting.
func (m *Module) handleTrend(w http.ResponseWriter, r *http.Request) {
	log, degraded := m.readLog(r.Context())

	points, err := m.analyzer.Trend(log)
	if err != nil {
		evaluationErrors.Inc()
		server.InternalError(w, err.Error(), r.URL.Path)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"points":   points,
		"degraded": degraded,
	})
}

// readLog fetches the full training log, degrading to an empty log when
// the store is unreadable. The second return reports the degradation.
func (m *Module) readLog(ctx context.Context) ([]training.LogEntry, bool) {
	log, err := m.source.Entries(ctx)
	if err != nil {
		degradedReads.Inc()
		m.logger.Warn("log store unreadable, scoring empty log", zap.Error(err))
		return nil, true
	}
	return log, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
