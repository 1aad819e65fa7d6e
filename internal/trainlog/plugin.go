// Package trainlog is the record-store module: it owns the training_log
// table, the entry submission and listing endpoints, and CSV import/export.
// Other modules read the log through the Entries method.
package trainlog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/readyrun/readyrun/pkg/plugin"
	"github.com/readyrun/readyrun/pkg/training"
)

// ModuleName is the registry identifier.
const ModuleName = "trainlog"

// Module is the trainlog plugin.
type Module struct {
	cfg    Config
	logger *zap.Logger
	bus    plugin.EventBus
	store  *LogStore
}

// New creates the trainlog module.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        ModuleName,
		Version:     "1.0.0",
		Description: "Training log persistence, entry submission and CSV import/export",
		Required:    true,
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus
	m.cfg = configFrom(deps.Config)

	if deps.Store == nil {
		return fmt.Errorf("trainlog: store is required")
	}
	if err := deps.Store.Migrate(ctx, ModuleName, migrations); err != nil {
		return fmt.Errorf("trainlog: migrate: %w", err)
	}
	m.store = NewLogStore(deps.Store.DB())

	m.logger.Info("trainlog module initialized",
		zap.Int("min_resting_hr", m.cfg.MinRestingHR),
		zap.Int("max_resting_hr", m.cfg.MaxRestingHR),
		zap.Float64("max_distance_km", m.cfg.MaxDistanceKm))
	return nil
}

func (m *Module) Start(ctx context.Context) error { return nil }

func (m *Module) Stop(ctx context.Context) error { return nil }

// ValidateConfig rejects inverted or empty validation bounds.
func (m *Module) ValidateConfig() error {
	if m.cfg.MinRestingHR <= 0 || m.cfg.MaxRestingHR <= m.cfg.MinRestingHR {
		return fmt.Errorf("trainlog: resting HR bounds %d..%d are invalid", m.cfg.MinRestingHR, m.cfg.MaxRestingHR)
	}
	if m.cfg.MaxDistanceKm <= 0 {
		return fmt.Errorf("trainlog: max_distance_km must be positive")
	}
	return nil
}

// Entries returns the full log ordered by day ascending. This is the read
// surface the readiness module scores from.
func (m *Module) Entries(ctx context.Context) ([]training.LogEntry, error) {
	return m.store.List(ctx)
}

// Routes exposes the entry endpoints, mounted under /api/v1/trainlog/.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/entries", Handler: m.handleAppend},
		{Method: "GET", Path: "/entries", Handler: m.handleList},
		{Method: "GET", Path: "/entries/export", Handler: m.handleExport},
		{Method: "POST", Path: "/entries/import", Handler: m.handleImport},
	}
}

// Health reports degraded when the table cannot be read.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	n, err := m.store.Count(ctx)
	if err != nil {
		return plugin.HealthStatus{
			Status:  "degraded",
			Message: "training log unreadable",
			Details: map[string]string{"error": err.Error()},
		}
	}
	return plugin.HealthStatus{
		Status:  "healthy",
		Details: map[string]string{"entries": fmt.Sprintf("%d", n)},
	}
}
