package readiness

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/readyrun/readyrun/pkg/plugin"
	"github.com/readyrun/readyrun/pkg/training"
)

// ModuleName is the registry identifier.
const ModuleName = "readiness"

// EntrySource is the read surface readiness needs from the log-keeping
// module. trainlog implements it.
type EntrySource interface {
	Entries(ctx context.Context) ([]training.LogEntry, error)
}

// Module is the readiness plugin. It depends on trainlog for log reads and
// keeps no state of its own beyond the configured analyzer.
type Module struct {
	logger   *zap.Logger
	bus      plugin.EventBus
	analyzer *Analyzer
	source   EntrySource
}

// New creates the readiness module.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         ModuleName,
		Version:      "1.0.0",
		Description:  "Daily training-readiness scoring from load ratio and RHR baseline",
		Dependencies: []string{"trainlog"},
		Required:     true,
		APIVersion:   plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus

	cfg := configFrom(deps.Config)
	m.analyzer = NewAnalyzer(cfg)

	p, ok := deps.Plugins.Resolve("trainlog")
	if !ok {
		return fmt.Errorf("readiness: trainlog module not available")
	}
	source, ok := p.(EntrySource)
	if !ok {
		return fmt.Errorf("readiness: trainlog module does not expose entry reads")
	}
	m.source = source

	m.logger.Info("readiness module initialized",
		zap.Int("acute_window", cfg.AcuteWindow),
		zap.Int("chronic_window", cfg.ChronicWindow),
		zap.Int("rhr_window", cfg.RHRWindow))
	return nil
}

func (m *Module) Start(ctx context.Context) error { return nil }

func (m *Module) Stop(ctx context.Context) error { return nil }

// ValidateConfig rejects threshold combinations that would invert the
// warn/critical bands.
func (m *Module) ValidateConfig() error {
	cfg := m.analyzer.cfg
	if cfg.AcuteWindow <= 0 || cfg.ChronicWindow <= 0 || cfg.RHRWindow <= 0 {
		return fmt.Errorf("readiness: window sizes must be positive")
	}
	if cfg.AcuteWindow >= cfg.ChronicWindow {
		return fmt.Errorf("readiness: acute window %d must be shorter than chronic window %d",
			cfg.AcuteWindow, cfg.ChronicWindow)
	}
	if cfg.RHRWarnSigma >= cfg.RHRCriticalSigma {
		return fmt.Errorf("readiness: rhr_warn_sigma %.2f must be below rhr_critical_sigma %.2f",
			cfg.RHRWarnSigma, cfg.RHRCriticalSigma)
	}
	if cfg.ACWRWarn >= cfg.ACWRCritical {
		return fmt.Errorf("readiness: acwr_warn %.2f must be below acwr_critical %.2f",
			cfg.ACWRWarn, cfg.ACWRCritical)
	}
	return nil
}

// Routes exposes the scoring and trend endpoints, mounted under
// /api/v1/readiness/.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/score", Handler: m.handleScore},
		{Method: "GET", Path: "/trend", Handler: m.handleTrend},
	}
}

// Health reports healthy as long as the entry source is wired.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	if m.source == nil {
		return plugin.HealthStatus{Status: "unhealthy", Message: "no entry source"}
	}
	if _, err := m.source.Entries(ctx); err != nil {
		return plugin.HealthStatus{
			Status:  "degraded",
			Message: "log store unreadable, scoring falls back to empty log",
			Details: map[string]string{"error": err.Error()},
		}
	}
	return plugin.HealthStatus{Status: "healthy"}
}
