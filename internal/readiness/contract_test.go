package readiness

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/readyrun/readyrun/internal/event"
	"github.com/readyrun/readyrun/pkg/plugin"
	"github.com/readyrun/readyrun/pkg/plugin/plugintest"
	"github.com/readyrun/readyrun/pkg/training"
)

// sourcePlugin satisfies both plugin.Plugin and EntrySource, standing in
// for the trainlog module during lifecycle tests.
type sourcePlugin struct {
	entries []training.LogEntry
}

func (p *sourcePlugin) Info() plugin.PluginInfo {
	return plugin.PluginInfo{Name: "trainlog", Version: "1.0.0", APIVersion: plugin.APIVersionCurrent}
}
func (p *sourcePlugin) Init(ctx context.Context, deps plugin.Dependencies) error { return nil }
func (p *sourcePlugin) Start(ctx context.Context) error                          { return nil }
func (p *sourcePlugin) Stop(ctx context.Context) error                           { return nil }
func (p *sourcePlugin) Entries(ctx context.Context) ([]training.LogEntry, error) {
	return p.entries, nil
}

type stubResolver map[string]plugin.Plugin

func (r stubResolver) Resolve(name string) (plugin.Plugin, bool) {
	p, ok := r[name]
	return p, ok
}

func TestContract(t *testing.T) {
	plugintest.TestPluginContract(t,
		func() plugin.Plugin { return New() },
		func(t *testing.T) plugin.Dependencies {
			t.Helper()
			return plugin.Dependencies{
				Logger:  zap.NewNop(),
				Bus:     event.NewBus(zap.NewNop()),
				Plugins: stubResolver{"trainlog": &sourcePlugin{}},
			}
		})
}

func TestInitWithoutTrainlogFails(t *testing.T) {
	m := New()
	err := m.Init(context.Background(), plugin.Dependencies{
		Logger:  zap.NewNop(),
		Plugins: stubResolver{},
	})
	if err == nil {
		t.Fatal("Init() without the trainlog module should fail")
	}
}
