// Package plugintest provides a shared contract suite that verifies any
// plugin.Plugin implementation honors the module lifecycle. Each module's
// test file calls TestPluginContract to ensure conformance.
package plugintest

import (
	"context"
	"testing"

	"github.com/readyrun/readyrun/pkg/plugin"
)

// TestPluginContract runs behavioral checks against a module implementation.
// deps is invoked once per subtest so every check starts from fresh
// dependencies (store, bus, resolver):
//
//	func TestContract(t *testing.T) {
//	    plugintest.TestPluginContract(t,
//	        func() plugin.Plugin { return trainlog.New() },
//	        func(t *testing.T) plugin.Dependencies { ... })
//	}
func TestPluginContract(t *testing.T, factory func() plugin.Plugin, deps func(t *testing.T) plugin.Dependencies) {
	t.Helper()

	t.Run("Info_returns_valid_metadata", func(t *testing.T) {
		p := factory()
		info := p.Info()
		if info.Name == "" {
			t.Error("Info().Name must not be empty")
		}
		if info.Version == "" {
			t.Error("Info().Version must not be empty")
		}
		if info.APIVersion < plugin.APIVersionMin || info.APIVersion > plugin.APIVersionCurrent {
			t.Errorf("Info().APIVersion = %d, outside supported range %d..%d",
				info.APIVersion, plugin.APIVersionMin, plugin.APIVersionCurrent)
		}
	})

	t.Run("Init_succeeds_with_valid_deps", func(t *testing.T) {
		p := factory()
		if err := p.Init(context.Background(), deps(t)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
	})

	t.Run("Start_after_Init", func(t *testing.T) {
		p := factory()
		if err := p.Init(context.Background(), deps(t)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if err := p.Start(context.Background()); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if err := p.Stop(context.Background()); err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
	})

	t.Run("Stop_without_Start_does_not_error", func(t *testing.T) {
		p := factory()
		if err := p.Init(context.Background(), deps(t)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if err := p.Stop(context.Background()); err != nil {
			t.Fatalf("Stop() without Start error = %v", err)
		}
	})

	t.Run("Info_is_idempotent", func(t *testing.T) {
		p := factory()
		a, b := p.Info(), p.Info()
		if a.Name != b.Name || a.Version != b.Version || a.APIVersion != b.APIVersion {
			t.Error("Info() must return consistent results")
		}
	})
}
