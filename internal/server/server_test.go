package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/readyrun/readyrun/pkg/plugin"
	"go.uber.org/zap"
)

// fakeModules implements ModuleSource for server tests.
type fakeModules struct {
	routes map[string][]plugin.Route
	all    []plugin.Plugin
}

func (f *fakeModules) AllRoutes() map[string][]plugin.Route { return f.routes }
func (f *fakeModules) All() []plugin.Plugin                 { return f.all }

type fakeModule struct {
	name string
}

func (m *fakeModule) Info() plugin.PluginInfo {
	return plugin.PluginInfo{Name: m.name, Version: "0.1.0", Description: "test module"}
}
func (m *fakeModule) Init(context.Context, plugin.Dependencies) error { return nil }
func (m *fakeModule) Start(context.Context) error                     { return nil }
func (m *fakeModule) Stop(context.Context) error                      { return nil }

func newTestServer(t *testing.T, ready ReadinessChecker) *Server {
	t.Helper()
	mods := &fakeModules{
		routes: map[string][]plugin.Route{
			"readiness": {
				{Method: "GET", Path: "/score", Handler: func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusOK)
				}},
			},
		},
		all: []plugin.Plugin{&fakeModule{name: "readiness"}},
	}
	return New("127.0.0.1:0", mods, zap.NewNop(), ready, nil)
}

func TestHandleHealthz(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestHandleReadyz_NotReady(t *testing.T) {
	s := newTestServer(t, func(context.Context) error {
		return errors.New("database unreachable")
	})

	req := httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestHandleReadyz_Ready(t *testing.T) {
	s := newTestServer(t, func(context.Context) error { return nil })

	req := httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestHandleModules_ListsRegistered(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/modules", http.NoBody)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var got []ModuleResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 1 || got[0].Name != "readiness" {
		t.Errorf("modules = %+v, want one entry named readiness", got)
	}
}

func TestModuleRoutesMounted(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/readiness/score", http.NoBody)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("module route status = %d, want %d", w.Code, http.StatusOK)
	}
}
