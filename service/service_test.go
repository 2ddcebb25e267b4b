package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/pharmadesk/config"
	"github.com/timzifer/pharmadesk/pages"
	"github.com/timzifer/pharmadesk/runtime/bridge"
	"github.com/timzifer/pharmadesk/session"
)

type fakeAPI struct {
	mu      sync.Mutex
	auth    []string
	healthy bool
}

func (a *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.auth = append(a.auth, r.Header.Get("Authorization"))
	healthy := a.healthy
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/auth/login":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"token": "tok", "email": "owner@pharma.sy", "role": "warehouse"},
		})
	case r.Method == http.MethodGet && r.URL.Path == "/api/suppliers":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":         []map[string]any{{"id": 1, "name": "Ibn Sina", "location": "Damascus"}},
			"totalRecords": 1,
		})
	case r.URL.Path == "/api/health":
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_, _ = w.Write([]byte(`{}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"not found"}`))
	}
}

func (a *fakeAPI) lastAuth() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.auth) == 0 {
		return ""
	}
	return a.auth[len(a.auth)-1]
}

type testService struct {
	*Service
	api     *fakeAPI
	console *Console
	out     *bytes.Buffer
}

func newTestService(t *testing.T, mutate func(*config.Config)) *testService {
	t.Helper()
	api := &fakeAPI{healthy: true}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Backend.BaseURL = srv.URL + "/api"
	cfg.Backend.Retry.MaxRetries = 0
	cfg.Session.File = filepath.Join(t.TempDir(), "session.json")
	cfg.Inspector.Listen = "127.0.0.1:0"
	if mutate != nil {
		mutate(cfg)
	}

	out := &bytes.Buffer{}
	console := NewConsole(out, zerolog.Nop())
	svc, err := New(cfg, zerolog.Nop(), WithRouter(console), WithNotifier(console))
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return &testService{Service: svc, api: api, console: console, out: out}
}

func (ts *testService) await(t *testing.T, name string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := ts.Await(ctx, name)
	require.NoError(t, err)
}

func (ts *testService) inspector() http.Handler {
	return (&inspectorServer{logger: zerolog.Nop(), service: ts.Service}).handler()
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLoginPersistsSessionAndAuthorisesLaterCalls(t *testing.T) {
	ts := newTestService(t, nil)
	env := ts.Env()

	login := pages.NewLogin(env)
	require.NoError(t, login.Submit("owner@pharma.sy", "s3cretpass"))
	ts.await(t, env.Ops.Login.Name())
	login.Sync()

	require.Equal(t, pages.RouteStores, ts.console.Location())
	require.Contains(t, ts.out.String(), pages.MsgLoggedIn)

	reopened, err := session.Open(ts.Config().Session.File)
	require.NoError(t, err)
	current, ok := reopened.Current()
	require.True(t, ok)
	require.Equal(t, "tok", current.Token)

	suppliers := pages.NewSuppliers(env)
	suppliers.Sync()
	ts.await(t, env.Ops.Suppliers.Name())
	view := suppliers.Render()
	require.Len(t, view.Rows, 1)
	require.Equal(t, "Bearer tok", ts.api.lastAuth())
}

func TestInspectorListsOperations(t *testing.T) {
	ts := newTestService(t, nil)
	env := ts.Env()
	bridge.Dispatch(env.Dispatcher, env.Ops.Suppliers, "")
	ts.await(t, env.Ops.Suppliers.Name())

	handler := ts.inspector()
	var resp operationsResponse
	require.Eventually(t, func() bool {
		rec := serve(handler, http.MethodGet, "/api/operations", "")
		if rec.Code != http.StatusOK {
			return false
		}
		resp = operationsResponse{}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			return false
		}
		for _, op := range resp.Operations {
			if op.Key == env.Ops.Suppliers.Name() {
				return op.Transitions == 2
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	require.Len(t, resp.Operations, len(env.Ops.Names()))
	for _, op := range resp.Operations {
		if op.Key != env.Ops.Suppliers.Name() {
			continue
		}
		require.Equal(t, "succeeded", op.Status)
		require.True(t, op.HasData)
		require.Equal(t, uint64(1), op.Generation)
	}
	require.Len(t, resp.Recent, 2)
	require.Equal(t, "succeeded", resp.Recent[0].Status)
	require.Equal(t, "loading", resp.Recent[1].Status)
	require.Positive(t, resp.Dispatch.Workers)

	rec := serve(handler, http.MethodPost, "/api/operations", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestInspectorResetsOperation(t *testing.T) {
	ts := newTestService(t, nil)
	env := ts.Env()
	bridge.Dispatch(env.Dispatcher, env.Ops.Suppliers, "")
	ts.await(t, env.Ops.Suppliers.Name())
	handler := ts.inspector()

	rec := serve(handler, http.MethodPost, "/api/operations/unknown/reset", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = serve(handler, http.MethodGet, "/api/operations/suppliers/reset", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	rec = serve(handler, http.MethodPost, "/api/operations/suppliers/reset", "{")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(handler, http.MethodPost, "/api/operations/suppliers/reset", `{"clear_data":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var state operationState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.Equal(t, "idle", state.Status)
	require.False(t, state.HasData)

	_, ok := bridge.SelectData(env.Dispatcher.View(), env.Ops.Suppliers.Key)
	require.False(t, ok)
}

func TestInspectorIndexAndReadiness(t *testing.T) {
	ts := newTestService(t, func(cfg *config.Config) {
		cfg.Backend.HealthPath = "/health"
		cfg.Inspector.MaxGoroutines = 100000
	})
	handler := ts.inspector()

	rec := serve(handler, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Pharmadesk Operations")
	require.NotContains(t, rec.Body.String(), `href="/metrics"`)
	require.Equal(t, http.StatusNotFound, serve(handler, http.MethodGet, "/nope", "").Code)

	require.Equal(t, http.StatusOK, serve(handler, http.MethodGet, "/live", "").Code)
	require.Equal(t, http.StatusOK, serve(handler, http.MethodGet, "/ready", "").Code)

	ts.api.mu.Lock()
	ts.api.healthy = false
	ts.api.mu.Unlock()
	require.Equal(t, http.StatusServiceUnavailable, serve(handler, http.MethodGet, "/ready", "").Code)
}

func TestInspectorExposesMetricsWhenEnabled(t *testing.T) {
	ts := newTestService(t, func(cfg *config.Config) { cfg.Telemetry.Enabled = true })
	env := ts.Env()
	bridge.Dispatch(env.Dispatcher, env.Ops.Suppliers, "")
	ts.await(t, env.Ops.Suppliers.Name())

	rec := serve(ts.inspector(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "pharmadesk_operation_transitions_total")
	require.Contains(t, body, "pharmadesk_remote_request_duration_seconds")
}

func TestStartInspectorServesHealth(t *testing.T) {
	ts := newTestService(t, nil)
	addr, err := ts.StartInspector()
	require.NoError(t, err)
	again, err := ts.StartInspector()
	require.NoError(t, err)
	require.Equal(t, addr, again)

	resp, err := http.Get("http://" + addr + "/live")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ts.Close()
	_, err = http.Get("http://" + addr + "/live")
	require.Error(t, err)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.BaseURL = "ftp://example.com"
	_, err := New(cfg, zerolog.Nop())
	require.Error(t, err)
}
