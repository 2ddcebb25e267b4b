package service

import (
	"context"
	"encoding/json"
	"html/template"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type inspectorServer struct {
	logger  zerolog.Logger
	service *Service
	server  *http.Server
	ln      net.Listener
}

type operationsResponse struct {
	Operations []operationState  `json:"operations"`
	Recent     []transitionEvent `json:"recent"`
	Dispatch   dispatchInfo      `json:"dispatch"`
}

type operationState struct {
	Key         string     `json:"key"`
	Status      string     `json:"status"`
	HasData     bool       `json:"has_data"`
	Error       string     `json:"error,omitempty"`
	Generation  uint64     `json:"generation"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	Transitions uint64     `json:"transitions"`
	Failures    uint64     `json:"failures"`
}

type dispatchInfo struct {
	Workers int    `json:"workers"`
	Running int    `json:"running"`
	Pending int    `json:"pending"`
	Dropped uint64 `json:"dropped_updates"`
}

type resetRequest struct {
	ClearData bool `json:"clear_data"`
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// handler builds the inspector routes.
func (s *inspectorServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/operations", s.handleOperations)
	mux.HandleFunc("/api/operations/", s.handleReset)
	mux.HandleFunc("/live", s.service.health.LiveEndpoint)
	mux.HandleFunc("/ready", s.service.health.ReadyEndpoint)
	if s.service.telemetry {
		mux.Handle("/metrics", promhttp.Handler())
	}
	return mux
}

func newInspectorServer(listen string, svc *Service, logger zerolog.Logger) (*inspectorServer, error) {
	server := &inspectorServer{logger: logger, service: svc}
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{Handler: server.handler(), ReadHeaderTimeout: 5 * time.Second}
	server.server = srv
	server.ln = ln

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("inspector stopped")
		}
	}()

	logger.Info().Str("listen", ln.Addr().String()).Msg("inspector started")
	return server, nil
}

func (s *inspectorServer) addr() string {
	if s == nil || s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *inspectorServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := inspectorTemplate.Execute(w, s.service.telemetry); err != nil {
		s.logger.Error().Err(err).Msg("render inspector page")
	}
}

func (s *inspectorServer) handleOperations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	activity := make(map[string]operationActivity)
	for _, entry := range s.service.activity.operations() {
		activity[entry.Key] = entry
	}
	records := s.service.store.Snapshots()
	ops := make([]operationState, 0, len(records))
	for _, rec := range records {
		counters := activity[rec.Key]
		ops = append(ops, operationState{
			Key:         rec.Key,
			Status:      rec.Status.String(),
			HasData:     rec.HasData,
			Error:       rec.Error,
			Generation:  rec.Generation,
			UpdatedAt:   timePtr(rec.UpdatedAt),
			Transitions: counters.Transitions,
			Failures:    counters.Failures,
		})
	}
	dispatcher := s.service.dispatcher
	resp := operationsResponse{
		Operations: ops,
		Recent:     s.service.activity.transitions(),
		Dispatch: dispatchInfo{
			Workers: dispatcher.Capacity(),
			Running: dispatcher.Running(),
			Pending: dispatcher.Pending(),
			Dropped: s.service.activity.dropped(),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error().Err(err).Msg("encode operations")
	}
}

// handleReset serves POST /api/operations/{key}/reset.
func (s *inspectorServer) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/operations/")
	key, ok := strings.CutSuffix(rest, "/reset")
	if !ok || key == "" || strings.Contains(key, "/") {
		http.NotFound(w, r)
		return
	}
	known := false
	for _, rec := range s.service.store.Snapshots() {
		if rec.Key == key {
			known = true
			break
		}
	}
	if !known {
		http.Error(w, "unknown operation", http.StatusNotFound)
		return
	}
	var req resetRequest
	if r.Body != nil && r.ContentLength != 0 {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
	}
	s.service.dispatcher.Reset(key, req.ClearData)
	s.logger.Info().Str("operation", key).Bool("clear_data", req.ClearData).Msg("operation reset")

	rec := s.service.store.Snapshot(key)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(operationState{
		Key:        rec.Key,
		Status:     rec.Status.String(),
		HasData:    rec.HasData,
		Error:      rec.Error,
		Generation: rec.Generation,
		UpdatedAt:  timePtr(rec.UpdatedAt),
	}); err != nil {
		s.logger.Error().Err(err).Msg("encode reset result")
	}
}

func (s *inspectorServer) close() {
	if s == nil || s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil && err != context.Canceled {
		s.logger.Error().Err(err).Msg("shutdown inspector")
	}
}

var inspectorTemplate = template.Must(template.New("inspector").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Pharmadesk Operations</title>
<style>
body { font-family: sans-serif; margin: 2rem; background: #f5f5f5; color: #212121; }
table { border-collapse: collapse; width: 100%; background: #fff; }
th, td { border: 1px solid #ddd; padding: 0.4rem 0.6rem; text-align: left; font-size: 0.9rem; }
th { background: #424242; color: #fff; }
.idle { color: #757575; }
.loading { color: #1e88e5; }
.succeeded { color: #43a047; }
.failed { color: #e53935; }
button { cursor: pointer; }
</style>
</head>
<body>
<h1>Operations</h1>
<p id="dispatch"></p>
<table>
<thead><tr><th>Operation</th><th>Status</th><th>Generation</th><th>Transitions</th><th>Failures</th><th>Error</th><th></th></tr></thead>
<tbody id="operations"></tbody>
</table>
<h2>Recent transitions</h2>
<table>
<thead><tr><th>At</th><th>Operation</th><th>Status</th><th>Generation</th><th>Error</th></tr></thead>
<tbody id="recent"></tbody>
</table>
{{if .}}<p><a href="/metrics">metrics</a></p>{{end}}
<script>
function cell(row, text, cls) {
  const td = document.createElement('td');
  td.textContent = text === undefined ? '' : text;
  if (cls) { td.className = cls; }
  row.appendChild(td);
  return td;
}
async function reset(key) {
  await fetch('/api/operations/' + encodeURIComponent(key) + '/reset', {method: 'POST', body: JSON.stringify({clear_data: true})});
  refresh();
}
async function refresh() {
  const resp = await fetch('/api/operations');
  if (!resp.ok) { return; }
  const state = await resp.json();
  const d = state.dispatch;
  document.getElementById('dispatch').textContent =
    'workers ' + d.workers + ' / running ' + d.running + ' / pending ' + d.pending + ' / dropped updates ' + d.dropped_updates;
  const ops = document.getElementById('operations');
  ops.innerHTML = '';
  for (const op of state.operations) {
    const row = document.createElement('tr');
    cell(row, op.key);
    cell(row, op.status, op.status);
    cell(row, op.generation);
    cell(row, op.transitions);
    cell(row, op.failures);
    cell(row, op.error);
    const btn = document.createElement('button');
    btn.textContent = 'reset';
    btn.onclick = () => reset(op.key);
    cell(row, '').appendChild(btn);
    ops.appendChild(row);
  }
  const recent = document.getElementById('recent');
  recent.innerHTML = '';
  for (const ev of state.recent) {
    const row = document.createElement('tr');
    cell(row, ev.at);
    cell(row, ev.key);
    cell(row, ev.status, ev.status);
    cell(row, ev.generation);
    cell(row, ev.error);
    recent.appendChild(row);
  }
}
refresh();
setInterval(refresh, 1000);
</script>
</body>
</html>
`))
