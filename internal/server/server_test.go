package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vesaa/hostdash/internal/models"
	"github.com/vesaa/hostdash/internal/recorder"
	"github.com/vesaa/hostdash/internal/store"
	"github.com/vesaa/hostdash/internal/sysmon"
	"github.com/vesaa/hostdash/internal/terminal"
)

// ── fakes ─────────────────────────────────────────────────────────────────────

type recordingShell struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingShell) Home() string { return "/home/test" }

func (r *recordingShell) Execute(_ context.Context, command, cwd string) terminal.Result {
	r.mu.Lock()
	r.calls = append(r.calls, command)
	r.mu.Unlock()
	if command == "cd /tmp" {
		return terminal.Result{Command: command, Cwd: cwd, NewCwd: "/tmp"}
	}
	return terminal.Result{Command: command, Output: "ran " + command, Cwd: cwd, NewCwd: cwd}
}

type fakeProvider struct {
	sampleErr  error
	terminated []int32
	shell      *recordingShell
	conns      int
	history    sysmon.Recorded
}

func (f *fakeProvider) Sample(context.Context) (sysmon.Reading, error) {
	return sysmon.Reading{CPU: 11, RAM: 22, Disk: 33, Swap: 4, At: time.Now()}, f.sampleErr
}

func (f *fakeProvider) Processes(context.Context) ([]sysmon.ProcessSnapshot, error) {
	var out []sysmon.ProcessSnapshot
	for i := 0; i < 15; i++ {
		cpu := float64(i)
		out = append(out, sysmon.ProcessSnapshot{PID: int32(i + 1), Name: fmt.Sprintf("p%d", i), CPU: &cpu})
	}
	return out, nil
}

func (f *fakeProvider) Terminate(_ context.Context, pid int32) sysmon.KillResult {
	f.terminated = append(f.terminated, pid)
	return sysmon.KillResult{PID: pid, Status: sysmon.KillTerminated, Message: "Terminated."}
}

func (f *fakeProvider) Interfaces(context.Context) (map[string][]sysmon.InterfaceAddr, error) {
	return map[string][]sysmon.InterfaceAddr{"lo": {{Address: "127.0.0.1", Netmask: "255.0.0.0", Family: "IPv4"}}}, nil
}

func (f *fakeProvider) Connections(context.Context) ([]sysmon.ConnectionSnapshot, error) {
	out := make([]sysmon.ConnectionSnapshot, f.conns)
	for i := range out {
		out[i] = sysmon.ConnectionSnapshot{FD: uint32(i), Status: "ESTABLISHED", Class: sysmon.ClassEstablished}
	}
	return out, nil
}

func (f *fakeProvider) History(ctx context.Context, n int, _ time.Duration) ([]sysmon.Reading, error) {
	return f.history.Recent(ctx, n)
}

func (f *fakeProvider) Shell() terminal.Executor { return f.shell }
func (f *fakeProvider) Simulated() bool          { return false }

// ── harness ───────────────────────────────────────────────────────────────────

type harness struct {
	t      *testing.T
	srv    *Server
	engine *gin.Engine
	store  *store.Store
	real   *fakeProvider
	demo   bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	_, err = st.CreateUser(ctx, "admin", "secret", true)
	require.NoError(t, err)
	_, err = st.CreateUser(ctx, "viewer", "secret", false)
	require.NoError(t, err)

	h := &harness{t: t, store: st, real: &fakeProvider{
		shell:   &recordingShell{},
		conns:   120,
		history: recorder.History{Store: st, HostName: "Localhost"},
	}}
	sel := &sysmon.Selector{Real: h.real, Demo: sysmon.NewDemo(), DemoMode: func() bool { return h.demo }}
	h.srv = New(Options{JWTSecret: "test-secret", HostName: "Localhost"}, st, sel, terminal.New(terminal.NewSessions(time.Hour)))

	h.engine = gin.New()
	h.engine.Use(RequestMetrics(prometheus.NewRegistry()))
	h.srv.RegisterRoutes(h.engine)
	RegisterStaticFiles(h.engine)
	return h
}

func (h *harness) login(user string) string {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/login", "", map[string]string{"username": user, "password": "secret"})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Token
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// ── auth ──────────────────────────────────────────────────────────────────────

func TestLogin(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/login", "", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, "/api/login", "", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	token := h.login("admin")
	claims, err := h.srv.parseJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.True(t, claims.Superuser)
	assert.NotEmpty(t, claims.SessionID)

	other, err := h.srv.parseJWT(h.login("admin"))
	require.NoError(t, err)
	assert.NotEqual(t, claims.SessionID, other.SessionID, "every login starts a new session")
}

func TestJWTMiddleware(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/processes", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/processes", "garbage", nil).Code)

	other := New(Options{JWTSecret: "another-secret"}, h.store, nil, nil)
	forged, err := other.GenerateJWT("admin", true)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/processes", forged, nil).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/processes?token="+h.login("viewer"), nil)
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthIsPublic(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])
}

// ── metrics ───────────────────────────────────────────────────────────────────

func TestCurrentMetrics(t *testing.T) {
	h := newHarness(t)
	token := h.login("viewer")

	rec := h.do(http.MethodGet, "/api/metrics/current", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, 11.0, body["cpu"])
	assert.Equal(t, 4.0, body["swap"])
	assert.Equal(t, false, body["demo"])

	h.real.sampleErr = errors.New("no /proc")
	rec = h.do(http.MethodGet, "/api/metrics/current", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "metrics unavailable", decode[map[string]any](t, rec)["error"])
}

func TestChartData_OldestFirstCappedAt20(t *testing.T) {
	h := newHarness(t)
	token := h.login("viewer")
	ctx := context.Background()

	rec := h.do(http.MethodGet, "/api/chart-data", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	empty := decode[chartSeries](t, rec)
	assert.NotNil(t, empty.Labels)
	assert.Empty(t, empty.Labels)

	host, err := h.store.EnsureHost(ctx, "Localhost", models.Host{IsActive: true})
	require.NoError(t, err)
	for i := 0; i < 25; i++ {
		require.NoError(t, h.store.Append(ctx, host.ID, &models.Sample{CPUUsage: float64(i), RAMUsage: 50}))
	}

	rec = h.do(http.MethodGet, "/api/chart-data", token, nil)
	series := decode[chartSeries](t, rec)
	require.Len(t, series.CPU, 20)
	require.Len(t, series.Labels, 20)
	assert.Equal(t, 5.0, series.CPU[0])
	assert.Equal(t, 24.0, series.CPU[19])
}

func TestChartData_Demo(t *testing.T) {
	h := newHarness(t)
	token := h.login("viewer")
	h.demo = true

	series := decode[chartSeries](t, h.do(http.MethodGet, "/api/chart-data", token, nil))
	assert.Len(t, series.CPU, 20)
	assert.Len(t, series.RAM, 20)

	dash := decode[map[string]any](t, h.do(http.MethodGet, "/api/dashboard", token, nil))
	assert.Equal(t, true, dash["demo"])
	assert.Equal(t, false, dash["superuser"])
}

func TestMetricsStream(t *testing.T) {
	h := newHarness(t)
	h.srv.opts.StreamInterval = 20 * time.Millisecond
	ts := httptest.NewServer(h.engine)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws/metrics?token=" + h.login("viewer")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 2; i++ {
		var frame map[string]any
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&frame))
		assert.Equal(t, 11.0, frame["cpu"])
	}

	_, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/ws/metrics", nil)
	assert.Error(t, err, "handshake without a token is rejected")
}

// ── inspectors ────────────────────────────────────────────────────────────────

func TestProcesses_Top10(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/api/processes", h.login("viewer"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Data []sysmon.ProcessSnapshot `json:"data"`
	}](t, rec)
	require.Len(t, body.Data, 10)
	assert.Equal(t, 14.0, *body.Data[0].CPU)
}

func TestKill_SuperuserOnly(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/processes/42/kill", h.login("viewer"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, h.real.terminated)

	admin := h.login("admin")
	rec = h.do(http.MethodPost, "/api/processes/abc/kill", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/processes/42/kill", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "terminated", decode[map[string]any](t, rec)["status"])
	assert.Equal(t, []int32{42}, h.real.terminated)
}

func TestKill_DemoBlocked(t *testing.T) {
	h := newHarness(t)
	h.demo = true

	rec := h.do(http.MethodPost, "/api/processes/42/kill", h.login("admin"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "blocked", decode[map[string]any](t, rec)["status"])
	assert.Empty(t, h.real.terminated)
}

func TestNetwork_Capped(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/api/network", h.login("viewer"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Interfaces  map[string][]sysmon.InterfaceAddr `json:"interfaces"`
		Connections []sysmon.ConnectionSnapshot       `json:"connections"`
	}](t, rec)
	assert.Len(t, body.Connections, 50)
	assert.Contains(t, body.Interfaces, "lo")
}

// ── terminal ──────────────────────────────────────────────────────────────────

func TestTerminal_Flow(t *testing.T) {
	h := newHarness(t)
	admin := h.login("admin")

	rec := h.do(http.MethodGet, "/api/terminal", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/home/test", decode[map[string]any](t, rec)["cwd"])

	rec = h.do(http.MethodPost, "/api/terminal/execute", admin, map[string]string{"command": "cd /tmp"})
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[terminal.Result](t, rec)
	assert.Equal(t, "/home/test", res.Cwd)
	assert.Equal(t, "/tmp", res.NewCwd)
	assert.Empty(t, res.Output)

	res = decode[terminal.Result](t, h.do(http.MethodPost, "/api/terminal/execute", admin, map[string]string{"command": "  ls "}))
	assert.Equal(t, "ls", res.Command)
	assert.Equal(t, "/tmp", res.Cwd)
	assert.Equal(t, "ran ls", res.Output)

	// A second login is a separate session.
	rec = h.do(http.MethodGet, "/api/terminal", h.login("admin"), nil)
	assert.Equal(t, "/home/test", decode[map[string]any](t, rec)["cwd"])
}

func TestTerminal_NonSuperuserNeverExecutes(t *testing.T) {
	h := newHarness(t)
	viewer := h.login("viewer")

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/terminal", viewer, nil).Code)
	rec := h.do(http.MethodPost, "/api/terminal/execute", viewer, map[string]string{"command": "rm -rf /"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, h.real.shell.calls)
}

func TestTerminal_Demo(t *testing.T) {
	h := newHarness(t)
	h.demo = true
	admin := h.login("admin")

	res := decode[terminal.Result](t, h.do(http.MethodPost, "/api/terminal/execute", admin, map[string]string{"command": "cat /etc/shadow"}))
	assert.Equal(t, terminal.DemoWarning, res.Output)
	assert.Equal(t, terminal.DemoHome, res.NewCwd)
	assert.Empty(t, h.real.shell.calls)

	// The demo home does not follow the session out of demo mode.
	h.demo = false
	rec := h.do(http.MethodGet, "/api/terminal", admin, nil)
	assert.Equal(t, "/home/test", decode[map[string]any](t, rec)["cwd"])
}

// ── hosts + samples ───────────────────────────────────────────────────────────

func TestHostCRUD(t *testing.T) {
	h := newHarness(t)
	token := h.login("viewer")

	rec := h.do(http.MethodPost, "/api/servers", token, map[string]any{"ip_address": "10.0.0.1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/servers", token, map[string]any{"name": "web-1", "ip_address": "10.0.0.1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[struct {
		Data models.Host `json:"data"`
	}](t, rec).Data
	assert.True(t, created.IsActive)

	rec = h.do(http.MethodPost, "/api/servers", token, map[string]any{"name": "web-1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	path := fmt.Sprintf("/api/servers/%d", created.ID)
	rec = h.do(http.MethodPut, path, token, map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := h.store.HostByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, "10.0.0.1", got.IPAddress, "absent fields are preserved")

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, path, token, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodDelete, path, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, path, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, path, token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/servers/x", token, nil).Code)
}

func TestHostUpdate_RenameConflict(t *testing.T) {
	h := newHarness(t)
	token := h.login("viewer")
	ctx := context.Background()

	a, err := h.store.EnsureHost(ctx, "web-1", models.Host{IsActive: true})
	require.NoError(t, err)
	_, err = h.store.EnsureHost(ctx, "web-2", models.Host{IsActive: true})
	require.NoError(t, err)
	path := fmt.Sprintf("/api/servers/%d", a.ID)

	rec := h.do(http.MethodPut, path, token, map[string]any{"name": "web-2"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "server name already exists", decode[map[string]any](t, rec)["error"])

	got, err := h.store.HostByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "web-1", got.Name)

	rec = h.do(http.MethodPut, path, token, map[string]any{"name": "web-1", "os_info": "debian 12"})
	assert.Equal(t, http.StatusOK, rec.Code, "keeping the current name is not a conflict")

	rec = h.do(http.MethodPut, path, token, map[string]any{"name": "web-3"})
	require.Equal(t, http.StatusOK, rec.Code)
	got, err = h.store.HostByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "web-3", got.Name)
}

func TestSamples(t *testing.T) {
	h := newHarness(t)
	token := h.login("viewer")
	ctx := context.Background()

	a, err := h.store.EnsureHost(ctx, "a", models.Host{IsActive: true})
	require.NoError(t, err)
	b, err := h.store.EnsureHost(ctx, "b", models.Host{IsActive: true})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, h.store.Append(ctx, a.ID, &models.Sample{CPUUsage: float64(i)}))
		require.NoError(t, h.store.Append(ctx, b.ID, &models.Sample{CPUUsage: float64(i)}))
	}

	type resp struct {
		Data []sampleView `json:"data"`
	}
	all := decode[resp](t, h.do(http.MethodGet, "/api/samples", token, nil))
	assert.Len(t, all.Data, 6)

	onlyA := decode[resp](t, h.do(http.MethodGet, "/api/samples?server=a&limit=2", token, nil))
	require.Len(t, onlyA.Data, 2)
	assert.Equal(t, "a", onlyA.Data[0].ServerName)
	assert.Equal(t, 2.0, onlyA.Data[0].CPUUsage, "newest first")
	assert.Regexp(t, `^\d{2}/\d{2}/\d{4} \d{2}:\d{2}:\d{2}$`, onlyA.Data[0].TimestampFormatted)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/samples?limit=-1", token, nil).Code)
}

// ── static + ops ──────────────────────────────────────────────────────────────

func TestStaticFallback(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/processes", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>hostdash</title>")

	rec = h.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestOpsRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "hostdash_test_gauge", Help: "test"})
	gauge.Set(3)
	reg.MustRegister(gauge)

	r := gin.New()
	RegisterOpsRoutes(r, reg)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hostdash_test_gauge 3")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
