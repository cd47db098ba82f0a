package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/choreo-core/internal/history"
	"github.com/nerrad567/choreo-core/internal/infrastructure/config"
	"github.com/nerrad567/choreo-core/internal/infrastructure/database"
	"github.com/nerrad567/choreo-core/internal/infrastructure/logging"
	"github.com/nerrad567/choreo-core/internal/robot"
	"github.com/nerrad567/choreo-core/internal/slots"
	"github.com/nerrad567/choreo-core/migrations"
)

// ─── Mock Dependencies ──────────────────────────────────────────────

type mockController struct {
	mu      sync.Mutex
	scripts []string
	stops   int
	runErr  error
	status  robot.Status
}

func (m *mockController) HandleRun(_ context.Context, source []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts = append(m.scripts, string(source))
	return m.runErr
}

func (m *mockController) HandleStop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
}

func (m *mockController) Status() robot.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *mockController) getScripts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.scripts...)
}

func (m *mockController) getStops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

// ─── Helpers ────────────────────────────────────────────────────────

type testEnv struct {
	srv     *Server
	handler http.Handler
	robot   *mockController
	history *history.SQLiteRepository
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "api.db"), WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	log := logging.NewWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, "test", io.Discard)
	ctrl := &mockController{status: robot.Status{RobotID: "bot", Mode: robot.ModeManual}}
	hist := history.NewSQLiteRepository(db.DB)

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		Logger:  log,
		Robot:   ctrl,
		Slots:   slots.NewSQLiteRepository(db.DB),
		History: hist,
		Hub:     NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log),
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return &testEnv{srv: srv, handler: srv.buildRouter(), robot: ctrl, history: hist}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return v
}

// ─── Tests ──────────────────────────────────────────────────────────

func TestNew_RequiresDeps(t *testing.T) {
	log := logging.NewWithWriter(config.LoggingConfig{Level: "error"}, "test", io.Discard)
	if _, err := New(Deps{Logger: log}); err == nil {
		t.Error("New() without robot should fail")
	}
	if _, err := New(Deps{Robot: &mockController{}}); err == nil {
		t.Error("New() without logger should fail")
	}
}

func TestHealthAndStatus(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	health := decode[map[string]string](t, rec)
	if health["status"] != "ok" || health["version"] != "test" {
		t.Errorf("health = %v", health)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}

	rec = env.do(t, http.MethodGet, "/api/v1/status", "")
	st := decode[robot.Status](t, rec)
	if st.RobotID != "bot" || st.Mode != robot.ModeManual {
		t.Errorf("status = %+v", st)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	env := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}

func TestSlots(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodGet, "/api/v1/slots", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET slots status = %d", rec.Code)
	}
	if list := decode[[]slots.Slot](t, rec); len(list) != 5 || list[0].Name != "Slot 1" {
		t.Errorf("default slots = %+v", list)
	}

	rec = env.do(t, http.MethodPut, "/api/v1/slots", `[{"name":"Wave","data":"say('hi')"}]`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT slots status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/slots", "")
	list := decode[[]slots.Slot](t, rec)
	if len(list) != 1 || list[0].Name != "Wave" || list[0].Data != "say('hi')" {
		t.Errorf("slots after replace = %+v", list)
	}
}

func TestSlots_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"not json", `{`, ErrCodeBadRequest},
		{"empty list", `[]`, ErrCodeValidation},
		{"blank name", `[{"name":"  ","data":""}]`, ErrCodeValidation},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			env := setupServer(t)
			rec := env.do(t, http.MethodPut, "/api/v1/slots", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if e := decode[Error](t, rec); e.Code != tt.code {
				t.Errorf("code = %q, want %q", e.Code, tt.code)
			}
		})
	}
}

func TestProgram(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodPost, "/api/v1/program", `{"program":"say('hello')"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("run status = %d body %s", rec.Code, rec.Body.String())
	}
	if got := env.robot.getScripts(); len(got) != 1 || got[0] != "say('hello')" {
		t.Errorf("scripts = %v", got)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/program", `{"stop":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop status = %d", rec.Code)
	}
	if env.robot.getStops() != 1 {
		t.Errorf("stops = %d, want 1", env.robot.getStops())
	}

	// An empty program is still a RUN.
	rec = env.do(t, http.MethodPost, "/api/v1/program", `{"program":""}`)
	if rec.Code != http.StatusOK || len(env.robot.getScripts()) != 2 {
		t.Errorf("empty program: status %d scripts %v", rec.Code, env.robot.getScripts())
	}
}

func TestProgram_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		runErr error
		status int
		code   string
		msg    string
	}{
		{"bad json", `nope`, nil, http.StatusBadRequest, ErrCodeBadRequest, ""},
		{"neither field", `{}`, nil, http.StatusBadRequest, ErrCodeBadRequest, ""},
		{"script error", `{"program":"x("}`, errors.New("line 1: unexpected EOF"), http.StatusUnprocessableEntity, ErrCodeScriptError, "line 1: unexpected EOF"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			env := setupServer(t)
			env.robot.runErr = tt.runErr

			rec := env.do(t, http.MethodPost, "/api/v1/program", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			e := decode[Error](t, rec)
			if e.Code != tt.code {
				t.Errorf("code = %q, want %q", e.Code, tt.code)
			}
			if tt.msg != "" && e.Message != tt.msg {
				t.Errorf("message = %q, want %q", e.Message, tt.msg)
			}
		})
	}
}

func TestRuns(t *testing.T) {
	env := setupServer(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, status := range []string{history.StatusLoaded, history.StatusRejected, history.StatusStopped} {
		err := env.history.Insert(ctx, history.Run{
			ID:        "run-" + status,
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	rec := env.do(t, http.MethodGet, "/api/v1/runs?limit=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	runs := decode[[]history.Run](t, rec)
	if len(runs) != 2 || runs[0].Status != history.StatusStopped || runs[1].Status != history.StatusRejected {
		t.Errorf("runs = %+v", runs)
	}

	for _, bad := range []string{"0", "-1", "ten"} {
		if rec := env.do(t, http.MethodGet, "/api/v1/runs?limit="+bad, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s status = %d, want 400", bad, rec.Code)
		}
	}
}

func TestCORS(t *testing.T) {
	env := setupServer(t)
	env.srv.cfg.CORS.AllowedOrigins = []string{"http://editor.local"}

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/program", nil)
	req.Header.Set("Origin", "http://editor.local")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://editor.local" {
		t.Errorf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://elsewhere")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin got header %q", got)
	}
}

func TestRecovery(t *testing.T) {
	env := setupServer(t)
	h := env.srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestStartAndClose(t *testing.T) {
	env := setupServer(t)

	if err := env.srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}
	if err := env.srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := env.srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	resp, err := http.Get("http://" + env.srv.Addr() + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	if err := env.srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := env.srv.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestWebSocket_StreamsEvents(t *testing.T) {
	env := setupServer(t)
	ts := httptest.NewServer(env.handler)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return env.srv.hub.ClientCount() == 1 })

	env.srv.hub.Emit(robot.Event{Type: robot.EventRoutineLoaded, RobotID: "bot", RoutineID: "r-1"})

	msg := readWS(t, conn)
	if msg.Type != WSTypeEvent || msg.EventType != robot.EventRoutineLoaded {
		t.Fatalf("message = %+v", msg)
	}
	payload, _ := msg.Payload.(map[string]any)
	if payload["routine_id"] != "r-1" {
		t.Errorf("payload = %v", msg.Payload)
	}
}

func TestWebSocket_Subscribe(t *testing.T) {
	env := setupServer(t)
	ts := httptest.NewServer(env.handler)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	sub := WSMessage{Type: WSTypeSubscribe, ID: "1", Payload: WSSubscribePayload{Channels: []string{robot.EventUnitFailed}}}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if resp := readWS(t, conn); resp.Type != WSTypeResponse || resp.ID != "1" {
		t.Fatalf("subscribe response = %+v", resp)
	}

	env.srv.hub.Emit(robot.Event{Type: robot.EventUnitStarted, Unit: "start"})
	env.srv.hub.Emit(robot.Event{Type: robot.EventUnitFailed, Unit: "start"})

	if msg := readWS(t, conn); msg.EventType != robot.EventUnitFailed {
		t.Errorf("first event = %q, want %q", msg.EventType, robot.EventUnitFailed)
	}

	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "2"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if msg := readWS(t, conn); msg.Type != WSTypePong || msg.ID != "2" {
		t.Errorf("ping reply = %+v", msg)
	}
}

func readWS(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
