package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"silkweaver/internal/sim"
	"silkweaver/internal/telemetry"
)

func writeTuning(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write tuning file: %v", err)
	}
	return path
}

func TestLoadTuningOverridesDefaults(t *testing.T) {
	path := writeTuning(t, `{"bridge": {"slack": 1.3}, "climb": {"grabRange": 30}}`)
	cfg, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("LoadTuning returned error: %v", err)
	}
	if cfg.Bridge.Slack != 1.3 || cfg.Climb.GrabRange != 30 {
		t.Fatalf("expected overrides to apply, got slack=%v grab=%v", cfg.Bridge.Slack, cfg.Climb.GrabRange)
	}
	if cfg.Tether.ShootSpeed != 50 || cfg.Bridge.Health != 30 {
		t.Fatalf("expected untouched fields to keep defaults, got %+v", cfg.Tether)
	}
}

func TestLoadTuningWithoutPathUsesDefaults(t *testing.T) {
	cfg, err := LoadTuning("  ")
	if err != nil {
		t.Fatalf("LoadTuning returned error: %v", err)
	}
	if cfg.Tether.MaxLength != 1200 {
		t.Fatalf("expected default max length, got %v", cfg.Tether.MaxLength)
	}
}

func TestLoadTuningRejectsUnknownFields(t *testing.T) {
	path := writeTuning(t, `{"tether": {"shootSped": 10}}`)
	if _, err := LoadTuning(path); err == nil || !strings.Contains(err.Error(), "shootSped") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
	if _, err := LoadTuning(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestLoadConfigReadsEnvironment(t *testing.T) {
	t.Setenv("SILK_ADDR", ":9090")
	t.Setenv("SILK_TICK_RATE", "20")
	t.Setenv("SILK_LOG_SINKS", "console,json")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.TickRate != 20 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if len(cfg.LogSinks) != 2 || cfg.LogSinks[1] != "json" {
		t.Fatalf("unexpected sinks %v", cfg.LogSinks)
	}
	if cfg.DemoActor != "weaver" || cfg.LogLevel != "info" || cfg.PerActorLimit != 8 {
		t.Fatalf("expected defaults to apply, got %+v", cfg)
	}
}

func TestLoadConfigRejectsBadNumbers(t *testing.T) {
	t.Setenv("SILK_TICK_RATE", "fast")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected a parse error")
	}
}

func newTestServer(t *testing.T) (*server, *httptest.Server) {
	t.Helper()
	srv, err := newServer(Config{
		TickRate:  40,
		LogSinks:  []string{"memory"},
		DemoActor: "weaver",
		Logger:    telemetry.WrapLogger(nil),
	})
	if err != nil {
		t.Fatalf("newServer returned error: %v", err)
	}
	httpSrv := httptest.NewServer(srv.handler)
	t.Cleanup(func() {
		httpSrv.Close()
		if err := srv.close(context.Background()); err != nil {
			t.Errorf("close returned error: %v", err)
		}
	})
	return srv, httpSrv
}

func TestNewServerRejectsUnknownSink(t *testing.T) {
	if _, err := newServer(Config{LogSinks: []string{"syslog"}, Logger: telemetry.WrapLogger(nil)}); err == nil {
		t.Fatalf("expected an unknown sink error")
	}
}

func TestHealthEndpoint(t *testing.T) {
	_, httpSrv := newTestServer(t)
	resp, err := http.Get(httpSrv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected health response %d %q", resp.StatusCode, body)
	}
}

func TestDiagnosticsReportsEngineState(t *testing.T) {
	srv, httpSrv := newTestServer(t)
	srv.loop.Advance(sim.LoopTickContext{})

	resp, err := http.Get(httpSrv.URL + "/diagnostics")
	if err != nil {
		t.Fatalf("GET /diagnostics failed: %v", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Status  string            `json:"status"`
		Tick    uint64            `json:"tick"`
		Regions []string          `json:"regions"`
		Bridges int               `json:"bridges"`
		Metrics map[string]uint64 `json:"metrics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode diagnostics: %v", err)
	}
	if payload.Status != "ok" || payload.Tick != 1 {
		t.Fatalf("unexpected diagnostics %+v", payload)
	}
	if len(payload.Regions) != 1 || payload.Regions[0] != "demo" {
		t.Fatalf("expected the demo region, got %v", payload.Regions)
	}
	if payload.Metrics[telemetry.MetricTicks] != 1 || payload.Metrics[telemetry.MetricActors] != 1 {
		t.Fatalf("unexpected metrics %v", payload.Metrics)
	}
}

func TestStreamServesDemoRegion(t *testing.T) {
	_, httpSrv := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/ws?actor=weaver"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	defer conn.Close()

	var msg struct {
		Type     string       `json:"type"`
		Snapshot sim.Snapshot `json:"snapshot"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}
	if msg.Type != "snapshot" || msg.Snapshot.Region != "demo" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if len(msg.Snapshot.Actors) != 1 || msg.Snapshot.Actors[0].ID != "weaver" {
		t.Fatalf("expected the demo actor, got %+v", msg.Snapshot.Actors)
	}
	if len(msg.Snapshot.Bodies) != 1 || msg.Snapshot.Bodies[0].ID != "crate-1" {
		t.Fatalf("expected the demo crate, got %+v", msg.Snapshot.Bodies)
	}
}
