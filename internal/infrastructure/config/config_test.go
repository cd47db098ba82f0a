package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
robot:
  id: "test-bot"
control:
  listen: "unix:///tmp/test-control"
routine:
  cancel_on_run: true
hardware:
  driver: "sim"
  arms:
    left:
      channel: 6
      center: 85
      invert: true
input:
  enabled: false
database:
  path: "/tmp/test.db"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Robot.ID != "test-bot" {
		t.Errorf("Robot.ID = %q, want %q", cfg.Robot.ID, "test-bot")
	}
	if cfg.Control.Listen != "unix:///tmp/test-control" {
		t.Errorf("Control.Listen = %q", cfg.Control.Listen)
	}
	if !cfg.Routine.CancelOnRun {
		t.Error("Routine.CancelOnRun should be true")
	}
	if cfg.Hardware.Driver != "sim" {
		t.Errorf("Hardware.Driver = %q, want sim", cfg.Hardware.Driver)
	}
	if cfg.Hardware.Arms.Left.Channel != 6 || cfg.Hardware.Arms.Left.Center != 85 {
		t.Errorf("Hardware.Arms.Left = %+v", cfg.Hardware.Arms.Left)
	}
	// Unset keys keep their defaults.
	if cfg.Hardware.Arms.Right.Channel != 5 {
		t.Errorf("Hardware.Arms.Right.Channel = %d, want default 5", cfg.Hardware.Arms.Right.Channel)
	}
	if cfg.Manual.SpeedScale != 0.5 {
		t.Errorf("Manual.SpeedScale = %g, want default 0.5", cfg.Manual.SpeedScale)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
robot:
  id: ""
hardware:
  driver: "arduino"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	// Every problem is reported, not just the first.
	for _, want := range []string{"robot.id", "hardware.driver"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"tcp control", func(c *Config) { c.Control.Listen = "tcp://127.0.0.1:7000" }, false},
		{"missing robot id", func(c *Config) { c.Robot.ID = "" }, true},
		{"bad control scheme", func(c *Config) { c.Control.Listen = "/tmp/robot-control" }, true},
		{"zero script size", func(c *Config) { c.Control.MaxScriptSize = 0 }, true},
		{"drive speed above one", func(c *Config) { c.Routine.DriveSpeed = 1.5 }, true},
		{"negative settle", func(c *Config) { c.Routine.ArmSettle = -1 }, true},
		{"zero script timeout", func(c *Config) { c.Routine.ScriptTimeout = 0 }, true},
		{"speed scale negative", func(c *Config) { c.Manual.SpeedScale = -0.1 }, true},
		{"unknown driver", func(c *Config) { c.Hardware.Driver = "firmata" }, true},
		{"channel out of range", func(c *Config) { c.Hardware.Wheels.RightBackward = 16 }, true},
		{"inverted pulse range", func(c *Config) { c.Hardware.Servo.MaxPulse = 500 }, true},
		{"input without device", func(c *Config) { c.Input.Device = "" }, true},
		{"disabled input without device", func(c *Config) { c.Input.Enabled = false; c.Input.Device = "" }, false},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, true},
		{"invalid QoS", func(c *Config) { c.MQTT.QoS = 3 }, true},
		{"invalid port", func(c *Config) { c.API.Port = 70000 }, true},
		{"disabled api ignores port", func(c *Config) { c.API.Enabled = false; c.API.Port = 0 }, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetDurations(t *testing.T) {
	cfg := &Config{
		Control: ControlConfig{ReadTimeout: 10},
		Routine: RoutineConfig{StopGrace: 1500, ArmSettle: 500, ScriptTimeout: 250},
		API: APIConfig{
			Timeouts: APITimeoutConfig{Read: 30, Write: 45, Idle: 60},
		},
	}

	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"read", cfg.GetReadTimeout(), 30 * time.Second},
		{"write", cfg.GetWriteTimeout(), 45 * time.Second},
		{"idle", cfg.GetIdleTimeout(), 60 * time.Second},
		{"control read", cfg.GetControlReadTimeout(), 10 * time.Second},
		{"stop grace", cfg.GetStopGrace(), 1500 * time.Millisecond},
		{"arm settle", cfg.GetArmSettle(), 500 * time.Millisecond},
		{"script timeout", cfg.GetScriptTimeout(), 250 * time.Millisecond},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("CHOREO_ROBOT_ID", "bench-bot")
	t.Setenv("CHOREO_CONTROL_LISTEN", "tcp://0.0.0.0:7000")
	t.Setenv("CHOREO_ROUTINE_CANCEL_ON_RUN", "true")
	t.Setenv("CHOREO_HARDWARE_DRIVER", "sim")
	t.Setenv("CHOREO_INPUT_ENABLED", "false")
	t.Setenv("CHOREO_DATABASE_PATH", "/custom/path.db")
	t.Setenv("CHOREO_MQTT_ENABLED", "1")
	t.Setenv("CHOREO_MQTT_HOST", "mqtt.example.com")
	t.Setenv("CHOREO_MQTT_PASSWORD", "testpass")
	t.Setenv("CHOREO_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("CHOREO_LOGGING_LEVEL", "debug")

	applyEnvOverrides(cfg)

	if cfg.Robot.ID != "bench-bot" {
		t.Errorf("Robot.ID = %q", cfg.Robot.ID)
	}
	if cfg.Control.Listen != "tcp://0.0.0.0:7000" {
		t.Errorf("Control.Listen = %q", cfg.Control.Listen)
	}
	if !cfg.Routine.CancelOnRun {
		t.Error("Routine.CancelOnRun should be overridden to true")
	}
	if cfg.Hardware.Driver != "sim" {
		t.Errorf("Hardware.Driver = %q", cfg.Hardware.Driver)
	}
	if cfg.Input.Enabled {
		t.Error("Input.Enabled should be overridden to false")
	}
	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Broker.Host != "mqtt.example.com" || cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT = %+v", cfg.MQTT)
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q", cfg.InfluxDB.Token)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestApplyEnvOverrides_IgnoresMalformedBool(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("CHOREO_ROUTINE_CANCEL_ON_RUN", "sometimes")
	applyEnvOverrides(cfg)
	if cfg.Routine.CancelOnRun {
		t.Error("malformed boolean should leave the default in place")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaultConfig should validate: %v", err)
	}
	if cfg.Control.Listen != "unix:///tmp/robot-control" {
		t.Errorf("Control.Listen = %q", cfg.Control.Listen)
	}
	if cfg.Routine.CancelOnRun {
		t.Error("routines should overlap by default")
	}
	if cfg.GetArmSettle() != 500*time.Millisecond {
		t.Errorf("arm settle = %v, want 500ms", cfg.GetArmSettle())
	}
	if got := len(cfg.Input.RoutineButtons); got != 4 {
		t.Errorf("routine buttons = %d, want 4", got)
	}
}
