package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the choreo daemon.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Robot     RobotConfig     `yaml:"robot"`
	Control   ControlConfig   `yaml:"control"`
	Routine   RoutineConfig   `yaml:"routine"`
	Manual    ManualConfig    `yaml:"manual"`
	Hardware  HardwareConfig  `yaml:"hardware"`
	Speech    SpeechConfig    `yaml:"speech"`
	Input     InputConfig     `yaml:"input"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// RobotConfig identifies this robot.
type RobotConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// ControlConfig contains control socket settings.
type ControlConfig struct {
	// Listen is "unix:///path" or "tcp://host:port".
	Listen string `yaml:"listen"`

	// ReadTimeout bounds how long a client may take to send a command (seconds).
	ReadTimeout int `yaml:"read_timeout"`

	// MaxScriptSize is the largest RUN payload accepted, in bytes.
	MaxScriptSize int `yaml:"max_script_size"`
}

// RoutineConfig contains routine execution settings.
type RoutineConfig struct {
	// CancelOnRun cancels the previous routine's work when a new routine is
	// accepted. When false, old and new work may overlap.
	CancelOnRun bool `yaml:"cancel_on_run"`

	// HaltDriveOnStop stops the wheels after STOP has cancelled all work.
	HaltDriveOnStop bool `yaml:"halt_drive_on_stop"`

	// StopGrace bounds how long STOP waits for cancelled work to unwind (milliseconds).
	StopGrace int `yaml:"stop_grace"`

	// ArmSettle is the delay after every arm move (milliseconds).
	ArmSettle int `yaml:"arm_settle"`

	// DriveSpeed scales timed drives, 0..1.
	DriveSpeed float64 `yaml:"drive_speed"`

	// ScriptTimeout bounds the top-level evaluation of a RUN script (milliseconds).
	ScriptTimeout int `yaml:"script_timeout"`
}

// ManualConfig contains joystick drive settings.
type ManualConfig struct {
	// SpeedScale multiplies the differential-drive output, 0..1.
	SpeedScale float64 `yaml:"speed_scale"`
}

// HardwareConfig selects and configures the actuator driver.
type HardwareConfig struct {
	// Driver is "gobot" for the Raspberry Pi board or "sim" for a logging simulator.
	Driver string           `yaml:"driver"`
	PCA    PCA9685Config    `yaml:"pca9685"`
	Wheels WheelsConfig     `yaml:"wheels"`
	Arms   ArmsConfig       `yaml:"arms"`
	Lights LightsConfig     `yaml:"lights"`
	Servo  ServoPulseConfig `yaml:"servo"`
}

// PCA9685Config contains the PWM controller bus settings.
type PCA9685Config struct {
	Bus       int     `yaml:"bus"`
	Address   int     `yaml:"address"`
	Frequency float64 `yaml:"frequency"`
}

// WheelsConfig maps the wheel H-bridge inputs to PWM channels.
type WheelsConfig struct {
	LeftForward   int `yaml:"left_forward"`
	LeftBackward  int `yaml:"left_backward"`
	RightForward  int `yaml:"right_forward"`
	RightBackward int `yaml:"right_backward"`
}

// ArmsConfig contains both arm servos.
type ArmsConfig struct {
	Left  ArmConfig `yaml:"left"`
	Right ArmConfig `yaml:"right"`
}

// ArmConfig maps a logical arm angle onto a servo angle:
// servo = center + angle, or center - angle when Invert is set.
type ArmConfig struct {
	Channel int     `yaml:"channel"`
	Center  float64 `yaml:"center"`
	Invert  bool    `yaml:"invert"`
}

// ServoPulseConfig is the pulse range covering 0..180 degrees (microseconds).
type ServoPulseConfig struct {
	MinPulse int `yaml:"min_pulse"`
	MaxPulse int `yaml:"max_pulse"`
}

// LightsConfig maps the digital outputs to header pins.
type LightsConfig struct {
	LeftAntenna  string `yaml:"left_antenna"`
	RightAntenna string `yaml:"right_antenna"`
	LeftEye      string `yaml:"left_eye"`
	RightEye     string `yaml:"right_eye"`
}

// SpeechConfig contains the speech synthesiser command.
type SpeechConfig struct {
	Binary string   `yaml:"binary"`
	Args   []string `yaml:"args"`
}

// InputConfig contains joystick settings.
type InputConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Device         string   `yaml:"device"`
	StopButton     string   `yaml:"stop_button"`
	RoutineButtons []string `yaml:"routine_buttons"` // index 0 is button 1
	AxisX          string   `yaml:"axis_x"`
	AxisY          string   `yaml:"axis_y"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: CHOREO_SECTION_KEY
// For example: CHOREO_CONTROL_LISTEN, CHOREO_HARDWARE_DRIVER
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with environment overrides
// applied. It is used when no config file exists.
func Default() (*Config, error) {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
//
// Hardware defaults describe the reference robot: wheels on PCA9685 channels
// 0-3, arms on 4 and 5, antennas and eyes on header pins 37/33 and 31/35
// (BCM 26/13 and 6/19).
func defaultConfig() *Config {
	return &Config{
		Robot: RobotConfig{
			ID:   "robot-001",
			Name: "Choreo",
		},
		Control: ControlConfig{
			Listen:        "unix:///tmp/robot-control",
			ReadTimeout:   10,
			MaxScriptSize: 1 << 20,
		},
		Routine: RoutineConfig{
			CancelOnRun:     false,
			HaltDriveOnStop: true,
			StopGrace:       2000,
			ArmSettle:       500,
			DriveSpeed:      1,
			ScriptTimeout:   5000,
		},
		Manual: ManualConfig{
			SpeedScale: 0.5,
		},
		Hardware: HardwareConfig{
			Driver: "gobot",
			PCA: PCA9685Config{
				Bus:       1,
				Address:   0x40,
				Frequency: 60,
			},
			Wheels: WheelsConfig{
				LeftForward:   0,
				LeftBackward:  1,
				RightForward:  2,
				RightBackward: 3,
			},
			Arms: ArmsConfig{
				Left:  ArmConfig{Channel: 4, Center: 90, Invert: true},
				Right: ArmConfig{Channel: 5, Center: 80},
			},
			Lights: LightsConfig{
				LeftAntenna:  "37",
				RightAntenna: "33",
				LeftEye:      "31",
				RightEye:     "35",
			},
			Servo: ServoPulseConfig{
				MinPulse: 750,
				MaxPulse: 2250,
			},
		},
		Speech: SpeechConfig{
			Binary: "espeak",
		},
		Input: InputConfig{
			Enabled:        true,
			Device:         "/dev/input/js0",
			StopButton:     "start",
			RoutineButtons: []string{"b1", "b2", "b3", "b4"},
			AxisX:          "x",
			AxisY:          "y",
		},
		Database: DatabaseConfig{
			Path:        "./data/choreo.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "choreo-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CHOREO_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Robot
	if v := os.Getenv("CHOREO_ROBOT_ID"); v != "" {
		cfg.Robot.ID = v
	}

	// Control
	if v := os.Getenv("CHOREO_CONTROL_LISTEN"); v != "" {
		cfg.Control.Listen = v
	}

	// Routine
	if v, ok := envBool("CHOREO_ROUTINE_CANCEL_ON_RUN"); ok {
		cfg.Routine.CancelOnRun = v
	}

	// Hardware
	if v := os.Getenv("CHOREO_HARDWARE_DRIVER"); v != "" {
		cfg.Hardware.Driver = v
	}

	// Input
	if v := os.Getenv("CHOREO_INPUT_DEVICE"); v != "" {
		cfg.Input.Device = v
	}
	if v, ok := envBool("CHOREO_INPUT_ENABLED"); ok {
		cfg.Input.Enabled = v
	}

	// Database
	if v := os.Getenv("CHOREO_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v, ok := envBool("CHOREO_MQTT_ENABLED"); ok {
		cfg.MQTT.Enabled = v
	}
	if v := os.Getenv("CHOREO_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("CHOREO_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("CHOREO_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("CHOREO_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("CHOREO_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("CHOREO_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func envBool(key string) (value, ok bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error { //nolint:gocognit,gocyclo // flat list of independent checks
	var errs []string

	if c.Robot.ID == "" {
		errs = append(errs, "robot.id is required")
	}

	// Control
	if !strings.HasPrefix(c.Control.Listen, "unix://") && !strings.HasPrefix(c.Control.Listen, "tcp://") {
		errs = append(errs, "control.listen must start with unix:// or tcp://")
	}
	if c.Control.MaxScriptSize < 1 {
		errs = append(errs, "control.max_script_size must be positive")
	}

	// Routine and manual drive
	if c.Routine.DriveSpeed < 0 || c.Routine.DriveSpeed > 1 {
		errs = append(errs, "routine.drive_speed must be between 0 and 1")
	}
	if c.Routine.ArmSettle < 0 {
		errs = append(errs, "routine.arm_settle must not be negative")
	}
	if c.Routine.ScriptTimeout <= 0 {
		errs = append(errs, "routine.script_timeout must be positive")
	}
	if c.Manual.SpeedScale < 0 || c.Manual.SpeedScale > 1 {
		errs = append(errs, "manual.speed_scale must be between 0 and 1")
	}

	// Hardware
	switch c.Hardware.Driver {
	case "gobot", "sim":
	default:
		errs = append(errs, "hardware.driver must be gobot or sim")
	}
	if c.Hardware.PCA.Frequency <= 0 {
		errs = append(errs, "hardware.pca9685.frequency must be positive")
	}
	if c.Hardware.Servo.MinPulse <= 0 || c.Hardware.Servo.MaxPulse <= c.Hardware.Servo.MinPulse {
		errs = append(errs, "hardware.servo pulse range is invalid")
	}
	for name, ch := range c.Hardware.channels() {
		if ch < 0 || ch > 15 {
			errs = append(errs, fmt.Sprintf("hardware channel %s must be between 0 and 15", name))
		}
	}

	// Input
	if c.Input.Enabled && c.Input.Device == "" {
		errs = append(errs, "input.device is required when input is enabled")
	}

	// Database
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (h HardwareConfig) channels() map[string]int {
	return map[string]int{
		"wheels.left_forward":   h.Wheels.LeftForward,
		"wheels.left_backward":  h.Wheels.LeftBackward,
		"wheels.right_forward":  h.Wheels.RightForward,
		"wheels.right_backward": h.Wheels.RightBackward,
		"arms.left":             h.Arms.Left.Channel,
		"arms.right":            h.Arms.Right.Channel,
	}
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetControlReadTimeout returns the control socket read timeout as a Duration.
func (c *Config) GetControlReadTimeout() time.Duration {
	return time.Duration(c.Control.ReadTimeout) * time.Second
}

// GetStopGrace returns how long STOP waits for cancelled work.
func (c *Config) GetStopGrace() time.Duration {
	return time.Duration(c.Routine.StopGrace) * time.Millisecond
}

// GetArmSettle returns the delay after an arm move.
func (c *Config) GetArmSettle() time.Duration {
	return time.Duration(c.Routine.ArmSettle) * time.Millisecond
}

// GetScriptTimeout returns the limit on top-level script evaluation.
func (c *Config) GetScriptTimeout() time.Duration {
	return time.Duration(c.Routine.ScriptTimeout) * time.Millisecond
}
