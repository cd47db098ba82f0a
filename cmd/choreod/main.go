// Choreo daemon - scripted robot controller
//
// choreod drives a small two-wheeled robot with two arms, antenna and eye
// lights and a speech synthesiser. Routines arrive as Lua scripts over the
// control socket, the HTTP API or MQTT; a gamepad drives the robot by hand
// when no routine is loaded.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/choreo-core/internal/api"
	"github.com/nerrad567/choreo-core/internal/control"
	"github.com/nerrad567/choreo-core/internal/hardware"
	"github.com/nerrad567/choreo-core/internal/history"
	"github.com/nerrad567/choreo-core/internal/infrastructure/config"
	"github.com/nerrad567/choreo-core/internal/infrastructure/database"
	"github.com/nerrad567/choreo-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/choreo-core/internal/infrastructure/logging"
	"github.com/nerrad567/choreo-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/choreo-core/internal/input"
	"github.com/nerrad567/choreo-core/internal/remote"
	"github.com/nerrad567/choreo-core/internal/robot"
	"github.com/nerrad567/choreo-core/internal/slots"
	"github.com/nerrad567/choreo-core/internal/telemetry"
	"github.com/nerrad567/choreo-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// simulatedWordTime is how long the simulator pretends each spoken word takes.
const simulatedWordTime = 300 * time.Millisecond

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the daemon, separated from main for testability. It returns nil on
// a clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear start-up sequence
	log := logging.Default()
	log.Info("starting choreo daemon",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "robot_id", cfg.Robot.ID)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	hw, closeHW, err := openHardware(cfg, log.Component("hardware"))
	if err != nil {
		return fmt.Errorf("opening hardware: %w", err)
	}
	defer func() {
		if closeErr := closeHW(); closeErr != nil {
			log.Error("error closing hardware", "error", closeErr)
		}
	}()

	// Background workers run until shutdown; their context outlives ctx so
	// they can drain after the robot has stopped.
	workCtx, stopWork := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(workCtx)
	defer func() {
		stopWork()
		if waitErr := g.Wait(); waitErr != nil {
			log.Error("background worker failed", "error", waitErr)
		}
	}()

	historyRepo := history.NewSQLiteRepository(db.DB)
	recorder := history.NewRecorder(historyRepo, log.Component("history"))
	g.Go(func() error {
		recorder.Run(gctx)
		return nil
	})

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	sink := robot.NewFanout(hub, recorder)

	bot := robot.New(hw, robot.Options{
		RobotID:         cfg.Robot.ID,
		CancelOnRun:     cfg.Routine.CancelOnRun,
		HaltDriveOnStop: cfg.Routine.HaltDriveOnStop,
		StopGrace:       cfg.GetStopGrace(),
		ScriptTimeout:   cfg.GetScriptTimeout(),
		ArmSettle:       cfg.GetArmSettle(),
		DriveSpeed:      cfg.Routine.DriveSpeed,
		SpeedScale:      cfg.Manual.SpeedScale,
		Sink:            sink,
		Logger:          log.Component("robot"),
	})

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, cfg.Robot.ID)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))

		bridge := remote.NewBridge(mqttClient, mqttClient.Topics(), byte(cfg.MQTT.QoS), bot, log.Component("remote"))
		if subErr := bridge.Subscribe(); subErr != nil {
			return fmt.Errorf("subscribing to MQTT commands: %w", subErr)
		}
		sink.Add(bridge)
		g.Go(func() error {
			bridge.Run(gctx)
			return nil
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"command_topic", mqttClient.Topics().Command(),
		)
	} else {
		log.Info("MQTT disabled")
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		sink.Add(telemetry.NewSink(influxClient))
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	ctrl, err := control.NewServer(cfg.Control.Listen, bot, control.Options{
		ReadTimeout:   cfg.GetControlReadTimeout(),
		MaxScriptSize: cfg.Control.MaxScriptSize,
		Logger:        log.Component("control"),
	})
	if err != nil {
		return fmt.Errorf("creating control server: %w", err)
	}
	if startErr := ctrl.Start(ctx); startErr != nil {
		return fmt.Errorf("starting control server: %w", startErr)
	}
	defer func() {
		if closeErr := ctrl.Close(); closeErr != nil {
			log.Error("error closing control server", "error", closeErr)
		}
	}()
	log.Info("control server listening", "address", ctrl.Addr().String())

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer, err = api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log.Component("api"),
			Robot:   bot,
			Slots:   slots.NewSQLiteRepository(db.DB),
			History: historyRepo,
			Hub:     hub,
			Version: version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	if cfg.Input.Enabled {
		startInput(gctx, g, cfg.Input, bot, log.Component("input"))
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer func() {
		log.Info("stopping robot")
		bot.HandleStop()
	}()
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// loadConfig reads CHOREO_CONFIG, or the default path when it exists, and
// otherwise falls back to the built-in defaults.
func loadConfig() (*config.Config, string, error) {
	if path := os.Getenv("CHOREO_CONFIG"); path != "" {
		cfg, err := config.Load(path)
		return cfg, path, err
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		cfg, err := config.Load(defaultConfigPath)
		return cfg, defaultConfigPath, err
	}
	cfg, err := config.Default()
	return cfg, "(built-in defaults)", err
}

// openHardware builds the actuator set for the configured driver and
// returns a function releasing it.
func openHardware(cfg *config.Config, log *logging.Logger) (*hardware.Set, func() error, error) {
	var (
		set     *hardware.Set
		closeFn = func() error { return nil }
	)

	switch cfg.Hardware.Driver {
	case "sim":
		sim := hardware.NewSimulator(log)
		speaker := hardware.SilentSpeaker{PerWord: simulatedWordTime, Logger: log}
		set = hardware.NewSet(cfg.Hardware, sim, sim.Pin, speaker, log)
		log.Info("using simulated hardware")
	case "gobot":
		board, err := hardware.OpenBoard(cfg.Hardware.PCA)
		if err != nil {
			return nil, nil, err
		}
		speaker := hardware.Espeak{Binary: cfg.Speech.Binary, Args: cfg.Speech.Args}
		set = hardware.NewSet(cfg.Hardware, board, board.Pin, speaker, log)
		closeFn = board.Close
		log.Info("board connected",
			"pca9685_bus", cfg.Hardware.PCA.Bus,
			"pca9685_address", fmt.Sprintf("0x%02x", cfg.Hardware.PCA.Address),
		)
	default:
		return nil, nil, fmt.Errorf("unknown hardware driver %q", cfg.Hardware.Driver)
	}

	if err := set.Reset(); err != nil {
		_ = closeFn() //nolint:errcheck // already failing
		return nil, nil, fmt.Errorf("resetting actuators: %w", err)
	}
	return set, func() error {
		return errors.Join(set.Reset(), closeFn())
	}, nil
}

// startInput opens the gamepad and attaches it to the robot. A missing
// gamepad is not fatal; the robot is still scriptable.
func startInput(ctx context.Context, g *errgroup.Group, cfg config.InputConfig, bot *robot.Robot, log *logging.Logger) {
	js, f, err := input.Open(cfg.Device, log)
	if err != nil {
		log.Warn("joystick unavailable, manual drive disabled", "device", cfg.Device, "error", err)
		return
	}
	log.Info("joystick connected", "device", cfg.Device, "name", js.Name(),
		"axes", len(js.Axes()), "buttons", len(js.Buttons()))

	bot.AttachInput(js, robot.InputBinding{
		StopButton:     cfg.StopButton,
		RoutineButtons: cfg.RoutineButtons,
		AxisX:          cfg.AxisX,
		AxisY:          cfg.AxisY,
	})
	g.Go(func() error {
		defer f.Close()
		if runErr := js.Run(ctx, f); runErr != nil {
			log.Warn("joystick read failed, manual drive disabled", "error", runErr)
		}
		return nil
	})
}

func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
