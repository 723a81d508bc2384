// Command mcu-sensor reads temperature and fan speed from the board MCU and
// publishes them over HTTP, MQTT and InfluxDB.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/mcu-sensor/internal/config"
	"github.com/sweeney/mcu-sensor/internal/gpio"
	"github.com/sweeney/mcu-sensor/internal/logging"
	"github.com/sweeney/mcu-sensor/internal/logic"
	"github.com/sweeney/mcu-sensor/internal/mcu"
	"github.com/sweeney/mcu-sensor/internal/mqtt"
	"github.com/sweeney/mcu-sensor/internal/sensor"
	"github.com/sweeney/mcu-sensor/internal/status"
	"github.com/sweeney/mcu-sensor/internal/tsdb"
	"github.com/sweeney/mcu-sensor/internal/web"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type options struct {
	cfg        config.Config
	printState bool
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcu-sensor: %v\n", err)
		os.Exit(2)
	}

	logger := logging.New(opts.cfg.Logging, version)
	if err := run(opts, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// parseArgs loads the config file named by -config (or the defaults) and
// applies any flags given explicitly on top of it.
func parseArgs(args []string, stderr io.Writer) (options, error) {
	def := config.Default()

	fs := flag.NewFlagSet("mcu-sensor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to YAML config (built-in defaults if empty)")
	backend := fs.String("backend", def.GPIO.Backend, `GPIO backend ("gpiocdev" or "periph")`)
	chip := fs.String("chip", def.GPIO.Chip, "GPIO chip for the gpiocdev backend")
	pinAct := fs.String("pin-act", def.GPIO.Act, "ACT line (offset or periph pin name)")
	pinClk := fs.String("pin-clk", def.GPIO.Clk, "CLK line (offset or periph pin name)")
	pinData := fs.String("pin-data", def.GPIO.Data, "DATA line (offset or periph pin name)")
	poll := fs.Duration("poll", def.Poll, "Sensor polling interval")
	debounce := fs.Duration("debounce", def.Debounce, "MCU lost/recovered debounce")
	heartbeat := fs.Duration("heartbeat", def.Heartbeat, "Heartbeat interval (0 to disable)")
	broker := fs.String("broker", def.MQTT.Broker, "MQTT broker address")
	httpAddr := fs.String("http", def.HTTP.Addr, "HTTP status address (empty to disable)")
	logLevel := fs.String("log-level", def.Logging.Level, "Log level (debug, info, warn, error)")
	printState := fs.Bool("print-state", false, "Print one reading and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	cfg := def
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return options{}, fmt.Errorf("load config: %w", err)
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.GPIO.Backend = *backend
		case "chip":
			cfg.GPIO.Chip = *chip
		case "pin-act":
			cfg.GPIO.Act = *pinAct
		case "pin-clk":
			cfg.GPIO.Clk = *pinClk
		case "pin-data":
			cfg.GPIO.Data = *pinData
		case "poll":
			cfg.Poll = *poll
		case "debounce":
			cfg.Debounce = *debounce
		case "heartbeat":
			cfg.Heartbeat = *heartbeat
		case "broker":
			cfg.MQTT.Broker = *broker
		case "http":
			cfg.HTTP.Addr = *httpAddr
		case "log-level":
			cfg.Logging.Level = *logLevel
		}
	})

	if err := cfg.Validate(); err != nil {
		return options{}, err
	}
	return options{cfg: cfg, printState: *printState}, nil
}

// openLines acquires ACT, CLK and DATA with the configured backend.
func openLines(g config.GPIOConfig) (gpio.Lines, error) {
	switch g.Backend {
	case config.BackendPeriph:
		return gpio.OpenPeriph(g.Act, g.Clk, g.Data)
	default:
		act, clk, data, err := g.Pins()
		if err != nil {
			return gpio.Lines{}, err
		}
		return gpio.OpenChip(g.Chip, act, clk, data)
	}
}

func run(opts options, logger *slog.Logger) error {
	cfg := opts.cfg

	lines, err := openLines(cfg.GPIO)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}

	reader := mcu.NewReader(lines, mcu.WithLogger(logger.With("component", "mcu")))
	store := sensor.New(reader, sensor.WithLogger(logger.With("component", "sensor")))
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("release gpio lines", "error", err)
		}
	}()

	if opts.printState {
		printReading(os.Stdout, store.Reading())
		return nil
	}

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:     cfg.MQTT.Broker,
		ClientID:   cfg.MQTT.ClientID,
		BufferSize: cfg.MQTT.Buffer,
		Logger:     logger.With("component", "mqtt"),
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	var sink readingSink
	if cfg.InfluxDB.Enabled {
		client, err := tsdb.Connect(context.Background(), cfg.InfluxDB, logger.With("component", "tsdb"))
		if err != nil {
			// Telemetry is optional; keep serving readings without it.
			logger.Error("influxdb unavailable, continuing without it", "error", err)
		} else {
			defer client.Close()
			sink = client
		}
	}

	tracker := status.NewTracker(uuid.NewString(), time.Now(), status.Config{
		Backend:     cfg.GPIO.Backend,
		Pins:        cfg.GPIO.Describe(),
		PollMs:      cfg.Poll.Milliseconds(),
		DebounceMs:  cfg.Debounce.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
		InfluxDB:    sink != nil,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetMQTTConnected(publisher.IsConnected())

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		logger.Warn("failed to publish startup event", "error", err)
	} else {
		logger.Info("published startup event", "boot_id", snap.BootID)
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, store)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("http status server listening", "addr", cfg.HTTP.Addr)
	}

	logger.Info("started",
		"backend", cfg.GPIO.Backend,
		"pins", cfg.GPIO.Describe(),
		"poll", cfg.Poll,
		"debounce", cfg.Debounce,
		"heartbeat", cfg.Heartbeat,
		"broker", cfg.MQTT.Broker,
	)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loopDeps{
		sensors:    store,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		sink:       sink,
		log:        logger,
		debounce:   cfg.Debounce,
		heartbeat:  cfg.Heartbeat,
		deadband:   logic.Deadband{Temperature: cfg.Deadband.Temperature, Fan: cfg.Deadband.Fan},
		now:        time.Now,
	}, ticker.C, sigCh)
}

// sampler is the part of sensor.Store the loop needs.
type sampler interface {
	Reading() sensor.Reading
}

// readingSink receives every polled reading. *tsdb.Client satisfies it.
type readingSink interface {
	WriteReading(r sensor.Reading, at time.Time)
}

type loopDeps struct {
	sensors    sampler
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // may be nil
	tracker    *status.Tracker       // may be nil
	sink       readingSink           // may be nil
	log        *slog.Logger
	debounce   time.Duration
	heartbeat  time.Duration
	deadband   logic.Deadband
	now        func() time.Time
}

func runLoop(d loopDeps, tick <-chan time.Time, sig <-chan os.Signal) error {
	if d.log == nil {
		d.log = logging.Discard()
	}
	startTime := d.now()
	detector := logic.NewDetector(d.debounce, d.deadband, startTime)

	for {
		select {
		case s := <-sig:
			d.log.Info("shutting down", "signal", s.String())
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: d.now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if d.tracker != nil {
				d.refreshConnected()
				event.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				d.log.Warn("failed to publish shutdown event", "error", err)
			} else {
				d.log.Info("published shutdown event")
			}
			return nil

		case <-tick:
			t := d.now()
			r := d.sensors.Reading()

			if d.tracker != nil {
				d.tracker.SetReading(r)
			}
			if d.sink != nil {
				d.sink.WriteReading(r, t)
			}

			events := detector.Process(logic.Input{
				Valid:       r.Valid,
				Temperature: r.Temperature,
				Fan:         r.Fan,
				Time:        t,
			})

			for _, event := range events {
				d.log.Info("event",
					"type", event.Type,
					"temperature", event.Temperature,
					"fan", event.Fan,
				)
				if err := d.publisher.Publish(event); err != nil {
					// Never fatal; RealPublisher buffers for replay.
					d.log.Warn("publish error", "error", err)
				}
			}

			if detector.IsBaselined() {
				if hb := detector.CheckHeartbeat(t, d.heartbeat); hb != nil {
					d.publishHeartbeat(detector, hb)
				}
			}

			if d.tracker != nil {
				d.tracker.Update(detector.CurrentState(), detector.IsBaselined(), detector.EventCountsSnapshot())
				d.refreshConnected()
			}
		}
	}
}

func (d loopDeps) publishHeartbeat(detector *logic.Detector, hb *logic.HeartbeatData) {
	d.log.Info("heartbeat",
		"uptime", hb.Uptime,
		"readings", hb.Counts.Readings,
		"mcu_lost", hb.Counts.Lost,
		"mcu_recovered", hb.Counts.Recovered,
	)

	event := mqtt.SystemEvent{
		Timestamp: hb.Timestamp,
		Event:     "HEARTBEAT",
	}
	if d.tracker != nil {
		d.refreshConnected()
		if net := readNetworkInfo(); net != nil {
			d.tracker.SetNetwork(net)
		}
		d.tracker.Update(detector.CurrentState(), detector.IsBaselined(), detector.EventCountsSnapshot())
		event.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "HEARTBEAT", "")
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		d.log.Warn("heartbeat publish error", "error", err)
	}
}

func (d loopDeps) refreshConnected() {
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

// printReading writes one reading in the same units as the hwmon attributes.
func printReading(w io.Writer, r sensor.Reading) {
	fmt.Fprintf(w, "%s: %d\n", sensor.Temperature.Label(), r.Temperature)
	fmt.Fprintf(w, "%s: %d\n", sensor.FanSpeed.Label(), r.Fan)
	if !r.Valid {
		fmt.Fprintln(w, "MCU: no valid frame")
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
