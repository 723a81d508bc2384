// Package config loads the mcu-sensor YAML configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/mcu-sensor/internal/gpio"
)

// GPIO backends.
const (
	BackendGPIOCDev = "gpiocdev"
	BackendPeriph   = "periph"
)

type Config struct {
	GPIO      GPIOConfig     `yaml:"gpio"`
	Poll      time.Duration  `yaml:"poll"`
	Debounce  time.Duration  `yaml:"debounce"`
	Heartbeat time.Duration  `yaml:"heartbeat"`
	Deadband  DeadbandConfig `yaml:"deadband"`
	MQTT      MQTTConfig     `yaml:"mqtt"`
	HTTP      HTTPConfig     `yaml:"http"`
	InfluxDB  InfluxDBConfig `yaml:"influxdb"`
	Logging   LoggingConfig  `yaml:"logging"`
}

// GPIOConfig names the chip and the three MCU lines. Pins are line offsets
// for gpiocdev and pin names (e.g. "GPIO17") for periph.
type GPIOConfig struct {
	Backend string `yaml:"backend"`
	Chip    string `yaml:"chip"`
	Act     string `yaml:"act"`
	Clk     string `yaml:"clk"`
	Data    string `yaml:"data"`
}

type DeadbandConfig struct {
	Temperature uint32 `yaml:"temperature"`
	Fan         uint32 `yaml:"fan"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Buffer   int    `yaml:"buffer"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type InfluxDBConfig struct {
	Enabled       bool          `yaml:"enabled"`
	URL           string        `yaml:"url"`
	Token         string        `yaml:"token"`
	Org           string        `yaml:"org"`
	Bucket        string        `yaml:"bucket"`
	BatchSize     uint          `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given. Pin
// numbers match the NSA310/NSA320 board wiring.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads, defaults and validates the YAML file at path.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates the result.
func Parse(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.GPIO.Backend == "" {
		c.GPIO.Backend = BackendGPIOCDev
	}
	if c.GPIO.Chip == "" {
		c.GPIO.Chip = "gpiochip0"
	}
	if c.GPIO.Act == "" {
		c.GPIO.Act = strconv.Itoa(gpio.DefaultPinAct)
	}
	if c.GPIO.Clk == "" {
		c.GPIO.Clk = strconv.Itoa(gpio.DefaultPinClk)
	}
	if c.GPIO.Data == "" {
		c.GPIO.Data = strconv.Itoa(gpio.DefaultPinData)
	}
	if c.Poll == 0 {
		c.Poll = 5 * time.Second
	}
	if c.Debounce == 0 {
		c.Debounce = 10 * time.Second
	}
	if c.Heartbeat == 0 {
		c.Heartbeat = 15 * time.Minute
	}
	if c.Deadband == (DeadbandConfig{}) {
		c.Deadband = DeadbandConfig{Temperature: 100, Fan: 100}
	}
	if c.MQTT.Broker == "" {
		c.MQTT.Broker = "tcp://127.0.0.1:1883"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "mcu-sensor"
	}
	if c.MQTT.Buffer == 0 {
		c.MQTT.Buffer = 100
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.InfluxDB.BatchSize == 0 {
		c.InfluxDB.BatchSize = 20
	}
	if c.InfluxDB.FlushInterval == 0 {
		c.InfluxDB.FlushInterval = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate checks the configuration for values the daemon cannot run with.
func (c Config) Validate() error {
	switch c.GPIO.Backend {
	case BackendGPIOCDev, BackendPeriph:
	default:
		return fmt.Errorf("gpio.backend must be %q or %q, got %q", BackendGPIOCDev, BackendPeriph, c.GPIO.Backend)
	}

	pins := map[string]string{}
	for _, p := range []struct{ name, pin string }{
		{"act", c.GPIO.Act},
		{"clk", c.GPIO.Clk},
		{"data", c.GPIO.Data},
	} {
		pin := strings.TrimSpace(p.pin)
		if pin == "" {
			return fmt.Errorf("gpio.%s is required", p.name)
		}
		if c.GPIO.Backend == BackendGPIOCDev {
			if n, err := strconv.Atoi(pin); err != nil || n < 0 {
				return fmt.Errorf("gpio.%s must be a line offset for the gpiocdev backend, got %q", p.name, pin)
			}
		}
		if other, ok := pins[pin]; ok {
			return fmt.Errorf("gpio.%s and gpio.%s share pin %s", other, p.name, pin)
		}
		pins[pin] = p.name
	}

	if c.Poll <= 0 {
		return fmt.Errorf("poll must be positive")
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative")
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("heartbeat must not be negative")
	}
	if c.MQTT.Buffer < 0 {
		return fmt.Errorf("mqtt.buffer must not be negative")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			return fmt.Errorf("influxdb.url is required when influxdb.enabled is true")
		}
		if c.InfluxDB.Org == "" {
			return fmt.Errorf("influxdb.org is required when influxdb.enabled is true")
		}
		if c.InfluxDB.Bucket == "" {
			return fmt.Errorf("influxdb.bucket is required when influxdb.enabled is true")
		}
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	return nil
}

// Pins returns the configured pins as line offsets. Only meaningful for the
// gpiocdev backend; Validate guarantees they parse.
func (g GPIOConfig) Pins() (act, clk, data int, err error) {
	if act, err = strconv.Atoi(strings.TrimSpace(g.Act)); err != nil {
		return 0, 0, 0, fmt.Errorf("gpio.act: %w", err)
	}
	if clk, err = strconv.Atoi(strings.TrimSpace(g.Clk)); err != nil {
		return 0, 0, 0, fmt.Errorf("gpio.clk: %w", err)
	}
	if data, err = strconv.Atoi(strings.TrimSpace(g.Data)); err != nil {
		return 0, 0, 0, fmt.Errorf("gpio.data: %w", err)
	}
	return act, clk, data, nil
}

// Describe renders the pins for display, e.g. "act=17 clk=16 data=14".
func (g GPIOConfig) Describe() string {
	return fmt.Sprintf("act=%s clk=%s data=%s", g.Act, g.Clk, g.Data)
}
