// Package config loads the YAML configuration file. Every field has a
// default, so a missing file or a partial file is valid.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/luki/roomtemps/internal/alert"
	"github.com/luki/roomtemps/internal/coalesce"
	"github.com/luki/roomtemps/internal/history"
	"github.com/luki/roomtemps/internal/logging"
	"github.com/luki/roomtemps/internal/source/amqp"
	"github.com/luki/roomtemps/internal/source/mqtt"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Transports.
const (
	TransportMQTT = "mqtt"
	TransportAMQP = "amqp"
)

// Config is the main configuration
type Config struct {
	Env      string         `yaml:"env"`
	Logging  logging.Config `yaml:"logging"`
	Store    StoreConfig    `yaml:"store"`
	Alert    AlertConfig    `yaml:"alert"`
	Coalesce CoalesceConfig `yaml:"coalesce"`
	Source   SourceConfig   `yaml:"source"`
	MQTT     mqtt.Config    `yaml:"mqtt"`
	AMQP     amqp.Config    `yaml:"amqp"`
	HTTP     HTTPConfig     `yaml:"http"`
	UI       UIConfig       `yaml:"ui"`
}

// StoreConfig sizes the per-series buffers.
type StoreConfig struct {
	Capacity int `yaml:"capacity"`
}

// AlertConfig holds the threshold shown for rooms without a reference.
type AlertConfig struct {
	DefaultThreshold float64 `yaml:"default_threshold"`
}

// CoalesceConfig holds the debounce window per notification kind.
type CoalesceConfig struct {
	SummaryInterval  time.Duration `yaml:"summary_interval"`
	RoomListInterval time.Duration `yaml:"room_list_interval"`
	DisplayInterval  time.Duration `yaml:"display_interval"`
}

// Intervals converts to the coalescer's representation.
func (c CoalesceConfig) Intervals() coalesce.Intervals {
	return coalesce.Intervals{
		Summary:  c.SummaryInterval,
		RoomList: c.RoomListInterval,
		Display:  c.DisplayInterval,
	}
}

// SourceConfig selects the ingestion transport.
type SourceConfig struct {
	Transport string `yaml:"transport"`
}

// HTTPConfig enables the read-only HTTP API when Listen is set.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// UIConfig toggles the terminal presentation.
type UIConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	iv := coalesce.DefaultIntervals()
	return Config{
		Env:   "prod",
		Store: StoreConfig{Capacity: history.DefaultCapacity},
		Alert: AlertConfig{DefaultThreshold: alert.DefaultThreshold},
		Coalesce: CoalesceConfig{
			SummaryInterval:  iv.Summary,
			RoomListInterval: iv.RoomList,
			DisplayInterval:  iv.Display,
		},
		Source: SourceConfig{Transport: TransportMQTT},
		MQTT:   mqtt.DefaultConfig(),
		AMQP:   amqp.DefaultConfig(),
		UI:     UIConfig{Enabled: true},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := Parse(f, &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Parse decodes YAML into c, keeping c's values for absent keys, and
// validates the result.
func Parse(data []byte, c *Config) error {
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return c.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Store.Capacity < 1 {
		return fmt.Errorf("%w: store.capacity must be at least 1, got %d", ErrInvalid, c.Store.Capacity)
	}
	for name, d := range map[string]time.Duration{
		"coalesce.summary_interval":   c.Coalesce.SummaryInterval,
		"coalesce.room_list_interval": c.Coalesce.RoomListInterval,
		"coalesce.display_interval":   c.Coalesce.DisplayInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalid, name, d)
		}
	}
	switch c.Source.Transport {
	case TransportMQTT:
		if c.MQTT.Broker == "" || c.MQTT.Topic == "" {
			return fmt.Errorf("%w: mqtt.broker and mqtt.topic are required", ErrInvalid)
		}
		if c.MQTT.QoS > 2 {
			return fmt.Errorf("%w: mqtt.qos must be 0, 1 or 2, got %d", ErrInvalid, c.MQTT.QoS)
		}
	case TransportAMQP:
		if c.AMQP.DSN == "" || len(c.AMQP.Topics) == 0 {
			return fmt.Errorf("%w: amqp.dsn and amqp.topics are required", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown source.transport %q", ErrInvalid, c.Source.Transport)
	}
	return nil
}
