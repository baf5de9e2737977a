package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl"
)

// Config holds the application configuration
type Config struct {
	// SerialPort is the path to the modem's serial port (e.g. "/dev/ttyS1")
	SerialPort string
	// BaudRate is the baud rate for serial communication with the modem (e.g. 9600)
	BaudRate int
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string
	// StorePath is the file backing the persistent configuration record
	StorePath string
	// CustomerID is used until a SETID directive is stored
	CustomerID string
	// Numbers are the recipients used until NUMSET directives are stored
	Numbers [3]string
	// HumidityDevice is the IIO directory of the humidity sensor
	HumidityDevice string
	// ProbeDevice is the w1_slave file of the temperature probe
	ProbeDevice string
	// BindAddress serves the status endpoint; empty disables it
	BindAddress string
	// MQTTBroker mirrors reports to an MQTT broker; empty disables it
	MQTTBroker string
	// MQTTTopic is the topic reports are published on
	MQTTTopic string
	// MQTTClientID identifies the node to the broker
	MQTTClientID string
	// TickInterval is the period of the cooperative loop
	TickInterval time.Duration
	// CycleInterval separates sampling cycles
	CycleInterval time.Duration
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.SerialPort = "/dev/ttyS1"
		c.BaudRate = 9600
		c.LogLevel = "info"
		c.StorePath = "/var/lib/telenode/config.bin"
		c.HumidityDevice = "/sys/bus/iio/devices/iio:device0"
		c.ProbeDevice = "/sys/bus/w1/devices/w1_bus_master1/28-000000000000/w1_slave"
		c.MQTTTopic = "telenode/report"
		c.MQTTClientID = "telenode"
		c.TickInterval = 10 * time.Millisecond
		c.CycleInterval = 5 * time.Minute
		return nil
	}
}

// fileConfig is the layout of the HCL configuration file.
type fileConfig struct {
	SerialPort     string   `hcl:"serial_port"`
	BaudRate       int      `hcl:"baud_rate"`
	LogLevel       string   `hcl:"log_level"`
	StorePath      string   `hcl:"store_path"`
	CustomerID     string   `hcl:"customer_id"`
	Numbers        []string `hcl:"numbers"`
	HumidityDevice string   `hcl:"humidity_device"`
	ProbeDevice    string   `hcl:"probe_device"`
	BindAddress    string   `hcl:"bind_address"`
	TickInterval   string   `hcl:"tick_interval"`
	CycleInterval  string   `hcl:"cycle_interval"`
	MQTT           struct {
		Broker   string `hcl:"broker"`
		Topic    string `hcl:"topic"`
		ClientID string `hcl:"client_id"`
	} `hcl:"mqtt"`
}

// WithFile loads configuration from an HCL file. An empty path is ignored.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}

		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}

		var f fileConfig
		if err := hcl.Unmarshal(b, &f); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}

		setString(&c.SerialPort, f.SerialPort)
		setString(&c.LogLevel, f.LogLevel)
		setString(&c.StorePath, f.StorePath)
		setString(&c.CustomerID, f.CustomerID)
		setString(&c.HumidityDevice, f.HumidityDevice)
		setString(&c.ProbeDevice, f.ProbeDevice)
		setString(&c.BindAddress, f.BindAddress)
		setString(&c.MQTTBroker, f.MQTT.Broker)
		setString(&c.MQTTTopic, f.MQTT.Topic)
		setString(&c.MQTTClientID, f.MQTT.ClientID)
		if f.BaudRate != 0 {
			c.BaudRate = f.BaudRate
		}
		if len(f.Numbers) > len(c.Numbers) {
			return fmt.Errorf("config file %s: at most %d numbers", path, len(c.Numbers))
		}
		copy(c.Numbers[:], f.Numbers)

		if err := setDuration(&c.TickInterval, f.TickInterval); err != nil {
			return fmt.Errorf("config file %s: tick_interval: %w", path, err)
		}
		if err := setDuration(&c.CycleInterval, f.CycleInterval); err != nil {
			return fmt.Errorf("config file %s: cycle_interval: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		setString(&c.StorePath, os.Getenv("STORE_PATH"))
		setString(&c.CustomerID, os.Getenv("CUSTOMER_ID"))
		setString(&c.Numbers[0], os.Getenv("NUMBER_A"))
		setString(&c.Numbers[1], os.Getenv("NUMBER_B"))
		setString(&c.Numbers[2], os.Getenv("NUMBER_C"))
		setString(&c.HumidityDevice, os.Getenv("HUMIDITY_DEVICE"))
		setString(&c.ProbeDevice, os.Getenv("PROBE_DEVICE"))
		setString(&c.BindAddress, os.Getenv("BIND_ADDRESS"))
		setString(&c.MQTTBroker, os.Getenv("MQTT_BROKER"))
		setString(&c.MQTTTopic, os.Getenv("MQTT_TOPIC"))
		setString(&c.MQTTClientID, os.Getenv("MQTT_CLIENT_ID"))

		if err := setDuration(&c.TickInterval, os.Getenv("TICK_INTERVAL")); err != nil {
			return fmt.Errorf("TICK_INTERVAL: %w", err)
		}
		if err := setDuration(&c.CycleInterval, os.Getenv("CYCLE_INTERVAL")); err != nil {
			return fmt.Errorf("CYCLE_INTERVAL: %w", err)
		}
		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		var err error
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, convErr := strconv.Atoi(f.Value.String()); convErr == nil {
					c.BaudRate = b
				}
			case "log-level":
				c.LogLevel = f.Value.String()
			case "store-path":
				c.StorePath = f.Value.String()
			case "customer-id":
				c.CustomerID = f.Value.String()
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "mqtt-broker":
				c.MQTTBroker = f.Value.String()
			case "tick-interval":
				if setErr := setDuration(&c.TickInterval, f.Value.String()); setErr != nil {
					err = fmt.Errorf("-tick-interval: %w", setErr)
				}
			}
		})
		return err
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("duration %s must be positive", v)
	}
	*dst = d
	return nil
}
