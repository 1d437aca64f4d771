// Package env provides common configuration for console binaries.
package env

import (
	"flag"
	"io"
	"os"
	"strconv"

	"github.com/openecu/tune.go/pkg/link/mqtt"
	"github.com/openecu/tune.go/pkg/link/transports"
)

// Config provides common options to reach a board.
type Config struct {
	// Port is the local serial port path, e.g. /dev/ttyUSB0.
	Port string
	// BaudRate applies to Port.
	BaudRate int
	// BrokerURL points at the MQTT bridge registry.
	// e.g. mqtt://host:port/topic-prefix
	BrokerURL string
	// Device names the bridged board on the broker.
	Device string
}

var defaultConfig = Config{
	BaudRate:  transports.DefaultBaudRate,
	BrokerURL: "mqtt://localhost:1883/tune/",
	Device:    "default",
}

func init() {
	if val := os.Getenv("TUNE_PORT"); val != "" {
		defaultConfig.Port = val
	}
	if val := os.Getenv("TUNE_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			defaultConfig.BaudRate = baud
		}
	}
	if val := os.Getenv("TUNE_BROKER_URL"); val != "" {
		defaultConfig.BrokerURL = val
	}
	if val := os.Getenv("TUNE_DEVICE"); val != "" {
		defaultConfig.Device = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial port to connect.")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Serial baud rate.")
	flag.StringVar(&defaultConfig.BrokerURL, "broker", defaultConfig.BrokerURL, "MQTT bridge broker URL.")
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "Bridged device name on the broker.")
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// OpenPort opens the configured serial port.
func (c *Config) OpenPort() (io.ReadWriteCloser, error) {
	return transports.OpenSerial(transports.SerialConfig{
		Port:     c.Port,
		BaudRate: c.BaudRate,
	})
}

// NewQueue creates an MQTT queue for the configured broker.
func (c *Config) NewQueue() (*mqtt.Queue, error) {
	return mqtt.NewQueueFromURL(c.BrokerURL)
}
