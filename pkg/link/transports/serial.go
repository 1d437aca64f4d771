// Package transports opens the byte transports a console can run over.
package transports

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the firmware console default.
const DefaultBaudRate = 115200

// readTick makes idle Reads return (0, nil) periodically instead of
// blocking forever, which is what the link reader expects from its
// source.
const readTick = 100 * time.Millisecond

// SerialConfig holds options for opening a serial port.
type SerialConfig struct {
	Port     string
	BaudRate int
}

// OpenSerial opens the port 8N1 at the configured baud rate. Baud rate
// policy is the caller's business; this layer just applies it.
func OpenSerial(cfg SerialConfig) (serial.Port, error) {
	if cfg.Port == "" {
		return nil, errors.New("serial port path is required")
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v", cfg.Port, err)
	}
	if err = port.SetReadTimeout(readTick); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %v", cfg.Port, err)
	}
	return port, nil
}

// ListPorts enumerates serial ports present on the system.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
