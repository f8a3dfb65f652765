package feed

import (
	"fmt"

	"go.bug.st/serial"
)

// SerialConfig carries the port parameters that actually vary between
// instruments. Shipboard sensors are almost universally 8N1; only the baud
// rate differs.
type SerialConfig struct {
	BaudRate int
}

// DefaultSerialConfig returns the configuration most NMEA-style instruments
// use.
func DefaultSerialConfig() SerialConfig {
	return SerialConfig{BaudRate: 9600}
}

// OpenSerial opens the serial port at the given path as a line source.
func OpenSerial(path string, cfg SerialConfig) (*ReaderSource, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	return NewReaderSource(port), nil
}
