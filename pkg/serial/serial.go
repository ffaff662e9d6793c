// Package serial opens host serial ports for the UART adapter.
package serial

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Port is an opened serial port.
// Read returns (0, nil) when ReadTimeout expires without data.
type Port interface {
	io.ReadWriteCloser
}

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g. /dev/ttyUSB0, COM3).
	Device string
	Baud   int
	// ReadTimeout bounds a single Read, 0 blocks.
	ReadTimeout time.Duration
}

// Default serial settings.
const (
	DefaultBaud        = 115200
	DefaultReadTimeout = 50 * time.Millisecond
)

// DefaultConfig returns the configuration for device.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: DefaultReadTimeout,
	}
}

type nativePort struct {
	*serial.Port
	timeout bool
}

// Open opens a native serial port.
func Open(cfg *Config) (Port, error) {
	if cfg == nil || cfg.Device == "" {
		return nil, fmt.Errorf("serial device not specified")
	}
	baud := cfg.Baud
	if baud == 0 {
		baud = DefaultBaud
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}
	return &nativePort{Port: port, timeout: cfg.ReadTimeout > 0}, nil
}

// Read implements io.Reader.
func (p *nativePort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if n == 0 && err == io.EOF && p.timeout {
		return 0, nil
	}
	return n, err
}
