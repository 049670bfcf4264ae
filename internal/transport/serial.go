package transport

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// SerialOptions configures a serial port connection.
type SerialOptions struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
}

// OpenSerial opens a serial port as a Conn. The read timeout bounds how long
// a single Read may block with no data; an expired timeout surfaces as a
// zero-byte read with a nil error.
func OpenSerial(opts SerialOptions) (Conn, error) {
	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
	}
	port, err := serial.Open(opts.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", opts.Port, err)
	}

	if opts.ReadTimeout > 0 {
		if err := port.SetReadTimeout(opts.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("failed to set read timeout on %s: %w", opts.Port, err)
		}
	}
	return port, nil
}

// ListPorts enumerates the serial ports visible on this machine.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	return ports, nil
}
