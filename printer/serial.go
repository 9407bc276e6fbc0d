package printer

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"go.bug.st/serial"

	logInternal "github.com/AlexStarov/escpos-raster/log"
)

// PortOptions describes the serial line to the printer.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// Normalize validates the options and fills defaults (19200 8N1).
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = 19200
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	parity := strings.TrimSpace(strings.ToUpper(opts.Parity))
	switch parity {
	case "", "N", "NONE":
		parity = "N"
	case "E", "EVEN":
		parity = "E"
	case "O", "ODD":
		parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}

	opts.Parity = parity
	return opts, nil
}

// SerialMode converts the options into the go.bug.st/serial mode.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	switch opts.Parity {
	case "N":
		mode.Parity = serial.NoParity
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}
	return mode, nil
}

// serialOpen is replaced in tests.
var serialOpen = func(path string, mode *serial.Mode) (Transport, error) {
	return serial.Open(path, mode)
}

// OpenSerial opens the printer on a serial port (COM3, /dev/ttyUSB0,
// /dev/cu.usbmodem*) and initialises it.
func OpenSerial(portName string, opts PortOptions) (*WriterSink, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	if ports, err := serial.GetPortsList(); err != nil {
		logInternal.Errlog.Printf("list serial ports: %v", err)
	} else if !slices.Contains(ports, portName) {
		// by-id symlinks are not listed; try anyway.
		logInternal.LogMessage(logInternal.WARN, fmt.Sprintf("serial port %s not in %v", portName, ports))
	}

	logInternal.LogMessage(logInternal.INFO, fmt.Sprintf("opening %s at %d baud", portName, mode.BaudRate))
	port, err := serialOpen(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	if tp, ok := port.(interface{ SetReadTimeout(time.Duration) error }); ok {
		_ = tp.SetReadTimeout(100 * time.Millisecond)
	}

	// XON in case the printer paused the line, then ESC @.
	if err := writeAll(port, append(append([]byte{}, cmdXON...), cmdInit...)); err != nil {
		port.Close()
		return nil, fmt.Errorf("initialise printer on %s: %w", portName, err)
	}
	return NewWriterSink("serial", port), nil
}
