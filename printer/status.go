package printer

import (
	"context"
	"errors"
	"fmt"
)

var (
	cmdStatusPrinter = []byte{0x10, 0x04, 0x01} // DLE EOT 1
	cmdStatusPaper   = []byte{0x10, 0x04, 0x04} // DLE EOT 4
)

// ErrBadStatusByte is returned when a DLE EOT reply lacks the fixed bits.
var ErrBadStatusByte = errors.New("malformed printer status byte")

// DeviceStatus is what a directly attached printer reports about itself.
type DeviceStatus struct {
	Online   bool
	PaperLow bool
	PaperOut bool
}

func (s *DeviceStatus) String() string {
	state := "online"
	if !s.Online {
		state = "offline"
	}
	switch {
	case s.PaperOut:
		state += ", paper out"
	case s.PaperLow:
		state += ", paper low"
	}
	return state
}

// StatusReader is a sink that can query the device in real time.
type StatusReader interface {
	ReadStatus(ctx context.Context) (*DeviceStatus, error)
}

// ReadStatus sends DLE EOT 1 and DLE EOT 4 and decodes the replies. The
// device must answer before ctx expires; printers without a return channel
// never do.
func (w *WriterSink) ReadStatus(ctx context.Context) (*DeviceStatus, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	printerByte, err := w.query(ctx, cmdStatusPrinter)
	if err != nil {
		return nil, fmt.Errorf("%s printer status: %w", w.name, err)
	}
	paperByte, err := w.query(ctx, cmdStatusPaper)
	if err != nil {
		return nil, fmt.Errorf("%s paper status: %w", w.name, err)
	}
	return &DeviceStatus{
		Online:   printerByte&0x08 == 0,
		PaperLow: paperByte&0x0c != 0,
		PaperOut: paperByte&0x60 != 0,
	}, nil
}

func (w *WriterSink) query(ctx context.Context, cmd []byte) (byte, error) {
	if err := writeAll(w.t, cmd); err != nil {
		return 0, err
	}
	b, err := readByte(ctx, w.t)
	if err != nil {
		return 0, err
	}
	// bits 1 and 4 are always set, bits 0 and 7 always clear
	if b&0x93 != 0x12 {
		return 0, fmt.Errorf("%w: 0x%02x", ErrBadStatusByte, b)
	}
	return b, nil
}

// readByte waits for one byte. Transports with a read timeout return
// (0, nil) while idle, so reads repeat until ctx is done.
func readByte(ctx context.Context, t Transport) (byte, error) {
	type result struct {
		b   byte
		err error
	}
	ch := make(chan result, 1)
	go func() {
		buf := make([]byte, 1)
		for ctx.Err() == nil {
			n, err := t.Read(buf)
			if n == 1 {
				ch <- result{b: buf[0]}
				return
			}
			if err != nil {
				ch <- result{err: err}
				return
			}
		}
	}()

	select {
	case r := <-ch:
		return r.b, r.err
	case <-ctx.Done():
		return 0, fmt.Errorf("no reply: %w", ctx.Err())
	}
}
