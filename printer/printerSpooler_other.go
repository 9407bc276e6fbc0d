//go:build !windows

package printer

import (
	"context"
	"errors"
)

var errNoWindowsSpooler = errors.New("Windows spooler printing is only supported on Windows")

// SpoolerSink is only available on Windows.
type SpoolerSink struct{}

func OpenSpooler(printerName string) (*SpoolerSink, error) {
	return nil, errNoWindowsSpooler
}

func (s *SpoolerSink) SubmitRaw(context.Context, []byte) (string, error) {
	return "", errNoWindowsSpooler
}

func (s *SpoolerSink) Close() error { return nil }
