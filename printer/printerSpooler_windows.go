//go:build windows

package printer

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// SpoolerSink submits every buffer as its own RAW document to a printer
// installed in the Windows spooler.
type SpoolerSink struct {
	name     string
	hPrinter windows.Handle
	mu       sync.Mutex
}

// OpenSpooler opens the printer by its spooler name.
func OpenSpooler(printerName string) (*SpoolerSink, error) {
	var hPrinter windows.Handle
	pname, err := windows.UTF16PtrFromString(printerName)
	if err != nil {
		return nil, err
	}
	r1, _, err := procOpenPrinter.Call(
		uintptr(unsafe.Pointer(pname)),
		uintptr(unsafe.Pointer(&hPrinter)),
		0,
	)
	if r1 == 0 {
		return nil, fmt.Errorf("failed to open printer %q: %w", printerName, err)
	}
	return &SpoolerSink{name: printerName, hPrinter: hPrinter}, nil
}

func (s *SpoolerSink) SubmitRaw(_ context.Context, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docName, _ := windows.UTF16PtrFromString("ESC/POS RAW Document")
	dataType, _ := windows.UTF16PtrFromString("RAW")
	di := docInfo1{
		pDocName:  docName,
		pDatatype: dataType,
	}

	jobID, _, err := procStartDocPrinter.Call(
		uintptr(s.hPrinter),
		1,
		uintptr(unsafe.Pointer(&di)),
	)
	if jobID == 0 {
		return "", fmt.Errorf("StartDocPrinter on %q failed: %w", s.name, err)
	}
	procStartPagePrinter.Call(uintptr(s.hPrinter))

	werr := writeAll(spoolerWriter{s.hPrinter}, data)

	procEndPagePrinter.Call(uintptr(s.hPrinter))
	procEndDocPrinter.Call(uintptr(s.hPrinter))
	if werr != nil {
		return "", fmt.Errorf("WritePrinter on %q failed: %w", s.name, werr)
	}
	return s.name + "-" + strconv.FormatUint(uint64(jobID), 10), nil
}

func (s *SpoolerSink) Close() error {
	r1, _, err := procClosePrinter.Call(uintptr(s.hPrinter))
	if r1 == 0 {
		return fmt.Errorf("ClosePrinter %q: %w", s.name, err)
	}
	return nil
}

type spoolerWriter struct {
	hPrinter windows.Handle
}

func (w spoolerWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	var written uint32
	r1, _, err := procWritePrinter.Call(
		uintptr(w.hPrinter),
		uintptr(unsafe.Pointer(&p[0])),
		uintptr(len(p)),
		uintptr(unsafe.Pointer(&written)),
	)
	if r1 == 0 {
		return int(written), err
	}
	return int(written), nil
}

// --- WinAPI binding ---
var (
	modwinspool          = windows.NewLazySystemDLL("winspool.drv")
	procOpenPrinter      = modwinspool.NewProc("OpenPrinterW")
	procClosePrinter     = modwinspool.NewProc("ClosePrinter")
	procStartDocPrinter  = modwinspool.NewProc("StartDocPrinterW")
	procEndDocPrinter    = modwinspool.NewProc("EndDocPrinter")
	procStartPagePrinter = modwinspool.NewProc("StartPagePrinter")
	procEndPagePrinter   = modwinspool.NewProc("EndPagePrinter")
	procWritePrinter     = modwinspool.NewProc("WritePrinter")
)

type docInfo1 struct {
	pDocName    *uint16
	pOutputFile *uint16
	pDatatype   *uint16
}
