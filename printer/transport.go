package printer

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	logInternal "github.com/AlexStarov/escpos-raster/log"
)

// Transport is a byte pipe to the device.
type Transport interface {
	Write([]byte) (int, error)
	Read([]byte) (int, error)
	Close() error
}

// -------------------- RAW --------------------

type RawTransport struct {
	conn io.ReadWriteCloser
}

// NewRawTransport wraps any connection; plain io.ReadWriters get a no-op Close.
func NewRawTransport(rw io.ReadWriter) *RawTransport {
	if rc, ok := rw.(io.ReadWriteCloser); ok {
		return &RawTransport{conn: rc}
	}
	return &RawTransport{conn: nopCloser{rw}}
}

// DialRaw connects to a printer's raw TCP port (usually 9100).
func DialRaw(ctx context.Context, addr string) (*RawTransport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial raw printer %s: %w", addr, err)
	}
	return &RawTransport{conn: conn}, nil
}

func (r *RawTransport) Write(b []byte) (int, error) { return r.conn.Write(b) }
func (r *RawTransport) Read(b []byte) (int, error)  { return r.conn.Read(b) }
func (r *RawTransport) Close() error                { return r.conn.Close() }

// -------------------- Sinks --------------------

// Sink accepts one complete, self-contained command buffer per call, in
// order, and returns the spooler's job id when it has one.
type Sink interface {
	SubmitRaw(ctx context.Context, data []byte) (string, error)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, data []byte) (string, error)

func (f SinkFunc) SubmitRaw(ctx context.Context, data []byte) (string, error) { return f(ctx, data) }

// WriterSink writes each submission straight to an open Transport.
type WriterSink struct {
	name string
	t    Transport
	mu   sync.Mutex
	seq  int
}

// NewWriterSink names the sink for job ids ("usb-1", "serial-2", ...).
func NewWriterSink(name string, t Transport) *WriterSink {
	return &WriterSink{name: name, t: t}
}

func (w *WriterSink) SubmitRaw(_ context.Context, data []byte) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := writeAll(w.t, data); err != nil {
		return "", fmt.Errorf("%s write: %w", w.name, err)
	}
	w.seq++
	return w.name + "-" + strconv.Itoa(w.seq), nil
}

// Close closes the underlying transport.
func (w *WriterSink) Close() error { return w.t.Close() }

// FileSink appends each submission to a file or device node
// (/dev/usb/lp0, a capture file, ...), opening it per submission.
type FileSink struct {
	Path string
	seq  atomic.Int64
}

func (f *FileSink) SubmitRaw(_ context.Context, data []byte) (string, error) {
	fd, err := os.OpenFile(f.Path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", f.Path, err)
	}
	if err := writeAll(fd, data); err != nil {
		fd.Close()
		return "", fmt.Errorf("write %s: %w", f.Path, err)
	}
	if err := fd.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", f.Path, err)
	}
	return "file-" + strconv.FormatInt(f.seq.Add(1), 10), nil
}

// -------------------- LPD --------------------

// LPDSink submits every buffer as its own RFC 1179 job with a raw ('l')
// print line, over a fresh connection.
type LPDSink struct {
	Addr  string // host:515
	Queue string // defaults to "lp"
	// Dial overrides the network dialer, mostly for tests.
	Dial func(ctx context.Context, addr string) (net.Conn, error)
	// AckTimeout bounds each acknowledgement wait; zero means 5s.
	AckTimeout time.Duration

	seq atomic.Int64
}

var lpdLog = logInternal.New("lpd")

func (l *LPDSink) SubmitRaw(ctx context.Context, data []byte) (string, error) {
	queue := l.Queue
	if queue == "" {
		queue = "lp"
	}

	dial := l.Dial
	if dial == nil {
		dial = func(ctx context.Context, addr string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "tcp", addr)
		}
	}
	conn, err := dial(ctx, l.Addr)
	if err != nil {
		return "", fmt.Errorf("LPD: dial %s: %w", l.Addr, err)
	}
	defer conn.Close()

	jobNum := int((time.Now().UnixNano()/int64(time.Millisecond) + l.seq.Add(1)) % 1000)
	if err := l.flushJob(conn, queue, jobNum, data); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%03d", queue, jobNum), nil
}

func (l *LPDSink) flushJob(conn net.Conn, queue string, jobNum int, data []byte) error {
	host, _ := os.Hostname()
	if host == "" {
		host = "localhost"
	}
	user := os.Getenv("USER")
	if user == "" {
		user = "escpos"
	}

	hostShort := host
	if i := strings.IndexByte(hostShort, '.'); i > 0 {
		hostShort = hostShort[:i]
	}
	jobName := fmt.Sprintf("escpos-%03d", jobNum)
	cfName := fmt.Sprintf("cfA%03d%s", jobNum, hostShort)
	dfName := fmt.Sprintf("dfA%03d%s", jobNum, hostShort)

	// H host, P user, J job name, l print raw, U unlink, N source name
	control := fmt.Sprintf(
		"H%s\nP%s\nJ%s\nl%s\nU%s\nN%s\n",
		host, user, jobName, dfName, dfName, jobName,
	)

	timeout := l.AckTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	lpdLog.Debugf("stage 1: receive job on %q", queue)
	if err := requestPrintJob(conn, queue, timeout); err != nil {
		return fmt.Errorf("LPD: stage 1 failed: %w", err)
	}

	lpdLog.Debugf("stage 2: control file %s", cfName)
	if err := sendSubcommand(conn, 0x02, cfName, []byte(control), timeout); err != nil {
		return fmt.Errorf("LPD: stage 2 failed: %w", err)
	}

	lpdLog.Debugf("stage 3: data file %s (len=%d)", dfName, len(data))
	if err := sendSubcommand(conn, 0x03, dfName, data, timeout); err != nil {
		return fmt.Errorf("LPD: stage 3 failed: %w", err)
	}
	return nil
}

// -------------------- LPD helpers --------------------

func requestPrintJob(conn net.Conn, queue string, timeout time.Duration) error {
	// \x02 + <queue>\n
	if err := writeAll(conn, append([]byte{0x02}, queue+"\n"...)); err != nil {
		return err
	}
	return readAck(conn, "stage 1", timeout)
}

// sendSubcommand sends "<code><size> <name>\n", waits for the ack, then the
// payload and a trailing NUL, and waits again.
func sendSubcommand(conn net.Conn, code byte, name string, payload []byte, timeout time.Duration) error {
	header := append([]byte{code}, strconv.Itoa(len(payload))+" "+name+"\n"...)
	if err := writeAll(conn, header); err != nil {
		return err
	}
	if err := readAck(conn, "header "+name, timeout); err != nil {
		return err
	}
	if err := writeAll(conn, payload); err != nil {
		return err
	}
	if err := writeAll(conn, []byte{0x00}); err != nil {
		return err
	}
	return readAck(conn, "payload "+name, timeout)
}

func readAck(conn net.Conn, stage string, timeout time.Duration) error {
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	defer conn.SetReadDeadline(time.Time{})

	ack := make([]byte, 1)
	n, err := conn.Read(ack)
	if err != nil {
		return fmt.Errorf("reading ACK on %s: %w", stage, err)
	}
	if n != 1 || ack[0] != 0x00 {
		return fmt.Errorf("LPD request not acknowledged on %s (0x%02x)", stage, ack[0])
	}
	return nil
}

func writeAll(w io.Writer, b []byte) error {
	sent := 0
	for sent < len(b) {
		n, err := w.Write(b[sent:])
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		sent += n
	}
	return nil
}

// -------------------- helpers --------------------

type nopCloser struct {
	io.ReadWriter
}

func (n nopCloser) Close() error { return nil }
