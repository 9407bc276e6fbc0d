// Package log is the leveled logger shared by the printing packages. Messages
// go to stdout/stderr and, when a directory is configured, to day-of-month
// rotated files under that directory.
package log

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Log levels.
const (
	DEBUG = "DEBUG"
	INFO  = "INFO"
	WARN  = "WARN"
	ERROR = "ERROR"
)

var Stdlog, Errlog *log.Logger

var (
	mu     sync.Mutex
	logDir string
	debug  bool
	now    = time.Now
)

func init() {
	Stdlog = log.New(os.Stdout, "Success: ", log.Ldate|log.Ltime)
	Errlog = log.New(os.Stderr, "Error: ", log.Ldate|log.Ltime)
}

// SetDir enables file logging under dir. An empty dir disables it.
func SetDir(dir string) error {
	mu.Lock()
	defer mu.Unlock()
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log dir %s: %w", dir, err)
		}
	}
	logDir = dir
	return nil
}

// SetDebug toggles DEBUG output.
func SetDebug(on bool) {
	mu.Lock()
	debug = on
	mu.Unlock()
}

// SetOutput redirects the console loggers, mostly for tests.
func SetOutput(stdout, stderr io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	Stdlog.SetOutput(stdout)
	Errlog.SetOutput(stderr)
}

func LogMessage(level, message string) {
	mu.Lock()
	defer mu.Unlock()

	if level == DEBUG && !debug {
		return
	}
	if level == ERROR {
		writeLocked("errors", Errlog, "Error: ", message)
		return
	}
	writeLocked("stdlog", Stdlog, "Success: ", fmt.Sprintf("[%s] %s", level, message))
}

// PrintIfErr logs *err with msg when it is non-nil.
func PrintIfErr(msg string, err *error) {
	if err == nil || *err == nil {
		return
	}
	LogMessage(ERROR, fmt.Sprintf("%s: %v", msg, *err))
}

// writeLocked prints line to the console logger and, if enabled, to the
// rotated file for typeLog. Callers hold mu.
func writeLocked(typeLog string, console *log.Logger, prefix, line string) {
	console.Println(line)

	if logDir == "" {
		return
	}
	logPath, suffix := getLogFilePath(typeLog)
	rotateLogs(typeLog, suffix)

	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		Errlog.Printf("[ERROR] open %s: %v", logPath, err)
		return
	}
	defer logFile.Close()

	log.New(logFile, prefix, log.Ldate|log.Ltime).Println(line)
}

// getLogFilePath returns the log file for the current third of the month and
// its rotation suffix.
func getLogFilePath(typeLog string) (string, int) {
	day := now().Day()
	var suffix int
	switch {
	case day <= 9:
		suffix = 0
	case day <= 19:
		suffix = 1
	default:
		suffix = 2
	}
	return filepath.Join(logDir, fmt.Sprintf("%s-%d.log", typeLog, suffix)), suffix
}

// rotateLogs removes the slot that the next period will write into, so at
// most two periods of history are kept.
func rotateLogs(typeLog string, currentSuffix int) {
	if currentSuffix < 0 || currentSuffix > 2 {
		return
	}
	next := (currentSuffix + 1) % 3
	fileToDelete := filepath.Join(logDir, fmt.Sprintf("%s-%d.log", typeLog, next))

	info, err := os.Stat(fileToDelete)
	if err != nil {
		return
	}
	// Only clear files left over from an earlier cycle.
	if now().Sub(info.ModTime()) < 24*time.Hour {
		return
	}
	if err := os.Remove(fileToDelete); err != nil && !errors.Is(err, os.ErrNotExist) {
		Errlog.Printf("[WARN] remove %s: %v", fileToDelete, err)
	}
}

// Logger is a tagged view of the package logger handed to components.
type Logger struct {
	prefix string
}

// New returns a Logger whose messages are prefixed with "[prefix] ".
func New(prefix string) *Logger {
	return &Logger{prefix: prefix}
}

func (l *Logger) format(format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if l == nil || l.prefix == "" {
		return msg
	}
	return "[" + l.prefix + "] " + msg
}

func (l *Logger) Debugf(format string, args ...any) { LogMessage(DEBUG, l.format(format, args...)) }
func (l *Logger) Infof(format string, args ...any)  { LogMessage(INFO, l.format(format, args...)) }
func (l *Logger) Warnf(format string, args ...any)  { LogMessage(WARN, l.format(format, args...)) }
func (l *Logger) Errorf(format string, args ...any) { LogMessage(ERROR, l.format(format, args...)) }
