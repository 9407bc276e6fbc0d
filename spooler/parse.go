package spooler

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformedOutput matches every *ParseError.
var ErrMalformedOutput = errors.New("malformed spooler output")

// ParseError points at the line of command output that could not be read.
type ParseError struct {
	Line   int // 1-based
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d %q: %s", e.Line, e.Text, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrMalformedOutput }

// State of a printer as lpstat reports it.
type State string

const (
	StateIdle     State = "idle"
	StatePrinting State = "printing"
	StateDisabled State = "disabled"
)

// Status is the first printer in `lpstat -p` output plus, when the adapter
// fills it, the queue from `lpstat -o`.
type Status struct {
	Printer string
	State   State
	Job     string // job being printed
	Since   string // "enabled since"/"disabled since" timestamp
	Reason  string // indented line after the status, e.g. "Paused"
	Line    string // first line verbatim
	Jobs    []Job
}

// Paused reports a stopped queue that needs Resume.
func (s *Status) Paused() bool {
	if s == nil {
		return false
	}
	return s.State == StateDisabled ||
		strings.Contains(strings.ToLower(s.Line), "paused") ||
		strings.Contains(strings.ToLower(s.Reason), "paused")
}

// Job is one line of `lpstat -o`.
type Job struct {
	ID        string // "POS-80-55"
	User      string
	Size      int64
	Submitted string
}

// ParseStatus reads `lpstat -p` output:
//
//	printer POS-80 is idle.  enabled since Tue 18 Mar 2025 10:00:00 AM JST
//	printer POS-80 now printing POS-80-55.  enabled since ...
//	printer POS-80 disabled since Tue 18 Mar 2025 10:00:00 AM JST -
//		Paused
func ParseStatus(out string) (*Status, error) {
	lines := strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")
	first := strings.TrimSpace(lines[0])
	if first == "" {
		return nil, &ParseError{Line: 1, Text: lines[0], Reason: "empty status"}
	}

	name, rest, ok := printerLine(first)
	if !ok {
		return nil, &ParseError{Line: 1, Text: first, Reason: `expected "printer NAME ..."`}
	}
	st := &Status{Printer: name, Line: first}

	switch {
	case strings.HasPrefix(rest, "disabled") || strings.Contains(rest, " disabled since"):
		st.State = StateDisabled
	case strings.HasPrefix(rest, "is idle"):
		st.State = StateIdle
	case strings.HasPrefix(rest, "now printing "):
		st.State = StatePrinting
		job := strings.Fields(strings.TrimPrefix(rest, "now printing "))
		if len(job) == 0 {
			return nil, &ParseError{Line: 1, Text: first, Reason: "missing job id"}
		}
		st.Job = strings.TrimSuffix(job[0], ".")
	default:
		return nil, &ParseError{Line: 1, Text: first, Reason: "unrecognised printer state"}
	}

	if i := strings.Index(rest, "since "); i >= 0 {
		st.Since = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest[i+len("since "):]), "-"))
	}
	if len(lines) > 1 && (strings.HasPrefix(lines[1], "\t") || strings.HasPrefix(lines[1], " ")) {
		st.Reason = strings.TrimSpace(lines[1])
	}
	return st, nil
}

// ParsePrinters lists every printer named in `lpstat -p` output.
func ParsePrinters(out string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		if name, _, ok := printerLine(strings.TrimSpace(line)); ok {
			names = append(names, name)
		}
	}
	return names
}

func printerLine(line string) (name, rest string, ok bool) {
	after, found := strings.CutPrefix(line, "printer ")
	if !found {
		return "", "", false
	}
	name, rest, _ = strings.Cut(strings.TrimLeft(after, " "), " ")
	if name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(rest), true
}

// ParseQueue reads `lpstat -o` output, one job per line:
//
//	POS-80-55               milkmaccya        1024   Tue 18 Mar 2025 10:00:00 AM JST
//
// Blank output is an empty queue.
func ParseQueue(out string) ([]Job, error) {
	var jobs []Job
	for i, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		f := strings.Fields(line)
		if len(f) < 3 {
			return nil, &ParseError{Line: i + 1, Text: line, Reason: "expected JOBID USER SIZE DATE"}
		}
		size, err := strconv.ParseInt(f[2], 10, 64)
		if err != nil || size < 0 {
			return nil, &ParseError{Line: i + 1, Text: line, Reason: fmt.Sprintf("bad size %q", f[2])}
		}
		jobs = append(jobs, Job{
			ID:        f[0],
			User:      f[1],
			Size:      size,
			Submitted: strings.Join(f[3:], " "),
		})
	}
	return jobs, nil
}

var requestID = regexp.MustCompile(`request id is (\S+)`)

// ParseRequestID extracts the job id from `lp` output:
//
//	request id is POS-80-55 (1 file(s))
func ParseRequestID(out string) (string, error) {
	m := requestID.FindStringSubmatch(out)
	if m == nil {
		line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
		return "", &ParseError{Line: 1, Text: line, Reason: "no request id"}
	}
	return m[1], nil
}
