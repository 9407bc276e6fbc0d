package spooler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	logInternal "github.com/AlexStarov/escpos-raster/log"
	"github.com/AlexStarov/escpos-raster/printer"
)

// Spooler is an OS print queue: it accepts raw buffers and reports and
// manages the jobs it holds.
type Spooler interface {
	printer.Sink
	Status(ctx context.Context) (*Status, error)
	Cancel(ctx context.Context, jobID string) error
	CancelAll(ctx context.Context) error
	Resume(ctx context.Context) error
}

// Runner runs a command with stdin and returns its standard output.
type Runner func(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec; stderr is folded into the error.
func ExecRunner(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, msg)
		}
		return out, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// CUPS drives the lp/lpstat/cancel/cupsenable command line tools.
type CUPS struct {
	// Destination is the queue name; empty uses the system default.
	Destination string
	// Run defaults to ExecRunner.
	Run Runner
}

var (
	_ Spooler = (*CUPS)(nil)

	cupsLog = logInternal.New("cups")
)

func (c *CUPS) run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	run := c.Run
	if run == nil {
		run = ExecRunner
	}
	cupsLog.Debugf("%s %s", name, strings.Join(args, " "))
	return run(ctx, stdin, name, args...)
}

func (c *CUPS) destArgs(args ...string) []string {
	if c.Destination != "" {
		return append(args, c.Destination)
	}
	return args
}

// SubmitRaw queues data unfiltered with `lp -o raw`. An unparseable reply
// still counts as submitted; the job id is then empty.
func (c *CUPS) SubmitRaw(ctx context.Context, data []byte) (string, error) {
	args := []string{"-o", "raw"}
	if c.Destination != "" {
		args = append(args, "-d", c.Destination)
	}
	out, err := c.run(ctx, data, "lp", args...)
	if err != nil {
		return "", err
	}
	id, err := ParseRequestID(string(out))
	if err != nil {
		cupsLog.Warnf("lp: %v", err)
		return "", nil
	}
	return id, nil
}

// Status reads the printer state and its queue.
func (c *CUPS) Status(ctx context.Context) (*Status, error) {
	out, err := c.run(ctx, nil, "lpstat", c.destArgs("-p")...)
	if err != nil {
		return nil, err
	}
	st, err := ParseStatus(string(out))
	if err != nil {
		return nil, fmt.Errorf("lpstat -p: %w", err)
	}

	out, err = c.run(ctx, nil, "lpstat", c.destArgs("-o")...)
	if err != nil {
		return nil, err
	}
	if st.Jobs, err = ParseQueue(string(out)); err != nil {
		return nil, fmt.Errorf("lpstat -o: %w", err)
	}
	return st, nil
}

// Cancel removes one job.
func (c *CUPS) Cancel(ctx context.Context, jobID string) error {
	if jobID == "" || strings.HasPrefix(jobID, "-") || strings.ContainsAny(jobID, " \t\n") {
		return fmt.Errorf("invalid job id %q", jobID)
	}
	_, err := c.run(ctx, nil, "cancel", jobID)
	return err
}

// CancelAll empties the queue (every queue without a Destination).
func (c *CUPS) CancelAll(ctx context.Context) error {
	_, err := c.run(ctx, nil, "cancel", c.destArgs("-a")...)
	return err
}

// Resume re-enables the destination, or every printer lpstat lists.
func (c *CUPS) Resume(ctx context.Context) error {
	names := []string{c.Destination}
	if c.Destination == "" {
		out, err := c.run(ctx, nil, "lpstat", "-p")
		if err != nil {
			return err
		}
		if names = ParsePrinters(string(out)); len(names) == 0 {
			return errors.New("resume: no printers configured")
		}
	}
	_, err := c.run(ctx, nil, "cupsenable", names...)
	return err
}
