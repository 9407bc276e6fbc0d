package printer

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrPrinterBusy is returned when another job holds the device.
	ErrPrinterBusy = errors.New("printer is busy")
	// ErrChunkSubmissionFailed matches every *ChunkError.
	ErrChunkSubmissionFailed = errors.New("chunk submission failed")
)

// ChunkError reports a band (or the trailer) the sink refused.
type ChunkError struct {
	Band    int // zero-based band index; equals Total for the trailer
	Total   int
	Rows    [2]int
	Trailer bool
	Err     error
}

func (e *ChunkError) Error() string {
	if e.Trailer {
		return fmt.Sprintf("trailer after %d bands: %v", e.Total, e.Err)
	}
	return fmt.Sprintf("band %d/%d (rows %d-%d): %v", e.Band+1, e.Total, e.Rows[0], e.Rows[1], e.Err)
}

func (e *ChunkError) Unwrap() []error { return []error{ErrChunkSubmissionFailed, e.Err} }

// FailurePolicy decides what happens after a band fails.
type FailurePolicy string

const (
	// AbortOnFailure stops at the first failed band; no trailer is sent.
	AbortOnFailure FailurePolicy = "abort"
	// ContinueOnFailure sends the remaining bands and the trailer, then
	// reports every failure.
	ContinueOnFailure FailurePolicy = "continue"
)

// ParseFailurePolicy accepts "abort" or "continue".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(s); p {
	case AbortOnFailure, ContinueOnFailure:
		return p, nil
	}
	return "", fmt.Errorf("unknown chunk failure policy %q: expected %q or %q", s, AbortOnFailure, ContinueOnFailure)
}

// JobKind says what a Report describes.
type JobKind string

const (
	KindImage JobKind = "image"
	KindText  JobKind = "text"
	KindCut   JobKind = "cut"
)

// Outcome summarises a job.
type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	// OutcomePartial means something reached the printer but not all of it
	// (a band failed, or the trailer was never sent).
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
)

// Report is the caller-visible result of one job.
type Report struct {
	JobID         string
	Kind          JobKind
	Width, Height int
	BandsTotal    int
	BandsSent     int
	TrailerSent   bool
	SpoolerJobs   []string
	Failures      []*ChunkError
	Substitutions []UnencodableCharacter
	Outcome       Outcome
	Started       time.Time
	Finished      time.Time
}

// Success reports whether the whole job reached the sink.
func (r *Report) Success() bool { return r != nil && r.Outcome == OutcomeComplete }

// Message is a one-line status for display.
func (r *Report) Message() string {
	if r == nil {
		return "no job"
	}
	switch r.Kind {
	case KindImage:
		switch r.Outcome {
		case OutcomeComplete:
			return fmt.Sprintf("image sent to printer (%d chunks)", r.BandsTotal)
		case OutcomePartial:
			if !r.TrailerSent {
				return fmt.Sprintf("image partially sent: %d of %d chunks, no feed/cut", r.BandsSent, r.BandsTotal)
			}
			return fmt.Sprintf("image partially sent: %d of %d chunks", r.BandsSent, r.BandsTotal)
		}
		return fmt.Sprintf("image not printed: 0 of %d chunks sent", r.BandsTotal)
	case KindText:
		if r.Outcome == OutcomeComplete {
			if n := len(r.Substitutions); n > 0 {
				return fmt.Sprintf("text sent to printer (%d characters substituted)", n)
			}
			return "text sent to printer"
		}
		return "text not printed"
	case KindCut:
		if r.Outcome == OutcomeComplete {
			return "cut command sent"
		}
		return "cut command not sent"
	}
	return string(r.Outcome)
}

// settle derives Outcome from the counters.
func (r *Report) settle() {
	switch {
	case r.BandsSent == r.BandsTotal && r.TrailerSent && len(r.Failures) == 0:
		r.Outcome = OutcomeComplete
	case r.BandsSent == 0 && (r.BandsTotal > 0 || !r.TrailerSent):
		r.Outcome = OutcomeFailed
	default:
		r.Outcome = OutcomePartial
	}
}
