package printer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	imgInternal "github.com/AlexStarov/escpos-raster/image"
	logInternal "github.com/AlexStarov/escpos-raster/log"
)

const (
	// DefaultChunkDelay lets the print head drain a band before the next one.
	DefaultChunkDelay = 500 * time.Millisecond
	// NoChunkDelay turns pacing off.
	NoChunkDelay time.Duration = -1
)

// Journal stores finished job reports.
type Journal interface {
	Record(ctx context.Context, r *Report) error
}

// Options configures a Printer. Zero values take the defaults.
type Options struct {
	ChunkHeight    int           // rows per band, 1..65535
	ChunkDelay     time.Duration // pause after each band; NoChunkDelay for none
	Trailer        TrailerPolicy
	FeedLines      int
	OnChunkFailure FailurePolicy
	// Text encodes PrintText input; nil means Shift_JIS with '?' fallback.
	// Its trailer is replaced by the one Trailer and FeedLines select.
	Text *TextEncoder
	// Sleep implements the pacing delay; nil means time.Sleep.
	Sleep   func(time.Duration)
	Journal Journal
	Logger  *logInternal.Logger
}

func (o Options) withDefaults() (Options, error) {
	if o.ChunkHeight == 0 {
		o.ChunkHeight = DefaultChunkHeight
	}
	if o.ChunkHeight < 0 || o.ChunkHeight > imgInternal.MaxRasterDimension {
		return o, fmt.Errorf("chunk height %d out of range 1..%d", o.ChunkHeight, imgInternal.MaxRasterDimension)
	}
	if o.ChunkDelay == 0 {
		o.ChunkDelay = DefaultChunkDelay
	}
	if o.ChunkDelay < 0 {
		o.ChunkDelay = 0
	}
	if o.Trailer == "" {
		o.Trailer = TrailerCut
	}
	if _, err := ParseTrailerPolicy(string(o.Trailer)); err != nil {
		return o, err
	}
	if o.FeedLines == 0 {
		o.FeedLines = DefaultFeedLines
	}
	if o.FeedLines < 0 || o.FeedLines > 255 {
		return o, fmt.Errorf("feed lines %d out of range 1..255", o.FeedLines)
	}
	if o.OnChunkFailure == "" {
		o.OnChunkFailure = AbortOnFailure
	}
	if _, err := ParseFailurePolicy(string(o.OnChunkFailure)); err != nil {
		return o, err
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
	if o.Logger == nil {
		o.Logger = logInternal.New("printer")
	}
	if o.Text == nil {
		enc, err := NewTextEncoder(DefaultCharset, DefaultFallback, nil)
		if err != nil {
			return o, err
		}
		o.Text = enc
	}
	o.Text = o.Text.WithTrailer(Trailer(o.Trailer, o.FeedLines))
	return o, nil
}

// Printer sends jobs to one physical device. Only one job is on the wire
// at a time; a second caller gets ErrPrinterBusy.
type Printer struct {
	sink    Sink
	opts    Options
	trailer []byte

	mu sync.Mutex
}

// NewPrinter creates a printer writing through sink.
func NewPrinter(sink Sink, opts Options) (*Printer, error) {
	if sink == nil {
		return nil, errors.New("printer: nil sink")
	}
	o, err := opts.withDefaults()
	if err != nil {
		return nil, fmt.Errorf("printer options: %w", err)
	}
	return &Printer{
		sink:    sink,
		opts:    o,
		trailer: Trailer(o.Trailer, o.FeedLines),
	}, nil
}

// Options returns the effective options.
func (p *Printer) Options() Options { return p.opts }

// Close closes the sink if it holds a device open.
func (p *Printer) Close() error {
	if c, ok := p.sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// PrintImage halftones g and transmits it.
func (p *Printer) PrintImage(ctx context.Context, g *imgInternal.Grayscale) (*Report, error) {
	m, err := imgInternal.Dither(g)
	if err != nil {
		return nil, err
	}
	return p.Transmit(ctx, m)
}

// Transmit sends m as ceil(H/ChunkHeight) raster bands, each a separate
// submission followed by ChunkDelay, then the trailer. ctx is only checked
// before each band; a submission in progress is never interrupted.
//
// The returned Report is non-nil whenever transmission started, including
// on error.
func (p *Printer) Transmit(ctx context.Context, m *imgInternal.Monochrome) (*Report, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.Width > imgInternal.MaxRasterDimension {
		return nil, fmt.Errorf("%w: width %d exceeds %d", imgInternal.ErrRasterDimensionOverflow, m.Width, imgInternal.MaxRasterDimension)
	}

	if !p.mu.TryLock() {
		return nil, ErrPrinterBusy
	}
	defer p.mu.Unlock()

	rep := p.newReport(KindImage)
	rep.Width, rep.Height = m.Width, m.Height
	bands := Bands(m.Height, p.opts.ChunkHeight)
	rep.BandsTotal = len(bands)
	p.opts.Logger.Infof("job %s: %dx%d image in %d bands", rep.JobID, m.Width, m.Height, len(bands))

	err := p.sendBands(ctx, rep, m, bands)
	if err == nil || (p.opts.OnChunkFailure == ContinueOnFailure && !isCancel(err)) {
		if terr := p.submitTrailer(ctx, rep, p.trailer); terr != nil {
			err = errors.Join(err, terr)
		}
	}
	p.finish(ctx, rep)
	return rep, err
}

func (p *Printer) sendBands(ctx context.Context, rep *Report, m *imgInternal.Monochrome, bands []Band) error {
	sctx := context.WithoutCancel(ctx)
	var failed []error

	for _, b := range bands {
		if err := ctx.Err(); err != nil {
			p.opts.Logger.Warnf("job %s: cancelled before %s", rep.JobID, b)
			return errors.Join(append(failed, fmt.Errorf("print cancelled before band %d/%d: %w", b.Index+1, len(bands), err))...)
		}

		band, err := m.Rows(b.Y0, b.Y1)
		if err != nil {
			return err
		}
		packet, err := imgInternal.EncodeRaster(band)
		if err != nil {
			return err
		}

		p.opts.Logger.Debugf("job %s: %s, %d bytes", rep.JobID, b, len(packet))
		id, err := p.sink.SubmitRaw(sctx, packet)
		if err != nil {
			ce := &ChunkError{Band: b.Index, Total: len(bands), Rows: [2]int{b.Y0, b.Y1}, Err: err}
			rep.Failures = append(rep.Failures, ce)
			if p.opts.OnChunkFailure == AbortOnFailure {
				p.opts.Logger.Errorf("job %s: %v; aborting", rep.JobID, ce)
				return ce
			}
			p.opts.Logger.Errorf("job %s: %v; continuing", rep.JobID, ce)
			failed = append(failed, ce)
			continue
		}

		rep.BandsSent++
		if id != "" {
			rep.SpoolerJobs = append(rep.SpoolerJobs, id)
		}
		if p.opts.ChunkDelay > 0 {
			p.opts.Sleep(p.opts.ChunkDelay)
		}
	}
	return errors.Join(failed...)
}

func (p *Printer) submitTrailer(ctx context.Context, rep *Report, trailer []byte) error {
	id, err := p.sink.SubmitRaw(context.WithoutCancel(ctx), trailer)
	if err != nil {
		ce := &ChunkError{Band: rep.BandsTotal, Total: rep.BandsTotal, Trailer: true, Err: err}
		rep.Failures = append(rep.Failures, ce)
		p.opts.Logger.Errorf("job %s: %v", rep.JobID, ce)
		return ce
	}
	rep.TrailerSent = true
	if id != "" {
		rep.SpoolerJobs = append(rep.SpoolerJobs, id)
	}
	return nil
}

// PrintText encodes text with the configured charset and sends it, trailer
// included, as one submission.
func (p *Printer) PrintText(ctx context.Context, text string) (*Report, error) {
	if !p.mu.TryLock() {
		return nil, ErrPrinterBusy
	}
	defer p.mu.Unlock()

	rep := p.newReport(KindText)
	rep.BandsTotal = 1
	frame := p.opts.Text.Encode(text)
	rep.Substitutions = frame.Substitutions
	if n := len(frame.Substitutions); n > 0 {
		p.opts.Logger.Warnf("job %s: %d characters not in %s, replaced", rep.JobID, n, p.opts.Text.Charset())
	}

	err := ctx.Err()
	if err != nil {
		err = fmt.Errorf("print cancelled: %w", err)
	} else {
		var id string
		id, err = p.sink.SubmitRaw(context.WithoutCancel(ctx), frame.Data)
		if err != nil {
			ce := &ChunkError{Band: 0, Total: 1, Err: err}
			rep.Failures = append(rep.Failures, ce)
			p.opts.Logger.Errorf("job %s: %v", rep.JobID, ce)
			err = ce
		} else {
			rep.BandsSent = 1
			rep.TrailerSent = true
			if id != "" {
				rep.SpoolerJobs = append(rep.SpoolerJobs, id)
			}
		}
	}
	p.finish(ctx, rep)
	return rep, err
}

// Cut feeds FeedLines and cuts, whatever the trailer policy, to finish a
// job that never got its trailer.
func (p *Printer) Cut(ctx context.Context) (*Report, error) {
	if !p.mu.TryLock() {
		return nil, ErrPrinterBusy
	}
	defer p.mu.Unlock()

	rep := p.newReport(KindCut)
	err := ctx.Err()
	if err != nil {
		err = fmt.Errorf("cut cancelled: %w", err)
	} else {
		err = p.submitTrailer(ctx, rep, Trailer(TrailerCut, p.opts.FeedLines))
	}
	p.finish(ctx, rep)
	return rep, err
}

func (p *Printer) newReport(kind JobKind) *Report {
	return &Report{
		JobID:   uuid.NewString(),
		Kind:    kind,
		Started: time.Now(),
	}
}

func (p *Printer) finish(ctx context.Context, rep *Report) {
	rep.Finished = time.Now()
	rep.settle()
	p.opts.Logger.Infof("job %s: %s in %s", rep.JobID, rep.Message(), rep.Finished.Sub(rep.Started).Round(time.Millisecond))

	if p.opts.Journal == nil {
		return
	}
	if err := p.opts.Journal.Record(context.WithoutCancel(ctx), rep); err != nil {
		p.opts.Logger.Errorf("job %s: journal: %v", rep.JobID, err)
	}
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
