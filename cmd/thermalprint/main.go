// Command thermalprint prints images and text on an ESC/POS receipt printer
// and manages its CUPS queue.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/AlexStarov/escpos-raster/config"
	"github.com/AlexStarov/escpos-raster/history"
	imgInternal "github.com/AlexStarov/escpos-raster/image"
	logInternal "github.com/AlexStarov/escpos-raster/log"
	"github.com/AlexStarov/escpos-raster/printer"
	"github.com/AlexStarov/escpos-raster/spooler"
)

const usage = `usage: thermalprint [flags] <command> [args]

commands:
  image FILE|-      print a PNG/JPEG/GIF/BMP/WebP image (or a base64 data URL with -base64)
  text [TEXT...]    print text (stdin when no arguments)
  cut               feed and cut the paper
  preview FILE OUT  write the halftoned image as PNG without printing
  status            show printer state and queue (cups), or online/paper
                    state (raw, serial, usb)
  cancel JOBID      cancel one queued job (cups)
  clear             cancel every queued job (cups)
  resume            re-enable a paused printer (cups)
  history [N]       list the last N recorded jobs

flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("thermalprint", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "JSON config file")
	transport := fs.String("transport", "", "cups, lpd, raw, serial, usb, file or windows")
	dest := fs.String("d", "", "CUPS queue or Windows printer name")
	address := fs.String("address", "", "host:port for lpd and raw")
	device := fs.String("device", "", "serial port or output file")
	width := fs.Int("width", 0, "paper width in dots")
	chunkHeight := fs.Int("chunk-height", 0, "raster rows per submission")
	chunkDelay := fs.String("chunk-delay", "", "pause after each chunk, e.g. 500ms")
	trailer := fs.String("trailer", "", "cut or feed")
	onFailure := fs.String("on-failure", "", "abort or continue after a failed chunk")
	charset := fs.String("charset", "", "text encoding, e.g. shift_jis or windows-1251")
	historyPath := fs.String("history", "", "job journal database")
	logDir := fs.String("log-dir", "", "directory for rotated log files")
	debug := fs.Bool("debug", false, "log every chunk")
	base64In := fs.Bool("base64", false, "image input is base64 or a data URL")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg := config.Empty()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(stderr, "thermalprint: %v\n", err)
			return 1
		}
	}

	// flags given on the command line win over the file
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "transport":
			cfg.Transport = transport
		case "d":
			cfg.Destination = dest
		case "address":
			cfg.Address = address
		case "device":
			cfg.Device = device
		case "width":
			cfg.PaperWidth = width
		case "chunk-height":
			cfg.ChunkHeight = chunkHeight
		case "chunk-delay":
			cfg.ChunkDelay = chunkDelay
		case "trailer":
			cfg.Trailer = trailer
		case "on-failure":
			cfg.OnChunkFailure = onFailure
		case "charset":
			cfg.Charset = charset
		case "history":
			cfg.HistoryPath = historyPath
		case "log-dir":
			cfg.LogDir = logDir
		case "debug":
			cfg.Debug = debug
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "thermalprint: %v\n", err)
		return 2
	}

	// stdout is for command output
	logInternal.SetOutput(stderr, stderr)
	if err := logInternal.SetDir(cfg.GetLogDir()); err != nil {
		fmt.Fprintf(stderr, "thermalprint: %v\n", err)
		return 1
	}
	logInternal.SetDebug(cfg.GetDebug())

	c := &cli{cfg: cfg, stdin: stdin, stdout: stdout, base64: *base64In}
	err := c.dispatch(ctx, fs.Arg(0), fs.Args()[1:])
	if err != nil {
		logInternal.PrintIfErr(fs.Arg(0), &err)
		fmt.Fprintf(stderr, "thermalprint: %v\n", err)
		return 1
	}
	return 0
}

type cli struct {
	cfg    *config.Config
	stdin  io.Reader
	stdout io.Writer
	base64 bool
}

func (c *cli) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "image":
		if len(args) != 1 {
			return errors.New("image: need one FILE or -")
		}
		g, err := c.loadImage(args[0])
		if err != nil {
			return err
		}
		return c.withPrinter(ctx, func(p *printer.Printer) (*printer.Report, error) {
			return p.PrintImage(ctx, g)
		})
	case "text":
		text := strings.Join(args, " ")
		if len(args) == 0 {
			b, err := io.ReadAll(c.stdin)
			if err != nil {
				return err
			}
			text = strings.TrimRight(string(b), "\n")
		}
		return c.withPrinter(ctx, func(p *printer.Printer) (*printer.Report, error) {
			return p.PrintText(ctx, text)
		})
	case "cut":
		return c.withPrinter(ctx, func(p *printer.Printer) (*printer.Report, error) {
			return p.Cut(ctx)
		})
	case "preview":
		if len(args) != 2 {
			return errors.New("preview: need FILE and OUT")
		}
		return c.preview(args[0], args[1])
	case "status":
		return c.status(ctx)
	case "cancel":
		if len(args) != 1 {
			return errors.New("cancel: need one JOBID")
		}
		return c.queue(ctx, func(ctx context.Context, q spooler.Spooler) (string, error) {
			return fmt.Sprintf("job %s canceled", args[0]), q.Cancel(ctx, args[0])
		})
	case "clear":
		return c.queue(ctx, func(ctx context.Context, q spooler.Spooler) (string, error) {
			return "all jobs canceled", q.CancelAll(ctx)
		})
	case "resume":
		return c.queue(ctx, func(ctx context.Context, q spooler.Spooler) (string, error) {
			return "printer enabled", q.Resume(ctx)
		})
	case "history":
		n := 20
		if len(args) > 0 {
			var err error
			if n, err = strconv.Atoi(args[0]); err != nil || n <= 0 {
				return fmt.Errorf("history: bad count %q", args[0])
			}
		}
		return c.history(ctx, n)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (c *cli) loadImage(name string) (*imgInternal.Grayscale, error) {
	var conv imgInternal.Decoder = &imgInternal.Converter{Width: c.cfg.GetPaperWidth()}

	var r io.Reader = c.stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	if c.base64 {
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		return conv.DecodeBase64(strings.TrimSpace(string(b)))
	}
	return conv.Decode(r)
}

func (c *cli) withPrinter(ctx context.Context, job func(*printer.Printer) (*printer.Report, error)) error {
	opts, err := c.cfg.PrinterOptions()
	if err != nil {
		return err
	}
	if path := c.cfg.GetHistoryPath(); path != "" {
		store, err := history.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Journal = store
	}

	sink, err := openSink(ctx, c.cfg)
	if err != nil {
		return err
	}
	p, err := printer.NewPrinter(sink, opts)
	if err != nil {
		return err
	}
	defer func() {
		err := p.Close()
		logInternal.PrintIfErr("close printer", &err)
	}()

	rep, err := job(p)
	if rep != nil {
		fmt.Fprintln(c.stdout, rep.Message())
	}
	return err
}

func (c *cli) preview(in, out string) error {
	g, err := c.loadImage(in)
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := imgInternal.WritePreviewPNG(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
