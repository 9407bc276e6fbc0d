// Package config loads the printer configuration from a JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/gousb"

	imgInternal "github.com/AlexStarov/escpos-raster/image"
	"github.com/AlexStarov/escpos-raster/printer"
)

// Transport kinds.
const (
	TransportCUPS    = "cups"
	TransportLPD     = "lpd"
	TransportRaw     = "raw"
	TransportSerial  = "serial"
	TransportUSB     = "usb"
	TransportFile    = "file"
	TransportWindows = "windows"
)

// Config is the printer configuration. Omitted fields fall back to the
// defaults returned by the Get* methods, so partial files are safe.
type Config struct {
	// Where jobs go
	Transport    *string              `json:"transport,omitempty"`
	Destination  *string              `json:"destination,omitempty"` // CUPS queue or Windows printer name
	Address      *string              `json:"address,omitempty"`     // host:port for lpd and raw
	Queue        *string              `json:"queue,omitempty"`       // LPD queue
	Device       *string              `json:"device,omitempty"`      // serial port or file path
	Serial       *printer.PortOptions `json:"serial,omitempty"`
	USBVendorID  *string              `json:"usb_vendor_id,omitempty"` // "0x0416"
	USBProductID *string              `json:"usb_product_id,omitempty"`

	// How jobs are sent
	PaperWidth     *int    `json:"paper_width,omitempty"` // dots
	ChunkHeight    *int    `json:"chunk_height,omitempty"`
	ChunkDelay     *string `json:"chunk_delay,omitempty"` // duration string like "500ms"
	Trailer        *string `json:"trailer,omitempty"`     // "cut" or "feed"
	FeedLines      *int    `json:"feed_lines,omitempty"`
	OnChunkFailure *string `json:"on_chunk_failure,omitempty"` // "abort" or "continue"
	Charset        *string `json:"charset,omitempty"`
	Fallback       *string `json:"fallback,omitempty"` // one character

	// Bookkeeping
	HistoryPath *string `json:"history_path,omitempty"` // empty disables the journal
	LogDir      *string `json:"log_dir,omitempty"`      // empty logs to the console only
	Debug       *bool   `json:"debug,omitempty"`
}

// Helper functions to create pointers
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// Empty returns a Config with every field unset.
func Empty() *Config { return &Config{} }

// Load reads a JSON config file. The file must have a .json extension and
// be under 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every field that is set.
func (c *Config) Validate() error {
	switch t := c.GetTransport(); t {
	case TransportCUPS, TransportWindows:
	case TransportLPD, TransportRaw:
		if c.GetAddress() == "" {
			return fmt.Errorf("transport %q needs an address", t)
		}
	case TransportSerial, TransportFile:
		if c.GetDevice() == "" {
			return fmt.Errorf("transport %q needs a device", t)
		}
	case TransportUSB:
		if _, _, err := c.GetUSBIDs(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown transport %q", t)
	}

	if c.Serial != nil {
		if _, err := c.Serial.Normalize(); err != nil {
			return fmt.Errorf("serial: %w", err)
		}
	}
	if c.PaperWidth != nil && (*c.PaperWidth <= 0 || *c.PaperWidth > imgInternal.MaxRasterDimension) {
		return fmt.Errorf("paper_width must be between 1 and %d, got %d", imgInternal.MaxRasterDimension, *c.PaperWidth)
	}
	if c.ChunkHeight != nil && (*c.ChunkHeight <= 0 || *c.ChunkHeight > imgInternal.MaxRasterDimension) {
		return fmt.Errorf("chunk_height must be between 1 and %d, got %d", imgInternal.MaxRasterDimension, *c.ChunkHeight)
	}
	if c.ChunkDelay != nil && *c.ChunkDelay != "" {
		d, err := time.ParseDuration(*c.ChunkDelay)
		if err != nil {
			return fmt.Errorf("invalid chunk_delay '%s': %w", *c.ChunkDelay, err)
		}
		if d < 0 {
			return fmt.Errorf("chunk_delay must be non-negative, got %s", d)
		}
	}
	if c.Trailer != nil {
		if _, err := printer.ParseTrailerPolicy(*c.Trailer); err != nil {
			return err
		}
	}
	if c.FeedLines != nil && (*c.FeedLines <= 0 || *c.FeedLines > 255) {
		return fmt.Errorf("feed_lines must be between 1 and 255, got %d", *c.FeedLines)
	}
	if c.OnChunkFailure != nil {
		if _, err := printer.ParseFailurePolicy(*c.OnChunkFailure); err != nil {
			return err
		}
	}
	if c.Fallback != nil && utf8.RuneCountInString(*c.Fallback) != 1 {
		return fmt.Errorf("fallback must be one character, got %q", *c.Fallback)
	}
	return nil
}

// GetTransport returns the transport kind or "cups".
func (c *Config) GetTransport() string {
	if c.Transport == nil || *c.Transport == "" {
		return TransportCUPS
	}
	return *c.Transport
}

func (c *Config) GetDestination() string { return deref(c.Destination, "") }

func (c *Config) GetAddress() string { return deref(c.Address, "") }

// GetQueue returns the LPD queue or "lp".
func (c *Config) GetQueue() string { return deref(c.Queue, "lp") }

func (c *Config) GetDevice() string { return deref(c.Device, "") }

// GetSerial returns the normalised serial line options (19200 8N1).
func (c *Config) GetSerial() printer.PortOptions {
	var opts printer.PortOptions
	if c.Serial != nil {
		opts = *c.Serial
	}
	if n, err := opts.Normalize(); err == nil {
		return n
	}
	return opts
}

// GetUSBIDs parses the vendor and product ids ("0x0416", "1046").
func (c *Config) GetUSBIDs() (vid, pid gousb.ID, err error) {
	if c.USBVendorID == nil || c.USBProductID == nil {
		return 0, 0, fmt.Errorf("usb transport needs usb_vendor_id and usb_product_id")
	}
	v, err := strconv.ParseUint(*c.USBVendorID, 0, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid usb_vendor_id '%s': %w", *c.USBVendorID, err)
	}
	p, err := strconv.ParseUint(*c.USBProductID, 0, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid usb_product_id '%s': %w", *c.USBProductID, err)
	}
	return gousb.ID(v), gousb.ID(p), nil
}

// GetPaperWidth returns the printable width in dots or 576 (80mm paper).
func (c *Config) GetPaperWidth() int {
	if c.PaperWidth == nil {
		return imgInternal.DefaultPaperWidth
	}
	return *c.PaperWidth
}

func (c *Config) GetChunkHeight() int {
	if c.ChunkHeight == nil {
		return printer.DefaultChunkHeight
	}
	return *c.ChunkHeight
}

// GetChunkDelay parses and returns ChunkDelay as a time.Duration.
func (c *Config) GetChunkDelay() time.Duration {
	if c.ChunkDelay == nil || *c.ChunkDelay == "" {
		return printer.DefaultChunkDelay
	}
	d, err := time.ParseDuration(*c.ChunkDelay)
	if err != nil {
		return printer.DefaultChunkDelay
	}
	return d
}

func (c *Config) GetTrailer() printer.TrailerPolicy {
	if c.Trailer == nil {
		return printer.TrailerCut
	}
	return printer.TrailerPolicy(*c.Trailer)
}

func (c *Config) GetFeedLines() int {
	if c.FeedLines == nil {
		return printer.DefaultFeedLines
	}
	return *c.FeedLines
}

func (c *Config) GetOnChunkFailure() printer.FailurePolicy {
	if c.OnChunkFailure == nil {
		return printer.AbortOnFailure
	}
	return printer.FailurePolicy(*c.OnChunkFailure)
}

func (c *Config) GetCharset() string { return deref(c.Charset, printer.DefaultCharset) }

func (c *Config) GetFallback() rune {
	if c.Fallback == nil {
		return printer.DefaultFallback
	}
	r, _ := utf8.DecodeRuneInString(*c.Fallback)
	return r
}

func (c *Config) GetHistoryPath() string { return deref(c.HistoryPath, "") }

func (c *Config) GetLogDir() string { return deref(c.LogDir, "") }

func (c *Config) GetDebug() bool {
	if c.Debug == nil {
		return false
	}
	return *c.Debug
}

// PrinterOptions builds the controller options; the journal and logger are
// left to the caller.
func (c *Config) PrinterOptions() (printer.Options, error) {
	trailer := c.GetTrailer()
	feed := c.GetFeedLines()
	enc, err := printer.NewTextEncoder(c.GetCharset(), c.GetFallback(), printer.Trailer(trailer, feed))
	if err != nil {
		return printer.Options{}, err
	}
	opts := printer.Options{
		ChunkHeight:    c.GetChunkHeight(),
		ChunkDelay:     c.GetChunkDelay(),
		Trailer:        trailer,
		FeedLines:      feed,
		OnChunkFailure: c.GetOnChunkFailure(),
		Text:           enc,
	}
	if opts.ChunkDelay == 0 {
		opts.ChunkDelay = printer.NoChunkDelay
	}
	return opts, nil
}

func deref(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}
