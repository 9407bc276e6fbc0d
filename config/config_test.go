package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/gousb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexStarov/escpos-raster/printer"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	c := Empty()
	require.NoError(t, c.Validate())

	assert.Equal(t, TransportCUPS, c.GetTransport())
	assert.Equal(t, "lp", c.GetQueue())
	assert.Equal(t, 576, c.GetPaperWidth())
	assert.Equal(t, printer.DefaultChunkHeight, c.GetChunkHeight())
	assert.Equal(t, 500*time.Millisecond, c.GetChunkDelay())
	assert.Equal(t, printer.TrailerCut, c.GetTrailer())
	assert.Equal(t, 4, c.GetFeedLines())
	assert.Equal(t, printer.AbortOnFailure, c.GetOnChunkFailure())
	assert.Equal(t, "shift_jis", c.GetCharset())
	assert.Equal(t, '?', c.GetFallback())
	assert.Equal(t, printer.PortOptions{BaudRate: 19200, DataBits: 8, StopBits: 1, Parity: "N"}, c.GetSerial())
	assert.Empty(t, c.GetHistoryPath())
	assert.False(t, c.GetDebug())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "printer.json", `{
		"transport": "serial",
		"device": "/dev/ttyUSB0",
		"serial": {"baud_rate": 115200, "parity": "even"},
		"chunk_height": 128,
		"chunk_delay": "250ms",
		"trailer": "feed",
		"feed_lines": 6,
		"on_chunk_failure": "continue",
		"charset": "windows-1251",
		"fallback": "*",
		"history_path": "/var/lib/thermal/journal.db",
		"debug": true
	}`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, TransportSerial, c.GetTransport())
	assert.Equal(t, "/dev/ttyUSB0", c.GetDevice())
	assert.Equal(t, 115200, c.GetSerial().BaudRate)
	assert.Equal(t, "E", c.GetSerial().Parity)
	assert.Equal(t, '*', c.GetFallback())
	assert.True(t, c.GetDebug())

	opts, err := c.PrinterOptions()
	require.NoError(t, err)
	assert.Equal(t, 128, opts.ChunkHeight)
	assert.Equal(t, 250*time.Millisecond, opts.ChunkDelay)
	assert.Equal(t, printer.TrailerFeed, opts.Trailer)
	assert.Equal(t, 6, opts.FeedLines)
	assert.Equal(t, printer.ContinueOnFailure, opts.OnChunkFailure)
	require.NotNil(t, opts.Text)
	assert.Equal(t, "windows-1251", opts.Text.Charset())

	frame := opts.Text.Encode("Ж")
	assert.Equal(t, []byte{0xc6, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a, 0x0a}, frame.Data, "body, LF, six feed lines")
}

func TestPrinterOptionsZeroDelay(t *testing.T) {
	c := &Config{ChunkDelay: ptrString("0s")}
	opts, err := c.PrinterOptions()
	require.NoError(t, err)
	assert.Equal(t, printer.NoChunkDelay, opts.ChunkDelay)
}

func TestPrinterOptionsBadCharset(t *testing.T) {
	c := &Config{Charset: ptrString("klingon-8")}
	_, err := c.PrinterOptions()
	assert.Error(t, err)
}

func TestLoadRejects(t *testing.T) {
	t.Run("extension", func(t *testing.T) {
		_, err := Load(writeConfig(t, "printer.yaml", "{}"))
		assert.ErrorContains(t, err, ".json extension")
	})
	t.Run("missing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})
	t.Run("too large", func(t *testing.T) {
		body := `{"destination": "` + strings.Repeat("x", 1<<20) + `"}`
		_, err := Load(writeConfig(t, "big.json", body))
		assert.ErrorContains(t, err, "too large")
	})
	t.Run("syntax", func(t *testing.T) {
		_, err := Load(writeConfig(t, "bad.json", "{"))
		assert.ErrorContains(t, err, "parse")
	})
	t.Run("invalid value", func(t *testing.T) {
		_, err := Load(writeConfig(t, "bad.json", `{"trailer": "guillotine"}`))
		assert.ErrorContains(t, err, "invalid configuration")
	})
}

func TestValidate(t *testing.T) {
	bad := map[string]*Config{
		"unknown transport": {Transport: ptrString("bluetooth")},
		"lpd without address": {Transport: ptrString(TransportLPD)},
		"raw without address": {Transport: ptrString(TransportRaw)},
		"serial without device": {Transport: ptrString(TransportSerial)},
		"file without device": {Transport: ptrString(TransportFile)},
		"usb without ids": {Transport: ptrString(TransportUSB)},
		"usb bad id": {
			Transport:    ptrString(TransportUSB),
			USBVendorID:  ptrString("0xzz"),
			USBProductID: ptrString("0x5011"),
		},
		"serial data bits": {Serial: &printer.PortOptions{DataBits: 9}},
		"paper width":      {PaperWidth: ptrInt(0)},
		"chunk height":     {ChunkHeight: ptrInt(70000)},
		"chunk delay":      {ChunkDelay: ptrString("soon")},
		"negative delay":   {ChunkDelay: ptrString("-1s")},
		"feed lines":       {FeedLines: ptrInt(0)},
		"failure policy":   {OnChunkFailure: ptrString("retry")},
		"fallback":         {Fallback: ptrString("??")},
	}
	for name, c := range bad {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, c.Validate())
		})
	}

	good := &Config{Transport: ptrString(TransportLPD), Address: ptrString("10.0.0.5:515")}
	assert.NoError(t, good.Validate())
}

func TestGetUSBIDs(t *testing.T) {
	c := &Config{
		Transport:    ptrString(TransportUSB),
		USBVendorID:  ptrString("0x0416"),
		USBProductID: ptrString("20497"),
	}
	require.NoError(t, c.Validate())
	vid, pid, err := c.GetUSBIDs()
	require.NoError(t, err)
	assert.Equal(t, gousb.ID(0x0416), vid)
	assert.Equal(t, gousb.ID(0x5011), pid)
}
