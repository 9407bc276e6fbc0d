package main

import (
	"context"
	"fmt"

	"github.com/AlexStarov/escpos-raster/config"
	"github.com/AlexStarov/escpos-raster/printer"
	"github.com/AlexStarov/escpos-raster/spooler"
)

// openSink connects the configured transport.
func openSink(ctx context.Context, cfg *config.Config) (printer.Sink, error) {
	switch t := cfg.GetTransport(); t {
	case config.TransportCUPS:
		return &spooler.CUPS{Destination: cfg.GetDestination()}, nil
	case config.TransportLPD:
		return &printer.LPDSink{Addr: cfg.GetAddress(), Queue: cfg.GetQueue()}, nil
	case config.TransportRaw:
		conn, err := printer.DialRaw(ctx, cfg.GetAddress())
		if err != nil {
			return nil, err
		}
		return printer.NewWriterSink("raw", conn), nil
	case config.TransportSerial:
		s, err := printer.OpenSerial(cfg.GetDevice(), cfg.GetSerial())
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.TransportUSB:
		vid, pid, err := cfg.GetUSBIDs()
		if err != nil {
			return nil, err
		}
		s, err := printer.OpenUSB(vid, pid)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.TransportFile:
		return &printer.FileSink{Path: cfg.GetDevice()}, nil
	case config.TransportWindows:
		s, err := printer.OpenSpooler(cfg.GetDestination())
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", t)
	}
}

// queueOf returns the spooler behind sink, for the queue commands.
func queueOf(sink printer.Sink, cfg *config.Config) (spooler.Spooler, error) {
	if s, ok := sink.(spooler.Spooler); ok {
		return s, nil
	}
	return nil, fmt.Errorf("transport %q has no print queue; use cups", cfg.GetTransport())
}
