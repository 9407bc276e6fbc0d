package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/AlexStarov/escpos-raster/history"
	"github.com/AlexStarov/escpos-raster/printer"
	"github.com/AlexStarov/escpos-raster/spooler"
)

func (c *cli) openQueue(ctx context.Context) (spooler.Spooler, error) {
	sink, err := openSink(ctx, c.cfg)
	if err != nil {
		return nil, err
	}
	q, err := queueOf(sink, c.cfg)
	if err != nil {
		if cl, ok := sink.(io.Closer); ok {
			cl.Close()
		}
		return nil, err
	}
	return q, nil
}

func (c *cli) queue(ctx context.Context, action func(context.Context, spooler.Spooler) (string, error)) error {
	q, err := c.openQueue(ctx)
	if err != nil {
		return err
	}
	msg, err := action(ctx, q)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, msg)
	return nil
}

// statusTimeout bounds the wait for a directly attached printer's reply.
const statusTimeout = 2 * time.Second

func (c *cli) status(ctx context.Context) error {
	sink, err := openSink(ctx, c.cfg)
	if err != nil {
		return err
	}
	if cl, ok := sink.(io.Closer); ok {
		defer cl.Close()
	}

	if sr, ok := sink.(printer.StatusReader); ok {
		ctx, cancel := context.WithTimeout(ctx, statusTimeout)
		defer cancel()
		st, err := sr.ReadStatus(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "%s: %s\n", c.cfg.GetTransport(), st)
		return nil
	}

	q, err := queueOf(sink, c.cfg)
	if err != nil {
		return err
	}
	st, err := q.Status(ctx)
	if err != nil {
		return err
	}
	writeStatus(c.stdout, st)
	return nil
}

func writeStatus(w io.Writer, st *spooler.Status) {
	fmt.Fprintf(w, "%s: %s", st.Printer, st.State)
	if st.Job != "" {
		fmt.Fprintf(w, " (%s)", st.Job)
	}
	if st.Paused() {
		fmt.Fprint(w, ", paused; run resume")
	}
	fmt.Fprintln(w)
	if st.Reason != "" {
		fmt.Fprintf(w, "  %s\n", st.Reason)
	}

	if len(st.Jobs) == 0 {
		fmt.Fprintln(w, "queue empty")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tUSER\tSIZE\tSUBMITTED")
	for _, j := range st.Jobs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", j.ID, j.User, j.Size, j.Submitted)
	}
	tw.Flush()
}

func (c *cli) history(ctx context.Context, n int) error {
	path := c.cfg.GetHistoryPath()
	if path == "" {
		return fmt.Errorf("history: no journal configured (history_path or -history)")
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(ctx, n)
	if err != nil {
		return err
	}
	writeHistory(c.stdout, entries)
	return nil
}

func writeHistory(w io.Writer, entries []history.Entry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tKIND\tOUTCOME\tTOOK\tSPOOLER JOBS\tMESSAGE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Started.Local().Format(time.DateTime),
			e.Kind,
			e.Outcome,
			e.Finished.Sub(e.Started).Round(time.Millisecond),
			strings.Join(e.SpoolerJobs, ","),
			e.Message,
		)
	}
	tw.Flush()
}
