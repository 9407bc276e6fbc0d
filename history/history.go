// Package history keeps a journal of print jobs in SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	logInternal "github.com/AlexStarov/escpos-raster/log"
	"github.com/AlexStarov/escpos-raster/printer"
)

// ErrNotFound is returned by Get for an unknown job id.
var ErrNotFound = errors.New("print job not found")

// Store is a printer.Journal backed by a SQLite file.
type Store struct {
	*sql.DB
}

var _ printer.Journal = (*Store)(nil)

// Entry is one recorded job.
type Entry struct {
	JobID         string
	Kind          printer.JobKind
	Width, Height int
	BandsTotal    int
	BandsSent     int
	TrailerSent   bool
	Substitutions int
	Outcome       printer.Outcome
	Message       string
	SpoolerJobs   []string
	Failures      []string
	Started       time.Time
	Finished      time.Time
}

// Open creates or opens the journal at path (":memory:" works for tests).
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer; the journal is written after each job.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure journal: %w", err)
	}
	s := &Store{db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}

	logInternal.LogMessage(logInternal.DEBUG, "initialized print journal "+path)
	return s, nil
}

// Record stores a finished job, replacing an earlier row with the same id.
func (s *Store) Record(ctx context.Context, r *printer.Report) error {
	if r == nil {
		return errors.New("nil report")
	}
	spooled, err := json.Marshal(nonNil(r.SpoolerJobs))
	if err != nil {
		return err
	}
	failures := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		failures = append(failures, f.Error())
	}
	failed, err := json.Marshal(failures)
	if err != nil {
		return err
	}

	query := `
		INSERT OR REPLACE INTO print_jobs (
			job_id, kind, width, height, bands_total, bands_sent, trailer_sent,
			substitutions, outcome, message, spooler_jobs, failures,
			started_unix_nanos, finished_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.ExecContext(ctx, query,
		r.JobID, string(r.Kind), r.Width, r.Height, r.BandsTotal, r.BandsSent, r.TrailerSent,
		len(r.Substitutions), string(r.Outcome), r.Message(), string(spooled), string(failed),
		r.Started.UnixNano(), r.Finished.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record job %s: %w", r.JobID, err)
	}
	return nil
}

const selectColumns = `
	SELECT job_id, kind, width, height, bands_total, bands_sent, trailer_sent,
		substitutions, outcome, message, spooler_jobs, failures,
		started_unix_nanos, finished_unix_nanos
	FROM print_jobs
`

// Recent lists up to limit jobs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.QueryContext(ctx, selectColumns+" ORDER BY started_unix_nanos DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent jobs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns one job by id.
func (s *Store) Get(ctx context.Context, jobID string) (Entry, error) {
	e, err := scanEntry(s.QueryRowContext(ctx, selectColumns+" WHERE job_id = ?", jobID))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e                 Entry
		kind, outcome     string
		spooled, failed   string
		started, finished int64
	)
	err := row.Scan(&e.JobID, &kind, &e.Width, &e.Height, &e.BandsTotal, &e.BandsSent, &e.TrailerSent,
		&e.Substitutions, &outcome, &e.Message, &spooled, &failed, &started, &finished)
	if err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(spooled), &e.SpoolerJobs); err != nil {
		return Entry{}, fmt.Errorf("job %s spooler ids: %w", e.JobID, err)
	}
	if err := json.Unmarshal([]byte(failed), &e.Failures); err != nil {
		return Entry{}, fmt.Errorf("job %s failures: %w", e.JobID, err)
	}
	e.Kind = printer.JobKind(kind)
	e.Outcome = printer.Outcome(outcome)
	e.Started = time.Unix(0, started)
	e.Finished = time.Unix(0, finished)
	return e, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
