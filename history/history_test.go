package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	imgInternal "github.com/AlexStarov/escpos-raster/image"
	"github.com/AlexStarov/escpos-raster/printer"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	started := time.Date(2026, 3, 18, 10, 0, 0, 0, time.UTC)
	rep := &printer.Report{
		JobID:       "5f0c5c4e-0000-4000-8000-000000000001",
		Kind:        printer.KindImage,
		Width:       576,
		Height:      1000,
		BandsTotal:  5,
		BandsSent:   2,
		SpoolerJobs: []string{"POS-80-1", "POS-80-2"},
		Failures: []*printer.ChunkError{
			{Band: 2, Total: 5, Rows: [2]int{400, 600}, Err: errors.New("lp: exit status 1")},
		},
		Outcome:  printer.OutcomePartial,
		Started:  started,
		Finished: started.Add(1500 * time.Millisecond),
	}
	require.NoError(t, s.Record(ctx, rep))

	got, err := s.Get(ctx, rep.JobID)
	require.NoError(t, err)
	assert.Equal(t, rep.JobID, got.JobID)
	assert.Equal(t, printer.KindImage, got.Kind)
	assert.Equal(t, 576, got.Width)
	assert.Equal(t, 5, got.BandsTotal)
	assert.Equal(t, 2, got.BandsSent)
	assert.False(t, got.TrailerSent)
	assert.Equal(t, printer.OutcomePartial, got.Outcome)
	assert.Equal(t, rep.Message(), got.Message)
	assert.Equal(t, []string{"POS-80-1", "POS-80-2"}, got.SpoolerJobs)
	assert.Equal(t, []string{"band 3/5 (rows 400-600): lp: exit status 1"}, got.Failures)
	assert.True(t, got.Started.Equal(started))
	assert.Equal(t, 1500*time.Millisecond, got.Finished.Sub(got.Started))
}

func TestGetUnknown(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecentNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 18, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Record(ctx, &printer.Report{
			JobID:       id,
			Kind:        printer.KindText,
			BandsTotal:  1,
			BandsSent:   1,
			TrailerSent: true,
			Outcome:     printer.OutcomeComplete,
			Started:     base.Add(time.Duration(i) * time.Minute),
			Finished:    base.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].JobID)
	assert.Equal(t, "b", entries[1].JobID)
	assert.True(t, entries[0].TrailerSent)
	assert.Empty(t, entries[0].SpoolerJobs)
	assert.Empty(t, entries[0].Failures)

	all, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRecordNil(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.Record(context.Background(), nil))
}

func TestPrinterWritesJournal(t *testing.T) {
	s := openTestStore(t)
	sink := printer.SinkFunc(func(context.Context, []byte) (string, error) { return "", nil })
	p, err := printer.NewPrinter(sink, printer.Options{Journal: s, Sleep: func(time.Duration) {}})
	require.NoError(t, err)

	rep, err := p.Transmit(context.Background(), &imgInternal.Monochrome{Width: 8, Height: 450, Pix: make([]uint8, 8*450)})
	require.NoError(t, err)

	got, err := s.Get(context.Background(), rep.JobID)
	require.NoError(t, err)
	assert.Equal(t, printer.OutcomeComplete, got.Outcome)
	assert.Equal(t, 3, got.BandsSent)
	assert.Equal(t, "image sent to printer (3 chunks)", got.Message)
}

func TestMigrations(t *testing.T) {
	s := openTestStore(t)

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	require.NoError(t, s.MigrateUp(), "already at the latest version")
}

func TestReopenKeepsJobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), &printer.Report{
		JobID: "kept", Kind: printer.KindCut, TrailerSent: true, Outcome: printer.OutcomeComplete,
	}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	e, err := s.Get(context.Background(), "kept")
	require.NoError(t, err)
	assert.Equal(t, "cut command sent", e.Message)
}
