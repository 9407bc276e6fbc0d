package log

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	SetOutput(&stdout, &stderr)
	t.Cleanup(func() {
		SetOutput(os.Stdout, os.Stderr)
		_ = SetDir("")
		SetDebug(false)
		now = time.Now
	})
	return &stdout, &stderr
}

func TestLogMessageLevels(t *testing.T) {
	stdout, stderr := captureOutput(t)

	LogMessage(INFO, "band 1/5 sent")
	LogMessage(DEBUG, "hidden")
	LogMessage(ERROR, "sink failed")

	assert.Contains(t, stdout.String(), "[INFO] band 1/5 sent")
	assert.NotContains(t, stdout.String(), "hidden")
	assert.Contains(t, stderr.String(), "sink failed")

	SetDebug(true)
	LogMessage(DEBUG, "visible")
	assert.Contains(t, stdout.String(), "[DEBUG] visible")
}

func TestPrintIfErr(t *testing.T) {
	_, stderr := captureOutput(t)

	var err error
	PrintIfErr("nothing", &err)
	PrintIfErr("nil pointer", nil)
	assert.Empty(t, stderr.String())

	err = errors.New("boom")
	PrintIfErr("submit", &err)
	assert.Contains(t, stderr.String(), "submit: boom")
}

func TestLoggerPrefix(t *testing.T) {
	stdout, _ := captureOutput(t)

	New("printer").Infof("job %s", "abc")
	assert.Contains(t, stdout.String(), "[INFO] [printer] job abc")
}

func TestFileRotation(t *testing.T) {
	captureOutput(t)
	dir := t.TempDir()
	require.NoError(t, SetDir(dir))
	now = func() time.Time { return time.Date(2026, 10, 5, 12, 0, 0, 0, time.UTC) }

	stale := filepath.Join(dir, "stdlog-1.log")
	require.NoError(t, os.WriteFile(stale, []byte("old\n"), 0o644))
	old := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(stale, old, old))

	LogMessage(WARN, "paper low")

	data, err := os.ReadFile(filepath.Join(dir, "stdlog-0.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[WARN] paper low")

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "stale rotation slot should be removed")
}
