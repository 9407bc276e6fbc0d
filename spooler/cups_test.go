package spooler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	cmd   string
	stdin []byte
}

// fakeRunner answers commands from a table keyed by the full command line.
type fakeRunner struct {
	calls   []call
	replies map[string]string
	errs    map[string]error
}

func (f *fakeRunner) Run(_ context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, call{cmd: cmd, stdin: stdin})
	if err := f.errs[cmd]; err != nil {
		return nil, err
	}
	return []byte(f.replies[cmd]), nil
}

func (f *fakeRunner) commands() []string {
	var out []string
	for _, c := range f.calls {
		out = append(out, c.cmd)
	}
	return out
}

func TestCUPSSubmitRaw(t *testing.T) {
	r := &fakeRunner{replies: map[string]string{
		"lp -o raw -d POS-80": "request id is POS-80-55 (1 file(s))\n",
	}}
	c := &CUPS{Destination: "POS-80", Run: r.Run}

	id, err := c.SubmitRaw(context.Background(), []byte{0x1b, 0x40})
	require.NoError(t, err)
	assert.Equal(t, "POS-80-55", id)
	require.Len(t, r.calls, 1)
	assert.Equal(t, []byte{0x1b, 0x40}, r.calls[0].stdin)
}

func TestCUPSSubmitRawDefaultDestination(t *testing.T) {
	r := &fakeRunner{replies: map[string]string{"lp -o raw": "queued\n"}}
	c := &CUPS{Run: r.Run}

	id, err := c.SubmitRaw(context.Background(), []byte("x"))
	require.NoError(t, err, "an unparseable reply is not a failed submission")
	assert.Empty(t, id)
}

func TestCUPSSubmitRawError(t *testing.T) {
	boom := errors.New("exit status 1")
	r := &fakeRunner{errs: map[string]error{"lp -o raw": boom}}
	c := &CUPS{Run: r.Run}

	_, err := c.SubmitRaw(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, boom)
}

func TestCUPSStatus(t *testing.T) {
	r := &fakeRunner{replies: map[string]string{
		"lpstat -p POS-80": "printer POS-80 now printing POS-80-55.  enabled since Mon\n",
		"lpstat -o POS-80": "POS-80-55 root 1024 Mon\nPOS-80-56 root 99 Mon\n",
	}}
	c := &CUPS{Destination: "POS-80", Run: r.Run}

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatePrinting, st.State)
	assert.Equal(t, "POS-80-55", st.Job)
	require.Len(t, st.Jobs, 2)
	assert.Equal(t, int64(99), st.Jobs[1].Size)
	assert.Equal(t, []string{"lpstat -p POS-80", "lpstat -o POS-80"}, r.commands())
}

func TestCUPSStatusMalformed(t *testing.T) {
	r := &fakeRunner{replies: map[string]string{
		"lpstat -p": "printer X is idle.\n",
		"lpstat -o": "garbage\n",
	}}
	c := &CUPS{Run: r.Run}

	_, err := c.Status(context.Background())
	assert.ErrorIs(t, err, ErrMalformedOutput)
	assert.ErrorContains(t, err, "lpstat -o")
}

func TestCUPSCancel(t *testing.T) {
	r := &fakeRunner{}
	c := &CUPS{Destination: "POS-80", Run: r.Run}

	require.NoError(t, c.Cancel(context.Background(), "POS-80-55"))
	require.NoError(t, c.CancelAll(context.Background()))
	assert.Equal(t, []string{"cancel POS-80-55", "cancel -a POS-80"}, r.commands())

	for _, bad := range []string{"", "-a", "a b"} {
		assert.Error(t, c.Cancel(context.Background(), bad), "%q", bad)
	}
	assert.Len(t, r.calls, 2)
}

func TestCUPSResume(t *testing.T) {
	t.Run("destination", func(t *testing.T) {
		r := &fakeRunner{}
		c := &CUPS{Destination: "POS-80", Run: r.Run}
		require.NoError(t, c.Resume(context.Background()))
		assert.Equal(t, []string{"cupsenable POS-80"}, r.commands())
	})

	t.Run("every printer", func(t *testing.T) {
		r := &fakeRunner{replies: map[string]string{
			"lpstat -p": "printer A disabled since Mon -\n\tPaused\nprinter B is idle.\n",
		}}
		c := &CUPS{Run: r.Run}
		require.NoError(t, c.Resume(context.Background()))
		assert.Equal(t, []string{"lpstat -p", "cupsenable A B"}, r.commands())
	})

	t.Run("no printers", func(t *testing.T) {
		r := &fakeRunner{replies: map[string]string{"lpstat -p": ""}}
		c := &CUPS{Run: r.Run}
		assert.Error(t, c.Resume(context.Background()))
	})
}
