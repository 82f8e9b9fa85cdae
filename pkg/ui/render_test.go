package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/spm/pkg/recording"
	"github.com/ja7ad/spm/pkg/session"
	"github.com/ja7ad/spm/pkg/system/cgroup"
	"github.com/ja7ad/spm/pkg/system/proc"
	"github.com/ja7ad/spm/pkg/telemetry"
)

type staticSource []proc.Reading

func (s staticSource) Readings() []proc.Reading { return s }

type staticQuota struct{ usage, limit uint64 }

func (q staticQuota) ReadMemory() cgroup.MemoryStat {
	l := q.limit
	return cgroup.MemoryStat{Usage: q.usage, Limit: &l}
}
func (q staticQuota) ReadCPUQuota() (float64, bool) { return 2, true }

type noopTerm struct{}

func (noopTerm) Terminate(int) (string, error) { return "", nil }

func newController(t *testing.T, usage uint64, readings ...proc.Reading) *session.Controller {
	t.Helper()
	now := time.Unix(1_700_000_000, 0)
	c := session.New(session.Deps{
		Sampler:          telemetry.NewSampler(100),
		Source:           staticSource(readings),
		Quota:            staticQuota{usage: usage, limit: 1000},
		Recorder:         recording.New(t.TempDir(), 10),
		Terminator:       noopTerm{},
		ThresholdPercent: 80,
		Now:              func() time.Time { return now },
	})
	c.Tick()
	return c
}

func frame(t *testing.T, c *session.Controller, sz Size) []string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, c, sz))
	out := buf.String()
	require.True(t, strings.HasPrefix(out, clearScreen))
	require.True(t, strings.HasSuffix(out, "\r\n"))
	return strings.Split(strings.TrimSuffix(strings.TrimPrefix(out, clearScreen), "\r\n"), "\r\n")
}

func lineWith(lines []string, sub string) (string, bool) {
	for _, l := range lines {
		if strings.Contains(l, sub) {
			return l, true
		}
	}
	return "", false
}

func TestRender_Live(t *testing.T) {
	c := newController(t, 500,
		proc.Reading{PID: 1, Name: "bash", USS: 10},
		proc.Reading{PID: 2, Name: "python3", USS: 30},
	)
	lines := frame(t, c, Size{Width: 200, Height: 40})

	assert.Contains(t, lines[0], "buffer 1/10")
	assert.Contains(t, lines[1], "(50.0%, kill at 80%)")
	assert.Contains(t, lines[1], "cpu 2.00 cores")
	assert.NotContains(t, lines[1], red)

	head, ok := lineWith(lines, "PID")
	require.True(t, ok)
	assert.Contains(t, head, "USSv")

	row, ok := lineWith(lines, "python3")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(row, ">"), row)

	row, ok = lineWith(lines, "bash")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(row, " "), row)

	assert.Contains(t, lines[len(lines)-1], "q quit")
}

func TestRender_DangerHighlight(t *testing.T) {
	c := newController(t, 900, proc.Reading{PID: 1, Name: "bash"})
	lines := frame(t, c, Size{Width: 200, Height: 40})
	assert.True(t, strings.HasPrefix(lines[1], red), lines[1])
}

func TestRender_WatchAndConfirm(t *testing.T) {
	c := newController(t, 100, proc.Reading{PID: 7, Name: "sh", Cmdline: "sh -c loop"})
	c.HandleKey(session.Rune('w'))
	c.HandleKey(session.Rune('k'))

	lines := frame(t, c, Size{Width: 200, Height: 40})
	row, ok := lineWith(lines, "sh [sys]")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(row, ">*"), row)

	prompt, ok := lineWith(lines, "[y/n]")
	require.True(t, ok)
	assert.Contains(t, prompt, "Kill sh (PID 7) (system process!)")
}

func TestRender_FilterLine(t *testing.T) {
	c := newController(t, 100, proc.Reading{PID: 1, Name: "bash"})
	c.HandleKey(session.Rune('/'))
	c.HandleKey(session.Rune('b'))

	lines := frame(t, c, Size{Width: 200, Height: 40})
	assert.Equal(t, "filter: b_", lines[2])
}

func TestRender_BrowsingEmpty(t *testing.T) {
	c := newController(t, 100, proc.Reading{PID: 1, Name: "bash"})
	c.HandleKey(session.Rune('R'))

	lines := frame(t, c, Size{Width: 200, Height: 40})
	assert.Contains(t, lines[0], "0 stored")
	_, ok := lineWith(lines, "no recordings")
	assert.True(t, ok)
	assert.Contains(t, lines[len(lines)-1], "esc back")
}

func TestRender_ClipsToWidth(t *testing.T) {
	c := newController(t, 100, proc.Reading{PID: 1, Name: "bash", Cmdline: strings.Repeat("x", 300)})
	for _, l := range frame(t, c, Size{Width: 40, Height: 40}) {
		assert.LessOrEqual(t, len([]rune(stripANSI(l))), 40, l)
	}
}

func TestClip(t *testing.T) {
	assert.Equal(t, "abc", clip("abcdef", 3))
	assert.Equal(t, "abc", clip("abc", 0))
	assert.Equal(t, red+"ab"+reset, clip(red+"abcd"+reset, 2))
	assert.Equal(t, "éé", clip("ééé", 2))
}

func TestScrollStart(t *testing.T) {
	cases := []struct{ selected, total, rows, want int }{
		{0, 5, 10, 0},
		{3, 20, 10, 0},
		{9, 20, 10, 0},
		{10, 20, 10, 1},
		{19, 20, 10, 10},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, scrollStart(tc.selected, tc.total, tc.rows), "%+v", tc)
	}
}

func stripANSI(s string) string {
	var out strings.Builder
	inEsc := false
	for _, r := range s {
		switch {
		case inEsc:
			if r >= '@' && r <= '~' && r != '[' {
				inEsc = false
			}
		case r == '\033':
			inEsc = true
		default:
			out.WriteRune(r)
		}
	}
	return out.String()
}
