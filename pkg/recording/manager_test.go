package recording

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/spm/pkg/telemetry"
)

func f64(v float64) *float64 { return &v }
func u64(v uint64) *uint64   { return &v }

func batch(ts int64) telemetry.Batch {
	return telemetry.Batch{
		Timestamp: ts,
		Processes: []telemetry.ProcessSnapshot{
			{PID: 10, Name: "python3", Cmdline: "python3 train.py", CPUPercent: 87.5,
				USS: 100 << 20, PSS: 120 << 20, RSS: 200 << 20, GrowthRate: f64(-2.5),
				DiskReadRate: f64(1.25), DiskWriteRate: f64(0)},
			{PID: 1, Name: "envoy", Cmdline: "envoy -c /etc/envoy.yaml", USS: 5 << 20, IsSystem: true},
		},
		PodMemory: telemetry.PodMemory{CgroupUsage: 1 << 30, CgroupLimit: u64(4 << 30), RSSSum: 205 << 20, ThresholdPercent: 80},
		CPUCores:  f64(2),
	}
}

func testRecording(n int) *Recording {
	snaps := make([]telemetry.Batch, n)
	for i := range snaps {
		snaps[i] = batch(int64(1000 + i))
	}
	snaps[0].CPUCores = nil
	snaps[0].PodMemory.CgroupLimit = nil
	return &Recording{
		Metadata: Metadata{
			ID: "recording_2000_10", StartTime: 1000, EndTime: int64(1000 + n - 1),
			TriggerPID: 10, TriggerName: "python3", SnapshotCount: n, FilePath: "/tmp/recording_2000_10.bin",
		},
		Snapshots: snaps,
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(t *testing.T, capacity int) (*Manager, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := New(t.TempDir(), capacity)
	m.now = clk.now
	require.NoError(t, m.EnsureDir())
	return m, clk
}

func binFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.bin"))
	require.NoError(t, err)
	return matches
}

func TestManager_AddNeverExceedsCapacity(t *testing.T) {
	m, _ := newTestManager(t, 5)
	assert.Equal(t, 5, m.Capacity())
	for i := 0; i < 23; i++ {
		m.Add(batch(int64(i)))
		assert.LessOrEqual(t, m.Len(), 5)
	}

	n, err := m.TriggerSave(10, "python3")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	recs := m.List()
	require.Len(t, recs, 1)
	assert.Equal(t, int64(18), recs[0].StartTime, "oldest batches were evicted")
	assert.Equal(t, int64(22), recs[0].EndTime)
}

func TestManager_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, New(t.TempDir(), 0).Capacity())
}

func TestManager_TriggerSave_EmptyBuffer(t *testing.T) {
	m, _ := newTestManager(t, 10)
	n, err := m.TriggerSave(1, "x")
	assert.ErrorIs(t, err, ErrBufferEmpty)
	assert.Zero(t, n)
	assert.Empty(t, binFiles(t, m.Dir()))
}

func TestManager_TriggerSave_Debounce(t *testing.T) {
	m, clk := newTestManager(t, 10)
	m.Add(batch(1))

	n, err := m.TriggerSave(42, "worker")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	clk.advance(1500 * time.Millisecond)
	n, err = m.TriggerSave(42, "worker")
	assert.ErrorIs(t, err, ErrDebounced)
	assert.Zero(t, n)
	assert.Len(t, binFiles(t, m.Dir()), 1)

	t.Run("other_pid_not_debounced", func(t *testing.T) {
		_, err := m.TriggerSave(43, "other")
		require.NoError(t, err)
	})

	t.Run("after_window", func(t *testing.T) {
		clk.advance(time.Second)
		_, err := m.TriggerSave(42, "worker")
		require.NoError(t, err)
		assert.Len(t, binFiles(t, m.Dir()), 3)
	})
}

func TestManager_TriggerSave_ConcurrentSamePID(t *testing.T) {
	m, _ := newTestManager(t, 10)
	m.Add(batch(1))

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.TriggerSave(7, "w"); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrDebounced)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, success)
	assert.Len(t, binFiles(t, m.Dir()), 1)
}

func TestManager_TriggerSave_KeepsBuffer(t *testing.T) {
	m, clk := newTestManager(t, 10)
	m.Add(batch(1))
	m.Add(batch(2))
	_, err := m.TriggerSave(1, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	m.Add(batch(3))
	clk.advance(time.Second)
	n, err := m.TriggerSave(2, "b")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestManager_TriggerSave_WriteFailure(t *testing.T) {
	m, _ := newTestManager(t, 10)
	m.Add(batch(1))
	require.NoError(t, os.RemoveAll(m.Dir()))

	_, err := m.TriggerSave(5, "gone")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDebounced))

	// a failed write does not arm the debounce
	require.NoError(t, m.EnsureDir())
	_, err = m.TriggerSave(5, "gone")
	require.NoError(t, err)
}

func TestManager_RoundTrip(t *testing.T) {
	m, _ := newTestManager(t, 10)
	in := testRecording(3)
	for _, b := range in.Snapshots {
		m.Add(b)
	}
	_, err := m.TriggerSave(10, "python3")
	require.NoError(t, err)

	recs := m.List()
	require.Len(t, recs, 1)
	id := recs[0].ID
	assert.Equal(t, "recording_1700000000_10", id)

	out, err := m.Load(id)
	require.NoError(t, err)
	assert.Equal(t, Metadata{
		ID: id, StartTime: 1000, EndTime: 1002, TriggerPID: 10, TriggerName: "python3",
		SnapshotCount: 3, FilePath: filepath.Join(m.Dir(), id+".bin"),
	}, out.Metadata)
	assert.Equal(t, in.Snapshots, out.Snapshots)
	assert.Equal(t, recs[0], out.Metadata)
}

func TestManager_Load_Errors(t *testing.T) {
	m, _ := newTestManager(t, 10)

	_, err := m.Load("missing")
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), "bad.bin"), []byte("JUNKJUNK"), 0o644))
	_, err = m.Load("bad")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), "v9.bin"), []byte("SPMR\x09xx"), 0o644))
	_, err = m.Load("v9")
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	for _, id := range []string{"", "..", "../etc/passwd", "a/b"} {
		_, err = m.Load(id)
		assert.ErrorIs(t, err, ErrInvalidID, id)
	}
}

func TestManager_List(t *testing.T) {
	m, clk := newTestManager(t, 10)

	for i, pid := range []int{1, 2, 3} {
		m.Add(batch(int64(100 * (i + 1))))
		_, err := m.TriggerSave(pid, "p")
		require.NoError(t, err)
		clk.advance(time.Second)
	}
	// foreign and corrupt files never break the listing
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), "corrupt.bin"), []byte("SPMR\x01\xff"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), "notes.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(m.Dir(), "dir.bin"), 0o755))

	recs := m.List()
	require.Len(t, recs, 3)
	assert.Equal(t, 3, recs[0].TriggerPID, "newest end time first")
	assert.Equal(t, 1, recs[2].TriggerPID)
	assert.Equal(t, int64(300), recs[0].EndTime)
}

func TestManager_List_MissingDir(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "nope"), 1)
	assert.Empty(t, m.List())
	assert.Zero(t, m.Sweep(time.Hour))
}

func TestManager_Delete(t *testing.T) {
	m, _ := newTestManager(t, 10)
	m.Add(batch(1))
	_, err := m.TriggerSave(1, "a")
	require.NoError(t, err)
	id := m.List()[0].ID

	require.NoError(t, m.Delete(id))
	assert.Empty(t, m.List())

	err = m.Delete(id)
	assert.ErrorIs(t, err, os.ErrNotExist, "deletion failures surface")
	assert.ErrorIs(t, m.Delete("../x"), ErrInvalidID)
}

func TestManager_Sweep(t *testing.T) {
	m, clk := newTestManager(t, 10)
	dir := m.Dir()
	write := func(name, body string, age time.Duration) {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		mt := clk.t.Add(-age)
		require.NoError(t, os.Chtimes(p, mt, mt))
	}

	maxAge := 7 * 24 * time.Hour
	write("old_valid.bin", "SPMR\x01", 8*24*time.Hour)
	write("old_garbage.bin", "whatever", 30*24*time.Hour)
	write("fresh_garbage.bin", "whatever", time.Hour)
	write("fresh.bin", "SPMR\x01", 6*24*time.Hour)
	write("old.txt", "keep me", 30*24*time.Hour)

	removed := m.Sweep(maxAge)
	assert.Equal(t, 2, removed)

	left, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range left {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"fresh_garbage.bin", "fresh.bin", "old.txt"}, names)
}
