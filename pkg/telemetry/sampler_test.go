package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/spm/pkg/system/proc"
	"github.com/ja7ad/spm/pkg/types"
)

var t0 = time.Unix(1_700_000_000, 0)

func reading(pid int, ticks, rd, wr uint64) proc.Reading {
	return proc.Reading{
		PID: pid, Name: "worker", Cmdline: "python3 worker.py",
		CPUTicks: ticks, RSS: 300 << 20, USS: 100 << 20, PSS: 150 << 20,
		ReadBytes: rd, WriteBytes: wr,
	}
}

func TestSampler_FirstObservation(t *testing.T) {
	s := NewSampler(100)
	snap := s.Sample(reading(1, 500, 1<<20, 1<<20), t0)

	assert.Zero(t, snap.CPUPercent)
	assert.Nil(t, snap.DiskReadRate, "disk rate is unknown, not zero, on first sight")
	assert.Nil(t, snap.DiskWriteRate)
	assert.Nil(t, snap.GrowthRate)
	assert.True(t, s.Counters().Has(1), "first sighting seeds state")
	assert.Equal(t, uint64(100<<20), snap.USS)
	assert.False(t, snap.IsSystem)
}

func TestSampler_Rates(t *testing.T) {
	s := NewSampler(100)
	s.Sample(reading(1, 1000, 0, 0), t0)

	// 200 ticks over 2s at 100 ticks/s => 1 core-second per second => 100%
	snap := s.Sample(reading(1, 1200, 4<<20, 2<<20), t0.Add(2*time.Second))
	assert.InDelta(t, 100.0, snap.CPUPercent, 1e-9)
	require.NotNil(t, snap.DiskReadRate)
	require.NotNil(t, snap.DiskWriteRate)
	assert.InDelta(t, 2.0, *snap.DiskReadRate, 1e-9)
	assert.InDelta(t, 1.0, *snap.DiskWriteRate, 1e-9)
}

func TestSampler_IdenticalTicksNeverNegative(t *testing.T) {
	s := NewSampler(100)
	for i, ticks := range []uint64{500, 500, 400, 400} {
		snap := s.Sample(reading(1, ticks, 10, 10), t0.Add(time.Duration(i)*time.Second))
		assert.GreaterOrEqual(t, snap.CPUPercent, 0.0)
		if i > 0 {
			assert.Zero(t, snap.CPUPercent, "tick %d", i)
			require.NotNil(t, snap.DiskReadRate)
			assert.Zero(t, *snap.DiskReadRate)
		}
	}
}

func TestSampler_NonPositiveElapsed(t *testing.T) {
	s := NewSampler(100)
	s.Sample(reading(1, 100, 0, 0), t0)
	snap := s.Sample(reading(1, 900, 1<<20, 0), t0)
	assert.Zero(t, snap.CPUPercent)
	assert.Nil(t, snap.DiskReadRate)

	snap = s.Sample(reading(1, 1000, 1<<20, 0), t0.Add(-time.Second))
	assert.Zero(t, snap.CPUPercent)
}

func TestSampler_ZeroTickRate(t *testing.T) {
	s := NewSampler(0)
	s.Sample(reading(1, 100, 0, 0), t0)
	snap := s.Sample(reading(1, 900, 0, 0), t0.Add(time.Second))
	assert.Zero(t, snap.CPUPercent)
}

func TestSampler_Collect_PurgesVanished(t *testing.T) {
	s := NewSampler(100)
	s.Collect([]proc.Reading{reading(1, 10, 0, 0), reading(2, 10, 0, 0)}, t0)
	require.Equal(t, 2, s.Counters().Len())
	require.Equal(t, 2, s.Growth().Len())

	s.Collect([]proc.Reading{reading(1, 20, 0, 0)}, t0.Add(time.Second))
	assert.False(t, s.Counters().Has(2))
	assert.Equal(t, 1, s.Counters().Len())
	assert.Zero(t, s.Growth().Samples(2))

	// PID 2 reused by a new process: no stale delta, looks like a first sighting
	out := s.Collect([]proc.Reading{reading(1, 30, 0, 0), reading(2, 5_000_000, 0, 0)}, t0.Add(2*time.Second))
	require.Len(t, out, 2)
	assert.Zero(t, out[1].CPUPercent)
	assert.Nil(t, out[1].DiskReadRate)
}

func TestSampler_Collect_GrowthRate(t *testing.T) {
	s := NewSampler(100)
	uss := []uint64{100 * types.MiB, 100 * types.MiB, 160 * types.MiB}
	var out []ProcessSnapshot
	for i, u := range uss {
		r := reading(7, 0, 0, 0)
		r.USS = u
		out = s.Collect([]proc.Reading{r}, t0.Add(time.Duration(i)*time.Minute))
		if i < 2 {
			assert.Nil(t, out[0].GrowthRate)
		}
	}
	require.NotNil(t, out[0].GrowthRate)
	assert.InDelta(t, 30.0, *out[0].GrowthRate, 1e-9)
}

func TestSampler_Collect_KeepsOrder(t *testing.T) {
	s := NewSampler(100)
	out := s.Collect([]proc.Reading{reading(3, 0, 0, 0), reading(1, 0, 0, 0), reading(2, 0, 0, 0)}, t0)
	require.Len(t, out, 3)
	assert.Equal(t, []int{3, 1, 2}, []int{out[0].PID, out[1].PID, out[2].PID})
}
