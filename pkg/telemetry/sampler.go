package telemetry

import (
	"time"

	"github.com/ja7ad/spm/pkg/system/proc"
	"github.com/ja7ad/spm/pkg/system/util"
	"github.com/ja7ad/spm/pkg/types"
)

// Sampler derives ProcessSnapshots from cumulative readings. It owns the
// per-PID counter and growth state so no hidden globals are involved.
type Sampler struct {
	ticksPerSecond float64
	counters       *CounterStore
	growth         *GrowthTracker
}

// NewSampler returns a Sampler using the given scheduler tick rate.
func NewSampler(ticksPerSecond float64) *Sampler {
	return &Sampler{
		ticksPerSecond: ticksPerSecond,
		counters:       NewCounterStore(),
		growth:         NewGrowthTracker(),
	}
}

// Sample converts one reading. The counter entry for the PID is overwritten
// whether or not a delta could be computed, so a first sighting seeds the
// next tick.
func (s *Sampler) Sample(r proc.Reading, now time.Time) ProcessSnapshot {
	snap := ProcessSnapshot{
		PID:      r.PID,
		Name:     r.Name,
		Cmdline:  r.Cmdline,
		USS:      r.USS,
		PSS:      r.PSS,
		RSS:      r.RSS,
		IsSystem: IsSystemProcess(r.Name, r.Cmdline),
	}

	prev, seen := s.counters.Swap(r.PID, Counters{
		CPUTicks:   r.CPUTicks,
		ReadBytes:  r.ReadBytes,
		WriteBytes: r.WriteBytes,
		At:         now,
	})
	if !seen {
		return snap
	}

	elapsed := now.Sub(prev.At).Seconds()
	if elapsed <= 0 {
		return snap
	}

	dt := util.DeltaU64(r.CPUTicks, prev.CPUTicks)
	snap.CPUPercent = util.SafeDiv(float64(dt), s.ticksPerSecond*elapsed) * 100

	snap.DiskReadRate = rateMB(prev.ReadBytes, r.ReadBytes, elapsed)
	snap.DiskWriteRate = rateMB(prev.WriteBytes, r.WriteBytes, elapsed)
	return snap
}

// Collect samples a whole enumeration, attaches growth rates, and purges state
// for every PID absent from readings.
func (s *Sampler) Collect(readings []proc.Reading, now time.Time) []ProcessSnapshot {
	out := make([]ProcessSnapshot, 0, len(readings))
	live := make(map[int]struct{}, len(readings))

	for _, r := range readings {
		live[r.PID] = struct{}{}
		snap := s.Sample(r, now)

		s.growth.Record(r.PID, now, r.USS)
		if rate, ok := s.growth.Rate(r.PID); ok {
			snap.GrowthRate = &rate
		}
		out = append(out, snap)
	}

	s.counters.Retain(live)
	s.growth.Retain(live)
	return out
}

// Counters exposes the counter store, mainly for tests.
func (s *Sampler) Counters() *CounterStore { return s.counters }

// Growth exposes the growth tracker, mainly for tests.
func (s *Sampler) Growth() *GrowthTracker { return s.growth }

func rateMB(prev, cur uint64, seconds float64) *float64 {
	v := types.Bytes(util.DeltaU64(cur, prev)).MB() / seconds
	return &v
}
