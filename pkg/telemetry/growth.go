package telemetry

import (
	"time"

	"github.com/ja7ad/spm/pkg/types"
)

const (
	// GrowthWindow is the number of samples kept per PID.
	GrowthWindow = 10
	// growthMinSamples is the fewest samples a rate is reported for.
	growthMinSamples = 3
)

type growthSample struct {
	at  time.Time
	uss uint64
}

// GrowthTracker keeps a short USS history per PID and reports a linear
// growth rate in MB/min.
type GrowthTracker struct {
	windows map[int][]growthSample
}

func NewGrowthTracker() *GrowthTracker {
	return &GrowthTracker{windows: make(map[int][]growthSample)}
}

// Record appends a sample, evicting the oldest beyond GrowthWindow.
func (g *GrowthTracker) Record(pid int, at time.Time, uss uint64) {
	w := append(g.windows[pid], growthSample{at: at, uss: uss})
	if len(w) > GrowthWindow {
		w = w[len(w)-GrowthWindow:]
	}
	g.windows[pid] = w
}

// Rate is the slope between the oldest and newest sample only; the samples in
// between just bound how recent the window is.
func (g *GrowthTracker) Rate(pid int) (float64, bool) {
	w := g.windows[pid]
	if len(w) < growthMinSamples {
		return 0, false
	}
	first, last := w[0], w[len(w)-1]
	minutes := last.at.Sub(first.at).Minutes()
	if minutes <= 0 {
		return 0, false
	}
	delta := types.Bytes(last.uss).MB() - types.Bytes(first.uss).MB()
	return delta / minutes, true
}

// Retain drops the windows of PIDs not in live.
func (g *GrowthTracker) Retain(live map[int]struct{}) {
	for pid := range g.windows {
		if _, ok := live[pid]; !ok {
			delete(g.windows, pid)
		}
	}
}

// Samples returns how many samples are held for pid.
func (g *GrowthTracker) Samples(pid int) int { return len(g.windows[pid]) }

// Len returns the number of tracked PIDs.
func (g *GrowthTracker) Len() int { return len(g.windows) }
