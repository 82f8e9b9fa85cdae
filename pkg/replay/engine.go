// Package replay steps through a loaded recording.
package replay

import (
	"time"

	"github.com/ja7ad/spm/pkg/recording"
	"github.com/ja7ad/spm/pkg/telemetry"
)

// PageSize is how many frames PageForward/PageBack move.
const PageSize = 10

// Engine is a play/pause cursor over a recording's batches. It has no timer
// of its own; the caller polls Advance from its loop. Every transition takes
// the current instant because most of them reset the advance anchor.
type Engine struct {
	rec     *recording.Recording
	index   int
	playing bool
	speed   Speed
	anchor  time.Time
}

// New starts paused on the first frame at Normal speed.
func New(rec *recording.Recording, now time.Time) *Engine {
	return &Engine{rec: rec, speed: Normal, anchor: now}
}

func (e *Engine) Recording() *recording.Recording { return e.rec }

func (e *Engine) Len() int { return len(e.rec.Snapshots) }

func (e *Engine) Index() int { return e.index }

func (e *Engine) Playing() bool { return e.playing }

func (e *Engine) Speed() Speed { return e.speed }

// Current returns the batch under the cursor, or false for an empty recording.
func (e *Engine) Current() (telemetry.Batch, bool) {
	if e.Len() == 0 {
		return telemetry.Batch{}, false
	}
	return e.rec.Snapshots[e.index], true
}

// TogglePlay flips play/pause. An empty recording stays paused.
func (e *Engine) TogglePlay(now time.Time) {
	e.anchor = now
	if e.Len() == 0 {
		e.playing = false
		return
	}
	e.playing = !e.playing
}

func (e *Engine) StepForward(now time.Time) { e.seek(e.index+1, now) }

func (e *Engine) StepBack(now time.Time) { e.seek(e.index-1, now) }

func (e *Engine) PageForward(now time.Time) { e.seek(e.index+PageSize, now) }

func (e *Engine) PageBack(now time.Time) { e.seek(e.index-PageSize, now) }

func (e *Engine) First(now time.Time) { e.seek(0, now) }

func (e *Engine) Last(now time.Time) { e.seek(e.Len()-1, now) }

func (e *Engine) Faster(now time.Time) {
	e.speed = e.speed.Faster()
	e.anchor = now
}

func (e *Engine) Slower(now time.Time) {
	e.speed = e.speed.Slower()
	e.anchor = now
}

// Advance moves one frame once the current speed's interval has elapsed since
// the anchor and reports whether the index changed. Playback pauses when the
// last frame is reached.
func (e *Engine) Advance(now time.Time) bool {
	if !e.playing {
		return false
	}
	last := e.Len() - 1
	if last < 0 {
		e.playing = false
		return false
	}
	if now.Sub(e.anchor) < e.speed.Interval() {
		return false
	}
	if e.index >= last {
		e.playing = false
		return false
	}
	e.index++
	e.anchor = now
	if e.index == last {
		e.playing = false
	}
	return true
}

func (e *Engine) seek(i int, now time.Time) {
	last := e.Len() - 1
	if i > last {
		i = last
	}
	if i < 0 {
		i = 0
	}
	e.index = i
	e.anchor = now
}
