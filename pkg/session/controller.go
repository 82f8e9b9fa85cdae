// Package session drives the dashboard: it owns the current mode, the watch
// set and the view state, and routes ticks and key presses between the
// sampler, the recorder and the replay engine.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ja7ad/spm/pkg/recording"
	"github.com/ja7ad/spm/pkg/replay"
	"github.com/ja7ad/spm/pkg/system/cgroup"
	"github.com/ja7ad/spm/pkg/system/proc"
	"github.com/ja7ad/spm/pkg/telemetry"
)

// StatusTTL is how long a status message stays visible.
const StatusTTL = 3 * time.Second

// ProcessSource enumerates live processes.
type ProcessSource interface {
	Readings() []proc.Reading
}

// QuotaSource reports container memory and CPU entitlement.
type QuotaSource interface {
	ReadMemory() cgroup.MemoryStat
	ReadCPUQuota() (float64, bool)
}

// Recorder buffers batches and manages stored recordings.
type Recorder interface {
	Add(telemetry.Batch)
	TriggerSave(pid int, name string) (int, error)
	List() []recording.Metadata
	Load(id string) (*recording.Recording, error)
	Delete(id string) error
	Len() int
	Capacity() int
}

// Terminator stops a process and describes the outcome.
type Terminator interface {
	Terminate(pid int) (string, error)
}

// Deps are the collaborators a Controller drives.
type Deps struct {
	Sampler    *telemetry.Sampler
	Source     ProcessSource
	Quota      QuotaSource
	Recorder   Recorder
	Terminator Terminator
	Logger     *slog.Logger

	// ThresholdPercent is copied into every PodMemory.
	ThresholdPercent uint8
	// Now defaults to time.Now.
	Now func() time.Time
}

// View is the live table's presentation state.
type View struct {
	Sort         telemetry.SortColumn
	Ascending    bool
	Filter       string
	FilterActive bool
	Selected     int
}

// KillConfirm is a pending termination awaiting y/n.
type KillConfirm struct {
	PID      int
	Name     string
	IsSystem bool
}

type status struct {
	text    string
	expires time.Time
}

// Controller is not safe for concurrent use; the dashboard loop owns it.
type Controller struct {
	sampler   *telemetry.Sampler
	source    ProcessSource
	quota     QuotaSource
	rec       Recorder
	term      Terminator
	log       *slog.Logger
	threshold uint8
	now       func() time.Time

	mode    Mode
	running bool

	all     []telemetry.ProcessSnapshot // last batch, sampler order, unfiltered
	visible []telemetry.ProcessSnapshot // sorted and filtered for display
	pod     telemetry.PodMemory
	cores   *float64

	view    View
	watched map[int]struct{}
	status  *status
	confirm *KillConfirm
}

func New(d Deps) *Controller {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	log := d.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		sampler:   d.Sampler,
		source:    d.Source,
		quota:     d.Quota,
		rec:       d.Recorder,
		term:      d.Terminator,
		log:       log,
		threshold: d.ThresholdPercent,
		now:       now,
		mode:      Live{},
		running:   true,
		pod:       telemetry.PodMemory{ThresholdPercent: d.ThresholdPercent},
		watched:   make(map[int]struct{}),
	}
}

// Tick runs one sampling cycle. Outside Live mode it only expires the status.
//
// Watched processes missing from this tick's enumeration trigger a save of
// the buffer as it stood before this tick, so the capture ends on the last
// batch in which the process was still alive.
func (c *Controller) Tick() {
	now := c.now()
	c.expireStatus(now)

	if _, ok := c.mode.(Live); !ok {
		return
	}

	procs := c.sampler.Collect(c.source.Readings(), now)

	mem := c.quota.ReadMemory()
	pod := telemetry.PodMemory{
		CgroupUsage:      mem.Usage,
		CgroupLimit:      mem.Limit,
		RSSSum:           telemetry.SumRSS(procs),
		ThresholdPercent: c.threshold,
	}
	var cores *float64
	if v, ok := c.quota.ReadCPUQuota(); ok {
		cores = &v
	}

	c.checkVanished(procs, now)

	c.all, c.pod, c.cores = procs, pod, cores
	c.refresh()

	c.rec.Add(telemetry.Batch{
		Timestamp: now.Unix(),
		Processes: c.visible,
		PodMemory: pod,
		CPUCores:  cores,
	})
}

func (c *Controller) checkVanished(procs []telemetry.ProcessSnapshot, now time.Time) {
	// an empty enumeration means the procfs root could not be listed, not
	// that every process exited
	if len(c.watched) == 0 || len(procs) == 0 {
		return
	}
	alive := make(map[int]struct{}, len(procs))
	for _, p := range procs {
		alive[p.PID] = struct{}{}
	}
	for pid := range c.watched {
		if _, ok := alive[pid]; ok {
			continue
		}
		name := c.previousName(pid)
		delete(c.watched, pid)

		n, err := c.rec.TriggerSave(pid, name)
		switch {
		case err == nil:
			c.log.Info("recording saved", "pid", pid, "name", name, "snapshots", n)
			c.setStatus(fmt.Sprintf("Recording saved: %s (%d snapshots)", name, n), now)
		case errors.Is(err, recording.ErrBufferEmpty), errors.Is(err, recording.ErrDebounced):
			c.log.Debug("recording skipped", "pid", pid, "reason", err)
		default:
			c.log.Error("recording save failed", "pid", pid, "name", name, "err", err)
			c.setStatus(fmt.Sprintf("Failed to save recording: %v", err), now)
		}
	}
}

func (c *Controller) previousName(pid int) string {
	for _, p := range c.all {
		if p.PID == pid {
			return p.Name
		}
	}
	return "unknown"
}

// refresh rebuilds the visible list from the last batch and clamps the
// selection to it.
func (c *Controller) refresh() {
	c.visible = telemetry.Filter(telemetry.Order(c.all, c.view.Sort, c.view.Ascending), c.view.Filter)
	c.clampSelection()
}

func (c *Controller) clampSelection() {
	switch {
	case len(c.visible) == 0:
		c.view.Selected = 0
	case c.view.Selected >= len(c.visible):
		c.view.Selected = len(c.visible) - 1
	}
}

// Advance lets a playing replay move forward; it reports whether the frame
// changed. It is a no-op outside Replaying.
func (c *Controller) Advance() bool {
	r, ok := c.mode.(*Replaying)
	if !ok {
		return false
	}
	return r.Engine.Advance(c.now())
}

// HandleKey routes one key press according to the current mode.
func (c *Controller) HandleKey(k Key) {
	now := c.now()

	if k.Code == KeyCtrlC {
		c.running = false
		return
	}
	if c.confirm != nil {
		c.handleConfirm(k, now)
		return
	}

	switch m := c.mode.(type) {
	case *Browsing:
		c.handleBrowsing(m, k, now)
	case *Replaying:
		c.handleReplay(m.Engine, k, now)
	default:
		if c.view.FilterActive {
			c.handleFilter(k)
			return
		}
		c.handleLive(k, now)
	}
}

func (c *Controller) handleConfirm(k Key, now time.Time) {
	switch {
	case k.is('y'):
		kc := c.confirm
		c.confirm = nil
		msg, err := c.term.Terminate(kc.PID)
		if err != nil {
			c.log.Error("terminate failed", "pid", kc.PID, "name", kc.Name, "err", err)
			c.setStatus(fmt.Sprintf("Failed to send SIGTERM to %d", kc.PID), now)
			return
		}
		c.log.Info("terminate", "pid", kc.PID, "name", kc.Name, "outcome", msg)
		c.setStatus(msg, now)
	case k.is('n'), k.Code == KeyEsc:
		c.confirm = nil
	}
}

func (c *Controller) handleLive(k Key, now time.Time) {
	switch {
	case k.is('q'), k.Code == KeyEsc:
		c.running = false
	case k.is('/'):
		c.view.FilterActive = true
	case k.is('R'):
		c.mode = &Browsing{Recordings: c.rec.List()}
	case k.Code == KeyUp:
		if c.view.Selected > 0 {
			c.view.Selected--
		}
	case k.Code == KeyDown:
		if c.view.Selected < len(c.visible)-1 {
			c.view.Selected++
		}
	case k.is('k'):
		p, ok := c.Selected()
		if !ok {
			c.setStatus("No process selected", now)
			return
		}
		c.confirm = &KillConfirm{PID: p.PID, Name: p.Name, IsSystem: p.IsSystem}
	case k.is('w'):
		c.toggleWatch(now)
	case k.is('s'):
		c.view.Sort = c.view.Sort.Next()
		c.refresh()
	case k.is('S'), k.is('r'):
		c.view.Ascending = !c.view.Ascending
		c.refresh()
	}
}

func (c *Controller) handleFilter(k Key) {
	prev := c.view.Filter
	switch k.Code {
	case KeyRune:
		c.view.Filter += string(k.Rune)
	case KeyBackspace:
		if r := []rune(c.view.Filter); len(r) > 0 {
			c.view.Filter = string(r[:len(r)-1])
		}
	case KeyEsc:
		c.view.Filter = ""
		c.view.FilterActive = false
	case KeyEnter:
		c.view.FilterActive = false
	}
	if c.view.Filter != prev {
		c.view.Selected = 0
		c.refresh()
	}
}

func (c *Controller) toggleWatch(now time.Time) {
	p, ok := c.Selected()
	if !ok {
		return
	}
	if _, on := c.watched[p.PID]; on {
		delete(c.watched, p.PID)
		c.setStatus(fmt.Sprintf("Unwatched: %s (PID %d)", p.Name, p.PID), now)
		return
	}
	c.watched[p.PID] = struct{}{}
	c.setStatus(fmt.Sprintf("Watching: %s (PID %d)", p.Name, p.PID), now)
}

func (c *Controller) handleBrowsing(b *Browsing, k Key, now time.Time) {
	switch {
	case k.Code == KeyUp:
		if b.Selected > 0 {
			b.Selected--
		}
	case k.Code == KeyDown:
		if b.Selected < len(b.Recordings)-1 {
			b.Selected++
		}
	case k.Code == KeyEnter:
		if b.Selected >= len(b.Recordings) {
			return
		}
		id := b.Recordings[b.Selected].ID
		rec, err := c.rec.Load(id)
		if err != nil {
			c.log.Error("load recording", "id", id, "err", err)
			c.setStatus(fmt.Sprintf("Failed to load recording: %v", err), now)
			return
		}
		if len(rec.Snapshots) == 0 {
			c.setStatus("Recording has no snapshots", now)
			return
		}
		c.mode = &Replaying{Engine: replay.New(rec, now)}
	case k.is('d'):
		if b.Selected >= len(b.Recordings) {
			return
		}
		id := b.Recordings[b.Selected].ID
		if err := c.rec.Delete(id); err != nil {
			c.log.Error("delete recording", "id", id, "err", err)
			c.setStatus(fmt.Sprintf("Failed to delete recording: %v", err), now)
		} else {
			c.log.Info("recording deleted", "id", id)
		}
		b.Recordings = c.rec.List()
		if b.Selected >= len(b.Recordings) {
			b.Selected = max(len(b.Recordings)-1, 0)
		}
	case k.Code == KeyEsc:
		c.mode = Live{}
	}
}

// RefreshRecordings re-lists stored recordings while Browsing, keeping the
// selection on the same recording when it still exists. It reports whether
// the view changed.
func (c *Controller) RefreshRecordings() bool {
	b, ok := c.mode.(*Browsing)
	if !ok {
		return false
	}
	var selectedID string
	if b.Selected < len(b.Recordings) {
		selectedID = b.Recordings[b.Selected].ID
	}
	b.Recordings = c.rec.List()
	b.Selected = min(b.Selected, max(len(b.Recordings)-1, 0))
	for i, md := range b.Recordings {
		if md.ID == selectedID {
			b.Selected = i
			break
		}
	}
	return true
}

func (c *Controller) handleReplay(e *replay.Engine, k Key, now time.Time) {
	switch {
	case k.Code == KeyEsc, k.is('q'):
		c.mode = Live{}
	case k.Code == KeyLeft:
		e.StepBack(now)
	case k.Code == KeyRight:
		e.StepForward(now)
	case k.Code == KeyPageUp:
		e.PageBack(now)
	case k.Code == KeyPageDown:
		e.PageForward(now)
	case k.Code == KeyHome:
		e.First(now)
	case k.Code == KeyEnd:
		e.Last(now)
	case k.is(' '):
		e.TogglePlay(now)
	case k.is('+'):
		e.Faster(now)
	case k.is('-'):
		e.Slower(now)
	}
}

func (c *Controller) setStatus(text string, now time.Time) {
	c.status = &status{text: text, expires: now.Add(StatusTTL)}
}

func (c *Controller) expireStatus(now time.Time) {
	if c.status != nil && !now.Before(c.status.expires) {
		c.status = nil
	}
}

// Mode returns the active mode.
func (c *Controller) Mode() Mode { return c.mode }

// Running is false once the user asked to quit.
func (c *Controller) Running() bool { return c.running }

// Processes returns the sorted, filtered live list.
func (c *Controller) Processes() []telemetry.ProcessSnapshot { return c.visible }

// Pod returns the last container memory summary.
func (c *Controller) Pod() telemetry.PodMemory { return c.pod }

// Cores returns the last CPU entitlement, nil when unlimited.
func (c *Controller) Cores() *float64 { return c.cores }

func (c *Controller) View() View { return c.view }

// Selected returns the highlighted live process.
func (c *Controller) Selected() (telemetry.ProcessSnapshot, bool) {
	if c.view.Selected < 0 || c.view.Selected >= len(c.visible) {
		return telemetry.ProcessSnapshot{}, false
	}
	return c.visible[c.view.Selected], true
}

// Status returns the current status message while it has not expired.
func (c *Controller) Status() (string, bool) {
	if c.status == nil || !c.now().Before(c.status.expires) {
		return "", false
	}
	return c.status.text, true
}

// Confirm returns the pending kill confirmation, if any.
func (c *Controller) Confirm() *KillConfirm { return c.confirm }

func (c *Controller) IsWatched(pid int) bool {
	_, ok := c.watched[pid]
	return ok
}

func (c *Controller) WatchedCount() int { return len(c.watched) }

// Buffered returns the recorder's fill level and capacity.
func (c *Controller) Buffered() (n, capacity int) { return c.rec.Len(), c.rec.Capacity() }
