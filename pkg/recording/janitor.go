package recording

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor repeats the retention sweep on a schedule so a long-running
// dashboard does not accumulate recordings past their max age.
type Janitor struct {
	cron   *cron.Cron
	m      *Manager
	maxAge time.Duration
	log    *slog.Logger
}

// NewJanitor schedules m.Sweep(maxAge) every interval. Start must be called.
func NewJanitor(m *Manager, maxAge, interval time.Duration, log *slog.Logger) (*Janitor, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be > 0, got %s", interval)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	j := &Janitor{cron: cron.New(), m: m, maxAge: maxAge, log: log}
	if _, err := j.cron.AddFunc(fmt.Sprintf("@every %s", interval), j.run); err != nil {
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}
	return j, nil
}

func (j *Janitor) Start() { j.cron.Start() }

// Stop halts the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() { <-j.cron.Stop().Done() }

func (j *Janitor) run() {
	if n := j.m.Sweep(j.maxAge); n > 0 {
		j.log.Info("removed old recordings", "count", n, "max_age", j.maxAge)
	}
}
