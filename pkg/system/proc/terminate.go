//go:build linux

package proc

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultGrace is how long Terminate waits between SIGTERM and the liveness check.
const DefaultGrace = 3 * time.Second

// Terminator stops a process with SIGTERM and escalates to SIGKILL when it is
// still alive after Grace.
type Terminator struct {
	Grace time.Duration

	kill  func(pid int, sig unix.Signal) error
	sleep func(time.Duration)
}

func NewTerminator() *Terminator {
	return &Terminator{Grace: DefaultGrace, kill: unix.Kill, sleep: time.Sleep}
}

// Terminate blocks for the grace period. The returned string is meant for the
// user in both the graceful and the escalated case.
func (t *Terminator) Terminate(pid int) (string, error) {
	if err := t.kill(pid, unix.SIGTERM); err != nil {
		return "", fmt.Errorf("%w to %d: %v", ErrSignal, pid, err)
	}

	t.sleep(t.Grace)

	// Signal 0 only probes for existence.
	if err := t.kill(pid, 0); err == nil {
		_ = t.kill(pid, unix.SIGKILL)
		return fmt.Sprintf("Process %d force-killed (SIGKILL)", pid), nil
	}
	return fmt.Sprintf("Process %d terminated (SIGTERM)", pid), nil
}
