package proc

import "errors"

var (
	// ErrNoStat indicates that /proc/<pid>/stat was empty or malformed.
	ErrNoStat = errors.New("proc: malformed or empty stat")

	// ErrShortStat indicates that /proc/<pid>/stat had fewer fields than expected.
	ErrShortStat = errors.New("proc: short stat")

	// ErrNoCPU indicates that /proc/stat had no aggregate CPU line.
	ErrNoCPU = errors.New("proc: no cpu line")

	// ErrNoUptime indicates that /proc/uptime was missing, malformed or zero.
	ErrNoUptime = errors.New("proc: no uptime")

	// ErrSignal indicates that the initial SIGTERM could not be delivered.
	ErrSignal = errors.New("proc: failed to send SIGTERM")
)
