// Package proc reads per-process counters from a procfs mount and delivers
// signals to processes. It has no state between calls: turning cumulative
// counters into rates is the job of pkg/telemetry.
//
// # Overview
//
//   - Procfs:
//     Pids() ([]int, error)
//     Readings() []Reading
//     Read(pid int) (Reading, error)
//     TicksPerSecond(cores int) (float64, error)
//
//     Readings enumerates every numeric entry of the mount and skips processes
//     that vanish or cannot be read mid-scan. Read is the single-process form
//     and reports why a process could not be read.
//
//   - Reading fields:
//     Name, Cmdline : from stat (between the first '(' and the last ')') and
//     cmdline (NUL-separated, falls back to Name when empty)
//     CPUTicks      : utime + stime from stat
//     RSS           : statm resident pages * page size
//     USS, PSS      : smaps_rollup, or smaps when the rollup is absent
//     ReadBytes     : io read_bytes
//     WriteBytes    : io write_bytes
//
//     Only stat is required. Missing or unreadable memory and io files leave
//     the corresponding fields at zero.
//
//   - Errors (errs.go):
//     ErrNoStat    : stat has no parenthesised command name
//     ErrShortStat : stat has too few fields after the name
//     ErrNoCPU     : /proc/stat has no aggregate cpu line
//     ErrNoUptime  : /proc/uptime is empty or zero
//     ErrSignal    : SIGTERM could not be delivered
//
// # Clock rate
//
//	ticks/s per core = (sum of the aggregate cpu line) / uptime / cores
//
// The kernel's USER_HZ is not exposed through procfs, so it is estimated from
// the total jiffies accumulated since boot. The estimate converges on the
// configured rate (typically 100) on any host that has been up for more than a
// few seconds.
//
// # Termination
//
// Terminator.Terminate sends SIGTERM, waits Grace (3s by default), and sends
// SIGKILL if signal 0 still reaches the process. The call blocks for the whole
// grace period.
//
// # Testing guidance
//
//   - Parsers are exported and take strings or scanners so they can be fed
//     fixtures directly.
//   - NewProcfs accepts an arbitrary root; tests build a fake tree under
//     t.TempDir().
//   - Tests against the live /proc only assert on the test binary itself.
package proc
