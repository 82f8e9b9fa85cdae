package proc

// Reading is one process's raw, cumulative counters as read from procfs.
// Memory figures are bytes; CPUTicks is utime+stime in scheduler ticks;
// ReadBytes/WriteBytes are the monotonic /proc/<pid>/io counters.
type Reading struct {
	PID        int
	Name       string
	Cmdline    string
	CPUTicks   uint64
	RSS        uint64
	USS        uint64
	PSS        uint64
	ReadBytes  uint64
	WriteBytes uint64
}
