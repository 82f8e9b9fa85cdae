package util

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ja7ad/spm/pkg/types"
)

// LogicalCores returns the number of logical CPUs, falling back to the Go
// runtime's view when the host query fails.
func LogicalCores() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// SystemSummary returns host name, kernel, CPU and memory descriptions for
// banner output. Unknown values are reported as "unknown".
func SystemSummary() (hostname, kernel, cpus, memory string) {
	hostname, kernel, memory = "unknown", "unknown", "unknown"
	if info, err := host.Info(); err == nil {
		hostname = info.Hostname
		kernel = fmt.Sprintf("%s %s", info.KernelVersion, info.KernelArch)
	}
	cpus = fmt.Sprintf("%d logical", LogicalCores())
	if vm, err := mem.VirtualMemory(); err == nil {
		memory = types.Bytes(vm.Total).Humanized()
	}
	return hostname, kernel, cpus, memory
}
