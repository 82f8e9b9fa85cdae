package telemetry

import (
	"cmp"
	"slices"
	"strings"
)

// SortColumn selects the key the process list is ordered by.
type SortColumn int

const (
	SortUSS SortColumn = iota
	SortPSS
	SortRSS
	SortCPU
	SortGrowth
	SortName
	SortCmdline
	SortPID
	SortDiskRead
	SortDiskWrite
	sortColumns
)

func (c SortColumn) String() string {
	switch c {
	case SortUSS:
		return "USS"
	case SortPSS:
		return "PSS"
	case SortRSS:
		return "RSS"
	case SortCPU:
		return "CPU"
	case SortGrowth:
		return "Growth"
	case SortName:
		return "Name"
	case SortCmdline:
		return "Cmdline"
	case SortPID:
		return "PID"
	case SortDiskRead:
		return "DiskRead"
	case SortDiskWrite:
		return "DiskWrite"
	default:
		return "unknown"
	}
}

// Next cycles to the following column, wrapping to USS.
func (c SortColumn) Next() SortColumn {
	return (c + 1) % sortColumns
}

// Order returns a sorted copy of procs. Optional values sort as 0.
func Order(procs []ProcessSnapshot, col SortColumn, ascending bool) []ProcessSnapshot {
	out := slices.Clone(procs)
	slices.SortStableFunc(out, func(a, b ProcessSnapshot) int {
		c := compare(a, b, col)
		if !ascending {
			c = -c
		}
		return c
	})
	return out
}

func compare(a, b ProcessSnapshot, col SortColumn) int {
	switch col {
	case SortPSS:
		return cmp.Compare(a.PSS, b.PSS)
	case SortRSS:
		return cmp.Compare(a.RSS, b.RSS)
	case SortCPU:
		return cmp.Compare(a.CPUPercent, b.CPUPercent)
	case SortGrowth:
		return cmp.Compare(orZero(a.GrowthRate), orZero(b.GrowthRate))
	case SortName:
		return strings.Compare(a.Name, b.Name)
	case SortCmdline:
		return strings.Compare(a.Cmdline, b.Cmdline)
	case SortPID:
		return cmp.Compare(a.PID, b.PID)
	case SortDiskRead:
		return cmp.Compare(orZero(a.DiskReadRate), orZero(b.DiskReadRate))
	case SortDiskWrite:
		return cmp.Compare(orZero(a.DiskWriteRate), orZero(b.DiskWriteRate))
	default:
		return cmp.Compare(a.USS, b.USS)
	}
}

// Filter keeps processes whose name or command line contains text,
// case-insensitively. Blank text keeps everything.
func Filter(procs []ProcessSnapshot, text string) []ProcessSnapshot {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return procs
	}
	out := make([]ProcessSnapshot, 0, len(procs))
	for _, p := range procs {
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Cmdline), needle) {
			out = append(out, p)
		}
	}
	return out
}

// SumRSS totals RSS across procs.
func SumRSS(procs []ProcessSnapshot) uint64 {
	var total uint64
	for _, p := range procs {
		total += p.RSS
	}
	return total
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
