//go:build linux

package proc

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// TicksPerSecond estimates the scheduler tick rate as
// total jiffies (/proc/stat "cpu" line) / uptime / logical cores.
//
// This is a coarse calibration: only relative CPU deltas depend on it, so it
// avoids sysconf(_SC_CLK_TCK) and the cgo that would need.
func (p *Procfs) TicksPerSecond(cores int) (float64, error) {
	jiffies, err := p.totalJiffies()
	if err != nil {
		return 0, err
	}
	uptime, err := p.uptimeSeconds()
	if err != nil {
		return 0, err
	}
	if cores <= 0 {
		cores = 1
	}
	return float64(jiffies) / uptime / float64(cores), nil
}

func (p *Procfs) totalJiffies() (uint64, error) {
	f, err := os.Open(filepath.Join(p.root, "stat"))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fs := strings.Fields(sc.Text())
		if len(fs) == 0 || fs[0] != "cpu" {
			continue
		}
		var total uint64
		for _, s := range fs[1:] {
			if v, err := strconv.ParseUint(s, 10, 64); err == nil {
				total += v
			}
		}
		return total, nil
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	return 0, ErrNoCPU
}

func (p *Procfs) uptimeSeconds() (float64, error) {
	b, err := os.ReadFile(filepath.Join(p.root, "uptime"))
	if err != nil {
		return 0, err
	}
	fs := strings.Fields(string(b))
	if len(fs) == 0 {
		return 0, ErrNoUptime
	}
	v, err := strconv.ParseFloat(fs[0], 64)
	if err != nil || v <= 0 {
		return 0, ErrNoUptime
	}
	return v, nil
}
