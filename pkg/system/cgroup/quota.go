package cgroup

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultRoot is the usual cgroupfs mount point inside a container.
const DefaultRoot = "/sys/fs/cgroup"

// v1Unlimited is the smallest memory.limit_in_bytes value treated as
// "no limit"; v1 reports an unset limit as a page-rounded LONG_MAX.
const v1Unlimited = uint64(1) << 62

// MemoryStat is the container's memory usage and limit in bytes.
// Limit is nil when unconstrained or unknown.
type MemoryStat struct {
	Usage uint64
	Limit *uint64
}

// Reader resolves container memory and CPU entitlement from cgroup files.
// Every probe fails soft: missing or malformed files read as "unknown".
type Reader struct {
	root  string
	memV1 string
	cpuV1 string
}

// NewReader returns a Reader rooted at root ("" means DefaultRoot). The v1
// memory and cpu hierarchies are assumed to be <root>/memory and <root>/cpu.
func NewReader(root string) *Reader {
	if root == "" {
		root = DefaultRoot
	}
	return &Reader{
		root:  root,
		memV1: filepath.Join(root, "memory"),
		cpuV1: filepath.Join(root, "cpu"),
	}
}

// WithMounts returns a copy of r whose v1 probes use the hierarchies ms binds
// the memory and cpu controllers to, such as /sys/fs/cgroup/cpu,cpuacct.
// Controllers served only by the unified mount keep the default paths.
func (r *Reader) WithMounts(ms Mounts) *Reader {
	out := *r
	if m, ok := ms.Controller("memory"); ok && !m.Unified {
		out.memV1 = m.Point
	}
	if m, ok := ms.Controller("cpu"); ok && !m.Unified {
		out.cpuV1 = m.Point
	}
	return &out
}

// ReadMemory probes the v2 single-file layout first, then v1.
func (r *Reader) ReadMemory() MemoryStat {
	switch {
	case r.exists(r.root, "memory.max"):
		return r.memoryV2()
	case r.exists(r.memV1, "memory.limit_in_bytes"):
		return r.memoryV1()
	default:
		return MemoryStat{}
	}
}

func (r *Reader) memoryV2() MemoryStat {
	usage, _ := r.readUint(r.root, "memory.current")
	st := MemoryStat{Usage: usage}

	s, ok := r.readString(r.root, "memory.max")
	if !ok || s == "max" {
		return st
	}
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		st.Limit = &v
	}
	return st
}

func (r *Reader) memoryV1() MemoryStat {
	usage, _ := r.readUint(r.memV1, "memory.usage_in_bytes")
	st := MemoryStat{Usage: usage}

	if v, ok := r.readUint(r.memV1, "memory.limit_in_bytes"); ok && v < v1Unlimited {
		st.Limit = &v
	}
	return st
}

// ReadCPUQuota returns the CPU entitlement in fractional cores.
// ok is false when no quota is configured or it cannot be read.
func (r *Reader) ReadCPUQuota() (cores float64, ok bool) {
	switch {
	case r.exists(r.root, "cpu.max"):
		return r.cpuV2()
	case r.exists(r.cpuV1, "cpu.cfs_quota_us"):
		return r.cpuV1Quota()
	default:
		return 0, false
	}
}

// cpu.max holds "<quota> <period>", quota being "max" when unlimited.
func (r *Reader) cpuV2() (float64, bool) {
	s, ok := r.readString(r.root, "cpu.max")
	if !ok {
		return 0, false
	}
	parts := strings.Fields(s)
	if len(parts) != 2 || parts[0] == "max" {
		return 0, false
	}
	quota, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, false
	}
	period, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || period <= 0 || quota <= 0 {
		return 0, false
	}
	return quota / period, true
}

// v1 reports an unset quota as -1.
func (r *Reader) cpuV1Quota() (float64, bool) {
	quota, ok := r.readInt(r.cpuV1, "cpu.cfs_quota_us")
	if !ok {
		return 0, false
	}
	period, ok := r.readInt(r.cpuV1, "cpu.cfs_period_us")
	if !ok || quota <= 0 || period <= 0 {
		return 0, false
	}
	return float64(quota) / float64(period), true
}

func (r *Reader) exists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

func (r *Reader) readString(dir, name string) (string, bool) {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(b)), true
}

func (r *Reader) readUint(dir, name string) (uint64, bool) {
	s, ok := r.readString(dir, name)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 10, 64)
	return v, err == nil
}

func (r *Reader) readInt(dir, name string) (int64, bool) {
	s, ok := r.readString(dir, name)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}
