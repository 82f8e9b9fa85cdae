package cgroup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

type Version int

const (
	Unsupported Version = iota // no cgroup mounts visible
	V1                         // legacy per-controller hierarchies
	V2                         // unified hierarchy
	Hybrid                     // both mounted
)

func (v Version) String() string {
	switch v {
	case V1:
		return "cgroup v1"
	case V2:
		return "cgroup v2"
	case Hybrid:
		return "cgroup hybrid"
	default:
		return "unsupported"
	}
}

// Mount is one cgroup filesystem from mountinfo.
type Mount struct {
	Point string
	// Unified is true for cgroup2.
	Unified bool
	// Controllers lists the v1 controllers bound to this hierarchy
	// (memory, cpu, cpuacct, ...). Empty for cgroup2.
	Controllers []string
}

// Mounts is every cgroup filesystem visible to the process.
type Mounts []Mount

// Detect reads /proc/self/mountinfo.
func Detect() (Mounts, error) {
	f, err := os.Open("/proc/self/mountinfo")
	if err != nil {
		return nil, fmt.Errorf("open mountinfo: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseMountinfo(f)
}

// v1Controllers are the superopts that name a v1 controller rather than a
// mount flag.
var v1Controllers = []string{
	"blkio", "cpu", "cpuacct", "cpuset", "devices", "freezer", "hugetlb",
	"memory", "net_cls", "net_prio", "perf_event", "pids", "rdma", "misc",
}

// ParseMountinfo extracts cgroup mounts. Lines are
//
//	<id> <parent> <maj:min> <root> <point> <opts> [optional...] - <fstype> <source> <superopts>
//
// and anything that does not fit is skipped.
func ParseMountinfo(r io.Reader) (Mounts, error) {
	var out Mounts
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		i := strings.LastIndex(line, " - ")
		if i < 0 {
			continue
		}
		pre := strings.Fields(line[:i])
		post := strings.Fields(line[i+3:])
		if len(pre) < 5 || len(post) < 1 {
			continue
		}

		m := Mount{Point: pre[4]}
		switch post[0] {
		case "cgroup2":
			m.Unified = true
		case "cgroup":
			if len(post) >= 3 {
				for _, opt := range strings.Split(post[2], ",") {
					if slices.Contains(v1Controllers, opt) {
						m.Controllers = append(m.Controllers, opt)
					}
				}
			}
		default:
			continue
		}
		out = append(out, m)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan mountinfo: %w", err)
	}
	return out, nil
}

// Version classifies the set of mounts.
func (ms Mounts) Version() Version {
	var v1, v2 bool
	for _, m := range ms {
		if m.Unified {
			v2 = true
		} else {
			v1 = true
		}
	}
	switch {
	case v1 && v2:
		return Hybrid
	case v2:
		return V2
	case v1:
		return V1
	default:
		return Unsupported
	}
}

// Controller returns the mount serving controller: the v1 hierarchy it is
// bound to, else the unified mount.
func (ms Mounts) Controller(name string) (Mount, bool) {
	for _, m := range ms {
		if slices.Contains(m.Controllers, name) {
			return m, true
		}
	}
	for _, m := range ms {
		if m.Unified {
			return m, true
		}
	}
	return Mount{}, false
}

// Detail is a one-line description for `spm info`.
func (ms Mounts) Detail() string {
	if len(ms) == 0 {
		return "no cgroup mounts found"
	}
	parts := make([]string, 0, len(ms))
	for _, m := range ms {
		if m.Unified {
			parts = append(parts, "cgroup2 on "+m.Point)
			continue
		}
		ctl := strings.Join(m.Controllers, ",")
		if ctl == "" {
			ctl = "named"
		}
		parts = append(parts, fmt.Sprintf("%s on %s", ctl, m.Point))
	}
	return strings.Join(parts, "; ")
}
