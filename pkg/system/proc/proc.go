//go:build linux

package proc

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultRoot is where procfs is normally mounted.
const DefaultRoot = "/proc"

// Procfs reads per-process counters below a procfs mount. The root is
// configurable so tests can point it at a fixture tree.
type Procfs struct {
	root     string
	pageSize uint64
}

// NewProcfs returns a reader rooted at root ("" means DefaultRoot).
func NewProcfs(root string) *Procfs {
	if root == "" {
		root = DefaultRoot
	}
	return &Procfs{root: root, pageSize: uint64(PageSize())}
}

// Root returns the procfs mount point this reader uses.
func (p *Procfs) Root() string { return p.root }

// PageSize returns the system memory page size in bytes.
// The PAGE_SIZE env var overrides it to ease testing.
func PageSize() int {
	if ps := os.Getenv("PAGE_SIZE"); ps != "" {
		if v, _ := strconv.Atoi(ps); v > 0 {
			return v
		}
	}
	return os.Getpagesize()
}

// Pids lists the numeric entries of the procfs root.
func (p *Procfs) Pids() ([]int, error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return nil, err
	}
	pids := make([]int, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid <= 0 {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

// Readings enumerates every live process. A process whose stat cannot be read
// (exited mid-scan, permission denied) is skipped; the enumeration itself
// only comes back empty when the root cannot be listed.
func (p *Procfs) Readings() []Reading {
	pids, err := p.Pids()
	if err != nil {
		return nil
	}
	out := make([]Reading, 0, len(pids))
	for _, pid := range pids {
		r, err := p.Read(pid)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Read collects one process's counters. Only stat is mandatory; the other
// sources degrade to zero (or to the stat name for an empty cmdline).
func (p *Procfs) Read(pid int) (Reading, error) {
	dir := filepath.Join(p.root, strconv.Itoa(pid))

	b, err := os.ReadFile(filepath.Join(dir, "stat"))
	if err != nil {
		return Reading{}, err
	}
	name, ticks, err := ParseStat(string(b))
	if err != nil {
		return Reading{}, err
	}

	r := Reading{PID: pid, Name: name, CPUTicks: ticks}

	if b, err := os.ReadFile(filepath.Join(dir, "cmdline")); err == nil {
		r.Cmdline = ParseCmdline(string(b))
	}
	if strings.TrimSpace(r.Cmdline) == "" {
		r.Cmdline = name
	}

	if b, err := os.ReadFile(filepath.Join(dir, "statm")); err == nil {
		if pages, ok := ParseStatmResident(string(b)); ok {
			r.RSS = pages * p.pageSize
		}
	}

	// Prefer smaps_rollup (kernel 4.14+), fall back to the full smaps.
	if uss, pss, err := readSmaps(filepath.Join(dir, "smaps_rollup")); err == nil {
		r.USS, r.PSS = uss, pss
	} else if uss, pss, err := readSmaps(filepath.Join(dir, "smaps")); err == nil {
		r.USS, r.PSS = uss, pss
	}

	if f, err := os.Open(filepath.Join(dir, "io")); err == nil {
		r.ReadBytes, r.WriteBytes = ParseIO(bufio.NewScanner(f))
		_ = f.Close()
	}

	return r, nil
}

// ParseStat extracts comm and utime+stime from a /proc/<pid>/stat line.
//
// comm is wrapped in parens and may itself contain spaces or parens, so the
// name is everything between the first '(' and the last ')'.
func ParseStat(content string) (name string, ticks uint64, err error) {
	start := strings.IndexByte(content, '(')
	end := strings.LastIndexByte(content, ')')
	if start < 0 || end <= start {
		return "", 0, ErrNoStat
	}
	name = content[start+1 : end]
	fields := strings.Fields(content[end+1:])

	// Relative to fields: utime (14th overall) => fields[11], stime => fields[12]
	if len(fields) <= 12 {
		return "", 0, ErrShortStat
	}
	utime, err := strconv.ParseUint(fields[11], 10, 64)
	if err != nil {
		return "", 0, ErrNoStat
	}
	stime, err := strconv.ParseUint(fields[12], 10, 64)
	if err != nil {
		return "", 0, ErrNoStat
	}
	return name, utime + stime, nil
}

// ParseCmdline turns the NUL-separated argv into a single space-joined line.
func ParseCmdline(content string) string {
	return strings.TrimSpace(strings.ReplaceAll(content, "\x00", " "))
}

// ParseStatmResident returns the resident page count (second statm field).
func ParseStatmResident(content string) (uint64, bool) {
	fs := strings.Fields(content)
	if len(fs) < 2 {
		return 0, false
	}
	pages, err := strconv.ParseUint(fs[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return pages, true
}

func readSmaps(path string) (uss, pss uint64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	uss, pss = ParseSmaps(bufio.NewScanner(f))
	return uss, pss, nil
}

// ParseSmaps sums Pss and Private_Clean+Private_Dirty (the USS) over every
// mapping in an smaps or smaps_rollup stream. Values are returned in bytes.
func ParseSmaps(sc *bufio.Scanner) (uss, pss uint64) {
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "Pss:"):
			pss += kbLine(line)
		case strings.HasPrefix(line, "Private_Clean:"), strings.HasPrefix(line, "Private_Dirty:"):
			uss += kbLine(line)
		}
	}
	return uss, pss
}

// ParseIO reads read_bytes and write_bytes from a /proc/<pid>/io stream.
func ParseIO(sc *bufio.Scanner) (readBytes, writeBytes uint64) {
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "read_bytes:") {
			v := strings.TrimSpace(strings.TrimPrefix(line, "read_bytes:"))
			readBytes, _ = strconv.ParseUint(v, 10, 64)
		} else if strings.HasPrefix(line, "write_bytes:") {
			v := strings.TrimSpace(strings.TrimPrefix(line, "write_bytes:"))
			writeBytes, _ = strconv.ParseUint(v, 10, 64)
		}
	}
	return readBytes, writeBytes
}

// kbLine parses "Label:   123 kB" into bytes; malformed lines count as 0.
func kbLine(line string) uint64 {
	fs := strings.Fields(line)
	if len(fs) < 2 {
		return 0
	}
	kb, err := strconv.ParseUint(fs[1], 10, 64)
	if err != nil {
		return 0
	}
	return kb * 1024
}
