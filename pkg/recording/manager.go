package recording

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ja7ad/spm/pkg/telemetry"
)

const (
	// DefaultCapacity is the ring size in batches (five minutes at 1s ticks).
	DefaultCapacity = 300
	// DefaultDebounce suppresses repeated saves for one PID.
	DefaultDebounce = 2 * time.Second

	fileExt = ".bin"
)

// Manager buffers recent batches and persists them as recordings under dir.
//
// The dashboard drives it from a single loop, but the CLI and tests may call
// in from other goroutines, so the buffer and debounce state sit behind mu.
type Manager struct {
	dir      string
	debounce time.Duration
	now      func() time.Time

	mu        sync.Mutex
	ring      *Ring[telemetry.Batch]
	lastSaved map[int]time.Time
}

// New returns a manager for dir. It does not touch the filesystem; call
// EnsureDir before the first save.
func New(dir string, capacity int) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{
		dir:       dir,
		debounce:  DefaultDebounce,
		now:       time.Now,
		ring:      NewRing[telemetry.Batch](capacity),
		lastSaved: make(map[int]time.Time),
	}
}

// Dir returns the storage directory.
func (m *Manager) Dir() string { return m.dir }

// EnsureDir creates the storage directory if needed.
func (m *Manager) EnsureDir() error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("create recordings dir: %w", err)
	}
	return nil
}

// Add buffers one batch.
func (m *Manager) Add(b telemetry.Batch) {
	m.mu.Lock()
	m.ring.Push(b)
	m.mu.Unlock()
}

// Len returns the number of buffered batches.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ring.Len()
}

// Capacity returns the ring size.
func (m *Manager) Capacity() int { return m.ring.Cap() }

// TriggerSave writes the whole buffer as a new recording attributed to pid
// and returns the number of batches captured. The buffer keeps its contents.
//
// ErrBufferEmpty and ErrDebounced report a save that was skipped; any other
// error is a write failure and does not arm the debounce.
func (m *Manager) TriggerSave(pid int, name string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ring.Len() == 0 {
		return 0, ErrBufferEmpty
	}
	now := m.now()
	if last, ok := m.lastSaved[pid]; ok && now.Sub(last) < m.debounce {
		return 0, ErrDebounced
	}

	snaps := m.ring.Items()
	id := fmt.Sprintf("recording_%d_%d", now.Unix(), pid)
	path := m.path(id)
	rec := &Recording{
		Metadata: Metadata{
			ID:            id,
			StartTime:     snaps[0].Timestamp,
			EndTime:       snaps[len(snaps)-1].Timestamp,
			TriggerPID:    pid,
			TriggerName:   name,
			SnapshotCount: len(snaps),
			FilePath:      path,
		},
		Snapshots: snaps,
	}

	if err := writeAtomic(path, rec); err != nil {
		return 0, fmt.Errorf("save %s: %w", id, err)
	}
	m.lastSaved[pid] = now
	return len(snaps), nil
}

// List returns the metadata of every decodable recording, newest first.
// Unreadable or foreign files are left out.
func (m *Manager) List() []Metadata {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil
	}
	out := make([]Metadata, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		path := filepath.Join(m.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		md, err := UnmarshalMetadata(data)
		if err != nil {
			continue
		}
		md.FilePath = path
		out = append(out, md)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EndTime > out[j].EndTime })
	return out
}

// Load fully decodes the recording named id.
func (m *Manager) Load(id string) (*Recording, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	path := m.path(id)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	rec, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	rec.Metadata.FilePath = path
	return rec, nil
}

// Delete removes the recording named id.
func (m *Manager) Delete(id string) error {
	if err := validID(id); err != nil {
		return err
	}
	if err := os.Remove(m.path(id)); err != nil {
		return fmt.Errorf("delete recording: %w", err)
	}
	return nil
}

// Sweep removes recording files last modified more than maxAge ago,
// whatever their content. Files that cannot be inspected are skipped.
func (m *Manager) Sweep(maxAge time.Duration) (removed int) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0
	}
	now := m.now()
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}
		if os.Remove(filepath.Join(m.dir, e.Name())) == nil {
			removed++
		}
	}
	return removed
}

func (m *Manager) path(id string) string {
	return filepath.Join(m.dir, id+fileExt)
}

// validID rejects ids that would resolve outside the recordings dir.
func validID(id string) error {
	if id == "" || id == "." || id == ".." || filepath.Base(id) != id || strings.ContainsRune(id, os.PathSeparator) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// writeAtomic writes to a temporary sibling and renames it into place so a
// failed save never leaves a truncated recording behind.
func writeAtomic(path string, rec *Recording) error {
	data, err := Marshal(rec)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
