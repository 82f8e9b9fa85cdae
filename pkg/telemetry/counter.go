package telemetry

import "time"

// Counters is the last cumulative reading seen for one PID.
type Counters struct {
	CPUTicks   uint64
	ReadBytes  uint64
	WriteBytes uint64
	At         time.Time
}

// CounterStore keeps the previous cumulative counters per PID so monotonic
// counters can be turned into rates. It is owned by a single Sampler and is
// not safe for concurrent use.
type CounterStore struct {
	entries map[int]Counters
}

func NewCounterStore() *CounterStore {
	return &CounterStore{entries: make(map[int]Counters)}
}

// Swap stores next for pid and returns the entry it replaced, if any.
func (s *CounterStore) Swap(pid int, next Counters) (prev Counters, ok bool) {
	prev, ok = s.entries[pid]
	s.entries[pid] = next
	return prev, ok
}

// Retain drops every entry whose PID is not in live.
func (s *CounterStore) Retain(live map[int]struct{}) {
	for pid := range s.entries {
		if _, ok := live[pid]; !ok {
			delete(s.entries, pid)
		}
	}
}

func (s *CounterStore) Has(pid int) bool {
	_, ok := s.entries[pid]
	return ok
}

func (s *CounterStore) Len() int { return len(s.entries) }
