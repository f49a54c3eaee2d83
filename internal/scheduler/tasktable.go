package scheduler

import "sync"

// TaskKey identifies an entry in the Task Table: either the singleton scan
// slot or a specific frequency being decoded. Frequency equality is by
// exact float64 value, as emitted by the scanner — callers must not rescale
// or quantize it; two detections that differ in the last bit of precision
// are treated as different tasks, by design.
type TaskKey struct {
	scan bool
	freq float64
}

// ScanKey is the one TaskKey value representing the scanner slot.
var ScanKey = TaskKey{scan: true}

// FreqKey builds the TaskKey for a decoder locked onto freqMHz.
func FreqKey(freqMHz float64) TaskKey {
	return TaskKey{freq: freqMHz}
}

// IsScan reports whether k is the scan slot.
func (k TaskKey) IsScan() bool { return k.scan }

// Freq returns the frequency a non-scan key represents.
func (k TaskKey) Freq() float64 { return k.freq }

// TaskHandle is the capability every running task — Scanner or Decoder —
// exposes to the scheduler: whether it's still alive, and a synchronous
// stop. IsRunning can itself fail (the underlying process query raised);
// callers must treat that as a transient condition, not as liveness-false.
type TaskHandle interface {
	IsRunning() (bool, error)
	Stop() error
}

type taskEntry struct {
	deviceID string
	handle   TaskHandle
}

// Table is the single source of truth for which frequencies are being
// decoded and whether a scanner is live. Mutated only by the Scheduler
// Loop's control thread; the mutex guards read access from other
// goroutines (metrics).
type Table struct {
	mu      sync.Mutex
	entries map[TaskKey]taskEntry
}

// NewTable returns an empty Task Table.
func NewTable() *Table {
	return &Table{entries: make(map[TaskKey]taskEntry)}
}

// Insert adds or replaces the entry for key. Callers are responsible for
// keeping at most one ScanKey and one entry per frequency — Insert itself
// does not check for a pre-existing entry, mirroring the Task Table's role
// as a plain map.
func (t *Table) Insert(key TaskKey, deviceID string, handle TaskHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[key] = taskEntry{deviceID: deviceID, handle: handle}
}

// Remove deletes key from the table. No-op if absent.
func (t *Table) Remove(key TaskKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

// Contains reports whether key currently has an entry.
func (t *Table) Contains(key TaskKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[key]
	return ok
}

// Get returns the entry for key, if present.
func (t *Table) Get(key TaskKey) (deviceID string, handle TaskHandle, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		return "", nil, false
	}
	return e.deviceID, e.handle, true
}

// Keys returns a snapshot of every key currently in the table. The order is
// unspecified — the scheduler's reap and dispatch steps don't depend on it.
func (t *Table) Keys() []TaskKey {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := make([]TaskKey, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// CountByKind returns (scanCount, decodeCount) for metrics.
func (t *Table) CountByKind() (scanCount, decodeCount int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.entries {
		if k.scan {
			scanCount++
		} else {
			decodeCount++
		}
	}
	return
}
