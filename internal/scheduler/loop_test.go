package scheduler

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// fakeTask is a TaskHandle test double whose liveness is driven directly by
// the test, and whose Stop is observed via stopped/stopErr.
type fakeTask struct {
	running    bool
	runningErr error
	stopped    bool
	stopErr    error
}

func (f *fakeTask) IsRunning() (bool, error) {
	if f.runningErr != nil {
		return false, f.runningErr
	}
	return f.running, nil
}

func (f *fakeTask) Stop() error {
	f.stopped = true
	f.running = false
	return f.stopErr
}

func devices(ids ...string) []Device {
	out := make([]Device, len(ids))
	for i, id := range ids {
		out[i] = Device{ID: id, Gain: -1}
	}
	return out
}

func newTestLoop(ids []string) (*Loop, *Registry, *Table, *ResultQueue, map[string]*fakeTask) {
	reg := NewRegistry(devices(ids...))
	table := NewTable()
	results := NewResultQueue()
	tasks := map[string]*fakeTask{}

	loop := New(Options{
		Registry: reg,
		Table:    table,
		Results:  results,
		StartScanner: func(deviceID string, settings Device) (TaskHandle, error) {
			ft := &fakeTask{running: true}
			tasks[deviceID] = ft
			return ft, nil
		},
		StartDecoder: func(deviceID string, settings Device, freqMHz float64, sondeType string) (TaskHandle, error) {
			ft := &fakeTask{running: true}
			tasks[deviceID] = ft
			return ft, nil
		},
	})
	return loop, reg, table, results, tasks
}

// Scanner preemption on a single-SDR station: a detection arrives while the
// only device is running a scanner, the scanner is stopped to free the
// device for a decoder, and the scanner is restarted once the decoder ends.
func TestScenario_ScannerPreemption(t *testing.T) {
	loop, reg, table, results, tasks := newTestLoop([]string{"0"})

	loop.tick()
	if !table.Contains(ScanKey) {
		t.Fatalf("expected scanner started after first tick")
	}

	scanner := tasks["0"]
	results.Put([]Detection{{FreqMHz: 402.5, SondeType: "RS41"}})
	loop.tick()
	if table.Contains(ScanKey) {
		t.Fatalf("expected scanner stopped after preemption")
	}
	if !table.Contains(FreqKey(402.5)) {
		t.Fatalf("expected decoder running on 402.5")
	}
	if !scanner.stopped {
		t.Fatalf("expected the preempted scanner's Stop to have been called")
	}

	// Decoder self-terminates.
	_, handle, _ := table.Get(FreqKey(402.5))
	handle.(*fakeTask).running = false

	// Reap runs before the scanner refill in the same tick, so the released
	// device goes straight back to a new scanner.
	loop.tick()
	if table.Contains(FreqKey(402.5)) {
		t.Fatalf("expected decoder reaped")
	}
	if reg.InUseCount() != 1 {
		t.Fatalf("expected released device reallocated to the restarted scanner, in_use=%d", reg.InUseCount())
	}

	loop.tick()
	if !table.Contains(ScanKey) {
		t.Fatalf("expected scanner restarted once device is free again")
	}
}

// Two detections at the same frequency in one batch, two SDRs available:
// only one decoder is started, on the free second SDR, and the scanner keeps
// running on the first.
func TestScenario_Dedup(t *testing.T) {
	loop, reg, table, results, _ := newTestLoop([]string{"0", "1"})

	loop.tick() // starts scanner on device "0"

	results.Put([]Detection{
		{FreqMHz: 402.5, SondeType: "RS41"},
		{FreqMHz: 402.5, SondeType: "RS41"},
	})
	loop.tick()

	if !table.Contains(FreqKey(402.5)) {
		t.Fatalf("expected exactly one decoder on 402.5")
	}
	scanCount, decodeCount := table.CountByKind()
	if decodeCount != 1 {
		t.Fatalf("decodeCount = %d, want 1", decodeCount)
	}
	if scanCount != 1 {
		t.Fatalf("scanCount = %d, want 1 (scanner on other device should still be running)", scanCount)
	}
	if reg.InUseCount() != 2 {
		t.Fatalf("expected both devices in use, got %d", reg.InUseCount())
	}
}

// Single SDR already decoding, no scanner present: a second detection has
// nothing to preempt and nothing free to allocate, so it is dropped rather
// than displacing the running decoder.
func TestScenario_CapacityExhaustion(t *testing.T) {
	loop, _, table, results, _ := newTestLoop([]string{"0"})

	loop.tick() // scanner on "0"
	results.Put([]Detection{{FreqMHz: 402.5, SondeType: "RS41"}})
	loop.tick() // preempt -> decoder on "0", no scanner

	before := table.Len()
	results.Put([]Detection{{FreqMHz: 405.1, SondeType: "DFM"}})
	loop.tick()

	if table.Len() != before {
		t.Fatalf("table changed on dropped detection: before=%d after=%d", before, table.Len())
	}
	if table.Contains(FreqKey(405.1)) {
		t.Fatalf("405.1 should have been dropped, not decoded")
	}
}

func TestTransientIsRunningErrorDoesNotReleaseDevice(t *testing.T) {
	loop, reg, table, _, _ := newTestLoop([]string{"0"})
	loop.tick() // scanner started on "0"

	_, handle, _ := table.Get(ScanKey)
	handle.(*fakeTask).runningErr = errors.New("transient")

	loop.tick()
	if !table.Contains(ScanKey) {
		t.Fatalf("entry should survive a transient is_running() error")
	}
	if reg.InUseCount() != 1 {
		t.Fatalf("device should remain allocated on transient error")
	}
}

// A scanner that exits the instant it's started (bad device index, missing
// binary) must not be relaunched every single tick forever: once the
// restart burst is exhausted, the device sits idle rather than busy-looping
// a crashing subprocess.
func TestCrashingScannerIsThrottledAfterBurst(t *testing.T) {
	reg := NewRegistry(devices("0"))
	table := NewTable()
	results := NewResultQueue()
	starts := 0

	loop := New(Options{
		Registry: reg,
		Table:    table,
		Results:  results,
		StartScanner: func(deviceID string, settings Device) (TaskHandle, error) {
			starts++
			return &fakeTask{running: false}, nil // dies immediately
		},
		StartDecoder: func(deviceID string, settings Device, freqMHz float64, sondeType string) (TaskHandle, error) {
			return &fakeTask{running: true}, nil
		},
		RestartBackoff: rate.Every(time.Hour),
		RestartBurst:   2,
	})

	for i := 0; i < 6; i++ {
		loop.tick()
	}

	if starts != 2 {
		t.Fatalf("expected exactly 2 starts before throttling kicked in, got %d", starts)
	}
	if reg.InUseCount() != 0 {
		t.Fatalf("expected device free once throttled rather than stuck allocated, got in_use=%d", reg.InUseCount())
	}
}

func TestShutdownStopsAllTasksAndReleasesDevices(t *testing.T) {
	loop, reg, table, _, tasks := newTestLoop([]string{"0", "1"})
	loop.tick()

	closed := false
	loop.Shutdown(func() error {
		closed = true
		return nil
	})

	if table.Len() != 0 {
		t.Fatalf("expected empty table after shutdown")
	}
	if reg.InUseCount() != 0 {
		t.Fatalf("expected all devices released after shutdown")
	}
	if !closed {
		t.Fatalf("expected exporter closer to be invoked")
	}
	if len(tasks) == 0 {
		t.Fatalf("expected at least one task to have been started")
	}
	for id, ft := range tasks {
		if !ft.stopped {
			t.Fatalf("expected task on device %s to be stopped by shutdown", id)
		}
	}
}
