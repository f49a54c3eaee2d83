// Package scheduler implements the control plane's core state machine: the
// Device Registry, Task Table, Scan Result Channel, and the Scheduler Loop
// that ties them together.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"
)

// StartScannerFunc constructs and starts a Scanner task on the given
// device, returning a handle the Task Table can track. The scheduler treats
// the scanner as an external collaborator, specified only by this function
// signature, so it never imports the scanner package directly.
type StartScannerFunc func(deviceID string, settings Device) (TaskHandle, error)

// StartDecoderFunc constructs and starts a Decoder task locked onto
// freqMHz, for the given sonde type.
type StartDecoderFunc func(deviceID string, settings Device, freqMHz float64, sondeType string) (TaskHandle, error)

// Options configures a Loop.
type Options struct {
	Registry *Registry
	Table    *Table
	Results  *ResultQueue

	// Tick is the fixed interval between ticks. Defaults to 5s.
	Tick time.Duration

	StartScanner StartScannerFunc
	StartDecoder StartDecoderFunc

	Metrics *Metrics

	// DropLogLimiter throttles the "no capacity, dropping detection" log
	// line so a long starvation period doesn't flood the log. New replaces
	// a nil limiter with a default of one logged drop per 30 seconds.
	DropLogLimiter *rate.Limiter

	// RestartBackoff bounds how often a given device slot may (re)start a
	// Scanner or Decoder. A subprocess that exits immediately (bad device
	// index, missing binary, bad ephemeris) would otherwise be relaunched
	// every tick; the limiter makes that a slow retry instead of a busy
	// loop. The burst allows a handful of starts through unthrottled —
	// ordinary scanner/decoder churn (preemption, a decoder ending and the
	// scanner resuming) restarts the same device slot several times in
	// quick succession and isn't a crash loop — before clamping down on a
	// subprocess that keeps dying immediately. New supplies a sensible
	// default; each device gets its own limiter instance, created lazily on
	// first use.
	RestartBackoff rate.Limit
	RestartBurst   int
}

// Loop is the Scheduler Loop: the single control thread that mutates the
// Registry and Table.
type Loop struct {
	opts     Options
	restarts map[string]*rate.Limiter
}

// New builds a Loop, filling in defaults for any zero-valued Options field.
func New(opts Options) *Loop {
	if opts.Tick <= 0 {
		opts.Tick = 5 * time.Second
	}
	if opts.DropLogLimiter == nil {
		opts.DropLogLimiter = rate.NewLimiter(rate.Every(30*time.Second), 1)
	}
	if opts.RestartBackoff <= 0 {
		opts.RestartBackoff = rate.Every(10 * time.Second)
	}
	if opts.RestartBurst <= 0 {
		opts.RestartBurst = 3
	}
	return &Loop{opts: opts, restarts: make(map[string]*rate.Limiter)}
}

// restartAllowed reports whether deviceID may (re)launch a task now,
// consuming a token if so. Every device gets its own limiter so a crash
// loop on one SDR never throttles starts on the others.
func (l *Loop) restartAllowed(deviceID string) bool {
	lim, ok := l.restarts[deviceID]
	if !ok {
		lim = rate.NewLimiter(l.opts.RestartBackoff, l.opts.RestartBurst)
		l.restarts[deviceID] = lim
	}
	return lim.Allow()
}

// Run executes the tick loop until ctx is cancelled. Each tick performs
// reap, scanner refill, and detection dispatch, always in that order.
func (l *Loop) Run(ctx context.Context) {
	log.Printf("scheduler: starting (tick=%s, devices=%d)", l.opts.Tick, l.opts.Registry.Total())
	ticker := time.NewTicker(l.opts.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("scheduler: context cancelled, stopping loop")
			return
		case <-ticker.C:
			l.tick()
		}
	}
}

// tick runs one iteration of reap → refill scanner → dispatch.
func (l *Loop) tick() {
	l.reap()
	l.refillScanner()
	l.dispatch()
	l.reportOccupancy()
}

// reap releases the device for every Task Table entry whose task has
// ended, and removes the entry. A task whose IsRunning query itself errors
// is left in place for the next tick — releasing it here risks
// double-allocating its device while it may still be alive.
func (l *Loop) reap() {
	for _, key := range l.opts.Table.Keys() {
		deviceID, handle, ok := l.opts.Table.Get(key)
		if !ok {
			continue
		}
		running, err := handle.IsRunning()
		if err != nil {
			log.Printf("scheduler: is_running() error for %s: %v; retrying next tick", keyLabel(key), err)
			continue
		}
		if running {
			continue
		}
		l.opts.Registry.Release(deviceID)
		l.opts.Table.Remove(key)
		l.opts.Metrics.incReaps()
		log.Printf("scheduler: reaped %s, released device %s", keyLabel(key), deviceID)
	}
}

// refillScanner starts a Scanner when none is running and a device is free.
func (l *Loop) refillScanner() {
	if l.opts.Table.Contains(ScanKey) {
		return
	}
	if _, ok := l.opts.Registry.Allocate(true); !ok {
		return
	}
	deviceID, ok := l.opts.Registry.Allocate(false)
	if !ok {
		// Lost the race against itself — impossible under the single
		// control-thread model, but fail safe rather than panic.
		return
	}
	if !l.restartAllowed(deviceID) {
		l.opts.Registry.Release(deviceID)
		return
	}
	settings, _ := l.opts.Registry.Settings(deviceID)
	handle, err := l.opts.StartScanner(deviceID, settings)
	if err != nil {
		log.Printf("scheduler: failed to start scanner on %s: %v", deviceID, err)
		l.opts.Registry.Release(deviceID)
		return
	}
	l.opts.Registry.Bind(deviceID, handle)
	l.opts.Table.Insert(ScanKey, deviceID, handle)
	log.Printf("scheduler: scanner started on device %s", deviceID)
}

// dispatch drains the Scan Result Channel and, for each detection in
// arrival order, dedups, allocates a free device, preempts the scanner, or
// drops — in that priority order.
func (l *Loop) dispatch() {
	for _, d := range l.opts.Results.Drain() {
		key := FreqKey(d.FreqMHz)
		if l.opts.Table.Contains(key) {
			l.opts.Metrics.incDeduped()
			continue
		}

		if deviceID, ok := l.opts.Registry.Allocate(false); ok {
			l.startDecoder(deviceID, key, d)
			continue
		}

		if l.preemptScanner() {
			deviceID, ok := l.opts.Registry.Allocate(false)
			if !ok {
				log.Printf("scheduler: preempted scanner but allocate still failed (bug)")
				continue
			}
			l.startDecoder(deviceID, key, d)
			continue
		}

		l.opts.Metrics.incDropped()
		if l.opts.DropLogLimiter.Allow() {
			log.Printf("scheduler: no capacity for %.4f MHz (%s); dropping detection", d.FreqMHz, d.SondeType)
		}
	}
}

func (l *Loop) startDecoder(deviceID string, key TaskKey, d Detection) {
	if !l.restartAllowed(deviceID) {
		l.opts.Registry.Release(deviceID)
		l.opts.Metrics.incDropped()
		log.Printf("scheduler: device %s restarting too fast, dropping %.4f MHz this tick", deviceID, d.FreqMHz)
		return
	}
	settings, _ := l.opts.Registry.Settings(deviceID)
	handle, err := l.opts.StartDecoder(deviceID, settings, d.FreqMHz, d.SondeType)
	if err != nil {
		log.Printf("scheduler: failed to start decoder for %.4f MHz on %s: %v", d.FreqMHz, deviceID, err)
		l.opts.Registry.Release(deviceID)
		return
	}
	l.opts.Registry.Bind(deviceID, handle)
	l.opts.Table.Insert(key, deviceID, handle)
	l.opts.Metrics.incDispatched()
	log.Printf("scheduler: decoder started for %.4f MHz (%s) on device %s", d.FreqMHz, d.SondeType, deviceID)
}

// preemptScanner stops and releases the running scanner, if any, so its
// device can be reallocated to a decoder. Stop is synchronous: the caller
// is guaranteed the device is quiescent before it allocates again — the one
// point in the tick where the loop blocks on an external task. Returns
// false if there is no scanner to preempt.
func (l *Loop) preemptScanner() bool {
	deviceID, handle, ok := l.opts.Table.Get(ScanKey)
	if !ok {
		return false
	}
	log.Printf("scheduler: preempting scanner on device %s to decode a detection", deviceID)
	if err := handle.Stop(); err != nil {
		log.Printf("scheduler: error stopping scanner on %s: %v (continuing — device must still be released)", deviceID, err)
	}
	l.opts.Registry.Release(deviceID)
	l.opts.Table.Remove(ScanKey)
	l.opts.Metrics.incPreemptions()
	return true
}

func (l *Loop) reportOccupancy() {
	scanCount, decodeCount := l.opts.Table.CountByKind()
	l.opts.Metrics.setOccupancy(l.opts.Registry.Total(), l.opts.Registry.InUseCount(), scanCount, decodeCount)
}

// Shutdown stops every running task and closes every exporter sink,
// best-effort: errors are logged and swallowed. closers is typically the
// set of exporter.Sink instances constructed at startup; it is passed in
// rather than owned by Loop because exporters are shared across every
// Decoder, not scheduler state.
func (l *Loop) Shutdown(closers ...func() error) {
	log.Printf("scheduler: shutting down, stopping %d task(s)", l.opts.Table.Len())
	for _, key := range l.opts.Table.Keys() {
		deviceID, handle, ok := l.opts.Table.Get(key)
		if !ok {
			continue
		}
		if err := handle.Stop(); err != nil {
			log.Printf("scheduler: error stopping %s: %v", keyLabel(key), err)
		}
		l.opts.Registry.Release(deviceID)
		l.opts.Table.Remove(key)
	}
	for _, close := range closers {
		if err := close(); err != nil {
			log.Printf("scheduler: error closing exporter: %v", err)
		}
	}
}

func keyLabel(k TaskKey) string {
	if k.IsScan() {
		return "SCAN"
	}
	return fmt.Sprintf("%.4f MHz", k.Freq())
}
