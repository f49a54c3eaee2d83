package scheduler

import (
	"fmt"
	"sync"
)

// Device is one SDR dongle's static configuration plus its current
// allocation state. Allocate(false) sets inUse and Bind then sets
// currentTask; Release clears both. Between those two calls a Device
// (e.g. one returned by Settings) has inUse true and currentTask unset.
type Device struct {
	ID        string
	BiasTee   bool
	PPMOffset int
	Gain      float64 // -1 means hardware AGC

	inUse       bool
	currentTask TaskHandle
}

// InUse reports whether the device is currently allocated.
func (d *Device) InUse() bool { return d.inUse }

// Registry tracks every configured SDR and which, if any, task owns it. It
// is mutated only by the Scheduler Loop's control thread; the mutex exists
// so read-only callers — metrics collection, health reporting — can
// observe state safely from another goroutine.
type Registry struct {
	mu      sync.Mutex
	order   []string // declaration order == allocation iteration order
	devices map[string]*Device
}

// NewRegistry builds a Registry from an ordered list of devices. The slice
// order is preserved as the allocation iteration order.
func NewRegistry(devices []Device) *Registry {
	r := &Registry{
		order:   make([]string, 0, len(devices)),
		devices: make(map[string]*Device, len(devices)),
	}
	for i := range devices {
		d := devices[i]
		r.order = append(r.order, d.ID)
		r.devices[d.ID] = &d
	}
	return r
}

// Allocate returns the id of the first free device in declaration order.
// When checkOnly is true, the registry is not mutated — this lets callers
// probe for capacity before committing to starting a task. Returns ("",
// false) when every device is in use.
func (r *Registry) Allocate(checkOnly bool) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		d := r.devices[id]
		if !d.inUse {
			if !checkOnly {
				d.inUse = true
			}
			return id, true
		}
	}
	return "", false
}

// Bind attaches handle as the owner of device id, completing the
// allocation started by Allocate(checkOnly=false). It is a programming
// error to bind an id that was not just allocated or that is unknown.
func (r *Registry) Bind(id string, handle TaskHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok {
		panic(fmt.Sprintf("scheduler: Bind on unknown device %q", id))
	}
	d.currentTask = handle
}

// Release frees device id, clearing in_use and the current task
// reference. Idempotent: releasing an already-free device is a no-op.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok {
		panic(fmt.Sprintf("scheduler: Release on unknown device %q", id))
	}
	d.inUse = false
	d.currentTask = nil
}

// Settings returns the static config (bias/ppm/gain) for a device. Second
// return is false for an unknown id.
func (r *Registry) Settings(id string) (Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok {
		return Device{}, false
	}
	return *d, true
}

// Total returns the number of configured devices.
func (r *Registry) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// InUseCount returns how many devices are currently allocated.
func (r *Registry) InUseCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range r.order {
		if r.devices[id].inUse {
			n++
		}
	}
	return n
}
