// Package decoder runs a single Decoder task: a subprocess locked onto one
// frequency, demodulating and parsing telemetry frames, fanning accepted
// frames out to a station's exporter sinks, and self-terminating when no
// valid frame has arrived within its timeout.
package decoder

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vk5qi/autorx-go/internal/exporter"
	"github.com/vk5qi/autorx-go/internal/procmgr"
)

// decoderBinaries maps a sonde shortform to the demodulator tool inside
// rs_path, matching auto_rx's per-type binary layout. An unrecognized
// shortform falls back to the generic multi-mode decoder.
var decoderBinaries = map[string]string{
	"RS41": "rs41mod",
	"RS92": "rs92mod",
	"DFM":  "dfm09mod",
	"M10":  "m10mod",
	"M20":  "m20mod",
	"IMET": "imet1rs_dft",
}

const defaultDecoderBinary = "auto_rx_decode"

func decoderBinary(sondeType string) string {
	if bin, ok := decoderBinaries[sondeType]; ok {
		return bin
	}
	return defaultDecoderBinary
}

// TelemetryFilter decides whether a parsed frame should reach the exporter
// sinks. Always-accept is the only implementation this package ships;
// stations that need squelch-by-distance or similar supply their own.
type TelemetryFilter func(exporter.Frame) bool

// AcceptAll is the default TelemetryFilter.
func AcceptAll(exporter.Frame) bool { return true }

// Options mirrors the decoder subprocess's recognized constructor
// parameters.
type Options struct {
	SondeType     string
	SondeFreqMHz  float64
	DeviceIdx     string
	Gain          float64
	PPM           int
	Bias          bool
	SDRFM         string
	RSPath        string
	Sinks         []exporter.Sink
	Timeout       time.Duration
	TelemFilter   TelemetryFilter
	RS92Ephemeris string
}

// Decoder wraps the decoder subprocess and satisfies scheduler.TaskHandle
// structurally. It tracks its own time-since-last-valid-frame so it can
// self-terminate independent of the scheduler.
type Decoder struct {
	id      string
	opts    Options
	proc    *procmgr.Proc
	filter  TelemetryFilter

	mu         sync.Mutex
	lastFrame  time.Time
	timedOut   bool
}

// Start launches the decoder subprocess on deviceIdx, locked to
// opts.SondeFreqMHz. Frames are parsed from subprocess stdout and, if
// opts.TelemFilter accepts them, fanned out to every sink in opts.Sinks.
// A background goroutine watches for opts.Timeout seconds of silence and
// stops the subprocess when it elapses.
func Start(ctx context.Context, opts Options) (*Decoder, error) {
	if opts.RSPath == "" {
		return nil, fmt.Errorf("decoder: empty rs_path")
	}
	if opts.TelemFilter == nil {
		opts.TelemFilter = AcceptAll
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 180 * time.Second
	}

	id := uuid.NewString()
	d := &Decoder{id: id, opts: opts, filter: opts.TelemFilter, lastFrame: nowFunc()}

	proc, err := procmgr.Start(ctx, procmgr.Spec{
		Name: fmt.Sprintf("dec-%.3f-%s", opts.SondeFreqMHz, shortID(id)),
		Path: filepath.Join(opts.RSPath, decoderBinary(opts.SondeType)),
		Args: buildArgs(opts),
		OnLine: func(line string) {
			frame, ok := parseFrameLine(line, opts.SondeType, opts.SondeFreqMHz)
			if !ok {
				return
			}
			d.handleFrame(frame)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("decoder: %w", err)
	}
	d.proc = proc

	go d.watchTimeout()

	return d, nil
}

func (d *Decoder) handleFrame(f exporter.Frame) {
	d.mu.Lock()
	d.lastFrame = nowFunc()
	d.mu.Unlock()

	if !d.filter(f) {
		return
	}
	for _, sink := range d.opts.Sinks {
		if err := sink.Add(f); err != nil {
			// Sink failures are not decoder failures: keep decoding and let
			// the next frame retry the sink.
			continue
		}
	}
}

func (d *Decoder) watchTimeout() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		if !d.proc.Running() {
			return
		}
		d.mu.Lock()
		silent := nowFunc().Sub(d.lastFrame)
		d.mu.Unlock()
		if silent >= d.opts.Timeout {
			d.mu.Lock()
			d.timedOut = true
			d.mu.Unlock()
			_ = d.proc.Stop()
			return
		}
	}
}

// IsRunning reports whether the subprocess is still alive.
func (d *Decoder) IsRunning() (bool, error) {
	return d.proc.Running(), nil
}

// Stop synchronously ends the decoder subprocess.
func (d *Decoder) Stop() error {
	return d.proc.Stop()
}

// TimedOut reports whether the decoder stopped itself due to signal loss
// rather than an external Stop call.
func (d *Decoder) TimedOut() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timedOut
}

func buildArgs(o Options) []string {
	args := []string{
		"--sonde-type", o.SondeType,
		"--freq", strconv.FormatFloat(o.SondeFreqMHz, 'f', -1, 64),
		"--device-idx", o.DeviceIdx,
		"--gain", strconv.FormatFloat(o.Gain, 'f', -1, 64),
		"--ppm", strconv.Itoa(o.PPM),
	}
	if o.Bias {
		args = append(args, "--bias")
	}
	if o.SDRFM != "" {
		args = append(args, "--sdr-fm", o.SDRFM)
	}
	if o.RS92Ephemeris != "" {
		args = append(args, "--ephemeris", o.RS92Ephemeris)
	}
	return args
}

func shortID(id string) string {
	if len(id) < 8 {
		return id
	}
	return id[:8]
}

// nowFunc is a seam for tests; production always uses time.Now.
var nowFunc = time.Now
