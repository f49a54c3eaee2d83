// Package scanner runs a single sweep-mode Scanner task: a long-running
// subprocess that repeatedly searches a frequency range for sonde signals
// and reports detections back to the scheduler.
package scanner

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/vk5qi/autorx-go/internal/procmgr"
)

// scannerBinary is the tool name expected inside rs_path, matching auto_rx's
// own build layout (rs_path is a directory of compiled tools, not a single
// executable).
const scannerBinary = "rs_detect"

// Options mirrors the scanner subprocess's recognized constructor
// parameters.
type Options struct {
	MinFreq         float64
	MaxFreq         float64
	SearchStep      float64
	Whitelist       []float64
	Greylist        []float64
	Blacklist       []float64
	SNRThreshold    float64
	MinDistance     float64
	Quantization    int
	ScanDwellTime   int
	DetectDwellTime int
	MaxPeaks        int
	SDRPower        string
	SDRFM           string
	DeviceIdx       string
	Gain            float64
	PPM             int
	Bias            bool
	RSPath          string
}

// Detection is one sonde signal reported at the end of a completed sweep.
type Detection struct {
	FreqMHz   float64
	SondeType string
}

// Callback receives every completed sweep's batch of detections.
type Callback func(batch []Detection)

// Scanner wraps the scanner subprocess and satisfies scheduler.TaskHandle
// structurally: IsRunning() (bool, error) and Stop() error.
type Scanner struct {
	id   string
	proc *procmgr.Proc
}

// Start launches the scanner subprocess on deviceIdx with the given options,
// invoking cb once per completed sweep. The correlation id in log lines lets
// an operator follow one scanner's output across restarts.
func Start(ctx context.Context, opts Options, cb Callback) (*Scanner, error) {
	if opts.RSPath == "" {
		return nil, fmt.Errorf("scanner: empty rs_path")
	}
	id := uuid.NewString()
	s := &Scanner{id: id}

	args := buildArgs(opts)
	proc, err := procmgr.Start(ctx, procmgr.Spec{
		Name: fmt.Sprintf("scan-%s", shortID(id)),
		Path: filepath.Join(opts.RSPath, scannerBinary),
		Args: args,
		OnLine: func(line string) {
			batch, ok := parseSweepLine(line)
			if !ok {
				return
			}
			if cb != nil {
				cb(batch)
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scanner: %w", err)
	}
	s.proc = proc
	return s, nil
}

// IsRunning reports whether the subprocess is still alive.
func (s *Scanner) IsRunning() (bool, error) {
	return s.proc.Running(), nil
}

// Stop synchronously ends the scanner; no further callback invocations
// follow once it returns.
func (s *Scanner) Stop() error {
	return s.proc.Stop()
}

func buildArgs(o Options) []string {
	args := []string{
		"--min-freq", strconv.FormatFloat(o.MinFreq, 'f', -1, 64),
		"--max-freq", strconv.FormatFloat(o.MaxFreq, 'f', -1, 64),
		"--search-step", strconv.FormatFloat(o.SearchStep, 'f', -1, 64),
		"--snr-threshold", strconv.FormatFloat(o.SNRThreshold, 'f', -1, 64),
		"--min-distance", strconv.FormatFloat(o.MinDistance, 'f', -1, 64),
		"--quantization", strconv.Itoa(o.Quantization),
		"--scan-dwell-time", strconv.Itoa(o.ScanDwellTime),
		"--detect-dwell-time", strconv.Itoa(o.DetectDwellTime),
		"--max-peaks", strconv.Itoa(o.MaxPeaks),
		"--device-idx", o.DeviceIdx,
		"--gain", strconv.FormatFloat(o.Gain, 'f', -1, 64),
		"--ppm", strconv.Itoa(o.PPM),
	}
	if o.Bias {
		args = append(args, "--bias")
	}
	if o.SDRPower != "" {
		args = append(args, "--sdr-power", o.SDRPower)
	}
	if o.SDRFM != "" {
		args = append(args, "--sdr-fm", o.SDRFM)
	}
	if len(o.Whitelist) > 0 {
		args = append(args, "--whitelist", joinFreqs(o.Whitelist))
	}
	if len(o.Greylist) > 0 {
		args = append(args, "--greylist", joinFreqs(o.Greylist))
	}
	if len(o.Blacklist) > 0 {
		args = append(args, "--blacklist", joinFreqs(o.Blacklist))
	}
	return args
}

func joinFreqs(freqs []float64) string {
	parts := make([]string, len(freqs))
	for i, f := range freqs {
		parts[i] = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

// parseSweepLine recognizes one completed-sweep result line of the form
// "DETECT freq_mhz,sonde_type;freq_mhz,sonde_type;...", emitted once per
// sweep by the scanner tool. Any other line is ignored.
func parseSweepLine(line string) ([]Detection, bool) {
	const prefix = "DETECT "
	if !strings.HasPrefix(line, prefix) {
		return nil, false
	}
	rest := strings.TrimPrefix(line, prefix)
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return []Detection{}, true
	}
	entries := strings.Split(rest, ";")
	batch := make([]Detection, 0, len(entries))
	for _, e := range entries {
		freqStr, sondeType, ok := strings.Cut(e, ",")
		if !ok {
			continue
		}
		freq, err := strconv.ParseFloat(strings.TrimSpace(freqStr), 64)
		if err != nil {
			continue
		}
		batch = append(batch, Detection{FreqMHz: freq, SondeType: strings.TrimSpace(sondeType)})
	}
	return batch, true
}

func shortID(id string) string {
	if len(id) < 8 {
		return id
	}
	return id[:8]
}
