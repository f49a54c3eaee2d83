// Package config loads the station configuration: the JSON file describing
// the SDR fleet and scan parameters, plus a small set of AUTORX_-prefixed
// environment overrides for operational knobs that are awkward to edit in
// the file (tick interval, metrics bind address, log directory).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// SDRSettings is the per-device static configuration keyed by device id in
// StationConfig.SDRSettings.
type SDRSettings struct {
	Bias bool    `json:"bias"`
	PPM  int     `json:"ppm"`
	Gain float64 `json:"gain"` // -1 means hardware AGC
}

// StationConfig is the full set of keys the scheduler and its tasks consume.
type StationConfig struct {
	MinFreq         float64   `json:"min_freq"`
	MaxFreq         float64   `json:"max_freq"`
	SearchStep      float64   `json:"search_step"`
	Whitelist       []float64 `json:"whitelist"`
	Greylist        []float64 `json:"greylist"`
	Blacklist       []float64 `json:"blacklist"`
	SNRThreshold    float64   `json:"snr_threshold"`
	MinDistance     float64   `json:"min_distance"`
	Quantization    int       `json:"quantization"`
	ScanDwellTime   int       `json:"scan_dwell_time"`
	DetectDwellTime int       `json:"detect_dwell_time"`
	MaxPeaks        int       `json:"max_peaks"`
	SDRPower        string    `json:"sdr_power"`
	SDRFM           string    `json:"sdr_fm"`
	RxTimeout       int       `json:"rx_timeout"`
	PerSondeLog     bool      `json:"per_sonde_log"`
	LoggingPath     string    `json:"logging_path"`
	RSPath          string    `json:"rs_path"`
	RS92Ephemeris   string    `json:"rs92_ephemeris"`

	// SDRSettings is keyed by device id. DeviceOrder is the Device
	// Registry's deterministic iteration order; it is carried explicitly
	// because JSON objects don't preserve key order.
	SDRSettings map[string]SDRSettings `json:"sdr_settings"`
	DeviceOrder []string               `json:"device_order"`

	// Operational knobs, overridable by environment (see applyEnvOverrides).
	TickInterval time.Duration `json:"-"`
	MetricsAddr  string        `json:"-"`
}

// Load reads and validates a station config file, then applies environment
// overrides. A malformed or invalid file is a fatal configuration error —
// callers should treat a non-nil error as cause to exit(1).
func Load(path string) (*StationConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	cfg := &StationConfig{
		TickInterval: 5 * time.Second,
		MetricsAddr:  ":9124",
		LoggingPath:  "./log",
		RSPath:       "./",
	}

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *StationConfig) validate() error {
	if len(c.DeviceOrder) == 0 {
		return fmt.Errorf("no SDR devices declared (device_order is empty)")
	}
	seen := make(map[string]struct{}, len(c.DeviceOrder))
	for _, id := range c.DeviceOrder {
		if id == "" {
			return fmt.Errorf("device_order contains an empty device id")
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("device_order contains duplicate device id %q", id)
		}
		seen[id] = struct{}{}
		if _, ok := c.SDRSettings[id]; !ok {
			return fmt.Errorf("device_order references %q, not present in sdr_settings", id)
		}
	}
	if c.RxTimeout <= 0 {
		return fmt.Errorf("rx_timeout must be positive")
	}
	if c.MaxFreq <= c.MinFreq {
		return fmt.Errorf("max_freq must be greater than min_freq")
	}
	return nil
}

// OverrideFrequency implements the CLI's --frequency flag: forces the
// whitelist to a single entry, which the scanner receives as its
// --whitelist argument. The scheduler's scan step is unchanged.
func (c *StationConfig) OverrideFrequency(freqMHz float64) {
	c.Whitelist = []float64{freqMHz}
}

func applyEnvOverrides(c *StationConfig) {
	if v := os.Getenv("AUTORX_TICK_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			c.TickInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("AUTORX_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("AUTORX_LOGGING_PATH"); v != "" {
		c.LoggingPath = v
	}
	if v := os.Getenv("AUTORX_RS_PATH"); v != "" {
		c.RSPath = v
	}
}
