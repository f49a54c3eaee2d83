package exporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// newSchemaHeader is the column order for newly-written logs: the schema
// that carries a pressure column, selected by the reader whenever the
// header does not contain the substring "other".
var newSchemaHeader = []string{
	"datetime", "serial", "frame", "lat", "lon", "alt", "vel_v", "vel_h",
	"heading", "temp", "humidity", "pressure", "type", "freq_mhz", "snr",
	"f_error_hz", "sats", "batt_v", "burst_timer", "aux_data",
}

// TelemetryLogger is the per-sonde CSV sink: one file per decoded flight,
// opened lazily on the first accepted frame and named by the station's
// logging-path convention. Safe for concurrent use, though in practice one
// instance is created per Decoder and never shared across flights.
type TelemetryLogger struct {
	loggingPath string

	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	path   string
}

// NewTelemetryLogger returns a sink that writes into loggingPath. The
// concrete file is created on the first call to Add, once the sonde's
// serial, type, and frequency are known.
func NewTelemetryLogger(loggingPath string) *TelemetryLogger {
	return &TelemetryLogger{loggingPath: loggingPath}
}

// Add appends one frame, opening the log file first if this is the first
// frame seen for this logger's flight.
func (l *TelemetryLogger) Add(f Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer == nil {
		if err := l.open(f); err != nil {
			return err
		}
	}

	row := []string{
		f.Datetime,
		f.Serial,
		strconv.Itoa(f.FrameNum),
		strconv.FormatFloat(f.Lat, 'f', 6, 64),
		strconv.FormatFloat(f.Lon, 'f', 6, 64),
		strconv.FormatFloat(f.Alt, 'f', 1, 64),
		strconv.FormatFloat(f.VelV, 'f', 2, 64),
		strconv.FormatFloat(f.VelH, 'f', 2, 64),
		strconv.FormatFloat(f.Heading, 'f', 1, 64),
		strconv.FormatFloat(f.TempC, 'f', 1, 64),
		strconv.FormatFloat(f.HumidityPct, 'f', 1, 64),
		strconv.FormatFloat(f.PressureHPa, 'f', 1, 64),
		f.SondeType,
		strconv.FormatFloat(f.FreqMHz, 'f', 3, 64),
		strconv.FormatFloat(f.SNR, 'f', 1, 64),
		strconv.FormatFloat(f.FErrorHz, 'f', 0, 64),
		strconv.Itoa(f.Sats),
		strconv.FormatFloat(f.BattV, 'f', 2, 64),
		strconv.Itoa(f.BurstTimer),
		f.Aux,
	}
	if err := l.writer.Write(row); err != nil {
		return fmt.Errorf("exporter: write row to %s: %w", l.path, err)
	}
	l.writer.Flush()
	return l.writer.Error()
}

// Close flushes and closes the underlying file. Safe to call on a logger
// that never saw a frame.
func (l *TelemetryLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		return err
	}
	return l.file.Close()
}

// Path returns the log file path, empty until the first frame is written.
func (l *TelemetryLogger) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

func (l *TelemetryLogger) open(f Frame) error {
	if err := os.MkdirAll(l.loggingPath, 0o755); err != nil {
		return fmt.Errorf("exporter: create logging path %s: %w", l.loggingPath, err)
	}
	name := FileName(f.Datetime, f.Serial, f.SondeType, f.FreqMHz)
	path := filepath.Join(l.loggingPath, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("exporter: create %s: %w", path, err)
	}
	w := csv.NewWriter(file)
	if err := w.Write(newSchemaHeader); err != nil {
		file.Close()
		return fmt.Errorf("exporter: write header to %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return err
	}
	l.file = file
	l.writer = w
	l.path = path
	return nil
}

// FileName builds the standard per-sonde log filename:
// YYYYMMDD-HHMMSS_<serial>_<shortType>_<freqKHz>_sonde.log. datetime must be
// ISO-8601 with a "T" separator and "Z"/offset suffix; compactTimestamp
// strips the punctuation the filename convention omits.
func FileName(datetime, serial, sondeType string, freqMHz float64) string {
	ts := compactTimestamp(datetime)
	freqKHz := int(freqMHz*1000 + 0.5)
	return fmt.Sprintf("%s_%s_%s_%d_sonde.log", ts, serial, sondeType, freqKHz)
}

// compactTimestamp turns "2023-09-01T04:12:30Z" into "20230901-041230".
func compactTimestamp(iso string) string {
	out := make([]byte, 0, len(iso))
	for i := 0; i < len(iso); i++ {
		c := iso[i]
		switch c {
		case '-', ':', 'Z', 'z':
			continue
		case 'T', 't':
			out = append(out, '-')
		default:
			out = append(out, c)
		}
	}
	// Drop any fractional-second / timezone-offset tail beyond HHMMSS.
	if idx := indexAfterTime(out); idx >= 0 {
		out = out[:idx]
	}
	return string(out)
}

// indexAfterTime returns the index just past "YYYYMMDD-HHMMSS" (15 chars),
// or -1 if the compacted string is already that length or shorter.
func indexAfterTime(b []byte) int {
	const want = len("YYYYMMDD-HHMMSS")
	if len(b) <= want {
		return -1
	}
	return want
}
