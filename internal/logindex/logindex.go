// Package logindex parses per-sonde log filenames and lists a logging
// directory's logs, newest first.
package logindex

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vk5qi/autorx-go/internal/sonde"
)

// filenameTimeLayout matches the "YYYYMMDD-HHMMSS" prefix of a log filename.
const filenameTimeLayout = "20060102-150405"

// Entry is one parsed log filename.
type Entry struct {
	Path     string
	Datetime time.Time
	Age      time.Duration
	Serial   string // display serial, with any sonde-type prefix stripped
	Type     string // human-readable sonde type name
	FreqMHz  float64
}

// AgeString renders Age the way an operator-facing listing would: whole
// units down to minutes, no sub-minute precision.
func (e Entry) AgeString() string {
	d := e.Age
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh%dm ago", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%dd%dh ago", int(d.Hours())/24, int(d.Hours())%24)
	}
}

// ListLogs globs dir for *_sonde.log files, parses each filename, and
// returns entries newest first. A filename that fails to parse is skipped
// (logged by the caller-supplied onParseError, if non-nil) rather than
// aborting the listing.
func ListLogs(dir string, now time.Time, onParseError func(path string, err error)) ([]Entry, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*_sonde.log"))
	if err != nil {
		return nil, fmt.Errorf("logindex: glob %s: %w", dir, err)
	}
	sort.Strings(matches)

	entries := make([]Entry, 0, len(matches))
	for _, path := range matches {
		e, err := ParseFilename(path, now)
		if err != nil {
			if onParseError != nil {
				onParseError(path, err)
			}
			continue
		}
		entries = append(entries, e)
	}

	// matches is lexicographic ascending (== chronological, fixed-width
	// timestamp prefix); reverse to put newest first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// ParseFilename parses one log path into an Entry, reproducing the
// timestamp, serial, type, and frequency encoded by the naming scheme.
func ParseFilename(path string, now time.Time) (Entry, error) {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, "_sonde.log")
	if name == base {
		return Entry{}, fmt.Errorf("logindex: %s: missing _sonde.log suffix", base)
	}

	parts := strings.SplitN(name, "_", 4)
	if len(parts) != 4 {
		return Entry{}, fmt.Errorf("logindex: %s: expected 4 underscore-separated fields, got %d", base, len(parts))
	}
	tsPart, serialPart, typePart, freqPart := parts[0], parts[1], parts[2], parts[3]

	ts, err := time.Parse(filenameTimeLayout, tsPart)
	if err != nil {
		return Entry{}, fmt.Errorf("logindex: %s: bad timestamp %q: %w", base, tsPart, err)
	}
	ts = ts.UTC()

	freqKHz, err := strconv.Atoi(freqPart)
	if err != nil {
		return Entry{}, fmt.Errorf("logindex: %s: bad frequency %q: %w", base, freqPart, err)
	}

	return Entry{
		Path:     path,
		Datetime: ts,
		Age:      now.Sub(ts),
		Serial:   stripTypePrefix(serialPart, typePart),
		Type:     sonde.Lookup(typePart),
		FreqMHz:  float64(freqKHz) / 1000.0,
	}, nil
}

// stripTypePrefix removes a leading "<type>-" from serial, if present —
// some sonde families (e.g. DFM) report their raw serial with the type
// name prefixed, which the filename preserves verbatim but a display
// listing strips.
func stripTypePrefix(serial, shortType string) string {
	prefix := shortType + "-"
	return strings.TrimPrefix(serial, prefix)
}
