// Package fltlog reads a per-sonde CSV telemetry log and derives a flight
// summary plus a Skew-T sounding from it.
package fltlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vk5qi/autorx-go/internal/skewt"
)

// newSchemaColumns is the number of columns the new schema (the one
// without "other" in its header) carries.
const newSchemaColumns = 20

// oldSchemaColumnsRead is how many leading columns are read from an old
// schema log; trailing columns vary by decoder version and are ignored.
const oldSchemaColumnsRead = 13

// schemaSelector is the substring whose presence in the header row
// selects the old, no-pressure schema.
const schemaSelector = "other"

// Point is one position sample along a flight track.
type Point struct {
	Lat float64
	Lon float64
	Alt float64
}

// FlightSummary is the result of reading one log file.
type FlightSummary struct {
	Path      string
	Serial    string
	Points    []Point // ordered (lat, lon, alt) track
	First     Point
	FirstTime string
	Last      Point
	LastTime  string
	Burst     Point
	BurstTime string
	Skewt     []skewt.Sample
}

// BuildObserver is notified with how long a Skew-T build took, in seconds.
// ReadLog's onSkewtBuilt parameter is typically a station's metrics
// recorder; tests and one-off callers can pass nil.
type BuildObserver func(seconds float64)

// ReadLog parses path and derives its FlightSummary, including a Skew-T
// series decimated every skewtDecimation samples. Any header selects one of
// the two schemas; a file that is empty, cannot be read, or has no row with
// parseable lat/lon/alt is a content parse error: the caller gets it back
// and should treat it as an empty summary.
func ReadLog(path string, skewtDecimation int, onSkewtBuilt BuildObserver) (FlightSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return FlightSummary{}, fmt.Errorf("fltlog: open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	sc.Buffer(buf, 1024*1024)

	if !sc.Scan() {
		return FlightSummary{}, fmt.Errorf("fltlog: %s: empty file", path)
	}
	header := sc.Text()
	old := strings.Contains(header, schemaSelector)

	var (
		ts, serials   []string
		lat, lon, alt []float64
		temp, rh      []float64
		press         []float64
	)

	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		cols := strings.Split(line, ",")
		n := oldSchemaColumnsRead
		if !old {
			n = newSchemaColumns
		}
		if len(cols) < n {
			continue
		}

		lt, errLat := strconv.ParseFloat(strings.TrimSpace(cols[3]), 64)
		ln, errLon := strconv.ParseFloat(strings.TrimSpace(cols[4]), 64)
		al, errAlt := strconv.ParseFloat(strings.TrimSpace(cols[5]), 64)
		if errLat != nil || errLon != nil || errAlt != nil {
			continue
		}
		tp, _ := strconv.ParseFloat(strings.TrimSpace(cols[9]), 64)
		hm, _ := strconv.ParseFloat(strings.TrimSpace(cols[10]), 64)

		pr := -1.0
		if !old {
			pr, _ = strconv.ParseFloat(strings.TrimSpace(cols[11]), 64)
		}

		ts = append(ts, strings.TrimSpace(cols[0]))
		serials = append(serials, strings.TrimSpace(cols[1]))
		lat = append(lat, lt)
		lon = append(lon, ln)
		alt = append(alt, al)
		temp = append(temp, tp)
		rh = append(rh, hm)
		press = append(press, pr)
	}
	if err := sc.Err(); err != nil {
		return FlightSummary{}, fmt.Errorf("fltlog: read %s: %w", path, err)
	}

	n := len(alt)
	if n == 0 {
		return FlightSummary{}, fmt.Errorf("fltlog: %s: no data rows", path)
	}

	track := make([]Point, n)
	for i := range track {
		track[i] = Point{Lat: lat[i], Lon: lon[i], Alt: alt[i]}
	}

	burstIdx := argmax(alt)

	buildStart := time.Now()
	series := skewt.Build(ts, lat, lon, alt, temp, rh, press, skewtDecimation)
	if onSkewtBuilt != nil {
		onSkewtBuilt(time.Since(buildStart).Seconds())
	}

	summary := FlightSummary{
		Path:      path,
		Serial:    firstNonEmpty(serials),
		Points:    track,
		First:     track[0],
		FirstTime: ts[0],
		Last:      track[n-1],
		LastTime:  ts[n-1],
		Burst:     track[burstIdx],
		BurstTime: ts[burstIdx],
		Skewt:     series,
	}

	return summary, nil
}

// ReadLogBySerial globs dir for the first log filename matching serial and
// reads it. Returns an empty summary (no error) on no match or read
// failure — callers are expected to treat "no flight found" identically to
// "flight found but unreadable".
func ReadLogBySerial(dir, serial string, skewtDecimation int, onSkewtBuilt BuildObserver) FlightSummary {
	matches, err := filepath.Glob(filepath.Join(dir, "*_*"+serial+"_*_sonde.log"))
	if err != nil || len(matches) == 0 {
		return FlightSummary{}
	}
	summary, err := ReadLog(matches[0], skewtDecimation, onSkewtBuilt)
	if err != nil {
		return FlightSummary{}
	}
	return summary
}

func argmax(xs []float64) int {
	best := 0
	for i, x := range xs {
		if x > xs[best] {
			best = i
		}
	}
	return best
}

func firstNonEmpty(ss []string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
