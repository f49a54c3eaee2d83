// Package skewt builds a thermodynamic sounding (Skew-T) series from a
// decoded radiosonde flight track: pressure, height, temperature, dew
// point, wind direction, and wind speed at decimated points along the
// ascent.
package skewt

import (
	"math"
	"time"

	"github.com/vk5qi/autorx-go/internal/geo"
)

// Magnus formula coefficients for dew point from relative humidity.
const (
	magnusA = 17.625
	magnusB = 243.04

	minValidTempC = -260.0
	stopPressureHPa = 100.0
)

// Sample is one point of the Skew-T series.
type Sample struct {
	PressHPa float64
	HghtM    float64
	TempC    float64
	DwptC    float64
	WdirDeg  float64
	WspdMps  float64
}

// Build derives the Skew-T series for one flight track. time must be
// ISO-8601 timestamps parseable by time.Parse(time.RFC3339, ...); lat/lon
// are decimal degrees; alt is metres; press is hPa, or negative where
// absent (standard atmosphere is substituted). All slices must be the same
// length.
//
// decimation controls how many samples are skipped between visited
// indices; it does not change which index triggers the stop condition.
func Build(ts []string, lat, lon, alt, temp, rh, press []float64, decimation int) []Sample {
	n := len(alt)
	if n < 10 {
		return nil
	}
	burstIndex := argmax(alt)
	if burstIndex == 0 {
		return nil
	}
	if alt[0] > 15000 {
		return nil
	}
	if decimation < 1 {
		decimation = 1
	}

	var out []Sample
	for i := 0; ; {
		i += decimation
		if i >= burstIndex {
			break
		}
		sample, ok := buildSample(ts, lat, lon, alt, temp, rh, press, i)
		if !ok {
			continue
		}
		out = append(out, sample)
		if sample.PressHPa < stopPressureHPa {
			break
		}
	}
	return out
}

// buildSample computes one Skew-T sample at index i, or reports false if
// the sample should be skipped. Any numeric failure (unparseable
// timestamp, non-finite dew point) is treated the same as a validity
// guard: skip and let the caller continue the traversal.
func buildSample(ts []string, lat, lon, alt, temp, rh, press []float64, i int) (Sample, bool) {
	if temp[i] < minValidTempC || rh[i] < 0 {
		return Sample{}, false
	}

	t0, err := time.Parse(time.RFC3339, ts[i-1])
	if err != nil {
		return Sample{}, false
	}
	t1, err := time.Parse(time.RFC3339, ts[i])
	if err != nil {
		return Sample{}, false
	}
	dt := t1.Sub(t0).Seconds()
	if dt == 0 {
		return Sample{}, false
	}

	from := geo.Point{Lat: lat[i-1], Lon: lon[i-1], Alt: alt[i-1]}
	to := geo.Point{Lat: lat[i], Lon: lon[i], Alt: alt[i]}
	delta := geo.Delta(from, to)
	wspd := delta.DistanceM / dt

	pressHPa := press[i]
	if pressHPa < 0 {
		pressHPa = geo.StandardAtmospherePressurePa(alt[i]) / 100.0
	}

	dwpt := magnusDewPoint(temp[i], rh[i])
	if math.IsNaN(dwpt) || math.IsInf(dwpt, 0) {
		return Sample{}, false
	}

	return Sample{
		PressHPa: pressHPa,
		HghtM:    alt[i],
		TempC:    temp[i],
		DwptC:    dwpt,
		WdirDeg:  delta.BearingDeg,
		WspdMps:  wspd,
	}, true
}

func magnusDewPoint(tempC, rhPct float64) float64 {
	gamma := math.Log(rhPct/100.0) + magnusA*tempC/(magnusB+tempC)
	return magnusB * gamma / (magnusA - gamma)
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
