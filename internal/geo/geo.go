// Package geo provides the small set of geodesy and atmosphere helpers the
// Skew-T builder needs: great-circle distance and bearing between two
// positions, and a standard-atmosphere altitude-to-pressure model for
// samples that carry no pressure reading of their own.
package geo

import "math"

// earthRadiusM is the mean radius used for the haversine approximation.
const earthRadiusM = 6371000.0

// Point is a position in decimal degrees plus altitude in metres. Altitude
// is carried for convenience but ignored by Distance and Bearing, per the
// spec's geometry helper contract.
type Point struct {
	Lat, Lon, Alt float64
}

// GreatCircleDistance returns the great-circle (haversine) distance between
// a and b in metres, ignoring altitude.
func GreatCircleDistance(a, b Point) float64 {
	lat1, lon1 := toRad(a.Lat), toRad(a.Lon)
	lat2, lon2 := toRad(b.Lat), toRad(b.Lon)
	dLat := lat2 - lat1
	dLon := lon2 - lon1

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusM * c
}

// Bearing returns the initial bearing from a to b, in degrees true
// (0-360), ignoring altitude.
func Bearing(a, b Point) float64 {
	lat1, lat2 := toRad(a.Lat), toRad(b.Lat)
	dLon := toRad(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	theta := math.Atan2(y, x)
	deg := math.Mod(theta*180/math.Pi+360, 360)
	return deg
}

// PositionDelta bundles the two position-delta quantities the Skew-T
// builder needs from a pair of successive samples.
type PositionDelta struct {
	DistanceM  float64
	BearingDeg float64
}

// Delta computes the great-circle distance and bearing from `from` to `to`
// in one call, since callers building a flight track need both together.
func Delta(from, to Point) PositionDelta {
	return PositionDelta{
		DistanceM:  GreatCircleDistance(from, to),
		BearingDeg: Bearing(from, to),
	}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// ICAO standard-atmosphere constants, SI units.
const (
	seaLevelPressurePa = 101325.0
	seaLevelTempK      = 288.15
	lapseRateTroposphere = 0.0065 // K/m, 0-11000m
	gravityMPerS2        = 9.80665
	gasConstantAir       = 287.05287 // J/(kg*K)

	tropopauseAltM   = 11000.0
	tropopauseTempK  = seaLevelTempK - lapseRateTroposphere*tropopauseAltM // 216.65 K
	tropopausePressPa = 22632.06 // ICAO table value at 11 km

	lowerStratoTopAltM = 20000.0
	// Pressure at 20km, isothermal layer from 11-20km at tropopauseTempK.
	lowerStratoTopPressPa = 5474.89

	upperStratoLapseRate = -0.001 // K/m, temperature INCREASES with altitude above 20km (negative lapse)
)

// StandardAtmospherePressurePa returns the ICAO standard-atmosphere
// pressure, in pascals, at the given altitude in metres above mean sea
// level. It covers the three layers a radiosonde ascent actually
// traverses: the troposphere (0-11km, linear lapse), the tropopause
// (11-20km, isothermal), and the lower stratosphere (20-32km, inverted
// lapse), so the result stays monotonically decreasing with altitude
// across a full flight instead of just the bottom layer.
func StandardAtmospherePressurePa(altM float64) float64 {
	switch {
	case altM <= tropopauseAltM:
		t := seaLevelTempK - lapseRateTroposphere*altM
		exp := gravityMPerS2 / (gasConstantAir * lapseRateTroposphere)
		return seaLevelPressurePa * math.Pow(t/seaLevelTempK, exp)
	case altM <= lowerStratoTopAltM:
		dh := altM - tropopauseAltM
		return tropopausePressPa * math.Exp(-gravityMPerS2*dh/(gasConstantAir*tropopauseTempK))
	default:
		dh := altM - lowerStratoTopAltM
		t := tropopauseTempK - upperStratoLapseRate*dh
		exp := gravityMPerS2 / (gasConstantAir * upperStratoLapseRate)
		return lowerStratoTopPressPa * math.Pow(t/tropopauseTempK, exp)
	}
}
