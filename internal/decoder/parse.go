package decoder

import (
	"strconv"
	"strings"

	"github.com/vk5qi/autorx-go/internal/exporter"
)

// parseFrameLine recognizes one decoded-frame line of the form
// "FRAME datetime,serial,frame_num,lat,lon,alt,vel_v,vel_h,heading,temp,
// humidity,pressure,snr,f_error_hz,sats,batt_v,burst_timer,aux", emitted by
// the decoder subprocess for each valid telemetry frame. Any other line
// (status chatter, warnings) is ignored. sondeType and freqMHz are known
// from the Decoder's own construction, not re-parsed from the line.
func parseFrameLine(line string, sondeType string, freqMHz float64) (exporter.Frame, bool) {
	const prefix = "FRAME "
	if !strings.HasPrefix(line, prefix) {
		return exporter.Frame{}, false
	}
	fields := strings.Split(strings.TrimPrefix(line, prefix), ",")
	if len(fields) < 18 {
		return exporter.Frame{}, false
	}

	frameNum, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return exporter.Frame{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
	if err != nil {
		return exporter.Frame{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(fields[4]), 64)
	if err != nil {
		return exporter.Frame{}, false
	}
	alt, _ := strconv.ParseFloat(strings.TrimSpace(fields[5]), 64)
	velV, _ := strconv.ParseFloat(strings.TrimSpace(fields[6]), 64)
	velH, _ := strconv.ParseFloat(strings.TrimSpace(fields[7]), 64)
	heading, _ := strconv.ParseFloat(strings.TrimSpace(fields[8]), 64)
	temp, _ := strconv.ParseFloat(strings.TrimSpace(fields[9]), 64)
	humidity, _ := strconv.ParseFloat(strings.TrimSpace(fields[10]), 64)
	pressure, _ := strconv.ParseFloat(strings.TrimSpace(fields[11]), 64)
	snr, _ := strconv.ParseFloat(strings.TrimSpace(fields[12]), 64)
	fErr, _ := strconv.ParseFloat(strings.TrimSpace(fields[13]), 64)
	sats, _ := strconv.Atoi(strings.TrimSpace(fields[14]))
	battV, _ := strconv.ParseFloat(strings.TrimSpace(fields[15]), 64)
	burstTimer, _ := strconv.Atoi(strings.TrimSpace(fields[16]))
	aux := strings.TrimSpace(fields[17])

	return exporter.Frame{
		Datetime:    strings.TrimSpace(fields[0]),
		Serial:      strings.TrimSpace(fields[1]),
		FrameNum:    frameNum,
		Lat:         lat,
		Lon:         lon,
		Alt:         alt,
		VelV:        velV,
		VelH:        velH,
		Heading:     heading,
		TempC:       temp,
		HumidityPct: humidity,
		PressureHPa: pressure,
		SondeType:   sondeType,
		FreqMHz:     freqMHz,
		SNR:         snr,
		FErrorHz:    fErr,
		Sats:        sats,
		BattV:       battV,
		BurstTimer:  burstTimer,
		Aux:         aux,
	}, true
}
