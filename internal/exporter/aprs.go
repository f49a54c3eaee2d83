package exporter

import (
	"fmt"
	"log"
	"net"
	"sync"
	"time"
)

// APRSSink formats each frame as an APRS position packet and writes it to
// an APRS-IS server over a plain TCP connection, reconnecting on write
// failure. Upload errors never propagate to the Decoder — see NetworkSink
// for the same policy and its rationale.
type APRSSink struct {
	addr     string
	callsign string
	passcode string

	mu   sync.Mutex // guards conn; one sink is shared by every Decoder
	conn net.Conn
}

// NewAPRSSink builds a sink that logs in to an APRS-IS server at addr
// (host:port) with the given callsign/passcode on first use.
func NewAPRSSink(addr, callsign, passcode string) *APRSSink {
	return &APRSSink{addr: addr, callsign: callsign, passcode: passcode}
}

// Add formats and sends one position packet, reconnecting first if needed.
func (s *APRSSink) Add(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		if err := s.connect(); err != nil {
			log.Printf("exporter: APRS sink connect to %s failed: %v", s.addr, err)
			return nil
		}
	}
	packet := formatAPRSPosition(s.callsign, f)
	s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := fmt.Fprintf(s.conn, "%s\r\n", packet); err != nil {
		log.Printf("exporter: APRS sink write failed, will reconnect next frame: %v", err)
		s.conn.Close()
		s.conn = nil
	}
	return nil
}

// Close closes the APRS-IS connection, if open.
func (s *APRSSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *APRSSink) connect() error {
	conn, err := net.DialTimeout("tcp", s.addr, 10*time.Second)
	if err != nil {
		return err
	}
	login := fmt.Sprintf("user %s pass %s vers autorx-go 1.0\r\n", s.callsign, s.passcode)
	if _, err := conn.Write([]byte(login)); err != nil {
		conn.Close()
		return err
	}
	s.conn = conn
	return nil
}

// formatAPRSPosition renders an uncompressed APRS position report for a
// radiosonde frame: callsign, symbol table/code for a balloon, lat/lon in
// APRS degree-minute form, altitude in feet, and the sonde type/frequency
// as a comment.
func formatAPRSPosition(callsign string, f Frame) string {
	lat := aprsLat(f.Lat)
	lon := aprsLon(f.Lon)
	altFt := int(f.Alt * 3.28084)
	return fmt.Sprintf("%s>APRS,TCPIP*:!%s/%sO/A=%06d %s %.3fMHz",
		callsign, lat, lon, altFt, f.SondeType, f.FreqMHz)
}

func aprsLat(lat float64) string {
	hemi := "N"
	if lat < 0 {
		hemi = "S"
		lat = -lat
	}
	deg := int(lat)
	min := (lat - float64(deg)) * 60
	return fmt.Sprintf("%02d%05.2f%s", deg, min, hemi)
}

func aprsLon(lon float64) string {
	hemi := "E"
	if lon < 0 {
		hemi = "W"
		lon = -lon
	}
	deg := int(lon)
	min := (lon - float64(deg)) * 60
	return fmt.Sprintf("%03d%05.2f%s", deg, min, hemi)
}
