package decoder

import "testing"

const sampleLine = "FRAME 2023-09-01T04:12:30Z,N1234567,42,-34.9,138.6,1234.5,5.1,3.2,180.0,10.5,55.0,850.2,12.0,-50,9,3.3,30,"

func TestParseFrameLine(t *testing.T) {
	f, ok := parseFrameLine(sampleLine, "RS41", 402.5)
	if !ok {
		t.Fatalf("expected FRAME prefix to be recognized")
	}
	if f.Serial != "N1234567" || f.FrameNum != 42 {
		t.Fatalf("unexpected serial/frame: %+v", f)
	}
	if f.Lat != -34.9 || f.Lon != 138.6 {
		t.Fatalf("unexpected lat/lon: %+v", f)
	}
	if f.SondeType != "RS41" || f.FreqMHz != 402.5 {
		t.Fatalf("expected sonde type/freq to be injected from decoder construction, got %+v", f)
	}
	if f.Sats != 9 {
		t.Fatalf("unexpected sats: %d", f.Sats)
	}
}

func TestParseFrameLineIgnoresOtherLines(t *testing.T) {
	if _, ok := parseFrameLine("some status chatter", "RS41", 402.5); ok {
		t.Fatalf("expected non-FRAME line to be ignored")
	}
}

func TestParseFrameLineRejectsTooFewFields(t *testing.T) {
	if _, ok := parseFrameLine("FRAME 1,2,3", "RS41", 402.5); ok {
		t.Fatalf("expected short line to be rejected")
	}
}

func TestParseFrameLineRejectsBadLatLon(t *testing.T) {
	bad := "FRAME 2023-09-01T04:12:30Z,N1234567,42,notalat,138.6,1234.5,5.1,3.2,180.0,10.5,55.0,850.2,12.0,-50,9,3.3,30,"
	if _, ok := parseFrameLine(bad, "RS41", 402.5); ok {
		t.Fatalf("expected unparsable lat to be rejected")
	}
}
