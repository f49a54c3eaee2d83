package decoder

import (
	"testing"

	"github.com/vk5qi/autorx-go/internal/exporter"
)

func TestBuildArgsIncludesEphemerisOnlyWhenSet(t *testing.T) {
	args := buildArgs(Options{SondeType: "RS41", DeviceIdx: "0"})
	for _, a := range args {
		if a == "--ephemeris" {
			t.Fatalf("did not expect --ephemeris with empty RS92Ephemeris")
		}
	}

	args = buildArgs(Options{SondeType: "RS92", DeviceIdx: "0", RS92Ephemeris: "/tmp/ephemeris.dat"})
	found := false
	for i, a := range args {
		if a == "--ephemeris" {
			found = true
			if i+1 >= len(args) || args[i+1] != "/tmp/ephemeris.dat" {
				t.Fatalf("expected ephemeris path argument, got %v", args)
			}
		}
	}
	if !found {
		t.Fatalf("expected --ephemeris flag when RS92Ephemeris is set")
	}
}

func TestAcceptAllAlwaysTrue(t *testing.T) {
	if !AcceptAll(exporter.Frame{}) {
		t.Fatalf("expected AcceptAll to accept every frame")
	}
}
