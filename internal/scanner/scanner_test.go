package scanner

import (
	"reflect"
	"testing"
)

func TestParseSweepLineEmpty(t *testing.T) {
	batch, ok := parseSweepLine("DETECT")
	if !ok {
		t.Fatalf("expected DETECT prefix to be recognized")
	}
	if len(batch) != 0 {
		t.Fatalf("expected empty batch, got %v", batch)
	}
}

func TestParseSweepLineMultiple(t *testing.T) {
	batch, ok := parseSweepLine("DETECT 402.500,RS41;405.100,DFM")
	if !ok {
		t.Fatalf("expected DETECT prefix to be recognized")
	}
	want := []Detection{
		{FreqMHz: 402.5, SondeType: "RS41"},
		{FreqMHz: 405.1, SondeType: "DFM"},
	}
	if !reflect.DeepEqual(batch, want) {
		t.Fatalf("batch = %+v, want %+v", batch, want)
	}
}

func TestParseSweepLineIgnoresOtherLines(t *testing.T) {
	if _, ok := parseSweepLine("some unrelated stdout line"); ok {
		t.Fatalf("expected non-DETECT line to be ignored")
	}
}

func TestParseSweepLineSkipsMalformedEntries(t *testing.T) {
	batch, ok := parseSweepLine("DETECT 402.500,RS41;garbage;405.100,DFM")
	if !ok {
		t.Fatalf("expected DETECT prefix to be recognized")
	}
	want := []Detection{
		{FreqMHz: 402.5, SondeType: "RS41"},
		{FreqMHz: 405.1, SondeType: "DFM"},
	}
	if !reflect.DeepEqual(batch, want) {
		t.Fatalf("batch = %+v, want %+v", batch, want)
	}
}

func TestBuildArgsIncludesListsOnlyWhenNonEmpty(t *testing.T) {
	args := buildArgs(Options{DeviceIdx: "0"})
	for _, flag := range []string{"--whitelist", "--greylist", "--blacklist", "--bias", "--sdr-power", "--sdr-fm"} {
		for _, a := range args {
			if a == flag {
				t.Fatalf("did not expect %s with zero-value options", flag)
			}
		}
	}
}

func TestBuildArgsIncludesWhitelist(t *testing.T) {
	args := buildArgs(Options{DeviceIdx: "0", Whitelist: []float64{402.5, 405.1}})
	found := false
	for i, a := range args {
		if a == "--whitelist" {
			found = true
			if i+1 >= len(args) || args[i+1] != "402.5,405.1" {
				t.Fatalf("expected whitelist value '402.5,405.1', got %q", args[i+1])
			}
		}
	}
	if !found {
		t.Fatalf("expected --whitelist flag")
	}
}

func TestStartRejectsEmptyPath(t *testing.T) {
	_, err := Start(nil, Options{}, nil) //nolint:staticcheck // ctx intentionally nil in test
	if err == nil {
		t.Fatalf("expected error starting scanner with empty rs_path")
	}
}
