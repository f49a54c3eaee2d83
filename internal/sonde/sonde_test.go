package sonde

import "testing"

func TestLookupKnown(t *testing.T) {
	if got := Lookup("RS41"); got != "Vaisala RS41" {
		t.Fatalf("Lookup(RS41) = %q", got)
	}
}

func TestLookupUnknownPassesThrough(t *testing.T) {
	if got := Lookup("XYZ99"); got != "XYZ99" {
		t.Fatalf("Lookup(XYZ99) = %q, want pass-through", got)
	}
	if Known("XYZ99") {
		t.Fatalf("XYZ99 should not be known")
	}
}
