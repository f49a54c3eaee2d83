package logindex

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseFilenameRoundTrip(t *testing.T) {
	now := time.Date(2023, 9, 1, 5, 0, 0, 0, time.UTC)
	e, err := ParseFilename("/logs/20230901-041230_N1234567_RS41_402500_sonde.log", now)
	if err != nil {
		t.Fatalf("ParseFilename: %v", err)
	}
	wantTime := time.Date(2023, 9, 1, 4, 12, 30, 0, time.UTC)
	if !e.Datetime.Equal(wantTime) {
		t.Fatalf("Datetime = %v, want %v", e.Datetime, wantTime)
	}
	if e.Serial != "N1234567" {
		t.Fatalf("Serial = %q, want N1234567", e.Serial)
	}
	if e.Type != "Vaisala RS41" {
		t.Fatalf("Type = %q, want Vaisala RS41", e.Type)
	}
	if e.FreqMHz != 402.5 {
		t.Fatalf("FreqMHz = %v, want 402.5", e.FreqMHz)
	}
	if e.Age != 47*time.Minute+30*time.Second {
		t.Fatalf("Age = %v, want 47m30s", e.Age)
	}
}

func TestParseFilenameStripsTypePrefixFromSerial(t *testing.T) {
	now := time.Now()
	e, err := ParseFilename("/logs/20230901-041230_DFM-123456_DFM_403000_sonde.log", now)
	if err != nil {
		t.Fatalf("ParseFilename: %v", err)
	}
	if e.Serial != "123456" {
		t.Fatalf("Serial = %q, want 123456 (prefix stripped)", e.Serial)
	}
}

func TestParseFilenameRejectsMalformed(t *testing.T) {
	cases := []string{
		"/logs/not_a_sonde_log.txt",
		"/logs/20230901_N1234567_RS41_402500_sonde.log",
		"/logs/20230901-041230_N1234567_RS41_notanumber_sonde.log",
	}
	for _, c := range cases {
		if _, err := ParseFilename(c, time.Now()); err == nil {
			t.Fatalf("expected error parsing %q", c)
		}
	}
}

func TestListLogsNewestFirstAndSkipsBad(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"20230901-041230_N1111111_RS41_402500_sonde.log",
		"20230901-051230_N2222222_RS41_402700_sonde.log",
		"not_a_sonde.log",
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	var skipped []string
	entries, err := ListLogs(dir, time.Now(), func(path string, err error) {
		skipped = append(skipped, path)
	})
	if err != nil {
		t.Fatalf("ListLogs: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 parsed entries, got %d", len(entries))
	}
	if entries[0].Serial != "N2222222" {
		t.Fatalf("expected newest-first ordering, got %+v", entries)
	}
	if len(skipped) != 1 {
		t.Fatalf("expected not_a_sonde.log to match the glob but fail parsing, got %v", skipped)
	}
}
