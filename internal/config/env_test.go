package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFile_missing(t *testing.T) {
	err := LoadEnvFile(filepath.Join(t.TempDir(), "nonexistent"))
	if err != nil {
		t.Fatalf("missing file should return nil: %v", err)
	}
}

func TestLoadEnvFile_setsUploadCredentials(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	body := "AUTORX_APRS_CALLSIGN=VK5QI-11\n# APRS-IS passcode for the above callsign\nAUTORX_APRS_PASSCODE=12345\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	if err := LoadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if os.Getenv("AUTORX_APRS_CALLSIGN") != "VK5QI-11" {
		t.Errorf("AUTORX_APRS_CALLSIGN = %q", os.Getenv("AUTORX_APRS_CALLSIGN"))
	}
	if os.Getenv("AUTORX_APRS_PASSCODE") != "12345" {
		t.Errorf("AUTORX_APRS_PASSCODE = %q", os.Getenv("AUTORX_APRS_PASSCODE"))
	}
}

func TestLoadEnvFile_unquote(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte(`AUTORX_NETWORK_URL="https://example.org/telemetry"`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := LoadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if os.Getenv("AUTORX_NETWORK_URL") != "https://example.org/telemetry" {
		t.Errorf("AUTORX_NETWORK_URL = %q", os.Getenv("AUTORX_NETWORK_URL"))
	}
}

func TestLoadEnvFile_rejectsKeyOutsideNamespace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("PATH=/usr/bin\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := LoadEnvFile(path); err == nil {
		t.Fatal("expected an error for a key outside the AUTORX_ namespace")
	}
}

func TestLoadEnvFile_existingEnvWins(t *testing.T) {
	t.Setenv("AUTORX_APRS_CALLSIGN", "N0CALL")
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("AUTORX_APRS_CALLSIGN=VK5QI-11\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := LoadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if os.Getenv("AUTORX_APRS_CALLSIGN") != "N0CALL" {
		t.Errorf("AUTORX_APRS_CALLSIGN = %q, want existing value to win", os.Getenv("AUTORX_APRS_CALLSIGN"))
	}
}
