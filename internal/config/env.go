package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// envKeyPrefix is the only namespace LoadEnvFile will set. The station's own
// JSON config carries every operational setting; this file exists solely to
// keep upload credentials (AUTORX_APRS_CALLSIGN, AUTORX_APRS_PASSCODE,
// AUTORX_NETWORK_URL, ...) out of that JSON and out of the process's
// argument list.
const envKeyPrefix = "AUTORX_"

// LoadEnvFile reads path and sets environment variables for each "KEY=value"
// line. Blank lines and lines starting with # are skipped. Keys outside the
// AUTORX_ namespace are rejected rather than silently set, since this file's
// only job is handing upload credentials to the exporter sinks — anything
// else belongs in the station's JSON config. A key already present in the
// process environment is left alone, so a real env var always wins over the
// file. A missing file is not an error: most stations run with no uploads
// configured at all.
func LoadEnvFile(path string) error {
	path = filepath.Clean(path)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if key == "" {
			continue
		}
		if !strings.HasPrefix(key, envKeyPrefix) {
			return fmt.Errorf("config: %s:%d: key %q is outside the %s namespace", path, lineNo, key, envKeyPrefix)
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, unquoteEnv(value)); err != nil {
			return fmt.Errorf("config: %s:%d: %w", path, lineNo, err)
		}
	}
	return sc.Err()
}

// unquoteEnv strips a single layer of matching quotes, so an upload
// credential can be written as AUTORX_APRS_PASSCODE="-1" without the shell
// conventions of the invoking script leaking into the value.
func unquoteEnv(s string) string {
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
