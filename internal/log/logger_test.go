// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestConfigureAttachesServiceAndVersion(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "svc", Version: "v9"})
	t.Cleanup(func() { Configure(Config{}) })

	l := WithComponent("portal")
	l.Info().Msg("configured")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid log line: %v", err)
	}
	if entry["service"] != "svc" {
		t.Errorf("expected service svc, got %v", entry["service"])
	}
	if entry["version"] != "v9" {
		t.Errorf("expected version v9, got %v", entry["version"])
	}
	if entry[FieldComponent] != "portal" {
		t.Errorf("expected component portal, got %v", entry[FieldComponent])
	}
}

func TestMaskDeviceID(t *testing.T) {
	tests := map[string]string{
		"":                  "",
		"00:1A:79:12:34:56": "00:1A:79:**:**:56",
		"abc":               "****",
		"abcdefgh":          "ab****gh",
	}
	for in, want := range tests {
		if got := MaskDeviceID(in); got != want {
			t.Errorf("MaskDeviceID(%q) = %q, want %q", in, got, want)
		}
	}
}
