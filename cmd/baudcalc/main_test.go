package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseRates(t *testing.T) {
	got, err := parseRates(" 9600, 57600,,115200 ")
	if err != nil {
		t.Fatalf("parseRates: %v", err)
	}
	want := []uint32{9600, 57600, 115200}
	if len(got) != len(want) {
		t.Fatalf("parseRates = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("parseRates = %v, want %v", got, want)
		}
	}

	for _, bad := range []string{"fast", "0", "-1"} {
		if _, err := parseRates(bad); err == nil {
			t.Errorf("parseRates(%q) succeeded", bad)
		}
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	if err := writeTable(&buf, 16_000_000, []uint32{9600, 57600, 115200}, 20); err != nil {
		t.Fatalf("writeTable: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), buf.String())
	}

	tests := []struct {
		line   string
		fields []string
	}{
		{lines[1], []string{"9600", "207", "1", "9615", "+1"}},
		{lines[2], []string{"57600", "16", "0", "58823", "+21!"}},
		{lines[3], []string{"115200", "16", "1", "117647", "+21!"}},
	}
	for _, tt := range tests {
		got := strings.Fields(tt.line)
		if strings.Join(got, " ") != strings.Join(tt.fields, " ") {
			t.Errorf("row = %q, want %q", got, tt.fields)
		}
	}
}
