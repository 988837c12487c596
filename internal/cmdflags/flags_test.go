package cmdflags

import (
	"testing"
	"time"
)

func TestParseSessionDuration(t *testing.T) {
	for input, expected := range map[string]time.Duration{
		"":      0,
		"0":     0,
		"-10":   0,
		"abc":   0,
		"1.5":   0,
		"60":    time.Minute,
		" 3600": time.Hour,
	} {
		if actual := ParseSessionDuration(input); actual != expected {
			t.Errorf("ParseSessionDuration(%q) should be %v got %v", input, expected, actual)
		}
	}
}

func TestBindAddr(t *testing.T) {
	if addr := BindAddr("0.0.0.0", "5000"); addr != "0.0.0.0:5000" {
		t.Fatalf("unexpected address %v", addr)
	}
	if addr := BindAddr("::1", "5000"); addr != "[::1]:5000" {
		t.Fatalf("unexpected address %v", addr)
	}
}
