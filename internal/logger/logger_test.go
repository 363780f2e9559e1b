package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "warn")

	Debugf("debug %d", 1)
	Infof("info %d", 2)
	Warnf("warn %d", 3)
	Errorf("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("messages below warn should be discarded, got %q", out)
	}
	if !strings.Contains(out, "WARN: ") || !strings.Contains(out, "warn 3") {
		t.Errorf("missing warn line in %q", out)
	}
	if !strings.Contains(out, "ERROR: ") || !strings.Contains(out, "error 4") {
		t.Errorf("missing error line in %q", out)
	}
	// caller file, not logger.go
	if !strings.Contains(out, "logger_test.go") {
		t.Errorf("expected caller location in %q", out)
	}
}

func TestGetLogLevelFromString(t *testing.T) {
	cases := map[string]LogLevel{
		"DEBUG": DEBUG,
		"info":  INFO,
		"Warn":  WARN,
		"error": ERROR,
		"bogus": WARN,
	}
	for in, want := range cases {
		if got := GetLogLevelFromString(in); got != want {
			t.Errorf("GetLogLevelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}
