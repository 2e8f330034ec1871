package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	})
	return &buf
}

func TestStdLogger_Prefixes(t *testing.T) {
	buf := captureLog(t)
	l := StdLogger{}
	l.Info("packed %s", "7")
	l.Warn("left %d files", 2)
	l.Error("boom")

	out := buf.String()
	for _, want := range []string{"INFO: packed 7", "WARN: left 2 files", "ERROR: boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestStdLogger_DebugGatedByVerbosity(t *testing.T) {
	tests := []struct {
		name      string
		verbosity int
		level     int
		want      bool
	}{
		{"quiet hides level 1", 0, 1, false},
		{"v shows level 1", 1, 1, true},
		{"v hides level 2", 1, 2, false},
		{"vvv shows level 2", 3, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			StdLogger{Verbosity: tt.verbosity}.Debug(tt.level, "considering %q", "12")
			got := strings.Contains(buf.String(), `DEBUG: considering "12"`)
			if got != tt.want {
				t.Errorf("debug printed = %v, want %v (output %q)", got, tt.want, buf.String())
			}
		})
	}
}
