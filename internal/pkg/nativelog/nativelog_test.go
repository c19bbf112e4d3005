package nativelog

import (
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func TestTodayFilename(t *testing.T) {
	got := TodayFilename(time.Date(2024, time.March, 7, 10, 0, 0, 0, time.UTC))
	if got != "stdout_3-7-24.log" {
		t.Errorf("TodayFilename = %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWriterAppendsDailyFile(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("first\n"))
	w.Write([]byte("second\n"))

	data, err := os.ReadFile(w.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "first\nsecond\n") {
		t.Errorf("unexpected file content %q", data)
	}
}
