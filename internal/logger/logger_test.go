package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"trace", LevelTrace, false},
		{"DEBUG", LevelDebug, false},
		{"", LevelInfo, false},
		{"warning", LevelWarning, false},
		{"Error", LevelError, false},
		{"FATAL", LevelFatal, false},
		{"loud", LevelInfo, true},
	}

	for _, tc := range testCases {
		got, err := ParseLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLevel(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSamplingHandler(t *testing.T) {
	var buf bytes.Buffer
	SetLevel(LevelDebug)
	defer SetLevel(LevelInfo)

	h := newSamplingHandler(jsonHandler(&buf), 10)
	pass := false
	h.sample = func(int) bool { return pass }
	l := slog.New(h)

	before := Suppressed.Load()
	l.Info("kept info")
	l.Warn("dropped warning")
	l.Error("dropped error")
	pass = true
	l.Warn("sampled warning")

	out := buf.String()
	for _, want := range []string{"kept info", "sampled warning"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
	if strings.Contains(out, "dropped") {
		t.Errorf("sampled-out records were written: %s", out)
	}
	if got := Suppressed.Load() - before; got != 2 {
		t.Errorf("Suppressed grew by %d, want 2", got)
	}
}

func TestSamplingDisabled(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(newSamplingHandler(jsonHandler(&buf), 1).WithAttrs([]slog.Attr{slog.String("component", "test")}))

	l.ErrorContext(context.Background(), "always logged")
	if !strings.Contains(buf.String(), `"component":"test"`) {
		t.Errorf("attrs lost: %s", buf.String())
	}
}

func TestSetupJSON(t *testing.T) {
	l := Setup(Config{Level: "warn", SampleRate: 1})
	if l == nil {
		t.Fatal("Setup() returned nil")
	}
	if GetLevel() != LevelWarning {
		t.Errorf("level = %v, want WARN", GetLevel())
	}
	if l.Enabled(context.Background(), LevelInfo) {
		t.Error("INFO should be disabled at WARN")
	}
	SetLevel(LevelInfo)
	if err := Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() without OTEL failed: %v", err)
	}
}
