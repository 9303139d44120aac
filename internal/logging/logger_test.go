package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func resetState() {
	mutex.Lock()
	defer mutex.Unlock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	globalConfig = Config{}
	isInitialized = false
	logBuffer = nil
	logCallback = nil
}

func TestModuleLevelOverride(t *testing.T) {
	resetState()
	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"capture": "debug",
			"api":     "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"capture", true, true, true},
		{"api", false, false, true},
		{"mirror", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()
			ctx := context.Background()

			if got := handler.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("Debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := handler.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("Info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := handler.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("Warn enabled = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetState()

	early := GetLogger("discovery")
	if early.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("logger created before Initialize should default to info")
	}

	Initialize(Config{Level: "info", Modules: map[string]string{"discovery": "debug"}})

	if !early.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("early logger should pick up the module level after Initialize")
	}
	if GetLogger("discovery") == nil {
		t.Fatal("GetLogger returned nil")
	}
}

func TestUpdateLevels(t *testing.T) {
	resetState()
	Initialize(Config{Level: "info", Format: "text"})

	logger := GetLogger("render")
	ctx := context.Background()
	if logger.Handler().Enabled(ctx, slog.LevelDebug) {
		t.Fatal("debug enabled before update")
	}

	UpdateLevels(Config{Level: "warn", Modules: map[string]string{"render": "debug"}})
	if !logger.Handler().Enabled(ctx, slog.LevelDebug) {
		t.Error("module override to debug not applied")
	}
	if GetLogger("mirror").Handler().Enabled(ctx, slog.LevelInfo) {
		t.Error("new module should inherit the updated global level")
	}

	UpdateLevels(Config{Level: "error"})
	if logger.Handler().Enabled(ctx, slog.LevelWarn) {
		t.Error("dropping the override should fall back to the global level")
	}
}

func TestBufferHandlerRecordsEntries(t *testing.T) {
	resetState()
	Initialize(Config{Level: "debug"})

	var seen []LogEntry
	SetLogCallback(func(e LogEntry) { seen = append(seen, e) })
	defer SetLogCallback(nil)

	logger := GetLogger("capture")
	logger.Info("Format changed", "width", 1920, "error", errors.New("boom"))
	logger.WithGroup("mode").Debug("Detected", "name", "1080p30")

	entries := GetBuffer().ReadAll()
	if len(entries) != 2 {
		t.Fatalf("buffer has %d entries, want 2", len(entries))
	}
	first := entries[0]
	if first.Module != "capture" || first.Level != "info" || first.Message != "Format changed" {
		t.Errorf("unexpected entry: %+v", first)
	}
	if first.Attributes["error"] != "boom" {
		t.Errorf("error attribute = %v, want boom", first.Attributes["error"])
	}
	if entries[1].Attributes["mode.name"] != "1080p30" {
		t.Errorf("grouped attribute missing: %+v", entries[1].Attributes)
	}
	if len(seen) != 2 {
		t.Errorf("callback saw %d entries, want 2", len(seen))
	}
}

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	debug := slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug})
	warn := slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelWarn})

	logger := slog.New(NewMultiHandler(debug, warn)).With("module", "mirror")
	logger.Debug("staged readback")
	logger.Warn("display rejected")

	if !strings.Contains(a.String(), "staged readback") || !strings.Contains(a.String(), "display rejected") {
		t.Errorf("debug handler missing output: %q", a.String())
	}
	if strings.Contains(b.String(), "staged readback") {
		t.Errorf("warn handler received debug record: %q", b.String())
	}
	if !strings.Contains(b.String(), "module=mirror") {
		t.Errorf("attrs not propagated: %q", b.String())
	}
}

func TestRingBufferTail(t *testing.T) {
	rb := NewRingBuffer(3)
	for i := range 5 {
		rb.Write(LogEntry{Message: string(rune('a' + i))})
	}

	all := rb.ReadAll()
	if len(all) != 3 || all[0].Message != "c" || all[2].Message != "e" {
		t.Fatalf("ReadAll = %+v", all)
	}
	tail := rb.Tail(2)
	if len(tail) != 2 || tail[0].Message != "d" {
		t.Errorf("Tail(2) = %+v", tail)
	}
	if got := rb.Tail(0); len(got) != 3 {
		t.Errorf("Tail(0) returned %d entries, want 3", len(got))
	}
}

func TestFormatLogLine(t *testing.T) {
	entry := LogEntry{
		Timestamp:  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:      "warn",
		Module:     "capture",
		Message:    "Frame dropped",
		Attributes: map[string]any{"state": "stopped", "count": 3},
	}
	want := "2025-01-02T03:04:05Z [WARN] [capture] Frame dropped count=3 state=stopped"
	if got := FormatLogLine(entry); got != want {
		t.Errorf("FormatLogLine = %q, want %q", got, want)
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		valid bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", 0, false},
	}
	for _, tt := range tests {
		got := parseLevel(tt.input)
		if !tt.valid {
			if got != nil {
				t.Errorf("parseLevel(%q) = %v, want nil", tt.input, *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
