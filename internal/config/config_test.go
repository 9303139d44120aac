package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config string

	Name     string        `toml:"test.name" env:"TEST_NAME"`
	Enabled  bool          `toml:"test.enabled" env:"TEST_ENABLED"`
	Count    int           `toml:"test.count" env:"TEST_COUNT"`
	Ratio    float64       `toml:"test.ratio" env:"TEST_RATIO"`
	Timeout  time.Duration `toml:"test.timeout" env:"TEST_TIMEOUT"`
	Tags     []string      `toml:"test.tags" env:"TEST_TAGS"`
	Nested   string        `toml:"outer.inner.value" env:"NESTED_VALUE"`
	Untagged string
}

func writeTOML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "framelink.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeTOML(t, `
[test]
name = "capture"
enabled = true
count = 42
ratio = 0.5
timeout = "250ms"
tags = ["a", "b"]

[outer.inner]
value = "deep"
`)
	opts := &testOptions{Config: path, Untagged: "kept"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	want := testOptions{
		Config:   path,
		Name:     "capture",
		Enabled:  true,
		Count:    42,
		Ratio:    0.5,
		Timeout:  250 * time.Millisecond,
		Tags:     []string{"a", "b"},
		Nested:   "deep",
		Untagged: "kept",
	}
	if !reflect.DeepEqual(*opts, want) {
		t.Errorf("got %+v\nwant %+v", *opts, want)
	}
}

func TestLoadConfigEnvOverridesTOML(t *testing.T) {
	path := writeTOML(t, `
[test]
name = "from-file"
count = 7
`)
	t.Setenv("FRAMELINK_TEST_NAME", "from-env")
	t.Setenv("FRAMELINK_TEST_TAGS", " x , y ")
	t.Setenv("FRAMELINK_TEST_RATIO", "1.25")

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if opts.Name != "from-env" {
		t.Errorf("Name = %q, want from-env", opts.Name)
	}
	if opts.Count != 7 {
		t.Errorf("Count = %d, want 7 from file", opts.Count)
	}
	if !reflect.DeepEqual(opts.Tags, []string{"x", "y"}) {
		t.Errorf("Tags = %v", opts.Tags)
	}
	if opts.Ratio != 1.25 {
		t.Errorf("Ratio = %v, want 1.25", opts.Ratio)
	}
}

func TestLoadConfigFlagsWin(t *testing.T) {
	path := writeTOML(t, "[test]\nname = \"from-file\"\ncount = 3\n")
	t.Setenv("FRAMELINK_TEST_COUNT", "9")

	opts := &testOptions{Config: path}
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&opts.Name, "name", "", "")
	cmd.Flags().IntVar(&opts.Count, "count", 0, "")
	if err := cmd.Flags().Parse([]string{"--name", "from-flag", "--count", "1"}); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if opts.Name != "from-flag" {
		t.Errorf("Name = %q, want from-flag", opts.Name)
	}
	if opts.Count != 1 {
		t.Errorf("Count = %d, want 1 from flag", opts.Count)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		wantErr bool
	}{
		{"missing file is fine", "", nil, false},
		{"invalid toml", "[test\nbroken", nil, true},
		{"wrong type", "[test]\ncount = \"many\"\n", nil, true},
		{"bad duration", "[test]\ntimeout = \"soon\"\n", nil, true},
		{"bad env int", "", map[string]string{"FRAMELINK_TEST_COUNT": "x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "absent.toml")
			if tt.content != "" {
				path = writeTOML(t, tt.content)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			err := LoadConfig(&testOptions{Config: path}, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadConfig error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigRejectsNonPointer(t *testing.T) {
	if err := LoadConfig(testOptions{}, nil); err == nil {
		t.Error("expected error for non-pointer options")
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"frame": map[string]any{
			"ring":  map[string]any{"size": int64(4)},
			"width": int64(1920),
		},
		"root": "value",
	}

	tests := []struct {
		path string
		want any
	}{
		{"root", "value"},
		{"frame.width", int64(1920)},
		{"frame.ring.size", int64(4)},
		{"frame.height", nil},
		{"root.child", nil},
	}
	for _, tt := range tests {
		if got := getNestedValue(data, tt.path); got != tt.want {
			t.Errorf("getNestedValue(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":                    "port",
		"FrameRingSize":           "frame-ring-size",
		"OutputPlaybackTimescale": "output-playback-timescale",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOptionsFromFile(t *testing.T) {
	path := writeTOML(t, `
[device]
simulate = true
display_mode = "720p60"

[frame]
width = 1280
height = 720
ring_size = 3

[logging]
level = "warn"
capture = "debug"
`)
	opts := &Options{Config: path, FrameWidth: 1920, FrameHeight: 1080, LoggingLevel: "info"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !opts.DeviceSimulate || opts.DeviceDisplayMode != "720p60" {
		t.Errorf("device options = %+v", opts)
	}
	if opts.FrameWidth != 1280 || opts.FrameHeight != 720 || opts.FrameRingSize != 3 {
		t.Errorf("frame options = %dx%d ring %d", opts.FrameWidth, opts.FrameHeight, opts.FrameRingSize)
	}

	lc := opts.LoggingConfig()
	if lc.Level != "warn" || lc.Modules["capture"] != "debug" {
		t.Errorf("LoggingConfig = %+v", lc)
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeTOML(t, `
[server]
port = ":9000"

[logging]
level = "debug"
format = "json"
capture = "warn"
mirror = "error"
`)
	cfg, err := LoadLoggingConfig(path)
	if err != nil {
		t.Fatalf("LoadLoggingConfig: %v", err)
	}
	if cfg.Level != "debug" || cfg.Format != "json" {
		t.Errorf("Level/Format = %q/%q", cfg.Level, cfg.Format)
	}
	want := map[string]string{"capture": "warn", "mirror": "error"}
	if !reflect.DeepEqual(cfg.Modules, want) {
		t.Errorf("Modules = %v, want %v", cfg.Modules, want)
	}

	if _, err := LoadLoggingConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}
