package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mbocsi/lunalink/media"
	"github.com/mbocsi/lunalink/proto"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Link.Latency != 1280*time.Millisecond {
		t.Errorf("Expected latency 1.28s, got %v", cfg.Link.Latency)
	}
	if cfg.Link.ReadChunk != 512 {
		t.Errorf("Expected read chunk 512, got %d", cfg.Link.ReadChunk)
	}
	if cfg.Rover.Listen != "0.0.0.0:12345" {
		t.Errorf("Expected listen 0.0.0.0:12345, got %s", cfg.Rover.Listen)
	}
	if cfg.Rover.Camera.Width != 640 || cfg.Rover.Camera.Height != 480 {
		t.Errorf("Expected 640x480, got %dx%d", cfg.Rover.Camera.Width, cfg.Rover.Camera.Height)
	}
	if cfg.Rover.JPEGQuality != 50 {
		t.Errorf("Expected quality 50, got %d", cfg.Rover.JPEGQuality)
	}
	if cfg.Earth.SaveQuality != media.DefaultQuality {
		t.Errorf("Expected save quality %d, got %d", media.DefaultQuality, cfg.Earth.SaveQuality)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
	if cfg.WireMode() != proto.ModeRaw {
		t.Errorf("Expected raw mode, got %s", cfg.WireMode())
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lunalink.yaml")
	content := `
link:
  latency: 250ms
  mode: tagged
rover:
  listen: 127.0.0.1:9000
  camera:
    device: test
earth:
  display: dir
  script: [START_VIDEO, STOP]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Link.Latency != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %v", cfg.Link.Latency)
	}
	if cfg.WireMode() != proto.ModeTagged {
		t.Errorf("Expected tagged mode, got %s", cfg.Link.Mode)
	}
	if cfg.Rover.Listen != "127.0.0.1:9000" || cfg.Rover.Camera.Device != "test" {
		t.Errorf("Unexpected rover config: %+v", cfg.Rover)
	}
	// untouched keys keep their defaults
	if cfg.Rover.Camera.Width != 640 || cfg.Link.ReadChunk != 512 {
		t.Error("Expected defaults for keys missing from the file")
	}
	if len(cfg.Earth.Script) != 2 || cfg.Earth.Script[0] != "START_VIDEO" {
		t.Errorf("Unexpected script: %v", cfg.Earth.Script)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("link: [unclosed"), 0o644)
	if _, err := Load(path); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestParse_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lunalink.yaml")
	os.WriteFile(path, []byte("link:\n  latency: 2s\nrover:\n  max_clients: 3\n  camera:\n    device: test\n"), 0o644)

	args := []string{"--latency", "0s", "--config", path, "--camera", "none"}
	cfg, _, err := Parse("rover", args, (*Config).BindRoverFlags)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Link.Latency != 0 {
		t.Errorf("Expected flag to override file latency, got %v", cfg.Link.Latency)
	}
	if cfg.Rover.MaxClients != 3 {
		t.Errorf("Expected max clients from file, got %d", cfg.Rover.MaxClients)
	}
	if cfg.Rover.Camera.Device != "none" {
		t.Errorf("Expected camera none, got %s", cfg.Rover.Camera.Device)
	}
}

func TestParse_ScriptFlag(t *testing.T) {
	cfg, _, err := Parse("earth", []string{"--operator", "script", "--script", "START_VIDEO,STOP"}, (*Config).BindEarthFlags)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(cfg.Earth.Script) != 2 || cfg.Earth.Script[1] != "STOP" {
		t.Errorf("Unexpected script: %v", cfg.Earth.Script)
	}
}

func TestParse_SaveQualityIsEarthSide(t *testing.T) {
	cfg, _, err := Parse("earth", []string{"--display", "dir", "--save-quality", "85"}, (*Config).BindEarthFlags)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Earth.SaveQuality != 85 {
		t.Errorf("Expected save quality 85, got %d", cfg.Earth.SaveQuality)
	}
	if cfg.Rover.JPEGQuality != 50 {
		t.Errorf("Expected rover quality untouched, got %d", cfg.Rover.JPEGQuality)
	}

	if _, _, err := Parse("earth", []string{"--save-quality", "0"}, (*Config).BindEarthFlags); err == nil {
		t.Error("Expected validation error for save quality 0")
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, _, err := Parse("rover", []string{"--mode", "pickle"}, (*Config).BindRoverFlags); err == nil {
		t.Error("Expected validation error")
	}
	if _, _, err := Parse("rover", []string{"--no-such-flag"}, (*Config).BindRoverFlags); err == nil {
		t.Error("Expected error for unknown flag")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Link.ReadChunk = 0
	cfg.Link.Mode = "pickle"
	cfg.Earth.Display = "hologram"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	for _, want := range []string{"read_chunk", "pickle", "hologram"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected error to mention %q, got %v", want, err)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Format: "json", Output: &buf})
	logger.Info("hidden")
	logger.Warn("shown", "addr", "x")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Expected info record to be filtered")
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("Expected JSON warn record, got %s", out)
	}

	buf.Reset()
	NewLogger(LogConfig{Output: &buf, Quiet: true}).Error("nothing")
	if buf.Len() != 0 {
		t.Error("Expected quiet logger to discard output")
	}

	if ParseLevel("DEBUG") != slog.LevelDebug {
		t.Error("Expected debug level")
	}
}
