package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default("/tmp/data")
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.SessionMaxAge() != 30*24*time.Hour {
		t.Fatalf("unexpected session max age: %v", cfg.SessionMaxAge())
	}
	if cfg.CompleteDir() != filepath.Join(cfg.VideoDir, "complete") {
		t.Fatalf("unexpected complete dir: %s", cfg.CompleteDir())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Port = 0 }},
		{"huge port", func(c *Config) { c.Port = 70000 }},
		{"empty video dir", func(c *Config) { c.VideoDir = " " }},
		{"zero session age", func(c *Config) { c.SessionMaxAgeDays = 0 }},
		{"zero probe timeout", func(c *Config) { c.ProbeTimeoutSec = 0 }},
		{"empty transmission url", func(c *Config) { c.TransmissionURL = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("/tmp/data")
			tt.mutate(&cfg)
			if err := Validate(cfg); err == nil {
				t.Fatalf("expected validation failure")
			}
		})
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	cfg := Default(dir)
	cfg.Port = 9000
	cfg.VideoDir = "/media/library"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadOrDefault(path, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Port != 9000 || loaded.VideoDir != "/media/library" {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	loaded, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.json"), "/tmp/override")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.DataDir != "/tmp/override" {
		t.Fatalf("data dir override not applied: %s", loaded.DataDir)
	}
	if loaded.Port != 8080 {
		t.Fatalf("expected default port, got %d", loaded.Port)
	}
}
