package config

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppID != "mi-agenda" {
		t.Fatalf("expected default app id, got %q", cfg.AppID)
	}
	if cfg.WebPort != 8080 {
		t.Fatalf("expected default web port, got %d", cfg.WebPort)
	}
	if cfg.Configured() {
		t.Fatalf("expected defaults to be unconfigured")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	want := Config{
		StoreAddr:  "localhost:6379",
		StoreDB:    3,
		AppID:      "agenda-test",
		WebEnabled: true,
		WebPort:    9090,
	}
	if err := Save(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if !got.Configured() {
		t.Fatalf("expected a store address to mean configured")
	}
}
