package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Store.SQLitePath != "iidp.db" {
		t.Errorf("Store.SQLitePath = %q, want %q", cfg.Store.SQLitePath, "iidp.db")
	}
	if cfg.Engine.RecentWindowDays != 30 {
		t.Errorf("Engine.RecentWindowDays = %d, want 30", cfg.Engine.RecentWindowDays)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should default to true")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("Load(missing) = %+v, want defaults", cfg)
	}
}

func TestLoad_PartialFileOverridesOnlySetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "iidp.toml")
	contents := "[server]\nport = 9090\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want default %q (unset by file)", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Store.SQLitePath != "iidp.db" {
		t.Errorf("Store.SQLitePath = %q, want default (unset by file)", cfg.Store.SQLitePath)
	}
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("Load(\"\") = %+v, want defaults", cfg)
	}
}
