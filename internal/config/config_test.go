package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "cadenza" {
		t.Errorf("expected Name=cadenza, got %s", cfg.Name)
	}
	if cfg.Resolver.Strategy != "pragmatic-bias" {
		t.Errorf("expected Strategy=pragmatic-bias, got %s", cfg.Resolver.Strategy)
	}
	if cfg.Store.RetentionDays != 30 {
		t.Errorf("expected RetentionDays=30, got %d", cfg.Store.RetentionDays)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("CADENZA_DB", "")
	t.Setenv("CADENZA_STRATEGY", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "cadenza.yaml")

	cfg := DefaultConfig()
	cfg.Resolver.Strategy = "ask-user"
	cfg.Catalog.Dir = "my-catalog"
	cfg.Catalog.Watch = true

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Resolver.Strategy != "ask-user" {
		t.Errorf("expected Strategy=ask-user, got %s", loaded.Resolver.Strategy)
	}
	if loaded.Catalog.Dir != "my-catalog" {
		t.Errorf("expected Catalog.Dir=my-catalog, got %s", loaded.Catalog.Dir)
	}
	if !loaded.Catalog.Watch {
		t.Error("expected Catalog.Watch=true")
	}
}

func TestConfig_LoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("CADENZA_DB", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load of missing file should not error, got: %v", err)
	}
	if cfg.Name != "cadenza" {
		t.Errorf("expected defaults, got Name=%s", cfg.Name)
	}
}

func TestConfig_LoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("store: [not: a: map"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected parse error for malformed YAML")
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("CADENZA_DB", "/tmp/override.db")
	t.Setenv("CADENZA_CATALOG_DIR", "/tmp/catalog")
	t.Setenv("CADENZA_STRATEGY", "default-wide")
	t.Setenv("CADENZA_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	if cfg.Store.Path != "/tmp/override.db" {
		t.Errorf("expected Store.Path=/tmp/override.db, got %s", cfg.Store.Path)
	}
	if cfg.Catalog.Dir != "/tmp/catalog" {
		t.Errorf("expected Catalog.Dir=/tmp/catalog, got %s", cfg.Catalog.Dir)
	}
	if cfg.Resolver.Strategy != "default-wide" {
		t.Errorf("expected Strategy=default-wide, got %s", cfg.Resolver.Strategy)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected Level=debug, got %s", cfg.Logging.Level)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}

	cfg.Resolver.Strategy = "coin-flip"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid strategy")
	}

	cfg = DefaultConfig()
	cfg.Logging.Level = "shouty"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid log level")
	}

	cfg = DefaultConfig()
	cfg.Store.RetentionDays = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for negative retention")
	}
}
