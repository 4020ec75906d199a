package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()

	cfg, err := Load(LoadInput{WorkDirOverride: workDir, Env: map[string]string{}})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.CacheDir != ".songlib-cache" || cfg.LogLevel != "info" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}

	if cfg.CacheDirAbs != filepath.Join(workDir, ".songlib-cache") {
		t.Errorf("CacheDirAbs = %q", cfg.CacheDirAbs)
	}

	if len(cfg.Roots) != 0 {
		t.Errorf("expected no default roots, got %v", cfg.Roots)
	}
}

func TestLoadPrecedenceChain(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	workDir := t.TempDir()

	// JSONC comments and trailing commas must parse.
	writeConfig(t, filepath.Join(home, "songlib", "config.json"), `{
		// global settings
		"roots": ["/global/library"],
		"log_level": "debug",
	}`)

	writeConfig(t, filepath.Join(workDir, FileName), `{
		"cache_dir": "project-cache"
	}`)

	cfg, err := Load(LoadInput{
		WorkDirOverride: workDir,
		Env:             map[string]string{"XDG_CONFIG_HOME": home},
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Global set roots and level, project set cache dir, neither clobbers
	// the other.
	if len(cfg.Roots) != 1 || cfg.Roots[0] != "/global/library" {
		t.Errorf("roots = %v", cfg.Roots)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q", cfg.LogLevel)
	}

	if cfg.CacheDir != "project-cache" {
		t.Errorf("cache_dir = %q", cfg.CacheDir)
	}

	if cfg.Sources.Global == "" || cfg.Sources.Project == "" {
		t.Errorf("sources not tracked: %+v", cfg.Sources)
	}
}

func TestLoadExplicitEmptyRootsClears(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	workDir := t.TempDir()

	writeConfig(t, filepath.Join(home, "songlib", "config.json"), `{"roots": ["/global/library"]}`)
	writeConfig(t, filepath.Join(workDir, FileName), `{"roots": []}`)

	cfg, err := Load(LoadInput{
		WorkDirOverride: workDir,
		Env:             map[string]string{"XDG_CONFIG_HOME": home},
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Roots) != 0 {
		t.Errorf("explicit empty roots should clear inherited list, got %v", cfg.Roots)
	}
}

func TestLoadCLIOverridesWin(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()

	writeConfig(t, filepath.Join(workDir, FileName), `{"roots": ["/from/file"], "cache_dir": "file-cache"}`)

	cfg, err := Load(LoadInput{
		WorkDirOverride:  workDir,
		RootsOverride:    []string{"/from/flag"},
		CacheDirOverride: "flag-cache",
		Env:              map[string]string{},
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Roots) != 1 || cfg.Roots[0] != "/from/flag" {
		t.Errorf("roots = %v", cfg.Roots)
	}

	if cfg.CacheDir != "flag-cache" {
		t.Errorf("cache_dir = %q", cfg.CacheDir)
	}
}

func TestLoadRelativeRootsResolved(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()

	writeConfig(t, filepath.Join(workDir, FileName), `{"roots": ["library"]}`)

	cfg, err := Load(LoadInput{WorkDirOverride: workDir, Env: map[string]string{}})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Roots[0] != filepath.Join(workDir, "library") {
		t.Errorf("relative root not resolved: %q", cfg.Roots[0])
	}
}

func TestLoadExplicitConfigMustExist(t *testing.T) {
	t.Parallel()

	_, err := Load(LoadInput{
		WorkDirOverride: t.TempDir(),
		ConfigPath:      "nope.json",
		Env:             map[string]string{},
	})
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}

func TestLoadMalformedConfig(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	writeConfig(t, filepath.Join(workDir, FileName), `{"roots": "not a list"}`)

	_, err := Load(LoadInput{WorkDirOverride: workDir, Env: map[string]string{}})
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestLoadEmptyCacheDirInheritsDefault(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	writeConfig(t, filepath.Join(workDir, FileName), `{"cache_dir": ""}`)

	// An omitted cache_dir inherits the default; only the CLI can force
	// emptiness, which is rejected.
	cfg, err := Load(LoadInput{WorkDirOverride: workDir, Env: map[string]string{}})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.CacheDir != ".songlib-cache" {
		t.Errorf("cache_dir = %q", cfg.CacheDir)
	}
}
