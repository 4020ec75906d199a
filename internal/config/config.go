// Package config loads the tool configuration from JSONC files with a
// fixed precedence chain.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// Config errors.
var (
	ErrInvalid       = errors.New("invalid config")
	ErrFileNotFound  = errors.New("config file not found")
	ErrCacheDirEmpty = errors.New("cache_dir must not be empty")
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	Roots      []string `json:"roots"`
	CacheDir   string   `json:"cache_dir"`
	LogLevel   string   `json:"log_level,omitempty"`
	LogFile    string   `json:"log_file,omitempty"`
	DebounceMS int      `json:"watch_debounce_ms,omitempty"`

	// Resolved paths (computed, not serialized)
	EffectiveCwd string `json:"-"`
	CacheDirAbs  string `json:"-"`

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string
	Project string
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		CacheDir:   ".songlib-cache",
		LogLevel:   "info",
		DebounceMS: 500,
	}
}

// FileName is the default project config file name.
const FileName = ".songlib.json"

// globalPath returns the global config path:
// $XDG_CONFIG_HOME/songlib/config.json or ~/.config/songlib/config.json.
// Empty when no home directory can be determined.
func globalPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "songlib", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "songlib", "config.json")
	}

	return ""
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDirOverride  string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath       string            // -c/--config flag value
	RootsOverride    []string          // --root flag values; nil means no override
	CacheDirOverride string            // --cache-dir flag value; empty means no override
	Env              map[string]string // environment variables
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config ($XDG_CONFIG_HOME/songlib/config.json)
// 3. Project config file at default location (.songlib.json, if exists)
// 4. Explicit config file via ConfigPath (if non-empty)
// 5. CLI overrides.
//
// A file that sets "roots" replaces the inherited list entirely, including
// an explicitly empty list; a file that omits the key inherits. All paths
// in the returned Config are resolved to absolute paths.
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := Default()

	globalCfg, loadedGlobal, err := loadFile(globalPath(input.Env), false)
	if err != nil {
		return Config{}, err
	}

	if loadedGlobal {
		cfg.Sources.Global = globalCfg.path
		cfg = merge(cfg, globalCfg)
	}

	projectCfg, loadedProject, err := loadProjectFile(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	if loadedProject {
		cfg.Sources.Project = projectCfg.path
		cfg = merge(cfg, projectCfg)
	}

	if input.RootsOverride != nil {
		cfg.Roots = append([]string(nil), input.RootsOverride...)
	}

	if input.CacheDirOverride != "" {
		cfg.CacheDir = input.CacheDirOverride
	}

	if cfg.CacheDir == "" {
		return Config{}, ErrCacheDirEmpty
	}

	cfg.EffectiveCwd = workDir

	if filepath.IsAbs(cfg.CacheDir) {
		cfg.CacheDirAbs = cfg.CacheDir
	} else {
		cfg.CacheDirAbs = filepath.Join(workDir, cfg.CacheDir)
	}

	// Roots are cleaned so the same directory always resolves to the same
	// cache file, however it was spelled.
	for i, root := range cfg.Roots {
		if filepath.IsAbs(root) {
			cfg.Roots[i] = filepath.Clean(root)
		} else {
			cfg.Roots[i] = filepath.Join(workDir, root)
		}
	}

	return cfg, nil
}

// fileConfig is one parsed config file plus which keys it actually set.
type fileConfig struct {
	Config

	path     string
	setRoots bool
}

func loadProjectFile(workDir, configPath string) (fileConfig, bool, error) {
	if configPath != "" {
		path := configPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}

		if _, statErr := os.Stat(path); statErr != nil {
			return fileConfig{}, false, fmt.Errorf("%w: %s", ErrFileNotFound, configPath)
		}

		return loadFile(path, true)
	}

	return loadFile(filepath.Join(workDir, FileName), false)
}

// loadFile parses one config file. When mustExist is false a missing file
// is not an error; the second return reports whether anything was loaded.
func loadFile(path string, mustExist bool) (fileConfig, bool, error) {
	if path == "" {
		return fileConfig{}, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if mustExist {
			return fileConfig{}, false, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}

		return fileConfig{}, false, nil
	}

	parsed, err := parse(data)
	if err != nil {
		return fileConfig{}, false, fmt.Errorf("%w %s: %w", ErrInvalid, path, err)
	}

	parsed.path = path

	return parsed, true, nil
}

func parse(data []byte) (fileConfig, error) {
	// Standardize JSONC to JSON
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg fileConfig
	if err := json.Unmarshal(standardized, &cfg.Config); err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSON: %w", err)
	}

	// An explicitly empty roots list means "no roots", which is different
	// from omitting the key, so key presence is tracked separately.
	var raw map[string]json.RawMessage

	_ = json.Unmarshal(standardized, &raw)

	_, cfg.setRoots = raw["roots"]

	return cfg, nil
}

func merge(base Config, overlay fileConfig) Config {
	if overlay.setRoots {
		base.Roots = append([]string(nil), overlay.Roots...)
	}

	if overlay.CacheDir != "" {
		base.CacheDir = overlay.CacheDir
	}

	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}

	if overlay.LogFile != "" {
		base.LogFile = overlay.LogFile
	}

	if overlay.DebounceMS != 0 {
		base.DebounceMS = overlay.DebounceMS
	}

	return base
}
