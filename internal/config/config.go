// Package config loads and validates the browser's configuration: display
// defaults, per-extension verb overrides, and UI theme selection, merged
// from a packaged default, an XDG config file, and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the root configuration structure.
type Config struct {
	Tree     TreeConfig     `koanf:"tree" json:"tree"`
	UI       UIConfig       `koanf:"ui" json:"ui"`
	GitStatus GitStatusConfig `koanf:"gitStatus" json:"gitStatus"`
	Keymap   KeymapConfig   `koanf:"keymap" json:"keymap"`
	Net      NetConfig      `koanf:"net" json:"net"`
	FileSum  FileSumConfig  `koanf:"fileSum" json:"fileSum"`

	// Verbs declares user-defined external verbs layered on top of the
	// built-in registry.
	Verbs []VerbConfig `koanf:"verbs" json:"verbs"`

	// SearchModes rebinds pattern-input prefixes (the text before the
	// first "/") to search modes, e.g. {"f": "content-exact"}.
	SearchModes map[string]string `koanf:"searchModes" json:"searchModes"`

	// SpecialPaths forces listing behavior per path prefix:
	// "always", "never", or "default".
	SpecialPaths map[string]string `koanf:"specialPaths" json:"specialPaths"`
}

// VerbConfig declares one user-defined verb: a name (optionally carrying
// a {placeholder}), a shell template, and how it runs.
type VerbConfig struct {
	Name        string `koanf:"name" json:"name"`
	Key         string `koanf:"key" json:"key"`
	Execution   string `koanf:"execution" json:"execution"`
	FromShell   bool   `koanf:"fromShell" json:"fromShell"` // write to --outcmd for the wrapper shell instead of running directly
	Confirm     bool   `koanf:"confirm" json:"confirm"`     // require the :name! bang form
	Description string `koanf:"description" json:"description"`
}

// FileSumConfig sizes the shared directory-sum worker pool.
type FileSumConfig struct {
	Threads int `koanf:"threads" json:"threads" validate:"gte=0,lte=64"`
}

// TreeConfig controls the default tree-build behavior.
type TreeConfig struct {
	ShowHidden      bool `koanf:"showHidden" json:"showHidden"`
	ShowGitIgnored  bool `koanf:"showGitIgnored" json:"showGitIgnored"`
	ShowSizes       bool `koanf:"showSizes" json:"showSizes"`
	ShowCounts      bool `koanf:"showCounts" json:"showCounts"`
	ShowDates       bool `koanf:"showDates" json:"showDates"`
	ShowPermissions bool `koanf:"showPermissions" json:"showPermissions"`
	ShowGitStatus   bool `koanf:"showGitStatus" json:"showGitStatus"`
	ShowRootFs      bool `koanf:"showRootFs" json:"showRootFs"`
	TrimRoot        bool `koanf:"trimRoot" json:"trimRoot"`
	OnlyFolders     bool `koanf:"onlyFolders" json:"onlyFolders"`
	Sort            int  `koanf:"sort" json:"sort"` // tree.SortKind value
	TargetedSize    int  `koanf:"targetedSize" json:"targetedSize" validate:"gte=10,lte=100000"`
}

// UIConfig configures UI appearance.
type UIConfig struct {
	ShowFooter bool   `koanf:"showFooter" json:"showFooter"`
	Theme      string `koanf:"theme" json:"theme" validate:"oneof=default dark light"`
	MouseEnabled bool `koanf:"mouseEnabled" json:"mouseEnabled"`
}

// GitStatusConfig controls the git status panel's refresh cadence.
type GitStatusConfig struct {
	Enabled         bool `koanf:"enabled" json:"enabled"`
	RefreshMillis   int  `koanf:"refreshMillis" json:"refreshMillis" validate:"gte=100"`
}

// KeymapConfig holds key binding overrides, key name to verb name.
type KeymapConfig struct {
	Overrides map[string]string `koanf:"overrides" json:"overrides"`
}

// NetConfig controls the optional unix-socket control server.
type NetConfig struct {
	Enabled    bool   `koanf:"enabled" json:"enabled"`
	SocketPath string `koanf:"socketPath" json:"socketPath"`
}

// Default returns the built-in configuration, used as the base layer
// before any file or environment overrides are merged in.
func Default() *Config {
	return &Config{
		Tree: TreeConfig{
			ShowHidden:    false,
			ShowSizes:     false,
			ShowCounts:    false,
			ShowDates:     false,
			ShowGitStatus: true,
			OnlyFolders:   false,
			Sort:          0, // tree.SortNone
			TargetedSize:  200,
			ShowGitIgnored:  false,
			ShowPermissions: false,
			TrimRoot:        false,
		},
		UI: UIConfig{
			ShowFooter:   true,
			Theme:        "default",
			MouseEnabled: true,
		},
		GitStatus: GitStatusConfig{
			Enabled:       true,
			RefreshMillis: 1000,
		},
		Keymap:       KeymapConfig{Overrides: map[string]string{}},
		Net:          NetConfig{Enabled: false},
		FileSum:      FileSumConfig{Threads: 4},
		SearchModes:  map[string]string{},
		SpecialPaths: map[string]string{},
	}
}

// ConfigFilePath returns the XDG-resolved path of the user's config file,
// creating no file — callers decide whether to read or seed it.
func ConfigFilePath() (string, error) {
	return xdg.ConfigFile("arbor/config.json")
}

// Load builds a Config by layering, in order: built-in defaults, the config
// file at path (the XDG one when path is empty), if present, then
// ARBOR_-prefixed environment variables.
// A missing config file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := Default()
	if err := k.Load(confmap.Provider(structAsMap(defaults), "."), nil); err != nil {
		return nil, fmt.Errorf("config: loading defaults: %w", err)
	}

	if path == "" {
		var err error
		path, err = ConfigFilePath()
		if err != nil {
			return nil, fmt.Errorf("config: resolving xdg path: %w", err)
		}
	}
	if err := k.Load(file.Provider(path), json.Parser()); err != nil {
		// A missing file is fine; any other error (bad JSON, permissions)
		// is surfaced.
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("ARBOR_", ".", envKeyMap), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

func envKeyMap(s string) string {
	return s
}

func structAsMap(cfg *Config) map[string]any {
	return map[string]any{
		"tree": map[string]any{
			"showHidden":      cfg.Tree.ShowHidden,
			"showGitIgnored":  cfg.Tree.ShowGitIgnored,
			"showSizes":       cfg.Tree.ShowSizes,
			"showCounts":      cfg.Tree.ShowCounts,
			"showDates":       cfg.Tree.ShowDates,
			"showPermissions": cfg.Tree.ShowPermissions,
			"showGitStatus":   cfg.Tree.ShowGitStatus,
			"showRootFs":      cfg.Tree.ShowRootFs,
			"trimRoot":        cfg.Tree.TrimRoot,
			"onlyFolders":     cfg.Tree.OnlyFolders,
			"sort":            cfg.Tree.Sort,
			"targetedSize":    cfg.Tree.TargetedSize,
		},
		"ui": map[string]any{
			"showFooter":   cfg.UI.ShowFooter,
			"theme":        cfg.UI.Theme,
			"mouseEnabled": cfg.UI.MouseEnabled,
		},
		"gitStatus": map[string]any{
			"enabled":       cfg.GitStatus.Enabled,
			"refreshMillis": cfg.GitStatus.RefreshMillis,
		},
		"keymap": map[string]any{
			"overrides": cfg.Keymap.Overrides,
		},
		"net": map[string]any{
			"enabled":    cfg.Net.Enabled,
			"socketPath": cfg.Net.SocketPath,
		},
		"fileSum": map[string]any{
			"threads": cfg.FileSum.Threads,
		},
		"searchModes":  cfg.SearchModes,
		"specialPaths": cfg.SpecialPaths,
	}
}
