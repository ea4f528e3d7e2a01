// Package config loads the repo-local config.json (spec.md §6), switching
// the teacher's YAML-on-viper loader to JSON while keeping the same
// viper/mapstructure shape.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// BusConfig is the `bus` block.
type BusConfig struct {
	TickIntervalMs int `mapstructure:"tickIntervalMs"`
}

// BridgeConfig is one entry of `bridges: {<name>: {...}}`. Bridge-specific
// settings (owner/repo, tokens, etc.) are not part of this struct: the
// GitHub bridge's token, owner and repo come from the GITHUB_TOKEN,
// GITHUB_OWNER and GITHUB_REPO environment variables (internal/cli's
// registerBridges).
type BridgeConfig struct {
	Enabled        *bool  `mapstructure:"enabled"`
	Module         string `mapstructure:"module"`
	PollIntervalMs int    `mapstructure:"pollIntervalMs"`
}

// ReviewConfig is the `review` block.
type ReviewConfig struct {
	Provider string         `mapstructure:"provider"`
	Local    map[string]any `mapstructure:"local"`
	GitHub   map[string]any `mapstructure:"github"`
	Custom   map[string]any `mapstructure:"custom"`
}

// PluginEntry is one entry of `plugins: {<name>: {...}}`.
type PluginEntry struct {
	Module  string         `mapstructure:"module"`
	Config  map[string]any `mapstructure:"config"`
	Enabled *bool          `mapstructure:"enabled"`
	Targets []string       `mapstructure:"targets"`
}

// PresetEntry is one entry of `presets: {<preset>: {...}}`, composed over
// the base `plugins`/`pluginOrder` at resolve time (ResolvePlugins).
type PresetEntry struct {
	Plugins map[string]PluginEntry `mapstructure:"plugins"`
}

// Config is the full repo-local configuration (spec.md §6's config.json).
type Config struct {
	Agents               map[string]any         `mapstructure:"agents"`
	WorktreesDir         string                 `mapstructure:"worktrees_dir"`
	BaseBranch           string                 `mapstructure:"base_branch"`
	GithubPollIntervalMs int                    `mapstructure:"github_poll_interval_ms"`
	Bus                  BusConfig              `mapstructure:"bus"`
	Bridges              map[string]BridgeConfig `mapstructure:"bridges"`
	Review               ReviewConfig           `mapstructure:"review"`
	Plugins              map[string]PluginEntry `mapstructure:"plugins"`
	PluginOrder          []string               `mapstructure:"pluginOrder"`
	Presets              map[string]PresetEntry `mapstructure:"presets"`
}

// DefaultAgent returns the `agents.default` value, or "claude" if unset.
func (c *Config) DefaultAgent() string {
	if c.Agents == nil {
		return "claude"
	}
	if v, ok := c.Agents["default"].(string); ok && v != "" {
		return v
	}
	return "claude"
}

// ResolvePlugins returns the effective plugin configuration and order for
// presetName ("" selects the base configuration unmodified), overlaying
// the named preset's entries onto the base `plugins` map (spec.md §6's
// "composed at resolve time").
func (c *Config) ResolvePlugins(presetName string) (map[string]PluginEntry, []string) {
	resolved := make(map[string]PluginEntry, len(c.Plugins))
	for name, entry := range c.Plugins {
		resolved[name] = entry
	}
	order := append([]string(nil), c.PluginOrder...)

	if presetName == "" {
		return resolved, order
	}
	preset, ok := c.Presets[presetName]
	if !ok {
		return resolved, order
	}
	for name, entry := range preset.Plugins {
		if _, existed := resolved[name]; !existed {
			order = append(order, name)
		}
		resolved[name] = entry
	}
	return resolved, order
}

// Load reads <workspaceDir>/<local>/config.json, returning DefaultConfig
// if it does not exist yet.
func Load(workspaceDir, local string) (*Config, error) {
	if local == "" {
		local = ".ralphd"
	}
	configPath := filepath.Join(workspaceDir, local, "config.json")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config.json: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse config.json: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// DefaultConfig returns a config with every structurally-required default
// populated, mirroring workspace.Init's seeded config.json except for
// review.provider: Init seeds "local", while a config that leaves the
// provider unset gets the platform provider.
func DefaultConfig() *Config {
	return &Config{
		Agents:               map[string]any{"default": "claude"},
		WorktreesDir:         "../ralphd-worktrees",
		BaseBranch:           "main",
		GithubPollIntervalMs: 60000,
		Bus:                  BusConfig{TickIntervalMs: 1000},
		Bridges:              make(map[string]BridgeConfig),
		Review:               ReviewConfig{Provider: "platform"},
		Plugins:              make(map[string]PluginEntry),
		PluginOrder:          nil,
		Presets:              make(map[string]PresetEntry),
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()
	if cfg.Agents == nil {
		cfg.Agents = defaults.Agents
	}
	if cfg.WorktreesDir == "" {
		cfg.WorktreesDir = defaults.WorktreesDir
	}
	if cfg.BaseBranch == "" {
		cfg.BaseBranch = defaults.BaseBranch
	}
	if cfg.GithubPollIntervalMs == 0 {
		cfg.GithubPollIntervalMs = defaults.GithubPollIntervalMs
	}
	if cfg.Bus.TickIntervalMs == 0 {
		cfg.Bus.TickIntervalMs = defaults.Bus.TickIntervalMs
	}
	if cfg.Bridges == nil {
		cfg.Bridges = defaults.Bridges
	}
	if cfg.Review.Provider == "" {
		cfg.Review.Provider = defaults.Review.Provider
	}
	if cfg.Plugins == nil {
		cfg.Plugins = defaults.Plugins
	}
	if cfg.Presets == nil {
		cfg.Presets = defaults.Presets
	}
}
