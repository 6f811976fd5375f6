package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/neubell/llm-meter/internal/core"
)

// Config is the on-disk configuration. The refresh path treats a loaded
// Config as an immutable value snapshot; only the UI mutates and saves it.
type Config struct {
	RefreshSeconds   int                              `json:"refresh_seconds"`
	EnabledProviders []string                         `json:"enabled_providers"`
	ProviderSettings map[string]core.ProviderSettings `json:"provider_settings"`
	PricingOverrides []core.PricingOverride           `json:"pricing_overrides"`
}

func Default() Config {
	return Config{
		RefreshSeconds:   60,
		ProviderSettings: make(map[string]core.ProviderSettings),
	}
}

// ProviderEnabled reports whether the provider appears in the enabled list,
// matching case-insensitively.
func (c Config) ProviderEnabled(provider string) bool {
	normalized := core.NormalizeProviderName(provider)
	for _, p := range c.EnabledProviders {
		if core.NormalizeProviderName(p) == normalized {
			return true
		}
	}
	return false
}

// SettingsFor returns the provider's settings, or zero settings when none
// are configured.
func (c Config) SettingsFor(provider string) core.ProviderSettings {
	return c.ProviderSettings[core.NormalizeProviderName(provider)]
}

// SetProvider records the provider's settings and enabled state in one step.
func (c *Config) SetProvider(provider string, enabled bool, settings core.ProviderSettings) {
	normalized := core.NormalizeProviderName(provider)
	if c.ProviderSettings == nil {
		c.ProviderSettings = make(map[string]core.ProviderSettings)
	}
	c.ProviderSettings[normalized] = settings
	c.SetProviderEnabled(normalized, enabled)
}

// SetProviderEnabled adds or removes the provider from the enabled list.
func (c *Config) SetProviderEnabled(provider string, enabled bool) {
	normalized := core.NormalizeProviderName(provider)
	var list []string
	for _, p := range c.EnabledProviders {
		if core.NormalizeProviderName(p) != normalized {
			list = append(list, p)
		}
	}
	if enabled {
		list = append(list, normalized)
	}
	c.EnabledProviders = list
}

// RemoveProvider drops the provider from the enabled list and discards its
// settings. Pricing overrides are left alone.
func (c *Config) RemoveProvider(provider string) {
	normalized := core.NormalizeProviderName(provider)
	c.SetProviderEnabled(normalized, false)
	delete(c.ProviderSettings, normalized)
}

// Dir resolves the app home. LLM_METER_HOME overrides everything, for tests
// and portable setups.
func Dir() string {
	if custom := os.Getenv("LLM_METER_HOME"); custom != "" {
		return custom
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "llm-meter")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "llm-meter")
}

func Path() string {
	return filepath.Join(Dir(), "config.json")
}

// DBPath is where the snapshot store lives.
func DBPath() string {
	return filepath.Join(Dir(), "data", "snapshots.sqlite")
}

func Load() (Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads and normalizes the config. Provider names are trimmed,
// lowercased, and deduped everywhere they appear; when normalization
// changed anything the file is rewritten so later loads are stable.
func LoadFrom(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if cfg.RefreshSeconds <= 0 {
		cfg.RefreshSeconds = 60
	}
	if cfg.ProviderSettings == nil {
		cfg.ProviderSettings = make(map[string]core.ProviderSettings)
	}

	if normalize(&cfg) {
		if err := SaveTo(path, cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// normalize rewrites provider names in place and reports whether anything
// changed.
func normalize(cfg *Config) bool {
	changed := false

	var enabled []string
	for _, provider := range cfg.EnabledProviders {
		normalized := core.NormalizeProviderName(provider)
		if normalized != provider {
			changed = true
		}
		dup := false
		for _, p := range enabled {
			if p == normalized {
				dup = true
				break
			}
		}
		if dup {
			changed = true
			continue
		}
		enabled = append(enabled, normalized)
	}
	cfg.EnabledProviders = enabled

	settings := make(map[string]core.ProviderSettings, len(cfg.ProviderSettings))
	for provider, s := range cfg.ProviderSettings {
		normalized := core.NormalizeProviderName(provider)
		if normalized != provider {
			changed = true
		}
		settings[normalized] = s
	}
	cfg.ProviderSettings = settings

	for i := range cfg.PricingOverrides {
		normalized := core.NormalizeProviderName(cfg.PricingOverrides[i].Provider)
		if normalized != cfg.PricingOverrides[i].Provider {
			cfg.PricingOverrides[i].Provider = normalized
			changed = true
		}
	}

	return changed
}

// saveMu guards read-modify-write cycles on the config file.
var saveMu sync.Mutex

func Save(cfg Config) error {
	return SaveTo(Path(), cfg)
}

func SaveTo(path string, cfg Config) error {
	saveMu.Lock()
	defer saveMu.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshaling: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

// EnsureInitialized creates the config/data directories and writes a
// default config file when none exists.
func EnsureInitialized() error {
	if err := os.MkdirAll(filepath.Dir(DBPath()), 0o755); err != nil {
		return fmt.Errorf("config: creating data dir: %w", err)
	}
	if _, err := os.Stat(Path()); os.IsNotExist(err) {
		return Save(Default())
	}
	return nil
}
