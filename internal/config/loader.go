package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".ringline"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file. RINGLINE_CONFIG
// overrides the default ~/.ringline/config.json.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("RINGLINE_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

// Load reads the config file, then overrides each group from the
// environment (RINGLINE_<GROUP>_<FIELD>). A missing file means
// defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	LoadEnvFileCandidates()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	envconfig.Process("RINGLINE_PATHS", &cfg.Paths)
	envconfig.Process("RINGLINE_BOT", &cfg.Bot)
	envconfig.Process("RINGLINE_MODEL", &cfg.Model)
	envconfig.Process("RINGLINE_ENGINE", &cfg.Engine)
	envconfig.Process("RINGLINE_SUBCONSCIOUS", &cfg.Subconscious)
	envconfig.Process("RINGLINE_OPENAI", &cfg.Providers.OpenAI)
	envconfig.Process("RINGLINE_AUDIT", &cfg.Audit)
	envconfig.Process("RINGLINE_GATEWAY", &cfg.Gateway)
	envconfig.Process("RINGLINE_HANDOFF", &cfg.Handoff)

	cfg.resolvePaths()
	return cfg, nil
}

// resolvePaths fills the sqlite file locations from DataDir when they
// were not set explicitly.
func (c *Config) resolvePaths() {
	if c.Paths.DataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Paths.DataDir = filepath.Join(home, ConfigDir)
		} else {
			c.Paths.DataDir = "."
		}
	}
	if c.Paths.CallStore == "" {
		c.Paths.CallStore = filepath.Join(c.Paths.DataDir, "calls.db")
	}
	if c.Paths.Database == "" {
		c.Paths.Database = filepath.Join(c.Paths.DataDir, "ringline.db")
	}
	if c.Paths.RecallStore == "" {
		c.Paths.RecallStore = filepath.Join(c.Paths.DataDir, "recall.db")
	}
}

// Save writes the config file with restrictive permissions.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureDir ensures a directory exists with proper permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
