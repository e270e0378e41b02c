// Package config persists user-level connection preferences and the
// discovered-hub cache. The core treats the settings as an opaque
// record; nothing here participates in protocol state.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	configDirName  = ".rrc-client"
	configFileName = "config.toml"

	// maxConfigSize guards against loading a corrupted or hostile file.
	maxConfigSize = 1 << 20
)

// Config is the persisted connection preference record.
type Config struct {
	// BackendURL is the WebSocket address of the chat backend.
	BackendURL string `toml:"backend_url"`

	// IdentityPath locates the identity key file.
	IdentityPath string `toml:"identity_path"`

	// DestName is the hub destination aspect.
	DestName string `toml:"dest_name"`

	// HubHash selects the hub to connect to.
	HubHash string `toml:"hub_hash"`

	Nickname     string `toml:"nickname"`
	AutoJoinRoom string `toml:"auto_join_room"`
	Debug        bool   `toml:"debug"`
}

// DefaultDir returns the per-user configuration directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return configDirName
	}
	return filepath.Join(home, configDirName)
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), configFileName)
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BackendURL:   "ws://localhost:8080/ws",
		IdentityPath: filepath.Join(DefaultDir(), "identity"),
		DestName:     "rrc.hub",
	}
}

// Load reads the config file at path, applying defaults for missing
// fields. A missing file is not an error; it yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if info.Size() > maxConfigSize {
		return cfg, fmt.Errorf("failed to read config %s: file too large (%d bytes)", path, info.Size())
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.BackendURL == "" {
		cfg.BackendURL = Default().BackendURL
	}
	if cfg.DestName == "" {
		cfg.DestName = Default().DestName
	}
	return cfg, nil
}

// Save writes the config file, creating the directory as needed. The
// file holds connection preferences only, but the identity path in it
// is sensitive enough to keep it owner-readable.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config %s: %w", path, err)
	}
	return nil
}
