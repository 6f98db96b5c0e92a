package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	StoreAddr     string `json:"store_addr"`
	StorePassword string `json:"store_password"`
	StoreDB       int    `json:"store_db"`
	AppID         string `json:"app_id"`
	IdentityPath  string `json:"identity_path"`
	CachePath     string `json:"cache_path"`
	WebEnabled    bool   `json:"web_enabled"`
	WebPort       int    `json:"web_port"`
}

func Default() Config {
	return Config{AppID: "mi-agenda", WebPort: 8080}
}

// Configured reports whether the remote store can be reached at all.
// Without a store address the app stays in its "configuring" state.
func (c Config) Configured() bool {
	return c.StoreAddr != ""
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "agenda", "config.json"), nil
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func Load(path string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return Config{}, err
	}

	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return config, nil
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
