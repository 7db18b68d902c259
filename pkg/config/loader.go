package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadYAML decodes the file at path into out. When an environment overlay
// named "<base>.<env>.yaml" sits next to it, its keys are decoded on top.
func LoadYAML(path, env string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	if env == "" || env == "base" {
		return nil
	}

	ext := filepath.Ext(path)
	overlay := path[:len(path)-len(ext)] + "." + env + ext
	data, err = os.ReadFile(overlay)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", overlay, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", overlay, err)
	}
	return nil
}

// LoadSecrets exports the keys of configDir/secrets.env into the process
// environment. Variables already set win. A missing file is not an error.
func LoadSecrets(configDir string) error {
	if configDir == "" {
		configDir = "config"
	}
	secretsFile := filepath.Join(configDir, "secrets.env")
	if _, err := os.Stat(secretsFile); err != nil {
		return nil
	}
	if err := godotenv.Load(secretsFile); err != nil {
		return fmt.Errorf("failed to load secrets.env: %w", err)
	}
	return nil
}

// GetEnv returns the environment value for key or defaultValue when unset.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetConfigEnv returns the configuration environment (CONFIG_ENV, default local).
func GetConfigEnv() string {
	return GetEnv("CONFIG_ENV", "local")
}
