package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Credentials are sensitive, so the config file is owner-only.
const (
	configFilePermissions = 0o600
	configDirPermissions  = 0o700
)

// configHeader is prepended to every file this package writes.
const configHeader = `# qiwigg configuration
# chunk_size accepts human-readable sizes ("100MB", "5MiB") or raw bytes.
`

// Save writes the config to path, creating the directory as needed. The
// login command uses this to persist credentials.
func Save(path string, cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return fmt.Errorf("refusing to save invalid config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp config file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, configFilePermissions); err != nil {
		tmp.Close()
		return fmt.Errorf("setting config permissions: %w", err)
	}

	if _, err := tmp.WriteString(configHeader + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}

	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing config file: %w", err)
	}

	success = true

	return nil
}
