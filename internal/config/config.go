// Package config loads and resolves the client configuration from its
// three layers: built-in defaults, the TOML config file, and environment
// variables, with CLI flags applied last by the caller. The config file
// also stores credentials saved by the login command.
package config

import (
	"fmt"
)

// Default values for configuration options, the "layer 0" of the
// override chain.
const (
	defaultChunkSize = "100MB"
	defaultLogLevel  = "info"
)

// Config mirrors the TOML config file.
type Config struct {
	Email     string `toml:"email"`
	Password  string `toml:"password"`
	ChunkSize string `toml:"chunk_size"`
	CookieJar string `toml:"cookie_jar"`
	LogLevel  string `toml:"log_level"`
}

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding, so unset fields retain defaults.
func DefaultConfig() *Config {
	return &Config{
		ChunkSize: defaultChunkSize,
		LogLevel:  defaultLogLevel,
	}
}

// validLogLevels are the accepted log_level values.
var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks field values that have a constrained domain.
func Validate(cfg *Config) error {
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level %q (want debug, info, warn or error)", cfg.LogLevel)
	}

	if _, err := ParseSize(cfg.ChunkSize); err != nil {
		return fmt.Errorf("invalid chunk_size: %w", err)
	}

	return nil
}

// Resolved is the effective configuration after all layers are applied.
type Resolved struct {
	Email     string
	Password  string
	ChunkSize int64 // bytes; 0 means the upload engine's default
	CookieJar string
	LogLevel  string
}
