package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// knownKeys are the valid top-level keys in the config file. Unknown
// keys are fatal: silently ignoring a typo leads to hard-to-debug
// behavior.
var knownKeys = map[string]bool{
	"email": true, "password": true, "chunk_size": true,
	"cookie_jar": true, "log_level": true,
}

// Load reads and parses a TOML config file, validates it, and returns
// the resulting Config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values. This supports the
// zero-config first run: credentials can come from flags or environment.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

func checkUnknownKeys(md *toml.MetaData) error {
	var unknown []string

	for _, key := range md.Undecoded() {
		name := key.String()
		if !knownKeys[name] {
			unknown = append(unknown, name)
		}
	}

	if len(unknown) == 0 {
		return nil
	}

	sort.Strings(unknown)

	return fmt.Errorf("unknown keys: %s", strings.Join(unknown, ", "))
}

// CLIOverrides holds values from command-line flags. Pointer fields
// distinguish "not specified" from an explicit zero value.
type CLIOverrides struct {
	ConfigPath string
	Email      string
	Password   string
	ChunkSize  *int64
	CookieJar  string
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
// The precedence order ensures CLI flags always win, matching user
// expectations for one-off overrides without editing the config file.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	if env.Email != "" {
		cfg.Email = env.Email
	}

	if env.Password != "" {
		cfg.Password = env.Password
	}

	if env.ChunkSize != "" {
		cfg.ChunkSize = env.ChunkSize
	}

	if env.CookieJar != "" {
		cfg.CookieJar = env.CookieJar
	}

	if env.LogLevel != "" {
		cfg.LogLevel = env.LogLevel
	}

	if cli.Email != "" {
		cfg.Email = cli.Email
	}

	if cli.Password != "" {
		cfg.Password = cli.Password
	}

	if cli.CookieJar != "" {
		cfg.CookieJar = cli.CookieJar
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	chunkSize, err := ParseSize(cfg.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("invalid chunk_size: %w", err)
	}

	if cli.ChunkSize != nil {
		chunkSize = *cli.ChunkSize
	}

	cookieJar := cfg.CookieJar
	if cookieJar == "" {
		cookieJar = DefaultCookieJarPath()
	}

	return &Resolved{
		Email:     cfg.Email,
		Password:  cfg.Password,
		ChunkSize: chunkSize,
		CookieJar: cookieJar,
		LogLevel:  cfg.LogLevel,
	}, nil
}
