package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
email = "user@example.com"
password = "hunter2"
chunk_size = "50MB"
log_level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", cfg.Email)
	assert.Equal(t, "hunter2", cfg.Password)
	assert.Equal(t, "50MB", cfg.ChunkSize)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Empty(t, cfg.CookieJar)
}

func TestLoad_DefaultsRetained(t *testing.T) {
	path := writeConfig(t, `email = "user@example.com"`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, defaultChunkSize, cfg.ChunkSize)
	assert.Equal(t, defaultLogLevel, cfg.LogLevel)
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeConfig(t, `chunk_sze = "50MB"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keys: chunk_sze")
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `log_level = "loud"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nonexistent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestResolve_Precedence(t *testing.T) {
	path := writeConfig(t, `
email = "file@example.com"
password = "file-pass"
chunk_size = "10MB"
`)

	env := EnvOverrides{Email: "env@example.com", ChunkSize: "20MB"}

	cliChunk := int64(30_000_000)
	cli := CLIOverrides{
		ConfigPath: path,
		Email:      "cli@example.com",
		ChunkSize:  &cliChunk,
	}

	resolved, err := Resolve(env, cli)
	require.NoError(t, err)

	assert.Equal(t, "cli@example.com", resolved.Email, "CLI beats env beats file")
	assert.Equal(t, "file-pass", resolved.Password, "file value survives when nothing overrides it")
	assert.Equal(t, int64(30_000_000), resolved.ChunkSize)
}

func TestResolve_EnvOnly(t *testing.T) {
	path := writeConfig(t, `chunk_size = "10MB"`)

	resolved, err := Resolve(EnvOverrides{ChunkSize: "15MB"}, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, int64(15*megabyte), resolved.ChunkSize)
}

func TestResolve_DefaultCookieJar(t *testing.T) {
	path := writeConfig(t, ``)

	resolved, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)
	assert.NotEmpty(t, resolved.CookieJar)
	assert.Equal(t, cookieJarFileName, filepath.Base(resolved.CookieJar))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := DefaultConfig()
	cfg.Email = "user@example.com"
	cfg.Password = "hunter2"

	require.NoError(t, Save(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "credentials demand owner-only perms")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSave_RejectsInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "loud"

	err := Save(filepath.Join(t.TempDir(), "config.toml"), cfg)
	require.Error(t, err)
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"0", 0},
		{"12345", 12345},
		{"5MB", 5 * megabyte},
		{"5MiB", 5 * mebibyte},
		{"1.5GB", 1_500_000_000},
		{"100kb", 100 * kilobyte},
		{"2GiB", 2 * gibibyte},
		{"512B", 512},
	}

	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}

	for _, bad := range []string{"abc", "-5MB", "MB", "1.2.3GB"} {
		_, err := ParseSize(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
