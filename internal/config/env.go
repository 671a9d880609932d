package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig    = "QIWIGG_CONFIG"
	EnvEmail     = "QIWIGG_EMAIL"
	EnvPassword  = "QIWIGG_PASSWORD"
	EnvChunkSize = "QIWIGG_CHUNK_SIZE"
	EnvCookieJar = "QIWIGG_COOKIE_JAR"
	EnvLogLevel  = "QIWIGG_LOG_LEVEL"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string
	Email      string
	Password   string
	ChunkSize  string
	CookieJar  string
	LogLevel   string
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify the Config; Resolve applies the fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		Email:      os.Getenv(EnvEmail),
		Password:   os.Getenv(EnvPassword),
		ChunkSize:  os.Getenv(EnvChunkSize),
		CookieJar:  os.Getenv(EnvCookieJar),
		LogLevel:   os.Getenv(EnvLogLevel),
	}
}
