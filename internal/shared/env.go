package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override config values.
const (
	EnvClientID     = "SPX_SPOTIFY_CLIENT_ID"
	EnvClientSecret = "SPX_SPOTIFY_CLIENT_SECRET"
	EnvRedirectURI  = "SPX_SPOTIFY_REDIRECT_URI"
	EnvDatabasePath = "SPX_DATABASE_PATH"
	EnvServerPort   = "SPX_SERVER_PORT"
	EnvLogLevel     = "SPX_LOG_LEVEL"
)

// LoadEnv loads variables from the given .env files into the process environment.
//
// Missing files are ignored. Variables already set in the environment win.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}

	return nil
}

// ApplyEnv overrides config values with any SPX_* environment variables that are set.
func ApplyEnv(config *Config) error {
	if v := os.Getenv(EnvClientID); v != "" {
		config.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv(EnvClientSecret); v != "" {
		config.Credentials.Spotify.ClientSecret = v
	}
	if v := os.Getenv(EnvRedirectURI); v != "" {
		config.Credentials.Spotify.RedirectURI = v
	}
	if v := os.Getenv(EnvDatabasePath); v != "" {
		config.Database.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		config.Log.Level = v
	}
	if v := os.Getenv(EnvServerPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvServerPort, v)
		}
		config.Server.Port = port
	}
	return nil
}
