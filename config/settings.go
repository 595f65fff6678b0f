// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application

package config

import (
	"fmt"
	"os"
	"strconv"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	DefaultModelPrefix = "OpenRouter/"
	DefaultPort        = 8787
	DefaultDBPath      = "orpipe.db"
)

// Settings holds all application configuration.
type Settings struct {
	// BaseURL is the OpenRouter API base URL.
	BaseURL string
	// APIKey authenticates against OpenRouter. May be empty at load time;
	// the client fails fast on first use, so read-only commands do not
	// require a key check here.
	APIKey string
	// FreeOnly restricts the model catalog to free-tier models.
	FreeOnly bool
	// ModelPrefix is prepended to catalog display names. Empty disables it.
	ModelPrefix string
	// IncludeReasoning requests reasoning tokens from models that support it.
	IncludeReasoning bool
	// Port is the HTTP listen port for the serve command.
	Port int
	// DBPath is the SQLite file backing chat session history.
	DBPath string
}

// New loads settings from environment variables, applying defaults.
// Returns an error if a variable contains an invalid value.
func New() (Settings, error) {
	freeOnly, err := getEnvBool("FREE_ONLY", false)
	if err != nil {
		return Settings{}, err
	}

	includeReasoning, err := getEnvBool("INCLUDE_REASONING", true)
	if err != nil {
		return Settings{}, err
	}

	port, err := getEnvInt("ORPIPE_PORT", DefaultPort)
	if err != nil {
		return Settings{}, err
	}
	if port <= 0 || port > 65535 {
		return Settings{}, fmt.Errorf("invalid value for ORPIPE_PORT: %d", port)
	}

	return Settings{
		BaseURL:          getEnvString("OPENROUTER_API_BASE_URL", DefaultBaseURL),
		APIKey:           os.Getenv("OPENROUTER_API_KEY"),
		FreeOnly:         freeOnly,
		ModelPrefix:      getEnvStringAllowEmpty("MODEL_PREFIX", DefaultModelPrefix),
		IncludeReasoning: includeReasoning,
		Port:             port,
		DBPath:           getEnvString("ORPIPE_DB", DefaultDBPath),
	}, nil
}

// MustNew loads settings and panics on invalid values.
// Use this only when configuration errors should be fatal.
func MustNew() Settings {
	settings, err := New()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// Environment variable helpers with proper error handling

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvStringAllowEmpty treats a set-but-empty variable as an explicit empty
// value; only an unset variable falls back to the default.
func getEnvStringAllowEmpty(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return b, nil
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}
