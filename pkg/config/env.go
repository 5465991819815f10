package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Environment variable names
const (
	EnvBaseURL           = "ELEVENLABS_URL"
	EnvAppPath           = "ELEVENLABS_APP_PATH"
	EnvLoginPath         = "ELEVENLABS_LOGIN_PATH"
	EnvEmail             = "ELEVENLABS_EMAIL"
	EnvPassword          = "ELEVENLABS_PASSWORD"
	EnvHeadless          = "HEADLESS"
	EnvSavePath          = "IMAGEGEN_SAVE_PATH"
	EnvSessionPath       = "IMAGEGEN_SESSION_PATH"
	EnvUserDataDir       = "IMAGEGEN_USER_DATA_DIR"
	EnvNavigationTimeout = "IMAGEGEN_TIMEOUT_NAVIGATION"
	EnvGenerationTimeout = "IMAGEGEN_TIMEOUT_GENERATION"
	EnvDownloadTimeout   = "IMAGEGEN_TIMEOUT_DOWNLOAD"
	EnvPollInterval      = "IMAGEGEN_POLL_INTERVAL"
	EnvStrictAspectRatio = "IMAGEGEN_STRICT_ASPECT_RATIO"
	EnvRatePerMinute     = "IMAGEGEN_RATE_PER_MINUTE"
	EnvLogLevel          = "IMAGEGEN_LOG_LEVEL"
	EnvLogDir            = "IMAGEGEN_LOG_DIR"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays environment variables onto the receiver.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	strs := map[string]*string{
		EnvBaseURL:     &c.BaseURL,
		EnvAppPath:     &c.AppPath,
		EnvLoginPath:   &c.LoginPath,
		EnvEmail:       &c.Email,
		EnvPassword:    &c.Password,
		EnvSavePath:    &c.SavePath,
		EnvSessionPath: &c.SessionPath,
		EnvUserDataDir: &c.UserDataDir,
		EnvLogDir:      &c.Log.Dir,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = strings.ToLower(v)
	}

	durations := map[string]*Duration{
		EnvNavigationTimeout: &c.NavigationTimeout,
		EnvGenerationTimeout: &c.GenerationTimeout,
		EnvDownloadTimeout:   &c.DownloadTimeout,
		EnvPollInterval:      &c.PollInterval,
	}
	for key, dst := range durations {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
	}

	// Headless stays on unless explicitly set to "false"
	if v, ok := lookup(EnvHeadless); ok && v != "" {
		c.Headless = !strings.EqualFold(v, "false")
	}

	if v, ok := lookup(EnvStrictAspectRatio); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvStrictAspectRatio, err)
		}
		c.StrictAspectRatio = b
	}

	if v, ok := lookup(EnvRatePerMinute); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRatePerMinute, err)
		}
		c.GenerationRatePerMinute = n
	}

	return nil
}
