package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every setting the server and CLI consume.
type Config struct {
	// Target site
	BaseURL        string `yaml:"base_url" json:"base_url"`
	AppPath        string `yaml:"app_path" json:"app_path"`
	LoginPath      string `yaml:"login_path" json:"login_path"`
	SignInPattern  string `yaml:"sign_in_pattern" json:"sign_in_pattern"`
	HistoryPattern string `yaml:"history_pattern" json:"history_pattern"`

	// Local storage
	SavePath    string `yaml:"save_path" json:"save_path"`
	SessionPath string `yaml:"session_path" json:"session_path"`
	UserDataDir string `yaml:"user_data_dir" json:"user_data_dir"`

	// Timeouts
	NavigationTimeout Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
	GenerationTimeout Duration `yaml:"generation_timeout" json:"generation_timeout"`
	DownloadTimeout   Duration `yaml:"download_timeout" json:"download_timeout"`
	PollInterval      Duration `yaml:"poll_interval" json:"poll_interval"`

	Headless bool `yaml:"headless" json:"headless"`

	// Fallback credentials. Password is never serialized back out.
	Email    string `yaml:"email" json:"email"`
	Password string `yaml:"password" json:"-"`

	StrictAspectRatio       bool `yaml:"strict_aspect_ratio" json:"strict_aspect_ratio"`
	GenerationRatePerMinute int  `yaml:"generation_rate_per_minute" json:"generation_rate_per_minute"`

	Log LogConfig `yaml:"log" json:"log"`

	// ConfigFilePath records where the config was loaded from, if anywhere
	ConfigFilePath string `yaml:"-" json:"-"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level" json:"level"`
	Dir   string `yaml:"dir" json:"dir"`
}

// Default values
const (
	DefaultBaseURL        = "https://elevenlabs.io"
	DefaultAppPath        = "/app/image-video"
	DefaultLoginPath      = "/app/sign-in"
	DefaultSignInPattern  = "*sign-in*"
	DefaultHistoryPattern = "*[Hh]istory*"

	DefaultNavigationTimeout = 30 * time.Second
	DefaultGenerationTimeout = 3 * time.Minute
	DefaultDownloadTimeout   = 30 * time.Second
	DefaultPollInterval      = 3 * time.Second
)

// DefaultConfig returns the configuration used when nothing is overridden.
// Paths under the home directory fall back to the working directory when the
// home directory cannot be resolved.
func DefaultConfig() *Config {
	base := ".imagegen"
	if home, err := os.UserHomeDir(); err == nil {
		base = filepath.Join(home, ".imagegen")
	}

	return &Config{
		BaseURL:           DefaultBaseURL,
		AppPath:           DefaultAppPath,
		LoginPath:         DefaultLoginPath,
		SignInPattern:     DefaultSignInPattern,
		HistoryPattern:    DefaultHistoryPattern,
		SavePath:          "assets",
		SessionPath:       filepath.Join(base, "auth", "session.json"),
		UserDataDir:       filepath.Join(base, "auth", "browser-data"),
		NavigationTimeout: Duration(DefaultNavigationTimeout),
		GenerationTimeout: Duration(DefaultGenerationTimeout),
		DownloadTimeout:   Duration(DefaultDownloadTimeout),
		PollInterval:      Duration(DefaultPollInterval),
		Headless:          true,
		StrictAspectRatio: true,
		Log: LogConfig{
			Level: "info",
			Dir:   filepath.Join(base, "logs"),
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (if non-empty), then a .env file in the working directory (if present),
// then the process environment. Relative paths are resolved against the
// working directory and the result is validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// godotenv never overrides variables that are already set
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFile overlays a YAML file onto the receiver.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	c.ConfigFilePath = path
	return nil
}

// resolvePaths makes every filesystem path absolute.
func (c *Config) resolvePaths() error {
	for _, p := range []*string{&c.SavePath, &c.SessionPath, &c.UserDataDir, &c.Log.Dir} {
		if *p == "" {
			continue
		}
		expanded, err := expandHome(*p)
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", *p, err)
		}
		*p = abs
	}
	return nil
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute URL, got %q", c.BaseURL)
	}

	if !strings.HasPrefix(c.AppPath, "/") || !strings.HasPrefix(c.LoginPath, "/") {
		return fmt.Errorf("app_path and login_path must start with '/'")
	}

	if c.SignInPattern == "" || c.HistoryPattern == "" {
		return fmt.Errorf("sign_in_pattern and history_pattern are required")
	}

	if c.SavePath == "" || c.SessionPath == "" || c.UserDataDir == "" {
		return fmt.Errorf("save_path, session_path and user_data_dir are required")
	}

	if !strings.HasSuffix(c.SessionPath, ".json") {
		return fmt.Errorf("session_path must end in .json, got %q", c.SessionPath)
	}

	timeouts := map[string]Duration{
		"navigation_timeout": c.NavigationTimeout,
		"generation_timeout": c.GenerationTimeout,
		"download_timeout":   c.DownloadTimeout,
		"poll_interval":      c.PollInterval,
	}
	for name, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d.Std())
		}
	}

	if c.PollInterval >= c.GenerationTimeout {
		return fmt.Errorf("poll_interval (%v) must be shorter than generation_timeout (%v)", c.PollInterval.Std(), c.GenerationTimeout.Std())
	}

	if c.GenerationRatePerMinute < 0 {
		return fmt.Errorf("generation_rate_per_minute cannot be negative")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be 'debug', 'info', 'warn', or 'error')", c.Log.Level)
	}

	return nil
}

// AppURL is the image generation route.
func (c *Config) AppURL() string {
	return strings.TrimRight(c.BaseURL, "/") + c.AppPath
}

// LoginURL is the sign-in route.
func (c *Config) LoginURL() string {
	return strings.TrimRight(c.BaseURL, "/") + c.LoginPath
}

// RootURL is the site root, with a trailing slash, as used for the Referer header.
func (c *Config) RootURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/"
}

// MetadataPath is the JSON summary stored next to the browser storage state.
func (c *Config) MetadataPath() string {
	return strings.TrimSuffix(c.SessionPath, ".json") + "-metadata.json"
}
