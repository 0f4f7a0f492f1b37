package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the client configuration
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Session SessionConfig `yaml:"session"`
	Pass    PassConfig    `yaml:"pass"`
	Watch   WatchConfig   `yaml:"watch"`
	Log     LogConfig     `yaml:"log"`
}

// BackendConfig contains the registration backend location and endpoint paths
type BackendConfig struct {
	BaseURL        string          `yaml:"base_url"`
	TimeoutSeconds int             `yaml:"timeout_seconds"`
	Endpoints      EndpointsConfig `yaml:"endpoints"`
}

// EndpointsConfig holds the path of every backend operation the client uses
type EndpointsConfig struct {
	Registration            string `yaml:"registration"`
	Profile                 string `yaml:"profile"`
	AdminDashboard          string `yaml:"admin_dashboard"`
	AdminUpdateVerification string `yaml:"admin_update_verification"`
	AdminSignIn             string `yaml:"admin_signin"`
	CheckToken              string `yaml:"check_token"`
	SignIn                  string `yaml:"signin"`
	SignUp                  string `yaml:"signup"`
}

// SessionConfig contains credential persistence settings
type SessionConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "memory"
	Path   string `yaml:"path"`   // sqlite database file
}

// PassConfig contains entry pass rendering settings
type PassConfig struct {
	SizePixels int    `yaml:"size_pixels"`
	Festival   string `yaml:"festival"`
}

// WatchConfig contains the profile watcher schedule
type WatchConfig struct {
	Schedule string `yaml:"schedule"` // cron spec with seconds, or a descriptor such as "@every 1m"
	PassDir  string `yaml:"pass_dir"` // write passes here when a registration gets verified
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from a YAML file. A missing file is not an error
// when configPath is empty; values then come from defaults and the environment.
func Load(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.overrideWithEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	if val := os.Getenv("BACKEND_URL"); val != "" {
		c.Backend.BaseURL = val
	}
	if val := os.Getenv("BACKEND_TIMEOUT_SECONDS"); val != "" {
		fmt.Sscanf(val, "%d", &c.Backend.TimeoutSeconds)
	}

	if val := os.Getenv("SESSION_DRIVER"); val != "" {
		c.Session.Driver = val
	}
	if val := os.Getenv("SESSION_PATH"); val != "" {
		c.Session.Path = val
	}

	if val := os.Getenv("WATCH_SCHEDULE"); val != "" {
		c.Watch.Schedule = val
	}
	if val := os.Getenv("WATCH_PASS_DIR"); val != "" {
		c.Watch.PassDir = val
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}
}

func (c *Config) applyDefaults() {
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = "http://localhost:5000"
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = 30
	}

	ep := &c.Backend.Endpoints
	setDefault(&ep.Registration, "/registration")
	setDefault(&ep.Profile, "/profile")
	setDefault(&ep.AdminDashboard, "/admin/dashboard")
	setDefault(&ep.AdminUpdateVerification, "/admin/update-verification")
	setDefault(&ep.AdminSignIn, "/admin/login")
	setDefault(&ep.CheckToken, "/auth/checkToken")
	setDefault(&ep.SignIn, "/auth/signin")
	setDefault(&ep.SignUp, "/auth/signup")

	setDefault(&c.Session.Driver, "sqlite")
	setDefault(&c.Session.Path, "festctl.db")

	if c.Pass.SizePixels == 0 {
		c.Pass.SizePixels = 256
	}
	setDefault(&c.Pass.Festival, "IMPACT 2026")

	setDefault(&c.Watch.Schedule, "@every 1m")

	setDefault(&c.Log.Level, "info")
	setDefault(&c.Log.Format, "text")
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend base URL must be absolute: %q", c.Backend.BaseURL)
	}
	if c.Backend.TimeoutSeconds < 0 {
		return fmt.Errorf("invalid backend timeout: %d", c.Backend.TimeoutSeconds)
	}

	for name, path := range c.Backend.Endpoints.all() {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("endpoint %s must start with '/': %q", name, path)
		}
	}

	switch c.Session.Driver {
	case "sqlite":
		if c.Session.Path == "" {
			return fmt.Errorf("session path is required for the sqlite driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported session driver: %s", c.Session.Driver)
	}

	if c.Pass.SizePixels < 64 {
		return fmt.Errorf("pass size must be at least 64 pixels")
	}

	return nil
}

func (e EndpointsConfig) all() map[string]string {
	return map[string]string{
		"registration":              e.Registration,
		"profile":                   e.Profile,
		"admin_dashboard":           e.AdminDashboard,
		"admin_update_verification": e.AdminUpdateVerification,
		"admin_signin":              e.AdminSignIn,
		"check_token":               e.CheckToken,
		"signin":                    e.SignIn,
		"signup":                    e.SignUp,
	}
}

// Timeout returns the per-request timeout. Zero disables it.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}
