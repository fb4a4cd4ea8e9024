package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the served directory.
const FileName = "tinkerpen.yaml"

// EnvPrefix prefixes environment overrides, e.g. TINKERPEN_SERVER_PORT=9000.
const EnvPrefix = "TINKERPEN_"

// Config represents the tinkerpen configuration
type Config struct {
	Title      string           `yaml:"title" koanf:"title"`
	Server     ServerConfig     `yaml:"server" koanf:"server"`
	Preview    PreviewConfig    `yaml:"preview" koanf:"preview"`
	Screenshot ScreenshotConfig `yaml:"screenshot" koanf:"screenshot"`
	Sessions   SessionsConfig   `yaml:"sessions" koanf:"sessions"`
	Features   FeaturesConfig   `yaml:"features" koanf:"features"`
	API        *APIConfig       `yaml:"api,omitempty" koanf:"api"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port  int    `yaml:"port" koanf:"port"`
	Host  string `yaml:"host" koanf:"host"`
	Debug bool   `yaml:"debug" koanf:"debug"`
}

// PreviewConfig holds the defaults for new preview sessions
type PreviewConfig struct {
	AutoRefresh *bool  `yaml:"auto_refresh,omitempty" koanf:"auto_refresh"` // Default: true
	CopiedReset string `yaml:"copied_reset,omitempty" koanf:"copied_reset"` // Copied indicator duration. Default: 2s
}

// ScreenshotConfig configures the headless Chrome capture
type ScreenshotConfig struct {
	Enabled    bool   `yaml:"enabled" koanf:"enabled"`
	ChromeURL  string `yaml:"chrome_url,omitempty" koanf:"chrome_url"`   // DevTools endpoint of a running Chrome (e.g. http://localhost:9222)
	ChromePath string `yaml:"chrome_path,omitempty" koanf:"chrome_path"` // Local Chrome binary, used when chrome_url is empty
	Width      int    `yaml:"width,omitempty" koanf:"width"`             // Default: 1280
	Height     int    `yaml:"height,omitempty" koanf:"height"`           // Default: 800
	Timeout    string `yaml:"timeout,omitempty" koanf:"timeout"`         // Default: 30s
	CacheTTL   string `yaml:"cache_ttl,omitempty" koanf:"cache_ttl"`     // Default: disabled (empty)
	// AllowNetwork lets captured documents load scripts, styles, images and
	// fonts from public http(s) URLs. Private and loopback addresses stay
	// blocked. Default: false, nothing outside the document loads.
	AllowNetwork bool `yaml:"allow_network,omitempty" koanf:"allow_network"`
}

// SessionsConfig controls preview session expiry
type SessionsConfig struct {
	TTL             string `yaml:"ttl,omitempty" koanf:"ttl"`                           // Idle time before a session expires. Default: 1h
	CleanupInterval string `yaml:"cleanup_interval,omitempty" koanf:"cleanup_interval"` // Default: 5m
}

// FeaturesConfig holds feature flags
type FeaturesConfig struct {
	HotReload bool `yaml:"hot_reload" koanf:"hot_reload"` // Watch project files and push edits into the project session
}

// APIConfig holds HTTP API configuration
type APIConfig struct {
	CORS      *CORSConfig      `yaml:"cors,omitempty" koanf:"cors"`
	RateLimit *RateLimitConfig `yaml:"rate_limit,omitempty" koanf:"rate_limit"`
}

// CORSConfig holds CORS configuration for the API
type CORSConfig struct {
	Origins []string `yaml:"origins,omitempty" koanf:"origins"` // Allowed origins (e.g., ["http://localhost:3000", "*"])
}

// RateLimitConfig holds rate limiting configuration for the API
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty" koanf:"requests_per_second"` // Default: 20
	Burst             int     `yaml:"burst,omitempty" koanf:"burst"`                             // Default: 40
	MaxIPs            int     `yaml:"max_ips,omitempty" koanf:"max_ips"`                         // Default: 10000
}

// IsAutoRefresh returns the default auto-refresh flag for new sessions (default: true)
func (c PreviewConfig) IsAutoRefresh() bool {
	if c.AutoRefresh == nil {
		return true
	}
	return *c.AutoRefresh
}

// GetCopiedReset returns how long the copied indicator stays on (default: 2s)
func (c PreviewConfig) GetCopiedReset() time.Duration {
	return parseDuration(c.CopiedReset, 2*time.Second)
}

// GetWidth returns the capture viewport width (default: 1280)
func (c ScreenshotConfig) GetWidth() int {
	if c.Width <= 0 {
		return 1280
	}
	return c.Width
}

// GetHeight returns the capture viewport height (default: 800)
func (c ScreenshotConfig) GetHeight() int {
	if c.Height <= 0 {
		return 800
	}
	return c.Height
}

// GetTimeout returns the capture timeout (default: 30s)
func (c ScreenshotConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// GetCacheTTL returns the capture cache TTL (0 if caching is disabled)
func (c ScreenshotConfig) GetCacheTTL() time.Duration {
	return parseDuration(c.CacheTTL, 0)
}

// GetTTL returns the idle session lifetime (default: 1h)
func (c SessionsConfig) GetTTL() time.Duration {
	return parseDuration(c.TTL, time.Hour)
}

// GetCleanupInterval returns the session sweep interval (default: 5m)
func (c SessionsConfig) GetCleanupInterval() time.Duration {
	return parseDuration(c.CleanupInterval, 5*time.Minute)
}

// GetCORSOrigins returns the configured CORS origins, or nil if not configured
func (c *APIConfig) GetCORSOrigins() []string {
	if c == nil || c.CORS == nil {
		return nil
	}
	return c.CORS.Origins
}

// GetRateLimitRPS returns the rate limit in requests per second (default: 20)
func (c *APIConfig) GetRateLimitRPS() float64 {
	if c == nil || c.RateLimit == nil || c.RateLimit.RequestsPerSecond <= 0 {
		return 20
	}
	return c.RateLimit.RequestsPerSecond
}

// GetRateLimitBurst returns the burst size (default: 40)
func (c *APIConfig) GetRateLimitBurst() int {
	if c == nil || c.RateLimit == nil || c.RateLimit.Burst <= 0 {
		return 40
	}
	return c.RateLimit.Burst
}

// GetRateLimitMaxIPs returns how many client IPs are tracked (default: 10000)
func (c *APIConfig) GetRateLimitMaxIPs() int {
	if c == nil || c.RateLimit == nil || c.RateLimit.MaxIPs <= 0 {
		return 10000
	}
	return c.RateLimit.MaxIPs
}

// Addr returns host:port for the HTTP listener
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Screenshot.Width < 0 || c.Screenshot.Height < 0 {
		return fmt.Errorf("screenshot width and height must be non-negative")
	}
	for name, value := range map[string]string{
		"preview.copied_reset":      c.Preview.CopiedReset,
		"screenshot.timeout":        c.Screenshot.Timeout,
		"screenshot.cache_ttl":      c.Screenshot.CacheTTL,
		"sessions.ttl":              c.Sessions.TTL,
		"sessions.cleanup_interval": c.Sessions.CleanupInterval,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: invalid duration %q", name, value)
		}
	}
	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Title: "tinkerpen",
		Server: ServerConfig{
			Port:  8080,
			Host:  "localhost",
			Debug: false,
		},
		Preview: PreviewConfig{
			CopiedReset: "2s",
		},
		Screenshot: ScreenshotConfig{
			Enabled: true,
			Width:   1280,
			Height:  800,
			Timeout: "30s",
		},
		Sessions: SessionsConfig{
			TTL:             "1h",
			CleanupInterval: "5m",
		},
		Features: FeaturesConfig{
			HotReload: false,
		},
	}
}

// Load loads configuration from a YAML file and overlays TINKERPEN_*
// environment variables. If the file doesn't exist, the defaults are used.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")
	config := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// TINKERPEN_SERVER_PORT -> server.port, TINKERPEN_SCREENSHOT_CHROME_URL -> screenshot.chrome_url
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	if err := k.Unmarshal("", config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// LoadFromDir looks for tinkerpen.yaml in the given directory.
// If none is found, returns the default configuration (plus env overrides).
func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, FileName))
}

// Save writes the configuration to a YAML file
func (c *Config) Save(configPath string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// envKey maps an environment variable name onto a config key. The first
// underscore separates the section; the rest belong to the field name.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, found := strings.Cut(key, "_")
	if !found {
		return key
	}
	return section + "." + field
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
