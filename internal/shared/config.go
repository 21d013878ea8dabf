package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// It is assembled once at process start ([LoadConfig] or [DefaultConfig], then [Config.ApplyEnv])
// and passed explicitly into each component.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Auth        AuthConfig        `toml:"auth"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and endpoints.
type SpotifyConfig struct {
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	RedirectURI    string `toml:"redirect_uri"`
	AccountsURL    string `toml:"accounts_url"`
	APIURL         string `toml:"api_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver       string `toml:"driver"`
	Path         string `toml:"path"`
	TokensTable  string `toml:"tokens_table"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string  `toml:"host"`
	Port            int     `toml:"port"`
	APIPrefix       string  `toml:"api_prefix"`
	FrontendBaseURL string  `toml:"frontend_base_url"`
	CORSAllowOrigin string  `toml:"cors_allow_origin"`
	LogLevel        string  `toml:"log_level"`
	RateLimit       float64 `toml:"rate_limit"`
	RateBurst       int     `toml:"rate_burst"`
}

// AuthConfig controls the authorization flow.
type AuthConfig struct {
	VerifyState     bool `toml:"verify_state"`
	StateTTLSeconds int  `toml:"state_ttl_seconds"`
}

const (
	defaultAccountsURL = "https://accounts.spotify.com"
	defaultAPIURL      = "https://api.spotify.com/v1"
	defaultTimeout     = 10 * time.Second
	defaultStateTTL    = 10 * time.Minute
)

// Timeout returns the bound applied to every outbound Spotify call.
func (c SpotifyConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Accounts returns the accounts service base URL without a trailing slash.
func (c SpotifyConfig) Accounts() string {
	if c.AccountsURL == "" {
		return defaultAccountsURL
	}
	return strings.TrimRight(c.AccountsURL, "/")
}

// API returns the Web API base URL without a trailing slash.
func (c SpotifyConfig) API() string {
	if c.APIURL == "" {
		return defaultAPIURL
	}
	return strings.TrimRight(c.APIURL, "/")
}

// RequireLogin reports whether the settings needed to build an authorize URL are present.
func (c SpotifyConfig) RequireLogin() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.RedirectURI == "" {
		missing = append(missing, "redirect_uri")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: spotify %s must be set", ErrInvalidConfig, strings.Join(missing, " and "))
	}
	return nil
}

// RequireExchange reports whether the settings needed for a code exchange are present.
func (c SpotifyConfig) RequireExchange() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if c.RedirectURI == "" {
		missing = append(missing, "redirect_uri")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: spotify %s are required", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

// Addr returns the host:port the HTTP server listens on.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AllowOrigin returns the CORS allow-origin value, "*" when unset.
func (c ServerConfig) AllowOrigin() string {
	if c.CORSAllowOrigin == "" {
		return "*"
	}
	return c.CORSAllowOrigin
}

// Prefix returns the proxy route prefix with a leading and no trailing slash.
func (c ServerConfig) Prefix() string {
	p := strings.Trim(c.APIPrefix, "/")
	if p == "" {
		return "/spotify"
	}
	return "/" + p
}

// StateTTL returns how long a login nonce stays valid.
func (c AuthConfig) StateTTL() time.Duration {
	if c.StateTTLSeconds <= 0 {
		return defaultStateTTL
	}
	return time.Duration(c.StateTTLSeconds) * time.Second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides configuration values from environment-style variables.
//
// lookup is usually [os.LookupEnv]; tests pass a map-backed function. Empty values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("SPOTIFY_CLIENT_ID", &c.Credentials.Spotify.ClientID)
	str("SPOTIFY_CLIENT_SECRET", &c.Credentials.Spotify.ClientSecret)
	str("SPOTIFY_REDIRECT_URI", &c.Credentials.Spotify.RedirectURI)
	str("FRONTEND_BASE_URL", &c.Server.FrontendBaseURL)
	str("CORS_ALLOW_ORIGIN", &c.Server.CORSAllowOrigin)
	str("TOKENS_TABLE", &c.Database.TokensTable)
	str("DATABASE_DRIVER", &c.Database.Driver)
	str("DATABASE_URL", &c.Database.Path)
	str("HOST", &c.Server.Host)

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT=%q is not a number", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}

	return nil
}
