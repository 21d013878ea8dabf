package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./spotbridge.db" {
			t.Errorf("expected database path ./spotbridge.db, got %s", config.Database.Path)
		}

		if config.Database.TokensTable != "user_tokens" {
			t.Errorf("expected tokens table user_tokens, got %s", config.Database.TokensTable)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Server.Prefix() != "/spotify" {
			t.Errorf("expected api prefix /spotify, got %s", config.Server.Prefix())
		}

		if config.Credentials.Spotify.ClientID != "" {
			t.Errorf("expected empty spotify client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if !config.Auth.VerifyState {
			t.Error("expected state verification to be on by default")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"
tokens_table = "spotify_tokens"

[server]
host = "0.0.0.0"
port = 8080
frontend_base_url = "https://app.example.com/connected"

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://localhost:3000/callback"
timeout_seconds = 3
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Database.TokensTable != "spotify_tokens" {
			t.Errorf("expected tokens table spotify_tokens, got %s", config.Database.TokensTable)
		}

		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if config.Credentials.Spotify.Timeout() != 3*time.Second {
			t.Errorf("expected 3s timeout, got %s", config.Credentials.Spotify.Timeout())
		}

		if config.Server.AllowOrigin() != "*" {
			t.Errorf("expected default allow origin to be kept, got %s", config.Server.AllowOrigin())
		}
	})

	t.Run("LoadConfig Invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[server\nport = "), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		env := map[string]string{
			"SPOTIFY_CLIENT_ID":     "env_id",
			"SPOTIFY_CLIENT_SECRET": "env_secret",
			"SPOTIFY_REDIRECT_URI":  "https://api.example.com/callback",
			"FRONTEND_BASE_URL":     "https://app.example.com",
			"CORS_ALLOW_ORIGIN":     "https://app.example.com",
			"TOKENS_TABLE":          "tokens",
			"PORT":                  "9000",
			"HOST":                  "",
		}
		lookup := func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		}

		config := DefaultConfig()
		if err := config.ApplyEnv(lookup); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if config.Credentials.Spotify.ClientID != "env_id" {
			t.Errorf("expected env client id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Credentials.Spotify.ClientSecret != "env_secret" {
			t.Errorf("expected env client secret, got %s", config.Credentials.Spotify.ClientSecret)
		}
		if config.Server.FrontendBaseURL != "https://app.example.com" {
			t.Errorf("expected env frontend url, got %s", config.Server.FrontendBaseURL)
		}
		if config.Server.AllowOrigin() != "https://app.example.com" {
			t.Errorf("expected env allow origin, got %s", config.Server.AllowOrigin())
		}
		if config.Database.TokensTable != "tokens" {
			t.Errorf("expected env tokens table, got %s", config.Database.TokensTable)
		}
		if config.Server.Port != 9000 {
			t.Errorf("expected port 9000, got %d", config.Server.Port)
		}
		if config.Server.Host != "127.0.0.1" {
			t.Errorf("empty HOST should keep the file value, got %s", config.Server.Host)
		}
	})

	t.Run("ApplyEnv Invalid Port", func(t *testing.T) {
		lookup := func(k string) (string, bool) {
			if k == "PORT" {
				return "eighty", true
			}
			return "", false
		}

		err := DefaultConfig().ApplyEnv(lookup)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestSpotifyConfig(t *testing.T) {
	t.Run("RequireLogin", func(t *testing.T) {
		if err := (SpotifyConfig{ClientID: "id", RedirectURI: "http://x/callback"}).RequireLogin(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}

		err := (SpotifyConfig{ClientID: "id"}).RequireLogin()
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("RequireExchange", func(t *testing.T) {
		err := (SpotifyConfig{ClientID: "id", RedirectURI: "http://x/callback"}).RequireExchange()
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig for missing secret, got %v", err)
		}

		full := SpotifyConfig{ClientID: "id", ClientSecret: "secret", RedirectURI: "http://x/callback"}
		if err := full.RequireExchange(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("Endpoint Defaults", func(t *testing.T) {
		c := SpotifyConfig{}
		if c.Accounts() != "https://accounts.spotify.com" {
			t.Errorf("unexpected accounts url %s", c.Accounts())
		}
		if c.API() != "https://api.spotify.com/v1" {
			t.Errorf("unexpected api url %s", c.API())
		}
		if c.Timeout() != 10*time.Second {
			t.Errorf("unexpected timeout %s", c.Timeout())
		}

		c.APIURL = "http://127.0.0.1:9999/v1/"
		if c.API() != "http://127.0.0.1:9999/v1" {
			t.Errorf("expected trailing slash trimmed, got %s", c.API())
		}
	})
}
