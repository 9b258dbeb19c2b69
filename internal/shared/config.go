package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file,
// with environment variables taking precedence over file values.
type Config struct {
	Telegram TelegramConfig `toml:"telegram"`
	Spotify  SpotifyConfig  `toml:"spotify"`
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
}

// TelegramConfig contains the bot credentials.
type TelegramConfig struct {
	Token string `toml:"token"`
}

// SpotifyConfig contains Spotify API credentials and requested scopes.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	Scopes       string `toml:"scopes"`
}

// Map converts the Spotify credentials to the map form consumed by services.NewSpotifyService.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
		"scopes":        s.Scopes,
	}
}

// ServerConfig contains OAuth callback listener settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// DatabaseConfig contains SQLite settings. An empty path keeps token and
// stats storage in process memory.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path,
// then applies environment variable overrides.
//
// A .env file in the working directory is honored (godotenv), matching the
// env-first configuration of earlier deployments.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyEnv()
	return &config, nil
}

// DefaultConfig returns a Config parsed from the embedded example file with
// environment overrides applied.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyEnv()
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

// applyEnv overlays environment variables onto the config.
func (c *Config) applyEnv() {
	_ = godotenv.Load()

	overlay := func(target *string, key string) {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}

	overlay(&c.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	overlay(&c.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	overlay(&c.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	overlay(&c.Spotify.RedirectURI, "SPOTIFY_REDIRECT_URI")
	overlay(&c.Spotify.Scopes, "SPOTIFY_SCOPES")
	overlay(&c.Server.Host, "OAUTH_HOST")
	overlay(&c.Database.Path, "DATABASE_PATH")

	if v := os.Getenv("OAUTH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

// Validate checks that every credential required at startup is present.
//
// Returned errors wrap [ErrMissingConfig] and are treated as fatal by cmd.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("%w: telegram token not set", ErrMissingConfig)
	}
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" || c.Spotify.RedirectURI == "" {
		return fmt.Errorf("%w: spotify client_id, client_secret and redirect_uri must be set", ErrMissingConfig)
	}
	if c.Server.Host == "" || c.Server.Port == 0 {
		return fmt.Errorf("%w: callback server host and port must be set", ErrMissingConfig)
	}
	return nil
}
