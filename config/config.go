// Package config loads the bot configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DiscordToken       string        `env:"DISCORD_TOKEN"`
	GuildIDs           []string      `env:"GUILD_IDS" envSeparator:","`
	UnregisterCommands bool          `env:"UNREGISTER_COMMANDS" envDefault:"false"`
	CommandPrefix      string        `env:"COMMAND_PREFIX" envDefault:"!"`
	IdleTimeout        time.Duration `env:"IDLE_TIMEOUT" envDefault:"30s"`
	ResolveTimeout     time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"20s"`
	NowPlayingImage    string        `env:"NOW_PLAYING_IMAGE" envDefault:"https://c.tenor.com/fdHXQgnfQGUAAAAC/tenor.gif"`

	CommandRate  float64 `env:"COMMAND_RATE" envDefault:"1"`
	CommandBurst int     `env:"COMMAND_BURST" envDefault:"3"`

	Spotify SpotifyConfig
	Cache   CacheConfig
	Log     LogConfig

	StatusAddr string `env:"STATUS_ADDR"`
}

type SpotifyConfig struct {
	ClientID     string  `env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string  `env:"SPOTIFY_CLIENT_SECRET"`
	RateLimit    float64 `env:"SPOTIFY_RATE_LIMIT" envDefault:"5"`
}

// Enabled reports whether Spotify links can be resolved.
func (c SpotifyConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type CacheConfig struct {
	RedisURL string        `env:"REDIS_URL"`
	TTL      time.Duration `env:"RESOLVER_CACHE_TTL" envDefault:"24h"`
}

type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Format     string `env:"LOG_FORMAT" envDefault:"json"`
	Output     string `env:"LOG_OUTPUT" envDefault:"stdout"`
	FilePath   string `env:"LOG_FILE_PATH" envDefault:"logs/jukebox.log"`
	MaxSize    int    `env:"LOG_MAX_SIZE" envDefault:"100"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	MaxAge     int    `env:"LOG_MAX_AGE" envDefault:"28"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is required")
	}
	if c.IdleTimeout <= 0 {
		return errors.New("IDLE_TIMEOUT must be positive")
	}
	if c.ResolveTimeout <= 0 {
		return errors.New("RESOLVE_TIMEOUT must be positive")
	}
	if (c.Spotify.ClientID == "") != (c.Spotify.ClientSecret == "") {
		return errors.New("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET must be set together")
	}
	if c.Spotify.RateLimit <= 0 {
		return errors.New("SPOTIFY_RATE_LIMIT must be positive")
	}
	if c.CommandRate <= 0 {
		return errors.New("COMMAND_RATE must be positive")
	}
	if c.CommandBurst < 1 {
		return errors.New("COMMAND_BURST must be at least 1")
	}
	switch c.Log.Output {
	case "stdout", "file", "both":
	default:
		return fmt.Errorf("LOG_OUTPUT must be stdout, file or both, got %q", c.Log.Output)
	}
	return nil
}
