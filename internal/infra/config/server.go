package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
)

// ServerConfig represents the track source server configuration.
type ServerConfig struct {
	Server    HTTPConfig              `yaml:"server"`
	Queue     QueueConfig             `yaml:"queue"`
	Resolver  ResolverConfig          `yaml:"resolver"`
	Proxy     ProxyConfig             `yaml:"proxy"`
	Providers []ProviderConfig        `yaml:"providers" validate:"required,min=1,dive"`
	Filters   map[string]FilterConfig `yaml:"filters"`
	Spotify   SpotifyConfig           `yaml:"spotify"`
	Messages  MessagesConfig          `yaml:"messages"`
	Log       LogConfig               `yaml:"log"`
}

// HTTPConfig represents HTTP server configuration.
type HTTPConfig struct {
	Addr  string      `yaml:"addr" default:":5000"`
	Hooks HooksConfig `yaml:"hooks"`
}

// QueueConfig represents recommendation cursor configuration.
type QueueConfig struct {
	BatchSize  int         `yaml:"batch_size" default:"20" validate:"gte=1,lte=200"`
	Store      string      `yaml:"store" default:"memory" validate:"oneof=memory redis"`
	TTLMinutes int         `yaml:"ttl_minutes" default:"720" validate:"gte=1"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig represents Redis connection configuration.
type RedisConfig struct {
	Addr      string `yaml:"addr" default:"localhost:6379"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db" default:"0" validate:"gte=0"`
	KeyPrefix string `yaml:"key_prefix" default:"tunechat:cursor:"`
}

// ResolverConfig represents audio URL resolution via yt-dlp.
type ResolverConfig struct {
	Enabled        *bool  `yaml:"enabled" default:"true"`
	Binary         string `yaml:"binary"`
	Retries        int    `yaml:"retries" default:"2" validate:"gte=0,lte=10"`
	RetryBackoffMs int    `yaml:"retry_backoff_ms" default:"1000" validate:"gte=0"`
	TimeoutSec     int    `yaml:"timeout_sec" default:"30" validate:"gte=1"`
}

// ProxyConfig represents upstream settings of the audio proxy.
type ProxyConfig struct {
	UserAgent string `yaml:"user_agent" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/110.0.0.0 Safari/537.36"`
	Referer   string `yaml:"referer" default:"https://www.youtube.com/"`
	Accept    string `yaml:"accept" default:"audio/webm, */*"`
}

// ProviderConfig represents a single track provider configuration.
type ProviderConfig struct {
	Type        string         `yaml:"type" validate:"required"`
	DisplayName string         `yaml:"display_name" validate:"required"`
	Settings    map[string]any `yaml:"settings"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
}

// MessagesConfig represents listener-facing messages.
type MessagesConfig struct {
	NextSong    string `yaml:"next_song" default:"Next song: %s by %s"`
	Exhausted   string `yaml:"exhausted" default:"You've reached the end of the song list. Want more recommendations?"`
	NoSongs     string `yaml:"no_songs" default:"No songs in the queue. Please request some songs first!"`
	SourceError string `yaml:"source_error" default:"Failed to get the next song."`
	Reset       string `yaml:"reset" default:"Song list cleared."`
}

// LoadServer loads the server configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func LoadServer(path string) (*ServerConfig, error) {
	var cfg ServerConfig
	if err := load(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *ServerConfig) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("LASTFM_API_KEY"); v != "" {
		for i := range c.Providers {
			if c.Providers[i].Type == "lastfm" {
				if c.Providers[i].Settings == nil {
					c.Providers[i].Settings = map[string]any{}
				}
				c.Providers[i].Settings["api_key"] = v
			}
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Queue.Redis.Password = v
	}
}

// Validate validates the configuration.
func (c *ServerConfig) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}

	// Spotify credentials are only needed by Spotify providers.
	if c.UsesProvider("spotify_playlist") {
		if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
			return errors.New("spotify client_id and client_secret are required by spotify_playlist providers")
		}
	}

	return nil
}

// UsesProvider reports whether a provider of the given type is configured.
func (c *ServerConfig) UsesProvider(providerType string) bool {
	for _, p := range c.Providers {
		if p.Type == providerType {
			return true
		}
	}
	return false
}

// IsFilterEnabled checks if a filter is enabled.
func (c *ServerConfig) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// TTL returns the cursor lifetime.
func (c *QueueConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// RetryBackoff returns the delay between resolver attempts.
func (c *ResolverConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMs) * time.Millisecond
}

// Timeout returns the timeout of one resolver run.
func (c *ResolverConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}
