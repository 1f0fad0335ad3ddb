package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
)

// PlayerConfig represents the player configuration.
type PlayerConfig struct {
	Source   SourceConfig   `yaml:"source"`
	Playback PlaybackConfig `yaml:"playback"`
	Output   OutputConfig   `yaml:"output"`
	Control  ControlConfig  `yaml:"control"`
	Log      LogConfig      `yaml:"log"`
	Hooks    HooksConfig    `yaml:"hooks"`
}

// SourceConfig represents the track source service connection.
type SourceConfig struct {
	BaseURL    string `yaml:"base_url" default:"http://localhost:5000" validate:"required,url"`
	TimeoutSec int    `yaml:"timeout_sec" default:"10" validate:"gte=1,lte=120"`
	ListenerID string `yaml:"listener_id"`
}

// PlaybackConfig represents playback queue configuration.
type PlaybackConfig struct {
	LoadRetries      int      `yaml:"load_retries" default:"3" validate:"gte=0,lte=10"`
	RetryBackoffMs   int      `yaml:"retry_backoff_ms" default:"2000" validate:"gte=0,lte=60000"`
	ColdFetchDelayMs int      `yaml:"cold_fetch_delay_ms" default:"1000" validate:"gte=0,lte=60000"`
	SkipDelayMs      int      `yaml:"skip_delay_ms" default:"2000" validate:"gte=0,lte=60000"`
	Prefetch         *bool    `yaml:"prefetch" default:"true"`
	InitialVolume    *float64 `yaml:"initial_volume" default:"1" validate:"omitempty,gte=0,lte=1"`
	AutoStart        *bool    `yaml:"auto_start" default:"true"`
}

// OutputConfig represents where audio is written.
type OutputConfig struct {
	Type                  string   `yaml:"type" default:"discard" validate:"oneof=command discard"`
	Command               []string `yaml:"command" validate:"required_if=Type command"`
	DiscardBytesPerSecond int      `yaml:"discard_bytes_per_second" default:"16000" validate:"gte=0"`
}

// ControlConfig represents the control RPC server.
type ControlConfig struct {
	Addr  string `yaml:"addr" default:"127.0.0.1:8090" validate:"required"`
	Token string `yaml:"token"`
}

// LoadPlayer loads the player configuration from a YAML file.
// Environment variables take precedence over file values.
func LoadPlayer(path string) (*PlayerConfig, error) {
	var cfg PlayerConfig
	if err := load(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *PlayerConfig) overrideFromEnv() {
	if v := os.Getenv("TUNECHAT_SOURCE_URL"); v != "" {
		c.Source.BaseURL = v
	}
	if v := os.Getenv("TUNECHAT_CONTROL_TOKEN"); v != "" {
		c.Control.Token = v
	}
	if v := os.Getenv("TUNECHAT_LISTENER_ID"); v != "" {
		c.Source.ListenerID = v
	}
}

// Validate validates the configuration.
func (c *PlayerConfig) Validate() error {
	return validateStruct(c)
}

// RetryBackoff returns the delay between load attempts.
func (c *PlaybackConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMs) * time.Millisecond
}

// ColdFetchDelay returns the delay before fetching after a prefetch miss.
func (c *PlaybackConfig) ColdFetchDelay() time.Duration {
	return time.Duration(c.ColdFetchDelayMs) * time.Millisecond
}

// SkipDelay returns the delay before advancing past a failed track.
func (c *PlaybackConfig) SkipDelay() time.Duration {
	return time.Duration(c.SkipDelayMs) * time.Millisecond
}

// Timeout returns the track source request timeout.
func (c *SourceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}
