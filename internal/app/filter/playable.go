package filter

import (
	"context"
	"strings"

	"github.com/osa030/tunechat/internal/domain/track"
)

type PlayableConfig struct {
	// Reject tracks without an audio locator; use when no resolver is available.
	RequireAudio bool `mapstructure:"require_audio"`
}

// PlayableFilter rejects candidates that could never be played.
type PlayableFilter struct {
	config PlayableConfig
}

func (f *PlayableFilter) Name() string {
	return "playable_filter"
}

func (f *PlayableFilter) Description() string {
	return "Rejects tracks missing a song or artist name, or an audio locator when required"
}

func (f *PlayableFilter) ReturnCodes() []string {
	return []string{"not_playable"}
}

func (f *PlayableFilter) ValidateConfig(settings map[string]any) error {
	return decodeSettings(settings, &f.config)
}

func (f *PlayableFilter) Check(ctx context.Context, t track.Track, history []track.Track) Result {
	if strings.TrimSpace(t.SongName) == "" || strings.TrimSpace(t.ArtistName) == "" {
		return Reject("not_playable")
	}
	if f.config.RequireAudio && !t.HasAudio() {
		return Reject("not_playable")
	}
	return Accept()
}

func init() {
	Register("playable_filter", func() Filter {
		return &PlayableFilter{}
	})
}
