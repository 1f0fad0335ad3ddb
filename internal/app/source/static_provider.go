package source

import (
	"context"
	"math/rand/v2"

	"github.com/osa030/tunechat/internal/domain/track"
)

// StaticTrack is one entry of a static provider's track list.
type StaticTrack struct {
	SongName   string `mapstructure:"song_name" validate:"required"`
	ArtistName string `mapstructure:"artist_name" validate:"required"`
	Album      string `mapstructure:"album"`
	AudioURL   string `mapstructure:"audio_url"`
}

type StaticProviderConfig struct {
	Tracks  []StaticTrack `mapstructure:"tracks" validate:"required,min=1,dive"`
	Shuffle bool          `mapstructure:"shuffle"`
}

// StaticProvider serves a fixed list of tracks from configuration.
type StaticProvider struct {
	config *StaticProviderConfig
}

// NewStaticProvider creates a new StaticProvider.
func NewStaticProvider(settings map[string]any) (*StaticProvider, error) {
	var config StaticProviderConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}
	return &StaticProvider{config: &config}, nil
}

// Tracks returns up to count tracks from the list, shuffled when configured.
func (p *StaticProvider) Tracks(_ context.Context, count int) ([]track.Track, error) {
	if count <= 0 {
		return []track.Track{}, nil
	}

	tracks := make([]track.Track, 0, len(p.config.Tracks))
	for _, st := range p.config.Tracks {
		tracks = append(tracks, track.Track{
			SongName:   st.SongName,
			ArtistName: st.ArtistName,
			Album:      st.Album,
			AudioURL:   st.AudioURL,
		})
	}
	if p.config.Shuffle {
		rand.Shuffle(len(tracks), func(i, j int) {
			tracks[i], tracks[j] = tracks[j], tracks[i]
		})
	}
	if len(tracks) > count {
		tracks = tracks[:count]
	}
	return tracks, nil
}

// Name returns the provider name.
func (p *StaticProvider) Name() string {
	return "static"
}
