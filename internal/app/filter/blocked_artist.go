package filter

import (
	"context"
	"strings"

	"github.com/osa030/tunechat/internal/domain/track"
)

type BlockedArtistConfig struct {
	Artists []string `mapstructure:"artists" validate:"required,min=1,dive,required"`
}

// BlockedArtistFilter rejects tracks by any of the configured artists.
type BlockedArtistFilter struct {
	blocked map[string]bool
}

func (f *BlockedArtistFilter) Name() string {
	return "blocked_artist_filter"
}

func (f *BlockedArtistFilter) Description() string {
	return "Rejects tracks whose artists include a blocked artist"
}

func (f *BlockedArtistFilter) ReturnCodes() []string {
	return []string{"blocked_artist"}
}

func (f *BlockedArtistFilter) ValidateConfig(settings map[string]any) error {
	var config BlockedArtistConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.blocked = make(map[string]bool, len(config.Artists))
	for _, a := range config.Artists {
		f.blocked[strings.ToLower(strings.TrimSpace(a))] = true
	}
	return nil
}

func (f *BlockedArtistFilter) Check(ctx context.Context, t track.Track, history []track.Track) Result {
	for _, a := range splitArtists(t.ArtistName) {
		if f.blocked[strings.ToLower(a)] {
			return Reject("blocked_artist")
		}
	}
	return Accept()
}

func init() {
	Register("blocked_artist_filter", func() Filter {
		return &BlockedArtistFilter{}
	})
}
