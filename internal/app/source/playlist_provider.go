package source

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunechat/internal/domain/track"
)

type PlaylistProviderConfig struct {
	PlaylistURL string `mapstructure:"playlist_url" validate:"required"`
	FetchSize   int    `mapstructure:"fetch_size" default:"50" validate:"gte=1,lte=100"`
}

// PlaylistProvider provides tracks by randomly sampling a Spotify playlist.
// Sampled tracks not handed out yet are kept to save API calls.
type PlaylistProvider struct {
	spotify SpotifyClient
	config  *PlaylistProviderConfig

	mu    sync.Mutex
	cache []track.Track
}

// NewPlaylistProvider creates a new PlaylistProvider.
func NewPlaylistProvider(spotify SpotifyClient, settings map[string]any) (*PlaylistProvider, error) {
	if spotify == nil {
		return nil, errors.New("spotify client is required")
	}

	var config PlaylistProviderConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}
	zlog.Debug().Msgf("playlist provider config: %+v", config)

	return &PlaylistProvider{
		spotify: spotify,
		config:  &config,
	}, nil
}

// Tracks retrieves random tracks from the configured playlist.
func (p *PlaylistProvider) Tracks(ctx context.Context, count int) ([]track.Track, error) {
	if count <= 0 {
		return []track.Track{}, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.cache) < count {
		needed := max(p.config.FetchSize, count)
		fetched, err := p.spotify.GetPlaylistTracksRandom(ctx, p.config.PlaylistURL, needed)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get random tracks from playlist")
		}
		for _, t := range fetched {
			if !containsKey(p.cache, t.Key()) {
				p.cache = append(p.cache, t)
			}
		}
	}

	n := min(count, len(p.cache))
	result := append([]track.Track(nil), p.cache[:n]...)
	p.cache = p.cache[n:]
	return result, nil
}

// Name returns the provider name.
func (p *PlaylistProvider) Name() string {
	return "spotify_playlist"
}

func containsKey(tracks []track.Track, key string) bool {
	for i := range tracks {
		if tracks[i].Key() == key {
			return true
		}
	}
	return false
}
