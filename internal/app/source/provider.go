// Package source provides the track providers behind the recommendation queue.
package source

import (
	"context"

	"github.com/osa030/tunechat/internal/domain/track"
	"github.com/osa030/tunechat/internal/infra/lastfm"
)

// Provider is the interface for track providers.
// Implementations produce candidates through different strategies
// (a fixed list, a playlist, Last.fm charts and similarity, etc.).
type Provider interface {
	// Tracks retrieves up to count track candidates.
	Tracks(ctx context.Context, count int) ([]track.Track, error)

	// Name returns the provider type (used in config).
	Name() string
}

// SpotifyClient defines the Spotify operations needed by providers.
type SpotifyClient interface {
	GetPlaylistTracksRandom(ctx context.Context, playlistURL string, count int) ([]track.Track, error)
	SearchTrack(ctx context.Context, song, artist string) (*track.Track, error)
}

// LastFmClient defines the Last.fm operations needed by providers.
type LastFmClient interface {
	GetTopTracks(ctx context.Context, tagName string, limit int) ([]lastfm.TopTrack, error)
	GetArtistTopTracks(ctx context.Context, artistName string, limit int) ([]lastfm.TopTrack, error)
	GetSimilarTracks(ctx context.Context, trackName, artistName string, limit int) ([]lastfm.TopTrack, error)
	GetChartTopTracks(ctx context.Context, limit int) ([]lastfm.TopTrack, error)
}
