package source

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunechat/internal/domain/track"
	"github.com/osa030/tunechat/internal/infra/lastfm"
)

type LastFmProviderConfig struct {
	APIKey     string `mapstructure:"api_key" validate:"required"`
	Tag        string `mapstructure:"tag"`
	Artist     string `mapstructure:"artist"`
	SeedSong   string `mapstructure:"seed_song" validate:"required_with=SeedArtist"`
	SeedArtist string `mapstructure:"seed_artist" validate:"required_with=SeedSong"`
	PoolSize   int    `mapstructure:"pool_size" default:"50" validate:"gte=1,lte=100"`
	// Look tracks up on Spotify for a preview URL when a client is available.
	SpotifyPreview bool `mapstructure:"spotify_preview"`
}

// LastFmProvider provides tracks from Last.fm.
//
// The strategy is picked from the settings, most specific first: tracks
// similar to a seed song, an artist's top tracks, a tag's top tracks, and the
// global chart when nothing is configured. Audio is left to the resolver
// unless a Spotify preview is found.
type LastFmProvider struct {
	lastfm  LastFmClient
	spotify SpotifyClient
	config  *LastFmProviderConfig

	// Spotify search results by track key; nil entries record misses
	previewCache map[string]*track.Track
	cacheMutex   sync.RWMutex
}

// NewLastFmProvider creates a new LastFmProvider. spotify may be nil.
func NewLastFmProvider(spotify SpotifyClient, settings map[string]any) (*LastFmProvider, error) {
	if len(settings) == 0 {
		return nil, errors.New("settings are required")
	}

	var config LastFmProviderConfig
	if err := decodeSettings(settings, &config); err != nil {
		return nil, err
	}

	client, err := lastfm.New(lastfm.Config{APIKey: config.APIKey})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create last.fm client")
	}
	return newLastFmProvider(client, spotify, &config), nil
}

func newLastFmProvider(client LastFmClient, spotify SpotifyClient, config *LastFmProviderConfig) *LastFmProvider {
	return &LastFmProvider{
		lastfm:       client,
		spotify:      spotify,
		config:       config,
		previewCache: make(map[string]*track.Track),
	}
}

// Tracks retrieves up to count tracks picked at random from the strategy's pool.
func (p *LastFmProvider) Tracks(ctx context.Context, count int) ([]track.Track, error) {
	if count <= 0 {
		return []track.Track{}, nil
	}

	pool, err := p.pool(ctx)
	if err != nil {
		return nil, err
	}

	rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	result := make([]track.Track, 0, count)
	seen := make(map[string]bool)
	for _, lt := range pool {
		if len(result) >= count {
			break
		}
		t := track.Track{SongName: lt.Name, ArtistName: lt.Artist}
		if t.SongName == "" || seen[t.Key()] {
			continue
		}
		seen[t.Key()] = true

		if preview := p.preview(ctx, &t); preview != nil {
			t.ID = preview.ID
			t.Album = preview.Album
			t.AudioURL = preview.AudioURL
		}
		result = append(result, t)
	}
	return result, nil
}

// Name returns the provider name.
func (p *LastFmProvider) Name() string {
	return "lastfm"
}

func (p *LastFmProvider) pool(ctx context.Context) ([]lastfm.TopTrack, error) {
	c := p.config
	var (
		tracks []lastfm.TopTrack
		err    error
	)
	switch {
	case c.SeedSong != "":
		tracks, err = p.lastfm.GetSimilarTracks(ctx, c.SeedSong, c.SeedArtist, c.PoolSize)
	case c.Artist != "":
		tracks, err = p.lastfm.GetArtistTopTracks(ctx, c.Artist, c.PoolSize)
	case c.Tag != "":
		tracks, err = p.lastfm.GetTopTracks(ctx, c.Tag, c.PoolSize)
	default:
		tracks, err = p.lastfm.GetChartTopTracks(ctx, c.PoolSize)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get last.fm tracks")
	}
	// The client caches results, so work on a copy before shuffling.
	return append([]lastfm.TopTrack(nil), tracks...), nil
}

// preview searches Spotify for a playable preview of t, caching the outcome.
func (p *LastFmProvider) preview(ctx context.Context, t *track.Track) *track.Track {
	if !p.config.SpotifyPreview || p.spotify == nil {
		return nil
	}
	key := t.Key()

	p.cacheMutex.RLock()
	cached, ok := p.previewCache[key]
	p.cacheMutex.RUnlock()
	if ok {
		return cached
	}

	found, err := p.spotify.SearchTrack(ctx, t.SongName, firstArtist(t.ArtistName))
	if err != nil {
		zlog.Debug().Msgf("lastfm provider: spotify search failed for %s: %v", t, err)
		return nil
	}
	if found != nil && !found.HasAudio() {
		found = nil
	}

	p.cacheMutex.Lock()
	p.previewCache[key] = found
	p.cacheMutex.Unlock()
	return found
}

func firstArtist(artist string) string {
	if i := strings.Index(artist, ","); i >= 0 {
		return strings.TrimSpace(artist[:i])
	}
	return artist
}
