package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tunechat/internal/domain/track"
	"github.com/osa030/tunechat/internal/infra/config"
	"github.com/osa030/tunechat/internal/infra/lastfm"
)

func staticSettings() map[string]any {
	return map[string]any{
		"tracks": []any{
			map[string]any{"song_name": "Blue in Green", "artist_name": "Miles Davis", "audio_url": "https://a/1"},
			map[string]any{"song_name": "So What", "artist_name": "Miles Davis"},
			map[string]any{"song_name": "Naima", "artist_name": "John Coltrane", "album": "Giant Steps"},
		},
	}
}

func TestStaticProvider(t *testing.T) {
	p, err := NewStaticProvider(staticSettings())
	require.NoError(t, err)
	assert.Equal(t, "static", p.Name())

	tracks, err := p.Tracks(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "Blue in Green", tracks[0].SongName)
	assert.Equal(t, "https://a/1", tracks[0].AudioURL)

	all, err := p.Tracks(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "Giant Steps", all[2].Album)
}

func TestStaticProvider_InvalidSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
	}{
		{"no tracks", map[string]any{}},
		{"missing artist", map[string]any{"tracks": []any{map[string]any{"song_name": "X"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStaticProvider(tt.settings)
			assert.Error(t, err)
		})
	}
}

func TestPlaylistProvider(t *testing.T) {
	ctx := context.Background()
	sp := &MockSpotifyClient{}
	sp.On("GetPlaylistTracksRandom", ctx, "spotify:playlist:abc", 50).Return([]track.Track{
		tr("A", "X"), tr("B", "Y"), tr("a", "x"), tr("C", "Z"),
	}, nil).Once()

	p, err := NewPlaylistProvider(sp, map[string]any{"playlist_url": "spotify:playlist:abc"})
	require.NoError(t, err)

	got, err := p.Tracks(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []track.Track{tr("A", "X"), tr("B", "Y")}, got)

	// Served from the remaining sample without another API call.
	got, err = p.Tracks(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []track.Track{tr("C", "Z")}, got)

	sp.AssertExpectations(t)
}

func TestPlaylistProvider_Errors(t *testing.T) {
	_, err := NewPlaylistProvider(nil, map[string]any{"playlist_url": "x"})
	assert.Error(t, err)

	_, err = NewPlaylistProvider(&MockSpotifyClient{}, map[string]any{})
	assert.Error(t, err)

	sp := &MockSpotifyClient{}
	sp.On("GetPlaylistTracksRandom", mock.Anything, "x", 50).Return(nil, errors.New("502"))
	p, err := NewPlaylistProvider(sp, map[string]any{"playlist_url": "x"})
	require.NoError(t, err)
	_, err = p.Tracks(context.Background(), 1)
	assert.Error(t, err)
}

func TestLastFmProvider_Strategy(t *testing.T) {
	pool := []lastfm.TopTrack{{Name: "Song", Artist: "Artist"}}

	tests := []struct {
		name   string
		config LastFmProviderConfig
		setup  func(m *MockLastFmClient)
	}{
		{
			name:   "seed song uses similar tracks",
			config: LastFmProviderConfig{SeedSong: "So What", SeedArtist: "Miles Davis", Tag: "jazz", PoolSize: 10},
			setup: func(m *MockLastFmClient) {
				m.On("GetSimilarTracks", mock.Anything, "So What", "Miles Davis", 10).Return(pool, nil)
			},
		},
		{
			name:   "artist uses artist top tracks",
			config: LastFmProviderConfig{Artist: "Miles Davis", Tag: "jazz", PoolSize: 10},
			setup: func(m *MockLastFmClient) {
				m.On("GetArtistTopTracks", mock.Anything, "Miles Davis", 10).Return(pool, nil)
			},
		},
		{
			name:   "tag uses tag top tracks",
			config: LastFmProviderConfig{Tag: "jazz", PoolSize: 10},
			setup: func(m *MockLastFmClient) {
				m.On("GetTopTracks", mock.Anything, "jazz", 10).Return(pool, nil)
			},
		},
		{
			name:   "nothing configured uses the chart",
			config: LastFmProviderConfig{PoolSize: 10},
			setup: func(m *MockLastFmClient) {
				m.On("GetChartTopTracks", mock.Anything, 10).Return(pool, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lf := &MockLastFmClient{}
			tt.setup(lf)
			cfg := tt.config
			p := newLastFmProvider(lf, nil, &cfg)

			tracks, err := p.Tracks(context.Background(), 5)
			require.NoError(t, err)
			require.Len(t, tracks, 1)
			assert.Equal(t, "Song", tracks[0].SongName)
			assert.False(t, tracks[0].HasAudio())
			lf.AssertExpectations(t)
		})
	}
}

func TestLastFmProvider_SpotifyPreview(t *testing.T) {
	lf := &MockLastFmClient{}
	lf.On("GetTopTracks", mock.Anything, "jazz", 10).Return([]lastfm.TopTrack{
		{Name: "So What", Artist: "Miles Davis"},
		{Name: "So What", Artist: "Miles Davis"},
		{Name: "Naima", Artist: "John Coltrane"},
	}, nil)

	sp := &MockSpotifyClient{}
	sp.On("SearchTrack", mock.Anything, "So What", "Miles Davis").
		Return(&track.Track{ID: "t2", Album: "Kind of Blue", AudioURL: "https://p.scdn.co/t2"}, nil).Once()
	sp.On("SearchTrack", mock.Anything, "Naima", "John Coltrane").Return(nil, nil).Once()

	p := newLastFmProvider(lf, sp, &LastFmProviderConfig{Tag: "jazz", PoolSize: 10, SpotifyPreview: true})

	tracks, err := p.Tracks(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, tracks, 2, "duplicates in the pool are dropped")

	byName := map[string]track.Track{}
	for _, tk := range tracks {
		byName[tk.SongName] = tk
	}
	assert.Equal(t, "https://p.scdn.co/t2", byName["So What"].AudioURL)
	assert.Equal(t, "Kind of Blue", byName["So What"].Album)
	assert.Empty(t, byName["Naima"].AudioURL)

	// Cached: a second round does not search again.
	_, err = p.Tracks(context.Background(), 5)
	require.NoError(t, err)
	sp.AssertExpectations(t)
}

func TestLastFmProvider_Error(t *testing.T) {
	lf := &MockLastFmClient{}
	lf.On("GetChartTopTracks", mock.Anything, 10).Return(nil, errors.New("down"))
	p := newLastFmProvider(lf, nil, &LastFmProviderConfig{PoolSize: 10})

	_, err := p.Tracks(context.Background(), 5)
	assert.Error(t, err)
}

func TestNewLastFmProvider_Validation(t *testing.T) {
	_, err := NewLastFmProvider(nil, map[string]any{"tag": "jazz"})
	assert.Error(t, err, "api key is required")

	_, err = NewLastFmProvider(nil, map[string]any{"api_key": "k", "seed_song": "So What"})
	assert.Error(t, err, "seed song needs a seed artist")

	p, err := NewLastFmProvider(nil, map[string]any{"api_key": "k", "tag": "jazz"})
	require.NoError(t, err)
	assert.Equal(t, 50, p.config.PoolSize)
}

func TestNewProviderChainFromConfig(t *testing.T) {
	cfg := &config.ServerConfig{
		Providers: []config.ProviderConfig{
			{Type: "static", DisplayName: "House list", Settings: staticSettings()},
			{Type: "spotify_playlist", DisplayName: "Playlist", Settings: map[string]any{"playlist_url": "abc"}},
		},
	}

	chain, err := NewProviderChainFromConfig(cfg, &MockSpotifyClient{})
	require.NoError(t, err)
	assert.Len(t, chain.providers, 2)
	assert.Equal(t, "House list", chain.providers[0].DisplayName)

	cfg.Providers = append(cfg.Providers, config.ProviderConfig{Type: "unknown", DisplayName: "?"})
	_, err = NewProviderChainFromConfig(cfg, &MockSpotifyClient{})
	assert.Error(t, err)

	_, err = NewProviderChainFromConfig(&config.ServerConfig{}, nil)
	assert.Error(t, err)
}
