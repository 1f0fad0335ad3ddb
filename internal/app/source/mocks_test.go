package source

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/osa030/tunechat/internal/domain/track"
	"github.com/osa030/tunechat/internal/infra/lastfm"
)

type MockSpotifyClient struct {
	mock.Mock
}

func (m *MockSpotifyClient) GetPlaylistTracksRandom(ctx context.Context, playlistURL string, count int) ([]track.Track, error) {
	args := m.Called(ctx, playlistURL, count)
	tracks, _ := args.Get(0).([]track.Track)
	return tracks, args.Error(1)
}

func (m *MockSpotifyClient) SearchTrack(ctx context.Context, song, artist string) (*track.Track, error) {
	args := m.Called(ctx, song, artist)
	t, _ := args.Get(0).(*track.Track)
	return t, args.Error(1)
}

type MockLastFmClient struct {
	mock.Mock
}

func (m *MockLastFmClient) GetTopTracks(ctx context.Context, tagName string, limit int) ([]lastfm.TopTrack, error) {
	args := m.Called(ctx, tagName, limit)
	tracks, _ := args.Get(0).([]lastfm.TopTrack)
	return tracks, args.Error(1)
}

func (m *MockLastFmClient) GetArtistTopTracks(ctx context.Context, artistName string, limit int) ([]lastfm.TopTrack, error) {
	args := m.Called(ctx, artistName, limit)
	tracks, _ := args.Get(0).([]lastfm.TopTrack)
	return tracks, args.Error(1)
}

func (m *MockLastFmClient) GetSimilarTracks(ctx context.Context, trackName, artistName string, limit int) ([]lastfm.TopTrack, error) {
	args := m.Called(ctx, trackName, artistName, limit)
	tracks, _ := args.Get(0).([]lastfm.TopTrack)
	return tracks, args.Error(1)
}

func (m *MockLastFmClient) GetChartTopTracks(ctx context.Context, limit int) ([]lastfm.TopTrack, error) {
	args := m.Called(ctx, limit)
	tracks, _ := args.Get(0).([]lastfm.TopTrack)
	return tracks, args.Error(1)
}

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Tracks(ctx context.Context, count int) ([]track.Track, error) {
	args := m.Called(ctx, count)
	tracks, _ := args.Get(0).([]track.Track)
	return tracks, args.Error(1)
}

func (m *MockProvider) Name() string {
	return "mock"
}
