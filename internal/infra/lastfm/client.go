// Package lastfm provides a client for the Last.fm API.
package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Client is a Last.fm API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	// Cache of top tracks by method and subject
	cache   map[string][]TopTrack
	cacheMu sync.RWMutex
}

// Config represents Last.fm client configuration.
type Config struct {
	APIKey string
}

// TopTrack represents a track returned by Last.fm.
type TopTrack struct {
	Name   string
	Artist string
}

// trackList is the track array shared by the getTopTracks and getSimilar responses.
type trackList struct {
	Track []struct {
		Name   string `json:"name"`
		Artist struct {
			Name string `json:"name"`
		} `json:"artist"`
	} `json:"track"`
}

// tracksResponse covers tag.getTopTracks, chart.getTopTracks and artist.getTopTracks.
type tracksResponse struct {
	Tracks    *trackList `json:"tracks"`
	TopTracks *trackList `json:"toptracks"`
	Similar   *trackList `json:"similartracks"`
}

// LastFMError represents an error response from Last.fm API.
type LastFMError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// New creates a new Last.fm client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("last.fm API key is required")
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    "https://ws.audioscrobbler.com/2.0/",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      make(map[string][]TopTrack),
	}, nil
}

// GetTopTracks retrieves top tracks for a tag.
// Reference: https://www.last.fm/api/show/tag.getTopTracks
func (c *Client) GetTopTracks(ctx context.Context, tagName string, limit int) ([]TopTrack, error) {
	if tagName == "" {
		return nil, errors.New("tag name is required")
	}
	params := url.Values{}
	params.Set("tag", tagName)
	return c.cachedTracks(ctx, "tag.getTopTracks", params, limit)
}

// GetArtistTopTracks retrieves the most played tracks of an artist.
// Reference: https://www.last.fm/api/show/artist.getTopTracks
func (c *Client) GetArtistTopTracks(ctx context.Context, artistName string, limit int) ([]TopTrack, error) {
	if artistName == "" {
		return nil, errors.New("artist name is required")
	}
	params := url.Values{}
	params.Set("artist", artistName)
	params.Set("autocorrect", "1")
	return c.cachedTracks(ctx, "artist.getTopTracks", params, limit)
}

// GetSimilarTracks retrieves tracks similar to the given one.
// Reference: https://www.last.fm/api/show/track.getSimilar
func (c *Client) GetSimilarTracks(ctx context.Context, trackName, artistName string, limit int) ([]TopTrack, error) {
	if trackName == "" || artistName == "" {
		return nil, errors.New("track name and artist name are required")
	}
	params := url.Values{}
	params.Set("track", trackName)
	params.Set("artist", artistName)
	params.Set("autocorrect", "1")
	return c.fetchTracks(ctx, "track.getSimilar", params, limit)
}

// GetChartTopTracks retrieves global top tracks from Last.fm charts.
// Charts change over time, so results are not cached.
// Reference: https://www.last.fm/api/show/chart.getTopTracks
func (c *Client) GetChartTopTracks(ctx context.Context, limit int) ([]TopTrack, error) {
	return c.fetchTracks(ctx, "chart.getTopTracks", url.Values{}, limit)
}

// cachedTracks is fetchTracks behind the per-subject cache.
func (c *Client) cachedTracks(ctx context.Context, method string, params url.Values, limit int) ([]TopTrack, error) {
	cacheKey := fmt.Sprintf("%s:%s:%d", method, params.Encode(), limit)

	c.cacheMu.RLock()
	if tracks, ok := c.cache[cacheKey]; ok {
		c.cacheMu.RUnlock()
		zlog.Debug().Msgf("lastfm: using cached tracks: %s", cacheKey)
		return tracks, nil
	}
	c.cacheMu.RUnlock()

	tracks, err := c.fetchTracks(ctx, method, params, limit)
	if err != nil {
		return nil, err
	}

	c.cacheMu.Lock()
	c.cache[cacheKey] = tracks
	c.cacheMu.Unlock()
	zlog.Debug().Msgf("lastfm: cached tracks: %s (count: %d)", cacheKey, len(tracks))

	return tracks, nil
}

// fetchTracks calls a track list method.
func (c *Client) fetchTracks(ctx context.Context, method string, params url.Values, limit int) ([]TopTrack, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	params.Set("limit", fmt.Sprintf("%d", limit))

	var response tracksResponse
	if err := c.call(ctx, method, params, &response); err != nil {
		return nil, err
	}

	list := response.Tracks
	if list == nil {
		list = response.TopTracks
	}
	if list == nil {
		list = response.Similar
	}
	if list == nil {
		return []TopTrack{}, nil
	}

	tracks := make([]TopTrack, 0, len(list.Track))
	for _, t := range list.Track {
		tracks = append(tracks, TopTrack{
			Name:   t.Name,
			Artist: t.Artist.Name,
		})
	}
	return tracks, nil
}

// call performs one API request and decodes the response into out.
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	params.Set("method", method)
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")

	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	// Check for Last.fm API errors
	var apiError LastFMError
	if err := json.Unmarshal(body, &apiError); err == nil && apiError.Error != 0 {
		return errors.Errorf("last.fm API error %d: %s", apiError.Error, apiError.Message)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}
