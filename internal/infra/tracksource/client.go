// Package tracksource provides a client for the track source service.
package tracksource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunechat/internal/domain/track"
)

// Header used to identify the listener when no session cookie is set yet.
const ListenerHeader = "X-Listener-ID"

// Errors
var (
	ErrForbidden   = errors.New("audio source refused the request")
	ErrUnavailable = errors.New("track source unavailable")
)

// Config represents track source client configuration.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	ListenerID string
}

// Client is a track source service client.
type Client struct {
	baseURL    string
	listenerID string
	httpClient *http.Client
	// streamClient has no overall timeout: audio bodies are read for the length of a track.
	streamClient *http.Client
}

// NextSongResponse represents the response from the next_song endpoint.
type NextSongResponse struct {
	Response string `json:"response"`
	Song     *Song  `json:"song,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Song is the wire form of a track.
type Song struct {
	SongName   string `json:"song_name"`
	ArtistName string `json:"artist_name"`
	AudioURL   string `json:"audio_url"`
	Album      string `json:"album,omitempty"`
	Source     string `json:"source,omitempty"`
	ID         string `json:"id,omitempty"`
}

// Track converts the wire form to a domain track.
func (s *Song) Track() *track.Track {
	return &track.Track{
		ID:         s.ID,
		SongName:   s.SongName,
		ArtistName: s.ArtistName,
		Album:      s.Album,
		AudioURL:   s.AudioURL,
		Source:     s.Source,
	}
}

// FromTrack converts a domain track to its wire form.
func FromTrack(t *track.Track) *Song {
	return &Song{
		SongName:   t.SongName,
		ArtistName: t.ArtistName,
		AudioURL:   t.AudioURL,
		Album:      t.Album,
		Source:     t.Source,
		ID:         t.ID,
	}
}

// New creates a new track source client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("track source base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, errors.Wrap(err, "invalid track source base URL")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cookie jar")
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		listenerID:   cfg.ListenerID,
		httpClient:   &http.Client{Timeout: timeout, Jar: jar},
		streamClient: &http.Client{Jar: jar},
	}, nil
}

// FetchNextTrack asks the service for the next recommended track.
// A nil track with a nil error means the recommendation list is exhausted.
func (c *Client) FetchNextTrack(ctx context.Context) (*track.Track, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/next_song", nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if c.listenerID != "" {
		req.Header.Set(ListenerHeader, c.listenerID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to send request"), ErrUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	var response NextSongResponse
	if err := json.Unmarshal(body, &response); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, errors.Mark(errors.Newf("next_song returned status %d", resp.StatusCode), ErrUnavailable)
		}
		return nil, errors.Wrap(err, "failed to parse response")
	}

	if resp.StatusCode != http.StatusOK {
		msg := response.Error
		if msg == "" {
			msg = response.Response
		}
		return nil, errors.Mark(errors.Newf("next_song returned status %d: %s", resp.StatusCode, msg), ErrUnavailable)
	}

	if response.Song == nil {
		zlog.Debug().Msgf("tracksource: no next song: %s", response.Response)
		return nil, nil
	}

	t := response.Song.Track()
	zlog.Debug().Msgf("tracksource: next song: %s", t)
	return t, nil
}

// ResolveAudio opens the proxied audio stream for locator, starting at offset bytes.
func (c *Client) ResolveAudio(ctx context.Context, locator string, offset int64) (io.ReadCloser, error) {
	if locator == "" {
		return nil, errors.New("audio locator is required")
	}

	params := url.Values{}
	params.Set("url", locator)
	reqURL := c.baseURL + "/proxy_audio?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}
	if c.listenerID != "" {
		req.Header.Set(ListenerHeader, c.listenerID)
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to send request"), ErrUnavailable)
	}

	switch {
	case resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, errors.Wrapf(ErrForbidden, "proxy_audio returned status %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, errors.Newf("proxy_audio returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return resp.Body, nil
}

// Reset clears the listener's recommendation cursor on the service.
func (c *Client) Reset(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/reset", nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	if c.listenerID != "" {
		req.Header.Set(ListenerHeader, c.listenerID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "failed to send request"), ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return errors.Newf("reset returned status %d", resp.StatusCode)
	}
	return nil
}
