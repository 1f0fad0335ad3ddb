package tracksource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{BaseURL: server.URL + "/", Timeout: time.Second})
	require.NoError(t, err)
	return client
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	client, err := New(Config{BaseURL: "http://localhost:5000/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", client.baseURL)
}

func TestFetchNextTrack(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantSong   string
		wantNil    bool
		wantErr    bool
		wantMarked bool
	}{
		{
			name:     "song",
			status:   http.StatusOK,
			body:     `{"response":"Playing next","song":{"song_name":"Song A","artist_name":"Artist A","audio_url":"https://cdn/a"}}`,
			wantSong: "Song A",
		},
		{
			name:    "exhausted",
			status:  http.StatusOK,
			body:    `{"response":"No more songs in the list."}`,
			wantNil: true,
		},
		{
			name:       "no list",
			status:     http.StatusBadRequest,
			body:       `{"response":"No songs available."}`,
			wantErr:    true,
			wantMarked: true,
		},
		{
			name:       "non json error",
			status:     http.StatusBadGateway,
			body:       `bad gateway`,
			wantErr:    true,
			wantMarked: true,
		},
		{
			name:    "broken json",
			status:  http.StatusOK,
			body:    `{"song":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/next_song", r.URL.Path)
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			got, err := client.FetchNextTrack(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantMarked, errors.Is(err, ErrUnavailable))
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantSong, got.SongName)
			assert.Equal(t, "Artist A", got.ArtistName)
			assert.Equal(t, "https://cdn/a", got.AudioURL)
		})
	}
}

func TestFetchNextTrack_KeepsSessionCookie(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			_, err := r.Cookie("tunechat_listener")
			assert.Error(t, err)
			http.SetCookie(w, &http.Cookie{Name: "tunechat_listener", Value: "abc", Path: "/"})
		} else {
			c, err := r.Cookie("tunechat_listener")
			require.NoError(t, err)
			assert.Equal(t, "abc", c.Value)
		}
		fmt.Fprint(w, `{"response":"No more songs in the list."}`)
	})

	for i := 0; i < 2; i++ {
		_, err := client.FetchNextTrack(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}

func TestFetchNextTrack_ListenerHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "listener-1", r.Header.Get(ListenerHeader))
		fmt.Fprint(w, `{"response":"No more songs in the list."}`)
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL, ListenerID: "listener-1"})
	require.NoError(t, err)

	_, err = client.FetchNextTrack(context.Background())
	assert.NoError(t, err)
}

func TestResolveAudio(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/proxy_audio", r.URL.Path)
		switch r.URL.Query().Get("url") {
		case "https://cdn/ok":
			assert.Equal(t, "bytes=100-", r.Header.Get("Range"))
			w.WriteHeader(http.StatusPartialContent)
			fmt.Fprint(w, "audio-bytes")
		case "https://cdn/whole":
			assert.Empty(t, r.Header.Get("Range"))
			fmt.Fprint(w, "whole")
		case "https://cdn/forbidden":
			w.WriteHeader(http.StatusForbidden)
		default:
			http.Error(w, "upstream failed", http.StatusBadGateway)
		}
	})
	ctx := context.Background()

	body, err := client.ResolveAudio(ctx, "https://cdn/ok", 100)
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Equal(t, "audio-bytes", string(data))

	body, err = client.ResolveAudio(ctx, "https://cdn/whole", 0)
	require.NoError(t, err)
	data, _ = io.ReadAll(body)
	body.Close()
	assert.Equal(t, "whole", string(data))

	_, err = client.ResolveAudio(ctx, "https://cdn/forbidden", 0)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = client.ResolveAudio(ctx, "https://cdn/broken", 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrForbidden)
	assert.Contains(t, err.Error(), "upstream failed")

	_, err = client.ResolveAudio(ctx, "", 0)
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/reset", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	assert.NoError(t, client.Reset(context.Background()))
}
