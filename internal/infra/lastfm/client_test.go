package lastfm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{APIKey: "test_key"})
	require.NoError(t, err)
	client.baseURL = server.URL + "/"
	return client
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestGetTopTracks(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "tag.getTopTracks", r.URL.Query().Get("method"))
		assert.Equal(t, "rock", r.URL.Query().Get("tag"))
		assert.Equal(t, "test_key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))

		response := `{
			"tracks": {
				"track": [
					{
						"name": "Track 1",
						"mbid": "mbid1",
						"url": "url1",
						"artist": {"name": "Artist 1", "mbid": "ambid1", "url": "aurl1"},
						"listeners": "1000",
						"playcount": "5000"
					},
					{
						"name": "Track 2",
						"artist": {"name": "Artist 2"}
					}
				]
			}
		}`
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, response)
	})

	ctx := context.Background()
	tracks, err := client.GetTopTracks(ctx, "rock", 5)
	require.NoError(t, err)
	assert.Len(t, tracks, 2)
	assert.Equal(t, "Track 1", tracks[0].Name)
	assert.Equal(t, "Artist 1", tracks[0].Artist)

	// Second call is served from the cache
	tracksCached, err := client.GetTopTracks(ctx, "rock", 5)
	require.NoError(t, err)
	assert.Equal(t, tracks, tracksCached)
	assert.Equal(t, 1, calls)

	_, err = client.GetTopTracks(ctx, "", 5)
	assert.Error(t, err)
}

func TestGetArtistTopTracks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "artist.getTopTracks", r.URL.Query().Get("method"))
		assert.Equal(t, "Miles Davis", r.URL.Query().Get("artist"))
		fmt.Fprint(w, `{"toptracks": {"track": [{"name": "So What", "artist": {"name": "Miles Davis"}}]}}`)
	})

	tracks, err := client.GetArtistTopTracks(context.Background(), "Miles Davis", 10)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, TopTrack{Name: "So What", Artist: "Miles Davis"}, tracks[0])
}

func TestGetSimilarTracks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "track.getSimilar", r.URL.Query().Get("method"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"), "limit is capped")
		fmt.Fprint(w, `{"similartracks": {"track": [{"name": "Freddie Freeloader", "artist": {"name": "Miles Davis"}}]}}`)
	})

	tracks, err := client.GetSimilarTracks(context.Background(), "So What", "Miles Davis", 500)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "Freddie Freeloader", tracks[0].Name)

	_, err = client.GetSimilarTracks(context.Background(), "So What", "", 5)
	assert.Error(t, err)
}

func TestGetChartTopTracks_NotCached(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "chart.getTopTracks", r.URL.Query().Get("method"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"), "default limit")
		fmt.Fprint(w, `{"tracks": {"track": []}}`)
	})

	for i := 0; i < 2; i++ {
		tracks, err := client.GetChartTopTracks(context.Background(), 0)
		require.NoError(t, err)
		assert.Empty(t, tracks)
	}
	assert.Equal(t, 2, calls)
}

func TestAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": 10, "message": "Invalid API key"}`)
	})

	_, err := client.GetTopTracks(context.Background(), "rock", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
}
