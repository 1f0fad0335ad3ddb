package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tunechat/internal/app/notification"
	"github.com/osa030/tunechat/internal/app/playback"
	"github.com/osa030/tunechat/internal/domain/track"
)

type MockPlayer struct {
	mock.Mock
}

func (m *MockPlayer) Snapshot() playback.Session {
	args := m.Called()
	return args.Get(0).(playback.Session)
}

func (m *MockPlayer) TogglePlayPause() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockPlayer) Skip() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockPlayer) SetVolume(level float64) {
	m.Called(level)
}

func playingSession() playback.Session {
	return playback.Session{
		Current:    &track.Track{SongName: "Song", ArtistName: "Artist", Source: "Last.fm"},
		Prefetched: &track.Track{SongName: "Next", ArtistName: "Other"},
		SurfaceID:  "surface-1",
		IsPlaying:  true,
		State:      playback.StatePlaying,
		Volume:     0.5,
	}
}

func newTestServer(t *testing.T, player Player, token string) (*ControlClient, *notification.Manager, chan struct{}) {
	t.Helper()

	notifier := notification.NewManager()
	done := make(chan struct{})
	svc := NewControlService(player, notifier, done)
	path, handler := NewControlServiceHandler(svc, connect.WithInterceptors(NewTokenInterceptor(token)))

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewControlClient(server.Client(), server.URL, connect.WithInterceptors(NewClientTokenInterceptor(token)))
	return client, notifier, done
}

func TestControlService_Status(t *testing.T) {
	player := &MockPlayer{}
	player.On("Snapshot").Return(playingSession())
	client, _, _ := newTestServer(t, player, "")

	status, err := client.Status(context.Background())
	require.NoError(t, err)

	m := status.AsMap()
	assert.Equal(t, "playing", m["state"])
	assert.Equal(t, true, m["is_playing"])
	assert.Equal(t, 0.5, m["volume"])
	assert.Equal(t, "surface-1", m["surface_id"])
	assert.Equal(t, "Song", m["track"].(map[string]any)["song_name"])
	assert.Equal(t, "Last.fm", m["track"].(map[string]any)["source"])
	assert.Equal(t, "Next", m["prefetched"].(map[string]any)["song_name"])
	player.AssertExpectations(t)
}

func TestControlService_Commands(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(p *MockPlayer)
		call     func(c *ControlClient) error
		wantCode connect.Code
	}{
		{
			name:  "toggle",
			setup: func(p *MockPlayer) { p.On("TogglePlayPause").Return(nil) },
			call: func(c *ControlClient) error {
				_, err := c.TogglePlayPause(context.Background())
				return err
			},
		},
		{
			name:  "toggle without track",
			setup: func(p *MockPlayer) { p.On("TogglePlayPause").Return(playback.ErrNoTrack) },
			call: func(c *ControlClient) error {
				_, err := c.TogglePlayPause(context.Background())
				return err
			},
			wantCode: connect.CodeFailedPrecondition,
		},
		{
			name:  "skip",
			setup: func(p *MockPlayer) { p.On("Skip").Return(nil) },
			call: func(c *ControlClient) error {
				_, err := c.Skip(context.Background())
				return err
			},
		},
		{
			name:  "skip after close",
			setup: func(p *MockPlayer) { p.On("Skip").Return(playback.ErrClosed) },
			call: func(c *ControlClient) error {
				_, err := c.Skip(context.Background())
				return err
			},
			wantCode: connect.CodeUnavailable,
		},
		{
			name:  "skip failure",
			setup: func(p *MockPlayer) { p.On("Skip").Return(errors.New("boom")) },
			call: func(c *ControlClient) error {
				_, err := c.Skip(context.Background())
				return err
			},
			wantCode: connect.CodeInternal,
		},
		{
			name:  "set volume",
			setup: func(p *MockPlayer) { p.On("SetVolume", 0.25).Return() },
			call: func(c *ControlClient) error {
				_, err := c.SetVolume(context.Background(), 0.25)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player := &MockPlayer{}
			player.On("Snapshot").Return(playingSession()).Maybe()
			tt.setup(player)
			client, _, _ := newTestServer(t, player, "")

			err := tt.call(client)
			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, connect.CodeOf(err))
			} else {
				require.NoError(t, err)
			}
			player.AssertExpectations(t)
		})
	}
}

func TestControlService_TokenRequired(t *testing.T) {
	player := &MockPlayer{}
	player.On("Snapshot").Return(playingSession())

	notifier := notification.NewManager()
	svc := NewControlService(player, notifier, make(chan struct{}))
	path, handler := NewControlServiceHandler(svc, connect.WithInterceptors(NewTokenInterceptor("secret")))
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	defer server.Close()

	tests := []struct {
		name     string
		token    string
		wantCode connect.Code
	}{
		{"no token", "", connect.CodeUnauthenticated},
		{"wrong token", "guess", connect.CodeUnauthenticated},
		{"valid token", "secret", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewControlClient(server.Client(), server.URL, connect.WithInterceptors(NewClientTokenInterceptor(tt.token)))

			_, err := client.Status(context.Background())
			if tt.wantCode != 0 {
				assert.Equal(t, tt.wantCode, connect.CodeOf(err))
			} else {
				assert.NoError(t, err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			stream, err := client.WatchEvents(ctx)
			require.NoError(t, err)
			received := stream.Receive()
			if tt.wantCode != 0 {
				assert.False(t, received)
				assert.Equal(t, tt.wantCode, connect.CodeOf(stream.Err()))
			} else {
				assert.True(t, received)
			}
			cancel()
			_ = stream.Close()
		})
	}
}

func TestControlService_WatchEvents(t *testing.T) {
	player := &MockPlayer{}
	player.On("Snapshot").Return(playingSession())
	client, notifier, done := newTestServer(t, player, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := client.WatchEvents(ctx)
	require.NoError(t, err)
	defer stream.Close()

	require.True(t, stream.Receive())
	initial := stream.Msg().AsMap()
	assert.Equal(t, "initial_state", initial["type"])
	assert.Equal(t, "playing", initial["state"])

	require.Eventually(t, func() bool { return notifier.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, notifier.Broadcast(notification.EventFields(playback.Event{
		Type:  playback.EventTrackSkipped,
		Track: &track.Track{SongName: "Song", ArtistName: "Artist"},
	})))

	require.True(t, stream.Receive())
	event := stream.Msg().AsMap()
	assert.Equal(t, "track_skipped", event["type"])
	assert.Greater(t, event["sequence_no"], initial["sequence_no"])

	close(done)
	assert.False(t, stream.Receive())
	assert.NoError(t, stream.Err())
	require.Eventually(t, func() bool { return notifier.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSessionFields_Idle(t *testing.T) {
	fields := SessionFields(playback.Session{State: playback.StateUnbound, Volume: 1})

	assert.Equal(t, "unbound", fields["state"])
	assert.NotContains(t, fields, "track")
	assert.NotContains(t, fields, "prefetched")
}
