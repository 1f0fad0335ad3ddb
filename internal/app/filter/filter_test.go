package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tunechat/internal/domain/track"
	"github.com/osa030/tunechat/internal/infra/config"
)

func TestPlayableFilter_Check(t *testing.T) {
	tests := []struct {
		name         string
		settings     map[string]any
		candidate    track.Track
		wantAccepted bool
	}{
		{"complete track", nil, song("So What", "Miles Davis"), true},
		{"missing song", nil, song(" ", "Miles Davis"), false},
		{"missing artist", nil, song("So What", ""), false},
		{"no audio allowed by default", nil, song("So What", "Miles Davis"), true},
		{
			name:         "audio required",
			settings:     map[string]any{"require_audio": true},
			candidate:    song("So What", "Miles Davis"),
			wantAccepted: false,
		},
		{
			name:         "audio required and present",
			settings:     map[string]any{"require_audio": true},
			candidate:    track.Track{SongName: "So What", ArtistName: "Miles Davis", AudioURL: "https://a/1"},
			wantAccepted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &PlayableFilter{}
			require.NoError(t, f.ValidateConfig(tt.settings))

			result := f.Check(context.Background(), tt.candidate, nil)
			assert.Equal(t, tt.wantAccepted, result.Accepted)
			if !tt.wantAccepted {
				assert.Equal(t, "not_playable", result.Code)
			}
		})
	}
}

func TestBlockedArtistFilter_Check(t *testing.T) {
	f := &BlockedArtistFilter{}
	require.NoError(t, f.ValidateConfig(map[string]any{"artists": []any{"Nickelback"}}))

	tests := []struct {
		name         string
		artist       string
		wantAccepted bool
	}{
		{"other artist", "Queen", true},
		{"blocked artist", "nickelback", false},
		{"blocked artist in credit", "Someone, Nickelback", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := f.Check(context.Background(), song("Song", tt.artist), nil)
			assert.Equal(t, tt.wantAccepted, result.Accepted)
			if !tt.wantAccepted {
				assert.Equal(t, "blocked_artist", result.Code)
			}
		})
	}

	assert.Error(t, (&BlockedArtistFilter{}).ValidateConfig(map[string]any{}))
}

func TestChain_Execute(t *testing.T) {
	chain := NewChain()
	chain.Add(&PlayableFilter{})
	chain.Add(NewDuplicateTrackFilter())

	history := []track.Track{song("So What", "Miles Davis")}

	assert.True(t, chain.Execute(context.Background(), song("Naima", "John Coltrane"), history).Accepted)

	result := chain.Execute(context.Background(), song("", "John Coltrane"), history)
	assert.Equal(t, Reject("not_playable"), result, "first rejection wins")

	result = chain.Execute(context.Background(), song("So What", "Miles Davis"), history)
	assert.Equal(t, Reject("duplicate_track"), result)
}

func TestNewChainFromConfig(t *testing.T) {
	chain, err := NewChainFromConfig(map[string]config.FilterConfig{
		"playable_filter":        {Enabled: true},
		"duplicate_track_filter": {Enabled: true},
		"blocked_artist_filter":  {Enabled: false},
	})
	require.NoError(t, err)
	require.Len(t, chain.Filters(), 2)
	assert.Equal(t, "duplicate_track_filter", chain.Filters()[0].Name())
	assert.Equal(t, "playable_filter", chain.Filters()[1].Name())

	_, err = NewChainFromConfig(map[string]config.FilterConfig{"nope": {Enabled: true}})
	assert.Error(t, err)

	_, err = NewChainFromConfig(map[string]config.FilterConfig{"blocked_artist_filter": {Enabled: true}})
	assert.Error(t, err, "blocked artist filter needs artists")
}

func TestRegistry(t *testing.T) {
	registered := GetRegistered()
	for _, name := range []string{"duplicate_track_filter", "playable_filter", "blocked_artist_filter"} {
		factory, ok := registered[name]
		require.True(t, ok, name)
		f := factory()
		assert.Equal(t, name, f.Name())
		assert.NotEmpty(t, f.ReturnCodes())
		assert.NotEmpty(t, f.Description())
	}
}
