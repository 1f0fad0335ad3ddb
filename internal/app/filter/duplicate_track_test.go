package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/tunechat/internal/domain/track"
)

func song(name, artist string) track.Track {
	return track.Track{SongName: name, ArtistName: artist}
}

func TestDuplicateTrackFilter_ExactMatch(t *testing.T) {
	tests := []struct {
		name      string
		history   track.Track
		candidate track.Track
	}{
		{
			name:      "same song and artist",
			history:   song("Bohemian Rhapsody", "Queen"),
			candidate: song("Bohemian Rhapsody", "Queen"),
		},
		{
			name:      "case and whitespace differ",
			history:   song("Bohemian Rhapsody", "Queen"),
			candidate: song("  bohemian rhapsody ", "QUEEN"),
		},
		{
			name:      "same provider ID",
			history:   track.Track{ID: "track123", SongName: "Bohemian Rhapsody", ArtistName: "Queen"},
			candidate: track.Track{ID: "track123", SongName: "Bohemian Rhapsody - 2011 Remaster", ArtistName: "Queen"},
		},
	}

	filter := NewDuplicateTrackFilter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := filter.Check(context.Background(), tt.candidate, []track.Track{tt.history})
			assert.False(t, result.Accepted)
			assert.Equal(t, "duplicate_track", result.Code)
		})
	}
}

func TestDuplicateTrackFilter_RemasterDetection(t *testing.T) {
	tests := []struct {
		name         string
		history      track.Track
		candidate    track.Track
		shouldReject bool
		description  string
	}{
		{
			name:         "Standard remaster pattern",
			history:      song("Bohemian Rhapsody", "Queen"),
			candidate:    song("Bohemian Rhapsody - 2011 Remaster", "Queen"),
			shouldReject: true,
			description:  "Should detect '- 2011 Remaster' as duplicate",
		},
		{
			name:         "Remastered in parentheses",
			history:      song("Yesterday", "The Beatles"),
			candidate:    song("Yesterday (Remastered 2023)", "The Beatles"),
			shouldReject: true,
			description:  "Should detect '(Remastered 2023)' as duplicate",
		},
		{
			name:         "Cover song - different artist",
			history:      song("Yesterday", "The Beatles"),
			candidate:    song("Yesterday", "Paul McCartney"),
			shouldReject: false,
			description:  "Should allow cover by different artist",
		},
		{
			name:         "Different songs - similar names",
			history:      song("Love", "John Lennon"),
			candidate:    song("Love Song", "John Lennon"),
			shouldReject: false,
			description:  "Should allow different songs",
		},
		{
			name:         "Radio Edit version",
			history:      song("Stairway to Heaven", "Led Zeppelin"),
			candidate:    song("Stairway to Heaven (Radio Edit)", "Led Zeppelin"),
			shouldReject: true,
			description:  "Should detect radio edit as duplicate",
		},
		{
			name:         "Live version",
			history:      song("Hotel California", "Eagles"),
			candidate:    song("Hotel California - Live", "Eagles"),
			shouldReject: true,
			description:  "Should detect live version as duplicate",
		},
		{
			name:         "Different remasters",
			history:      song("Let It Be - 2011 Remaster", "The Beatles"),
			candidate:    song("Let It Be (Remastered 2023)", "The Beatles"),
			shouldReject: true,
			description:  "Should detect different remasters as duplicate",
		},
		{
			name:         "Featured artist credit",
			history:      song("Under Pressure", "Queen, David Bowie"),
			candidate:    song("Under Pressure - Remastered", "Queen"),
			shouldReject: true,
			description:  "Should compare the main artist only",
		},
		{
			name:         "Remix version - should be allowed",
			history:      song("Le Freak", "CHIC"),
			candidate:    song("Le Freak (Oliver Heldens Remix)", "CHIC"),
			shouldReject: false,
			description:  "Should allow remix version",
		},
	}

	filter := NewDuplicateTrackFilter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := filter.Check(context.Background(), tt.candidate, []track.Track{tt.history})

			if tt.shouldReject {
				assert.False(t, result.Accepted, tt.description)
				assert.Equal(t, "duplicate_track", result.Code)
			} else {
				assert.True(t, result.Accepted, tt.description)
			}
		})
	}
}

func TestDuplicateTrackFilter_EmptyHistory(t *testing.T) {
	result := NewDuplicateTrackFilter().Check(context.Background(), song("Any Song", "Any Artist"), nil)
	assert.True(t, result.Accepted, "Should accept any track when the list is empty")
}

func TestNormalizeTrackName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Bohemian Rhapsody", "bohemian rhapsody"},
		{"Bohemian Rhapsody - 2011 Remaster", "bohemian rhapsody"},
		{"Yesterday (Remastered 2023)", "yesterday"},
		{"Hotel California [Remastered]", "hotel california"},
		{"Stairway to Heaven (Radio Edit)", "stairway to heaven"},
		{"Imagine - Live", "imagine"},
		{"Let It Be (Single Version)", "let it be"},
		{"Hey Jude - Remastered Version", "hey jude"},
		{"Come Together (2019 Mix)", "come together (2019 mix)"},
		{"   Extra   Spaces   ", "extra spaces"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeTrackName(tt.input))
		})
	}
}

func TestIsSameArtist(t *testing.T) {
	tests := []struct {
		name     string
		artist1  string
		artist2  string
		expected bool
	}{
		{"Same artist", "Queen", "Queen", true},
		{"Same artist - case insensitive", "Queen", "queen", true},
		{"Different artists", "The Beatles", "Paul McCartney", false},
		{"Empty artist", "", "Queen", false},
		{"Multiple artists - compare first", "Queen, David Bowie", "Queen & Someone Else", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isSameArtist(song("x", tt.artist1), song("x", tt.artist2))
			assert.Equal(t, tt.expected, result)
		})
	}
}
