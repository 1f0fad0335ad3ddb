// Package track provides the Track domain entity.
package track

import "strings"

// Track represents one playable recommendation.
// A Track is immutable once obtained and is passed around as *Track,
// so two distinct fetches of the same song are never the same value.
type Track struct {
	ID         string // Provider track ID (optional)
	SongName   string // Song name
	ArtistName string // Artist name
	Album      string // Album or movie name (optional)
	AudioURL   string // Opaque audio locator, always resolved through the proxy
	Source     string // Display name of the provider that produced the track
}

// HasAudio reports whether the track carries an audio locator.
func (t *Track) HasAudio() bool {
	return t != nil && strings.TrimSpace(t.AudioURL) != ""
}

// Key returns a case-insensitive song/artist key used for duplicate detection.
func (t *Track) Key() string {
	return strings.ToLower(strings.TrimSpace(t.SongName)) + "\x00" +
		strings.ToLower(strings.TrimSpace(t.ArtistName))
}

// String returns "<song> - <artist>".
func (t *Track) String() string {
	if t == nil {
		return "<none>"
	}
	if t.ArtistName == "" {
		return t.SongName
	}
	return t.SongName + " - " + t.ArtistName
}

// WithAudio returns a copy of the track bound to the given audio locator.
func (t Track) WithAudio(audioURL string) *Track {
	t.AudioURL = audioURL
	return &t
}
