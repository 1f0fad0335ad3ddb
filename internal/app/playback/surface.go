package playback

import (
	"context"

	"github.com/osa030/tunechat/internal/domain/track"
)

// Surface is the live audio-rendering element bound to one track.
//
// Load may be called again after a failure. Close must return promptly and
// must not call back into the controller; Done is closed when playback reaches
// the end of the stream.
type Surface interface {
	ID() string
	Load(ctx context.Context) error
	Play() error
	Pause() error
	SetVolume(level float64)
	Done() <-chan struct{}
	Close() error
}

// SurfaceFactory creates a surface for a track. Implementations route the
// track's audio locator through the track source proxy.
type SurfaceFactory interface {
	NewSurface(t *track.Track) Surface
}

// TrackSource is the external service producing the next recommended track.
// A nil track with a nil error means the source is exhausted.
type TrackSource interface {
	FetchNextTrack(ctx context.Context) (*track.Track, error)
}
