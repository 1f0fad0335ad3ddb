package audio

import (
	"github.com/osa030/tunechat/internal/app/playback"
	"github.com/osa030/tunechat/internal/domain/track"
)

// Factory creates stream surfaces reading through the track source proxy.
type Factory struct {
	opener Opener
	sinks  SinkFactory
}

// NewFactory creates a new surface factory.
func NewFactory(opener Opener, sinks SinkFactory) *Factory {
	return &Factory{opener: opener, sinks: sinks}
}

// NewSurface creates a surface for t.
func (f *Factory) NewSurface(t *track.Track) playback.Surface {
	return NewStreamSurface(t, f.opener, f.sinks)
}
