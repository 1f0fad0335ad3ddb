// Package audio renders proxied audio streams into output sinks.
package audio

import (
	"context"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunechat/internal/domain/track"
)

const (
	chunkSize     = 8 * 1024
	maxReconnects = 2
)

// Errors
var (
	ErrNotLoaded    = errors.New("surface not loaded")
	ErrSurfaceClose = errors.New("surface closed")
	ErrEmptyStream  = errors.New("audio stream is empty")
)

// Opener opens an audio stream for a locator at a byte offset.
type Opener interface {
	ResolveAudio(ctx context.Context, locator string, offset int64) (io.ReadCloser, error)
}

// StreamSurface plays one track by pumping its proxied stream into a sink.
type StreamSurface struct {
	id    string
	track *track.Track

	opener Opener
	sinks  SinkFactory

	mu         sync.Mutex
	body       io.ReadCloser
	first      []byte
	offset     int64
	sink       Sink
	volume     float64
	playing    bool
	pumping    bool
	closed     bool
	reconnects int

	wake     chan struct{}
	done     chan struct{}
	doneOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
}

// NewStreamSurface creates a surface for t.
func NewStreamSurface(t *track.Track, opener Opener, sinks SinkFactory) *StreamSurface {
	ctx, cancel := context.WithCancel(context.Background())
	return &StreamSurface{
		id:     uuid.New().String(),
		track:  t,
		opener: opener,
		sinks:  sinks,
		volume: 1,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ID returns the surface ID.
func (s *StreamSurface) ID() string {
	return s.id
}

// Load opens the stream and reads the first chunk.
// It may be called again after a failure.
func (s *StreamSurface) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSurfaceClose
	}
	if s.body != nil {
		s.body.Close()
		s.body = nil
	}
	s.first = nil
	s.offset = 0
	s.mu.Unlock()

	body, err := s.opener.ResolveAudio(ctx, s.track.AudioURL, 0)
	if err != nil {
		return errors.Wrap(err, "failed to open audio stream")
	}

	buf := make([]byte, chunkSize)
	n, err := io.ReadAtLeast(body, buf, 1)
	if err != nil {
		body.Close()
		if errors.Is(err, io.EOF) {
			return ErrEmptyStream
		}
		return errors.Wrap(err, "failed to read audio stream")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		body.Close()
		return ErrSurfaceClose
	}
	s.body = body
	s.first = buf[:n]
	s.offset = int64(n)
	zlog.Debug().Msgf("audio: loaded stream: surface=%s track=%s first_chunk=%d", s.id, s.track, n)
	return nil
}

// Play starts or resumes output.
func (s *StreamSurface) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSurfaceClose
	}
	if s.body == nil {
		return ErrNotLoaded
	}

	if s.sink == nil {
		sink, err := s.sinks.NewSink(s.track, s.volume)
		if err != nil {
			return errors.Wrap(err, "failed to open sink")
		}
		s.sink = sink
	}

	s.playing = true
	if !s.pumping {
		s.pumping = true
		go s.pump()
	}
	s.signal()
	return nil
}

// Pause suspends output. The stream stays open.
func (s *StreamSurface) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSurfaceClose
	}
	s.playing = false
	return nil
}

// SetVolume sets the output volume. Sinks that cannot change volume while
// running pick it up on the next track.
func (s *StreamSurface) SetVolume(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.volume = level
	if vs, ok := s.sink.(VolumeSetter); ok {
		if err := vs.SetVolume(level); err != nil {
			zlog.Warn().Msgf("audio: failed to set volume: surface=%s error=%v", s.id, err)
		}
	}
}

// Done is closed when the stream has been played to the end.
func (s *StreamSurface) Done() <-chan struct{} {
	return s.done
}

// Close stops output and releases the stream and sink.
func (s *StreamSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.playing = false
	s.cancel()

	var errs error
	if s.body != nil {
		errs = errors.CombineErrors(errs, s.body.Close())
		s.body = nil
	}
	if s.sink != nil {
		errs = errors.CombineErrors(errs, s.sink.Close())
		s.sink = nil
	}
	return errs
}

func (s *StreamSurface) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pump copies the stream into the sink while playing.
func (s *StreamSurface) pump() {
	buf := make([]byte, chunkSize)
	for {
		chunk, ok := s.nextChunk(buf)
		if !ok {
			return
		}

		s.mu.Lock()
		sink := s.sink
		s.mu.Unlock()
		if sink == nil {
			return
		}

		if _, err := sink.Write(chunk); err != nil {
			if s.ctx.Err() != nil {
				return
			}
			zlog.Warn().Msgf("audio: sink write failed, ending track: surface=%s error=%v", s.id, err)
			s.finish(sink)
			return
		}
	}
}

// nextChunk waits until playing and returns the next chunk of audio.
// It returns false when the surface is closed or the stream has ended.
func (s *StreamSurface) nextChunk(buf []byte) ([]byte, bool) {
	for {
		s.mu.Lock()
		for !s.playing && !s.closed {
			s.mu.Unlock()
			select {
			case <-s.wake:
			case <-s.ctx.Done():
				return nil, false
			}
			s.mu.Lock()
		}
		if s.closed {
			s.mu.Unlock()
			return nil, false
		}
		if s.first != nil {
			chunk := s.first
			s.first = nil
			s.mu.Unlock()
			return chunk, true
		}
		body := s.body
		s.mu.Unlock()

		n, err := body.Read(buf)
		if n > 0 {
			s.mu.Lock()
			s.offset += int64(n)
			s.mu.Unlock()
			return buf[:n], true
		}
		if err == nil {
			continue
		}
		if s.ctx.Err() != nil {
			return nil, false
		}
		if errors.Is(err, io.EOF) {
			s.finish(s.currentSink())
			return nil, false
		}
		if !s.reconnect(err) {
			s.finish(s.currentSink())
			return nil, false
		}
	}
}

// reconnect reopens the stream at the current offset after a read error.
func (s *StreamSurface) reconnect(cause error) bool {
	s.mu.Lock()
	if s.closed || s.reconnects >= maxReconnects {
		s.mu.Unlock()
		zlog.Warn().Msgf("audio: stream interrupted, giving up: surface=%s error=%v", s.id, cause)
		return false
	}
	s.reconnects++
	offset := s.offset
	old := s.body
	s.mu.Unlock()

	old.Close()
	zlog.Info().Msgf("audio: stream interrupted, resuming at byte %d: surface=%s error=%v", offset, s.id, cause)

	body, err := s.opener.ResolveAudio(s.ctx, s.track.AudioURL, offset)
	if err != nil {
		zlog.Warn().Msgf("audio: failed to resume stream: surface=%s error=%v", s.id, err)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		body.Close()
		return false
	}
	s.body = body
	return true
}

func (s *StreamSurface) currentSink() Sink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink
}

// finish drains the sink and reports the natural end of the track.
func (s *StreamSurface) finish(sink Sink) {
	if d, ok := sink.(Drainer); ok {
		if err := d.Drain(); err != nil && s.ctx.Err() == nil {
			zlog.Warn().Msgf("audio: failed to drain sink: surface=%s error=%v", s.id, err)
		}
	}
	if s.ctx.Err() != nil {
		return
	}
	s.mu.Lock()
	written := s.offset
	s.mu.Unlock()
	zlog.Debug().Msgf("audio: track ended: surface=%s track=%s bytes=%d", s.id, s.track, written)
	s.doneOnce.Do(func() { close(s.done) })
}
