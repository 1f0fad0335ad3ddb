package audio

import (
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunechat/internal/domain/track"
)

// Sink receives the audio bytes of one track.
// Close must return promptly, discarding anything not yet played.
type Sink interface {
	io.WriteCloser
}

// SinkFactory opens a sink for a track at the given volume (0..1).
type SinkFactory interface {
	NewSink(t *track.Track, volume float64) (Sink, error)
}

// VolumeSetter is implemented by sinks that can change volume while running.
type VolumeSetter interface {
	SetVolume(level float64) error
}

// Drainer is implemented by sinks that buffer output; Drain blocks until
// everything written has been played.
type Drainer interface {
	Drain() error
}

// DiscardSinkFactory creates sinks that drop audio at a fixed byte rate.
type DiscardSinkFactory struct {
	BytesPerSecond int
}

// NewSink creates a new discard sink.
func (f DiscardSinkFactory) NewSink(t *track.Track, volume float64) (Sink, error) {
	return NewDiscardSink(f.BytesPerSecond, volume), nil
}

// DiscardSink drops audio, taking as long as real playback would at its byte rate.
type DiscardSink struct {
	rate int

	mu      sync.Mutex
	written int64
	volume  float64
	closed  bool
}

// NewDiscardSink creates a sink paced at bytesPerSecond. Zero disables pacing.
func NewDiscardSink(bytesPerSecond int, volume float64) *DiscardSink {
	return &DiscardSink{rate: bytesPerSecond, volume: volume}
}

// Write discards p after the time it would take to play it.
func (d *DiscardSink) Write(p []byte) (int, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	d.written += int64(len(p))
	d.mu.Unlock()

	if d.rate > 0 {
		time.Sleep(time.Duration(float64(len(p)) / float64(d.rate) * float64(time.Second)))
	}
	return len(p), nil
}

// SetVolume records the volume.
func (d *DiscardSink) SetVolume(level float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.volume = level
	return nil
}

// Written returns the number of bytes accepted.
func (d *DiscardSink) Written() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.written
}

// Volume returns the last volume set.
func (d *DiscardSink) Volume() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.volume
}

// Close closes the sink.
func (d *DiscardSink) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// CommandSinkFactory starts an external player per track, e.g.
// ["ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", "-volume", "{volume}", "-"].
// Placeholders: {volume} (0-100), {song}, {artist}.
type CommandSinkFactory struct {
	Command []string
}

// NewSink starts the player command for t.
func (f CommandSinkFactory) NewSink(t *track.Track, volume float64) (Sink, error) {
	if len(f.Command) == 0 {
		return nil, errors.New("sink command is empty")
	}

	args := make([]string, len(f.Command))
	for i, arg := range f.Command {
		args[i] = expandPlaceholders(arg, t, volume)
	}
	return StartCommandSink(args[0], args[1:]...)
}

func expandPlaceholders(arg string, t *track.Track, volume float64) string {
	r := strings.NewReplacer(
		"{volume}", fmt.Sprintf("%d", int(math.Round(volume*100))),
		"{song}", t.SongName,
		"{artist}", t.ArtistName,
	)
	return r.Replace(arg)
}

// CommandSink writes audio to the stdin of an external process.
type CommandSink struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	once    sync.Once
	waitErr error
	waited  chan struct{}
}

// StartCommandSink starts name with args and returns a sink feeding its stdin.
func StartCommandSink(name string, args ...string) (*CommandSink, error) {
	cmd := exec.Command(name, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open stdin pipe")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start %s", name)
	}
	zlog.Debug().Msgf("audio: started sink command: pid=%d command=%s", cmd.Process.Pid, name)

	s := &CommandSink{cmd: cmd, stdin: stdin, waited: make(chan struct{})}
	go func() {
		s.waitErr = cmd.Wait()
		close(s.waited)
	}()
	return s, nil
}

// Write writes audio to the process.
func (s *CommandSink) Write(p []byte) (int, error) {
	return s.stdin.Write(p)
}

// Drain closes stdin and waits for the process to play out and exit.
func (s *CommandSink) Drain() error {
	s.closeStdin()
	<-s.waited
	if s.waitErr != nil {
		return errors.Wrap(s.waitErr, "sink command failed")
	}
	return nil
}

// Close stops the process immediately.
func (s *CommandSink) Close() error {
	s.closeStdin()
	select {
	case <-s.waited:
		return nil
	default:
	}
	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return errors.Wrap(err, "failed to stop sink command")
	}
	return nil
}

func (s *CommandSink) closeStdin() {
	s.once.Do(func() {
		s.stdin.Close()
	})
}
