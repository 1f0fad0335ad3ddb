package playback

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunechat/internal/app/retry"
	"github.com/osa030/tunechat/internal/domain/track"
)

// Errors
var (
	ErrNoTrack    = errors.New("no track bound")
	ErrNoAudio    = errors.New("track has no audio locator")
	ErrNotPlaying = errors.New("surface is not playable")
	ErrClosed     = errors.New("controller closed")
)

// Config holds controller configuration.
type Config struct {
	LoadRetries    int           // Retries after the first failed load of a track
	RetryBackoff   time.Duration // Fixed delay between load attempts
	ColdFetchDelay time.Duration // Delay before fetching when nothing was prefetched
	SkipDelay      time.Duration // Delay before advancing after a terminal load failure
	FetchTimeout   time.Duration // Timeout of one next-track request
	Prefetch       bool          // Keep the look-ahead slot filled
	InitialVolume  float64       // Volume applied to new surfaces (0..1)
}

// DefaultConfig returns the stock timings.
func DefaultConfig() Config {
	return Config{
		LoadRetries:    3,
		RetryBackoff:   2 * time.Second,
		ColdFetchDelay: time.Second,
		SkipDelay:      2 * time.Second,
		FetchTimeout:   10 * time.Second,
		Prefetch:       true,
		InitialVolume:  1,
	}
}

// Option customizes a Controller.
type Option func(*Controller)

// WithScheduler replaces the timer used for delayed advances.
// schedule must run fn after d and return a cancel function.
func WithScheduler(schedule func(d time.Duration, fn func()) (cancel func())) Option {
	return func(c *Controller) { c.schedule = schedule }
}

// WithRetryWait replaces the wait used between load attempts.
func WithRetryWait(wait func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Controller) { c.retryWait = wait }
}

// binding is one live surface bound to a track.
type binding struct {
	track      *track.Track
	surface    Surface
	state      State
	retryCount int
	isPlaying  bool
	autoPlay   bool

	ctx    context.Context
	cancel context.CancelFunc
}

// advance is a pending delayed move to the next track.
type advance struct {
	reason string
	cancel func()
}

// prefetch is an in-flight look-ahead request.
type prefetch struct{}

// Controller drives one playback session.
type Controller struct {
	mu sync.Mutex

	source  TrackSource
	factory SurfaceFactory
	config  Config

	// Session state
	current     *binding
	prefetched  *track.Track
	volume      float64
	pendingAdv  *advance
	pendingPref *prefetch
	closed      bool

	schedule  func(d time.Duration, fn func()) (cancel func())
	retryWait func(ctx context.Context, d time.Duration) error

	eventCh chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

// NewController creates a new playback controller.
func NewController(source TrackSource, factory SurfaceFactory, config Config, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		source:    source,
		factory:   factory,
		config:    config,
		volume:    clampVolume(config.InitialVolume),
		schedule:  afterFunc,
		retryWait: retry.Sleep,
		eventCh:   make(chan Event, 64),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// DisplayTrack binds t as the current track, tearing down the previous surface.
// If autoPlay is set, playback starts as soon as the audio is loaded.
func (c *Controller) DisplayTrack(t *track.Track, autoPlay bool) error {
	if !t.HasAudio() {
		return ErrNoAudio
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.displayLocked(t, autoPlay)
	return nil
}

// OnPlaybackFinished handles the natural end of the current surface.
func (c *Controller) OnPlaybackFinished() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.finishLocked(c.current)
	}
}

// PreloadNext requests the next track in the background and stores it in
// the look-ahead slot. Failures only clear the slot.
func (c *Controller) PreloadNext() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.preloadLocked()
}

// Skip abandons the current track, including any pending retry, and moves on
// to the prefetched track or a freshly fetched one.
func (c *Controller) Skip() error {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	c.cancelAdvanceLocked()
	if b := c.current; b != nil {
		c.sendEventLocked(Event{
			Type:       EventTrackSkipped,
			Track:      b.track,
			State:      StateUnbound,
			RetryCount: b.retryCount,
		})
		c.unbindLocked()
	}

	if next := c.takePrefetchedLocked(); next != nil {
		c.displayLocked(next, true)
		c.preloadLocked()
		c.mu.Unlock()
		return nil
	}

	adv := &advance{reason: "skip"}
	c.pendingAdv = adv
	c.mu.Unlock()

	c.runAdvance(adv)
	return nil
}

// Start begins playback from the track source when the session is idle.
// It is a no-op while a track is bound or an advance is pending.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.current != nil || c.pendingAdv != nil {
		c.mu.Unlock()
		return nil
	}
	adv := &advance{reason: "start"}
	c.pendingAdv = adv
	c.mu.Unlock()

	c.runAdvance(adv)
	return nil
}

// TogglePlayPause flips between playing and paused on the live surface.
func (c *Controller) TogglePlayPause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.current
	if b == nil {
		return ErrNoTrack
	}

	switch b.state {
	case StateLoading, StateFailed:
		// Not loaded yet: record the intent, applied when loading completes.
		b.autoPlay = !b.autoPlay
		b.isPlaying = b.autoPlay
	case StatePlaying:
		b.isPlaying = false
		if err := b.surface.Pause(); err != nil {
			return errors.Wrap(err, "failed to pause")
		}
		b.state = StatePaused
	case StatePaused:
		b.isPlaying = true
		if err := b.surface.Play(); err != nil {
			b.isPlaying = false
			return errors.Wrap(err, "failed to play")
		}
		b.state = StatePlaying
	default:
		return ErrNotPlaying
	}

	c.sendEventLocked(Event{
		Type:       EventStateChanged,
		Track:      b.track,
		State:      b.state,
		RetryCount: b.retryCount,
	})
	return nil
}

// SetVolume sets the volume (clamped to 0..1) for the live and future surfaces.
func (c *Controller) SetVolume(level float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.volume = clampVolume(level)
	if c.current != nil {
		c.current.surface.SetVolume(c.volume)
	}
}

// Snapshot returns a copy of the session state.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Session{
		Prefetched:     c.prefetched,
		Volume:         c.volume,
		State:          StateUnbound,
		AdvancePending: c.pendingAdv != nil,
	}
	if b := c.current; b != nil {
		s.Current = b.track
		s.SurfaceID = b.surface.ID()
		s.RetryCount = b.retryCount
		s.IsPlaying = b.isPlaying
		s.State = b.state
	}
	return s
}

// Close tears down the session. Pending timers become no-ops.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.cancelAdvanceLocked()
	c.unbindLocked()
	c.prefetched = nil
	c.pendingPref = nil
	c.closed = true
	c.cancel()
	close(c.eventCh)
}

// displayLocked binds a new surface for t.
// Must be called with lock held.
func (c *Controller) displayLocked(t *track.Track, autoPlay bool) {
	c.cancelAdvanceLocked()
	c.unbindLocked()

	if c.prefetched == t {
		c.prefetched = nil
	}

	ctx, cancel := context.WithCancel(c.ctx)
	b := &binding{
		track:     t,
		surface:   c.factory.NewSurface(t),
		state:     StateLoading,
		autoPlay:  autoPlay,
		isPlaying: autoPlay,
		ctx:       ctx,
		cancel:    cancel,
	}
	b.surface.SetVolume(c.volume)
	c.current = b

	zlog.Debug().Msgf("playback: displaying track: track=%s surface=%s autoplay=%v", t, b.surface.ID(), autoPlay)
	c.sendEventLocked(Event{
		Type:  EventTrackDisplayed,
		Track: t,
		State: b.state,
	})

	go c.load(b)
}

// load loads the surface with bounded retry and starts playback on success.
func (c *Controller) load(b *binding) {
	policy := retry.Policy{
		MaxAttempts: c.config.LoadRetries + 1,
		Backoff:     c.config.RetryBackoff,
		Wait:        c.retryWait,
		OnRetry: func(attempt int, err error) {
			c.mu.Lock()
			defer c.mu.Unlock()

			if c.current != b {
				return
			}
			b.retryCount++
			b.state = StateFailed
			zlog.Warn().Msgf("playback: load failed, retrying: track=%s attempt=%d backoff=%v error=%v",
				b.track, attempt, c.config.RetryBackoff, err)
			c.sendEventLocked(Event{
				Type:       EventLoadRetry,
				Track:      b.track,
				State:      b.state,
				RetryCount: b.retryCount,
				Err:        err,
			})
		},
	}

	err := retry.Do(b.ctx, policy, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			c.mu.Lock()
			stale := c.current != b
			if !stale {
				b.state = StateLoading
			}
			c.mu.Unlock()
			if stale {
				return retry.Permanent(context.Canceled)
			}
		}
		return b.surface.Load(ctx)
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != b {
		// Replaced or skipped while loading.
		return
	}

	if err != nil {
		c.failLocked(b, err)
		return
	}

	if b.autoPlay {
		if err := b.surface.Play(); err != nil {
			c.failLocked(b, errors.Wrap(err, "failed to start playback"))
			return
		}
		b.state = StatePlaying
		b.isPlaying = true
	} else {
		b.state = StatePaused
		b.isPlaying = false
	}

	c.sendEventLocked(Event{
		Type:       EventStateChanged,
		Track:      b.track,
		State:      b.state,
		RetryCount: b.retryCount,
	})

	go c.watch(b)
}

// watch waits for the natural end of the surface.
func (c *Controller) watch(b *binding) {
	select {
	case <-b.surface.Done():
		c.mu.Lock()
		defer c.mu.Unlock()
		c.finishLocked(b)
	case <-b.ctx.Done():
	}
}

// finishLocked handles the end of b: prefetch hit or delayed cold fetch.
// Must be called with lock held.
func (c *Controller) finishLocked(b *binding) {
	if c.closed || c.current != b || b.state == StateFinished {
		return
	}
	// A surface that never finished loading cannot end naturally.
	if b.state != StatePlaying && b.state != StatePaused {
		return
	}

	b.state = StateFinished
	b.isPlaying = false
	c.sendEventLocked(Event{
		Type:       EventTrackFinished,
		Track:      b.track,
		State:      b.state,
		RetryCount: b.retryCount,
	})

	if next := c.takePrefetchedLocked(); next != nil {
		zlog.Debug().Msgf("playback: prefetch hit: next=%s", next)
		c.displayLocked(next, true)
		c.preloadLocked()
		return
	}

	zlog.Debug().Msgf("playback: prefetch miss, fetching in %v", c.config.ColdFetchDelay)
	c.scheduleAdvanceLocked(c.config.ColdFetchDelay, "cold_fetch")
}

// failLocked handles a terminal load failure of b.
// Must be called with lock held.
func (c *Controller) failLocked(b *binding, err error) {
	b.state = StateFailed
	b.isPlaying = false
	zlog.Error().Msgf("playback: giving up on track: track=%s retries=%d error=%v", b.track, b.retryCount, err)
	c.sendEventLocked(Event{
		Type:       EventLoadFailed,
		Track:      b.track,
		State:      StateUnbound,
		RetryCount: b.retryCount,
		Err:        err,
	})

	c.unbindLocked()
	c.scheduleAdvanceLocked(c.config.SkipDelay, "load_failed")
}

// scheduleAdvanceLocked schedules a move to the next track after delay.
// Must be called with lock held.
func (c *Controller) scheduleAdvanceLocked(delay time.Duration, reason string) {
	c.cancelAdvanceLocked()

	adv := &advance{reason: reason}
	c.pendingAdv = adv
	adv.cancel = c.schedule(delay, func() {
		c.runAdvance(adv)
	})
}

// runAdvance performs a pending advance unless it was cancelled or replaced.
func (c *Controller) runAdvance(adv *advance) {
	c.mu.Lock()
	if c.closed || c.pendingAdv != adv {
		c.mu.Unlock()
		return
	}
	// Peek only: if the advance turns out stale the slot stays filled.
	next := c.prefetched
	c.mu.Unlock()

	if next == nil {
		next = c.fetch()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.pendingAdv != adv {
		// The user moved on while the request was in flight.
		return
	}
	c.pendingAdv = nil
	if next != nil && next == c.prefetched {
		c.prefetched = nil
	}

	if next == nil {
		c.idleLocked()
		return
	}

	zlog.Debug().Msgf("playback: advancing: reason=%s next=%s", adv.reason, next)
	c.displayLocked(next, true)
	c.preloadLocked()
}

// idleLocked resets the session after the source ran dry.
// Must be called with lock held.
func (c *Controller) idleLocked() {
	c.unbindLocked()
	c.prefetched = nil
	zlog.Info().Msg("playback: no next track, idling")
	c.sendEventLocked(Event{
		Type:  EventQueueEmpty,
		State: StateUnbound,
	})
}

// preloadLocked starts a background fetch into the look-ahead slot.
// Must be called with lock held.
func (c *Controller) preloadLocked() {
	if !c.config.Prefetch {
		return
	}

	p := &prefetch{}
	c.pendingPref = p

	go func() {
		next := c.fetch()

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.closed || c.pendingPref != p {
			return
		}
		c.pendingPref = nil

		if next != nil && c.current != nil && c.current.track == next {
			next = nil
		}
		c.prefetched = next
		if next != nil {
			c.sendEventLocked(Event{
				Type:  EventPrefetched,
				Track: next,
				State: c.currentStateLocked(),
			})
		}
	}()
}

// fetch asks the source for the next track. Errors are logged and reported as nil.
func (c *Controller) fetch() *track.Track {
	ctx := c.ctx
	if c.config.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.FetchTimeout)
		defer cancel()
	}

	t, err := c.source.FetchNextTrack(ctx)
	if err != nil {
		zlog.Warn().Msgf("playback: failed to fetch next track: %v", err)
		return nil
	}
	if t == nil {
		return nil
	}
	if !t.HasAudio() {
		zlog.Warn().Msgf("playback: next track has no audio locator, ignoring: track=%s", t)
		return nil
	}
	return t
}

// takePrefetchedLocked empties the look-ahead slot and returns its content.
// Must be called with lock held.
func (c *Controller) takePrefetchedLocked() *track.Track {
	t := c.prefetched
	c.prefetched = nil
	return t
}

// unbindLocked tears down the live surface.
// Must be called with lock held.
func (c *Controller) unbindLocked() {
	b := c.current
	if b == nil {
		return
	}
	c.current = nil
	b.cancel()
	b.isPlaying = false
	if err := b.surface.Close(); err != nil {
		zlog.Warn().Msgf("playback: failed to close surface: surface=%s error=%v", b.surface.ID(), err)
	}
}

// cancelAdvanceLocked cancels a pending delayed advance.
// Must be called with lock held.
func (c *Controller) cancelAdvanceLocked() {
	if c.pendingAdv == nil {
		return
	}
	if c.pendingAdv.cancel != nil {
		c.pendingAdv.cancel()
	}
	c.pendingAdv = nil
}

func (c *Controller) currentStateLocked() State {
	if c.current == nil {
		return StateUnbound
	}
	return c.current.state
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(e Event) {
	if c.closed {
		return
	}
	select {
	case c.eventCh <- e:
	default:
		// Channel full, drop event
	}
}

// afterFunc schedules fn on a runtime timer.
func afterFunc(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

func clampVolume(level float64) float64 {
	switch {
	case level < 0:
		return 0
	case level > 1:
		return 1
	default:
		return level
	}
}
