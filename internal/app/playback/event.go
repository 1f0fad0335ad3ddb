package playback

import "github.com/osa030/tunechat/internal/domain/track"

// EventType represents a playback event type.
type EventType int

const (
	EventTrackDisplayed EventType = iota // New surface bound to a track
	EventStateChanged                    // Play/pause state changed
	EventTrackFinished                   // Surface reached the natural end
	EventLoadRetry                       // Load failed, retry scheduled
	EventLoadFailed                      // Load retries exhausted, surface torn down
	EventTrackSkipped                    // User skipped the current track
	EventPrefetched                      // Look-ahead slot filled
	EventQueueEmpty                      // Source has no next track, session idle
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackDisplayed:
		return "track_displayed"
	case EventStateChanged:
		return "state_changed"
	case EventTrackFinished:
		return "track_finished"
	case EventLoadRetry:
		return "load_retry"
	case EventLoadFailed:
		return "load_failed"
	case EventTrackSkipped:
		return "track_skipped"
	case EventPrefetched:
		return "prefetched"
	case EventQueueEmpty:
		return "queue_empty"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type       EventType
	Track      *track.Track // Track concerned (nil for queue_empty)
	State      State        // Surface state after the event
	RetryCount int          // Consecutive load failures of the current track
	Err        error        // Load error for load_retry/load_failed
}
