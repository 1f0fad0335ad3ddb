package playback

import "github.com/osa030/tunechat/internal/domain/track"

// Session is a point-in-time copy of the controller's playback session.
type Session struct {
	Current        *track.Track // Track bound to the live surface (nil when unbound)
	Prefetched     *track.Track // Look-ahead track (nil when empty)
	SurfaceID      string       // ID of the live surface
	RetryCount     int          // Consecutive load failures of Current
	IsPlaying      bool         // Play/pause intent
	State          State        // Live surface state
	Volume         float64      // Current volume (0..1)
	AdvancePending bool         // A delayed move to the next track is scheduled
}

// Idle reports whether no surface is bound and nothing is scheduled.
func (s Session) Idle() bool {
	return s.Current == nil && !s.AdvancePending
}
