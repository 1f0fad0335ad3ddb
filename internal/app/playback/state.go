// Package playback provides the playback queue controller: one live surface,
// a one-slot prefetch, bounded load retry and auto-advance.
package playback

// State represents the state of the live playback surface.
type State int

const (
	StateUnbound  State = iota // No surface bound
	StateLoading               // Surface is loading audio
	StatePlaying               // Surface is playing
	StatePaused                // Surface is loaded but paused
	StateFinished              // Surface played to the end
	StateFailed                // Last load attempt failed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
