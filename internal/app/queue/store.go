// Package queue serves each listener's recommendation list one track at a time.
package queue

import (
	"context"

	"github.com/osa030/tunechat/internal/domain/track"
)

// Cursor is a listener's recommendation list and the number of tracks
// already served from it.
type Cursor struct {
	Tracks []track.Track `json:"tracks"`
	Index  int           `json:"index"`
}

// Exhausted reports whether every track has been served.
func (c *Cursor) Exhausted() bool {
	return c.Index >= len(c.Tracks)
}

// Store persists cursors by listener ID.
type Store interface {
	// Load returns the listener's cursor, or nil when there is none.
	Load(ctx context.Context, listenerID string) (*Cursor, error)
	Save(ctx context.Context, listenerID string, c *Cursor) error
	Delete(ctx context.Context, listenerID string) error
}
