package queue

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunechat/internal/app/filter"
	"github.com/osa030/tunechat/internal/domain/track"
)

// ErrNoSongs is returned when no list could be built for a listener.
var ErrNoSongs = errors.New("no songs available")

// Candidates produces recommendation candidates.
type Candidates interface {
	Tracks(ctx context.Context, count int) ([]track.Track, error)
}

// Checker decides whether a candidate may join a list.
type Checker interface {
	Execute(ctx context.Context, candidate track.Track, history []track.Track) filter.Result
}

// Resolver finds an audio locator for a track without one.
type Resolver interface {
	Resolve(ctx context.Context, song, artist string) (string, error)
}

// Service hands out each listener's recommendations in order.
type Service struct {
	store     Store
	source    Candidates
	checker   Checker
	resolver  Resolver
	batchSize int

	locks sync.Map // listener ID -> *sync.Mutex
}

// NewService creates a queue service. checker and resolver may be nil.
func NewService(store Store, source Candidates, checker Checker, resolver Resolver, batchSize int) *Service {
	if batchSize < 1 {
		batchSize = 20
	}
	return &Service{
		store:     store,
		source:    source,
		checker:   checker,
		resolver:  resolver,
		batchSize: batchSize,
	}
}

func (s *Service) lock(listenerID string) func() {
	v, _ := s.locks.LoadOrStore(listenerID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Next returns the listener's next track. ok is false once the list is
// exhausted; the list is kept, so later calls stay exhausted until Reset.
// Tracks without audio are resolved on the way out and the locator is
// persisted; tracks that cannot be resolved are skipped.
func (s *Service) Next(ctx context.Context, listenerID string) (t *track.Track, ok bool, err error) {
	unlock := s.lock(listenerID)
	defer unlock()

	cur, err := s.store.Load(ctx, listenerID)
	if err != nil {
		return nil, false, err
	}
	if cur == nil || len(cur.Tracks) == 0 {
		if cur, err = s.seed(ctx); err != nil {
			return nil, false, err
		}
		zlog.Info().Msgf("queue: seeded %d tracks for listener %s", len(cur.Tracks), listenerID)
	}

	for !cur.Exhausted() {
		i := cur.Index
		cur.Index++

		if !cur.Tracks[i].HasAudio() {
			audioURL, err := s.resolve(ctx, &cur.Tracks[i])
			if err != nil {
				if ctx.Err() != nil {
					return nil, false, ctx.Err()
				}
				zlog.Warn().Err(err).Msgf("queue: skipping %s", cur.Tracks[i].String())
				continue
			}
			cur.Tracks[i].AudioURL = audioURL
		}

		if err := s.store.Save(ctx, listenerID, cur); err != nil {
			return nil, false, err
		}
		next := cur.Tracks[i]
		return &next, true, nil
	}

	if err := s.store.Save(ctx, listenerID, cur); err != nil {
		return nil, false, err
	}
	return nil, false, nil
}

// Reset discards the listener's list; the next call to Next builds a new one.
func (s *Service) Reset(ctx context.Context, listenerID string) error {
	unlock := s.lock(listenerID)
	defer unlock()

	return s.store.Delete(ctx, listenerID)
}

func (s *Service) seed(ctx context.Context) (*Cursor, error) {
	candidates, err := s.source.Tracks(ctx, s.batchSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get candidates")
	}

	accepted := make([]track.Track, 0, s.batchSize)
	for _, c := range candidates {
		if len(accepted) >= s.batchSize {
			break
		}
		if s.checker != nil {
			if res := s.checker.Execute(ctx, c, accepted); !res.Accepted {
				zlog.Debug().Msgf("queue: rejected %s: %s", c.String(), res.Code)
				continue
			}
		}
		accepted = append(accepted, c)
	}

	if len(accepted) == 0 {
		return nil, ErrNoSongs
	}
	return &Cursor{Tracks: accepted}, nil
}

func (s *Service) resolve(ctx context.Context, t *track.Track) (string, error) {
	if s.resolver == nil {
		return "", errors.New("no audio and no resolver")
	}
	return s.resolver.Resolve(ctx, t.SongName, t.ArtistName)
}
