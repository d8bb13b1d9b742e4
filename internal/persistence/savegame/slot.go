package savegame

import (
	"context"
	"errors"
	"log"
	"time"

	"phaseout.no/internal/persistence/kv"
	"phaseout.no/internal/sim/game"
)

const DefaultKey = "phaseout.game.v1"

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Slot is the single saved game under Key in Store. It implements
// game.Persister; nothing it does returns an error to the caller.
type Slot struct {
	Store  kv.Store
	Key    string
	Clock  Clock
	Logger *log.Logger
}

var _ game.Persister = (*Slot)(nil)

func (s *Slot) key() string {
	if s.Key == "" {
		return DefaultKey
	}
	return s.Key
}

func (s *Slot) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Slot) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Save writes the full payload, then the reduced payload if that fails, then
// gives up with a log line.
func (s *Slot) Save(st game.State) {
	ctx := context.Background()
	now := s.now()
	full, err := Encode(st, now)
	if err == nil {
		if err = s.Store.Set(ctx, s.key(), full); err == nil {
			return
		}
	}
	s.logf("save: full payload failed: %v; writing fallback", err)

	small, err := EncodeFallback(st, now)
	if err == nil {
		if err = s.Store.Set(ctx, s.key(), small); err == nil {
			return
		}
	}
	s.logf("save: fallback payload failed: %v", err)
}

// Load returns the saved game layered over fresh. A missing key yields fresh;
// a malformed or unreadable blob yields fresh and is removed. Any other store
// error yields fresh and leaves the key alone.
func (s *Slot) Load(fresh game.State) game.State {
	ctx := context.Background()
	raw, err := s.Store.Get(ctx, s.key())
	if errors.Is(err, kv.ErrNotFound) {
		return fresh
	}
	if err != nil && !errors.Is(err, kv.ErrCorrupt) {
		s.logf("load: %v; starting fresh", err)
		return fresh
	}
	if err == nil {
		var st game.State
		if st, err = Decode(raw, fresh); err == nil {
			return st
		}
	}
	s.logf("load: %v; clearing saved game", err)
	if rmErr := s.Store.Remove(ctx, s.key()); rmErr != nil {
		s.logf("load: remove corrupt save: %v", rmErr)
	}
	return fresh
}

func (s *Slot) Clear() {
	if err := s.Store.Remove(context.Background(), s.key()); err != nil {
		s.logf("clear: %v", err)
	}
}
