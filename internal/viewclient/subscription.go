package viewclient

import (
	"context"
	"errors"
	"sync"

	"thinblog/internal/domain/slug"
)

var ErrClosed = errors.New("viewclient: subscription closed")

// State is what a consumer renders: the fresh counts known for its slugs and
// whether a refresh is still pending.
type State struct {
	Counts  Map
	Loading bool
}

// Subscription tracks one consumer's slug set. Results of a fetch started for
// an earlier slug set, or after Close, are discarded.
type Subscription struct {
	cache *Cache

	mu      sync.Mutex
	bundles []slug.Bundle
	gen     uint64
	closed  bool
	state   State
	changes chan State
}

func (s *Subscription) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Counts: s.state.Counts.clone(), Loading: s.state.Loading}
}

// Changes delivers the latest state after every update. Intermediate states
// may be skipped. The channel is closed by Close.
func (s *Subscription) Changes() <-chan State {
	return s.changes
}

// SetSlugs replaces the slug set and refreshes what is missing or expired.
func (s *Subscription) SetSlugs(ctx context.Context, slugs []string) {
	bundles := bundlesFor(slugs)
	snap, stale := s.cache.snapshot(ctx, bundles)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.gen++
	gen := s.gen
	s.bundles = bundles
	s.state = State{Counts: snap, Loading: len(stale) > 0}
	s.publishLocked()
	s.mu.Unlock()

	if len(stale) > 0 {
		go s.load(ctx, gen, stale)
	}
}

func (s *Subscription) load(ctx context.Context, gen uint64, stale []slug.Bundle) {
	got, _ := s.cache.request(ctx, stale)
	s.apply(gen, got)
}

// Refresh fetches every slug of the subscription regardless of freshness. It
// starts a new generation, so a background load still running for the same
// slug set is discarded when it lands.
func (s *Subscription) Refresh(ctx context.Context) (Map, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.gen++
	gen := s.gen
	bundles := s.bundles
	if len(bundles) > 0 {
		s.state.Loading = true
		s.publishLocked()
	}
	s.mu.Unlock()

	if len(bundles) == 0 {
		return Map{}, nil
	}
	got, err := s.cache.request(ctx, bundles)
	s.apply(gen, got)
	return got, err
}

// apply merges got into the state and clears Loading. A failed fetch passes
// nil and leaves the last known counts in place.
func (s *Subscription) apply(gen uint64, got Map) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.gen != gen {
		return
	}
	counts := s.state.Counts.clone()
	for k, e := range got {
		counts[k] = e
	}
	s.state = State{Counts: counts, Loading: false}
	s.publishLocked()
}

func (s *Subscription) publishLocked() {
	st := State{Counts: s.state.Counts.clone(), Loading: s.state.Loading}
	select {
	case <-s.changes:
	default:
	}
	s.changes <- st
}

func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.changes)
}
