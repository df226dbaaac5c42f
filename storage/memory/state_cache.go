package memorystore

import (
	"context"
	"sync"
	"time"

	oidckit "github.com/PaulFidika/casting/oidc"
)

// StateCache is an in-memory oidckit.StateCache with TTL, for single-node
// deployments.
type StateCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	data      map[string]item
	now       func() time.Time
	closed    chan struct{}
	closeOnce sync.Once
}

type item struct {
	v   oidckit.StateData
	exp time.Time
}

// NewStateCache creates a cache whose entries live for ttl (10 minutes if
// ttl <= 0). A background goroutine sweeps expired entries every minute
// until Close.
func NewStateCache(ttl time.Duration) *StateCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	c := &StateCache{ttl: ttl, data: make(map[string]item), now: time.Now, closed: make(chan struct{})}
	go c.sweepLoop()
	return c
}

var _ oidckit.StateCache = (*StateCache)(nil)

func (s *StateCache) Put(_ context.Context, state string, v oidckit.StateData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[state] = item{v: v, exp: s.now().Add(s.ttl)}
	return nil
}

func (s *StateCache) Get(_ context.Context, state string) (oidckit.StateData, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.data[state]
	if !ok {
		return oidckit.StateData{}, false, nil
	}
	if s.now().After(it.exp) {
		delete(s.data, state)
		return oidckit.StateData{}, false, nil
	}
	return it.v, true, nil
}

// Take returns and removes the state under one lock.
func (s *StateCache) Take(_ context.Context, state string) (oidckit.StateData, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.data[state]
	if !ok {
		return oidckit.StateData{}, false, nil
	}
	delete(s.data, state)
	if s.now().After(it.exp) {
		return oidckit.StateData{}, false, nil
	}
	return it.v, true, nil
}

func (s *StateCache) Del(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, state)
	return nil
}

func (s *StateCache) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.closed:
			return
		}
	}
}

func (s *StateCache) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, v := range s.data {
		if now.After(v.exp) {
			delete(s.data, k)
		}
	}
}

// Close stops the sweeper. It is safe to call more than once.
func (s *StateCache) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}
