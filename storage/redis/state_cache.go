package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	oidckit "github.com/PaulFidika/casting/oidc"
	"github.com/redis/go-redis/v9"
)

// DefaultStatePrefix namespaces login states when no prefix is given.
const DefaultStatePrefix = "casting:login:state:"

// ErrStatePending is returned by Put when the state value is already in use.
var ErrStatePending = errors.New("redisstore: login state already pending")

// StateCache keeps pending login states in redis so any replica can finish a
// login another one started. Take consumes a state with GETDEL, so two
// callbacks racing on one state cannot both redeem it.
type StateCache struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewStateCache returns a cache over rdb. An empty prefix selects
// DefaultStatePrefix; a non-positive ttl selects ten minutes.
func NewStateCache(rdb redis.Cmdable, prefix string, ttl time.Duration) *StateCache {
	if prefix == "" {
		prefix = DefaultStatePrefix
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

var _ oidckit.StateCache = (*StateCache)(nil)

// Put stores data under state with the cache TTL. It never overwrites.
func (s *StateCache) Put(ctx context.Context, state string, data oidckit.StateData) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("redisstore: encode state: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, s.prefix+state, b, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redisstore: put state: %w", err)
	}
	if !ok {
		return ErrStatePending
	}
	return nil
}

// Get returns the pending state without consuming it.
func (s *StateCache) Get(ctx context.Context, state string) (oidckit.StateData, bool, error) {
	return s.decode(s.rdb.Get(ctx, s.prefix+state))
}

// Take returns the pending state and removes it in one round trip.
func (s *StateCache) Take(ctx context.Context, state string) (oidckit.StateData, bool, error) {
	return s.decode(s.rdb.GetDel(ctx, s.prefix+state))
}

func (s *StateCache) Del(ctx context.Context, state string) error {
	return s.rdb.Del(ctx, s.prefix+state).Err()
}

func (s *StateCache) decode(cmd *redis.StringCmd) (oidckit.StateData, bool, error) {
	raw, err := cmd.Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return oidckit.StateData{}, false, nil
	case err != nil:
		return oidckit.StateData{}, false, fmt.Errorf("redisstore: read state: %w", err)
	}
	var d oidckit.StateData
	if err := json.Unmarshal(raw, &d); err != nil {
		return oidckit.StateData{}, false, fmt.Errorf("redisstore: decode state: %w", err)
	}
	return d, true, nil
}
